// metrics содержит prometheus-коллекторы catalog-service:
// HTTP-запросы, переходы на запасное хранилище, кэш Total и исходы загрузок списков.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pribylovaa/go-movie-catalog/internal/pager"
)

const namespace = "catalog"

// Metrics - набор коллекторов. Безопасен для конкурентного использования.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	fallbacks     *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	pagerFetches  *prometheus.CounterVec
	pagerDuration *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg (nil -> prometheus.DefaultRegisterer).
// Повторная регистрация в том же реестре приводит к panic.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "fallback_total",
			Help:      "Responses served from the fallback storage.",
		}, []string{"op"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "service",
			Name:      "total_cache_lookups_total",
			Help:      "Total cache lookups by result.",
		}, []string{"result"}),
		pagerFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pager",
			Name:      "fetches_total",
			Help:      "List controller fetch attempts by list, mode and outcome.",
		}, []string{"list", "mode", "outcome"}),
		pagerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pager",
			Name:      "fetch_duration_seconds",
			Help:      "List controller fetch duration including the minimum loading time.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"list", "mode"}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.fallbacks,
		m.cacheLookups,
		m.pagerFetches,
		m.pagerDuration,
	)

	return m
}

// ObserveHTTP учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveHTTP(method, route string, code int, dur time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// FallbackUsed реализует service.Recorder.
func (m *Metrics) FallbackUsed(op string) {
	m.fallbacks.WithLabelValues(op).Inc()
}

// CacheLookup реализует service.Recorder.
func (m *Metrics) CacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObservePager подходит для pager.Config.OnSettle.
func (m *Metrics) ObservePager(name string, mode pager.Mode, outcome pager.Outcome, dur time.Duration) {
	m.pagerFetches.WithLabelValues(name, mode.String(), string(outcome)).Inc()
	if outcome == pager.OutcomeSuccess || outcome == pager.OutcomeFailed {
		m.pagerDuration.WithLabelValues(name, mode.String()).Observe(dur.Seconds())
	}
}
