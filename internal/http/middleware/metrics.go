package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver получает итог каждого запроса (реализуется metrics.Metrics).
type HTTPObserver interface {
	ObserveHTTP(method, route string, code int, dur time.Duration)
}

// Metrics сообщает observer метод, шаблон маршрута chi (например, /v1/lists/{list}),
// статус и длительность. nil observer делает мидлвар no-op.
func Metrics(obs HTTPObserver) Middleware {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			next.ServeHTTP(sw, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}

			obs.ObserveHTTP(r.Method, route, sw.code(), time.Since(start))
		})
	}
}
