// ops поднимает служебный gRPC-сервер catalog-service: health-check, reflection
// и prometheus-метрики вызовов. Статус health отражает доступность основного хранилища.
package ops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/pribylovaa/go-movie-catalog/pkg/interceptors"
	"github.com/pribylovaa/go-movie-catalog/pkg/log"
)

// ServiceName - имя сервиса в health-протоколе (помимо общего статуса "").
const ServiceName = "catalog.v1.CatalogService"

var histogramOnce sync.Once

// Pinger - проверка доступности зависимости (postgres.Storage).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc адаптирует функцию к Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Options - параметры служебного сервера.
type Options struct {
	Logger *slog.Logger
	// Timeout - бюджет unary-вызова.
	Timeout time.Duration
	// Reflection включает gRPC reflection (local/dev).
	Reflection bool
	// Metrics включает grpc_prometheus-интерсепторы.
	Metrics bool
	// Probe - проверка хранилища; nil означает «всегда доступно».
	Probe Pinger
	// ProbeInterval - период проверки (<=0 - только однократная проверка при старте).
	ProbeInterval time.Duration
	// ProbeTimeout - бюджет одной проверки.
	ProbeTimeout time.Duration
}

// Server - служебный gRPC-сервер.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	opts   Options
}

// New собирает gRPC-сервер с цепочкой интерсепторов
// Recover → Logging → (prometheus) → Timeout и регистрирует health.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = time.Second
	}

	unary := []grpc.UnaryServerInterceptor{
		interceptors.Recover(opts.Logger),
		interceptors.UnaryLoggingInterceptor(opts.Logger),
	}
	stream := []grpc.StreamServerInterceptor{
		interceptors.StreamRecover(opts.Logger),
		interceptors.StreamLoggingInterceptor(opts.Logger),
	}
	if opts.Metrics {
		histogramOnce.Do(func() { grpcprom.EnableHandlingTimeHistogram() })
		unary = append(unary, grpcprom.UnaryServerInterceptor)
		stream = append(stream, grpcprom.StreamServerInterceptor)
	}
	unary = append(unary, interceptors.WithTimeout(opts.Timeout))

	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unary...),
		grpc.ChainStreamInterceptor(stream...),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)

	if opts.Reflection {
		reflection.Register(gs)
	}
	if opts.Metrics {
		grpcprom.Register(gs)
	}

	setStatus(hs, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{grpc: gs, health: hs, opts: opts}
}

// GRPC возвращает нижележащий *grpc.Server.
func (s *Server) GRPC() *grpc.Server { return s.grpc }

// Serve принимает соединения на lis до Stop/GracefulStop.
// Остановка сервера не считается ошибкой.
func (s *Server) Serve(lis net.Listener) error {
	const op = "ops.Serve"

	if err := s.grpc.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// StartProbe проверяет хранилище сразу и затем по тикеру, переключая
// статус SERVING/NOT_SERVING. Блокирует до отмены ctx, после чего статус - NOT_SERVING.
func (s *Server) StartProbe(ctx context.Context) {
	lg := log.From(ctx)

	serving := s.probeOnce(ctx, lg, nil)

	if s.opts.ProbeInterval <= 0 {
		<-ctx.Done()
		s.Shutdown()
		return
	}

	ticker := time.NewTicker(s.opts.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return
		case <-ticker.C:
			serving = s.probeOnce(ctx, lg, &serving)
		}
	}
}

// probeOnce выполняет одну проверку и логирует смену статуса.
func (s *Server) probeOnce(ctx context.Context, lg *slog.Logger, prev *bool) bool {
	ok := true
	if s.opts.Probe != nil {
		pctx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
		err := s.opts.Probe.Ping(pctx)
		cancel()

		if err != nil {
			ok = false
			if ctx.Err() != nil {
				return prev != nil && *prev
			}
			lg.Warn("storage_probe_failed", slog.String("err", err.Error()))
		}
	}

	if prev == nil || *prev != ok {
		if ok {
			setStatus(s.health, healthpb.HealthCheckResponse_SERVING)
		} else {
			setStatus(s.health, healthpb.HealthCheckResponse_NOT_SERVING)
		}
		lg.Info("health_status_changed", slog.Bool("serving", ok))
	}

	return ok
}

// Shutdown переводит health в NOT_SERVING для всех сервисов.
func (s *Server) Shutdown() {
	s.health.Shutdown()
}

// Stop останавливает сервер: сначала GracefulStop, по истечении timeout - Stop.
// Возвращает true, если остановка прошла штатно.
func (s *Server) Stop(timeout time.Duration) bool {
	s.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.grpc.Stop()
		return false
	}
}

func setStatus(hs *health.Server, st healthpb.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus("", st)
	hs.SetServingStatus(ServiceName, st)
}
