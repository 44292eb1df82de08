package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-movie-catalog/internal/cache"
	"github.com/pribylovaa/go-movie-catalog/internal/config"
	cataloghttp "github.com/pribylovaa/go-movie-catalog/internal/http"
	"github.com/pribylovaa/go-movie-catalog/internal/image"
	"github.com/pribylovaa/go-movie-catalog/internal/metrics"
	"github.com/pribylovaa/go-movie-catalog/internal/ops"
	"github.com/pribylovaa/go-movie-catalog/internal/service"
	"github.com/pribylovaa/go-movie-catalog/internal/storage"
	"github.com/pribylovaa/go-movie-catalog/internal/storage/mock"
	"github.com/pribylovaa/go-movie-catalog/internal/storage/postgres"
	pkglog "github.com/pribylovaa/go-movie-catalog/pkg/log"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting catalog-service", "env", cfg.Env, "storage", cfg.Storage.Driver)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()
	rootCtx = pkglog.Into(rootCtx, log)

	fallback := mock.New(mock.Options{Seed: cfg.Storage.Seed, Latency: cfg.Fallback.MockLatency})

	store, probe, err := setupStorage(rootCtx, cfg, fallback)
	if err != nil {
		log.Error("storage_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	log.Info("storage_initialized", slog.String("driver", cfg.Storage.Driver))

	m := metrics.New(prometheus.DefaultRegisterer)

	svcOpts := []service.Option{service.WithRecorder(m)}
	if !cfg.Fallback.Disabled && cfg.Storage.Driver != config.DriverMock {
		svcOpts = append(svcOpts, service.WithFallback(fallback))
	}

	if !cfg.Images.Disabled {
		opt, err := image.New(image.Config{
			Provider:   image.Provider(cfg.Images.Provider),
			BaseURL:    cfg.Images.BaseURL,
			Quality:    cfg.Images.Quality,
			Format:     image.Format(cfg.Images.Format),
			EnableCrop: cfg.Images.EnableCrop,
		})
		if err != nil {
			log.Error("images_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		svcOpts = append(svcOpts, service.WithImages(opt))
	}

	var totals cache.TotalCache
	if cfg.Redis.URL != "" {
		totals, err = cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.Prefix)
		if err != nil {
			log.Error("redis_init_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
		defer func() {
			if cerr := totals.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()
		svcOpts = append(svcOpts, service.WithCache(totals))
		log.Info("redis_connected")
	}

	svc := service.New(store, *cfg, svcOpts...)
	log.Info("service_initialized")

	if totals != nil && cfg.Redis.WarmInterval > 0 {
		go func() {
			if err := svc.StartWarmup(rootCtx); err != nil {
				log.Warn("warmup_not_started", slog.String("err", err.Error()))
			}
		}()
	}

	// gRPC: служебный порт (health, reflection, метрики вызовов).
	opsSrv := ops.New(ops.Options{
		Logger:        log,
		Timeout:       cfg.Timeouts.Service,
		Reflection:    cfg.Env == envLocal || cfg.Env == envDev,
		Metrics:       true,
		Probe:         probe,
		ProbeInterval: cfg.GRPC.ProbeInterval,
		ProbeTimeout:  cfg.Timeouts.Storage,
	})

	grpcAddr := cfg.GRPC.Addr()
	grpcLn, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Error("grpc_listen_failed", slog.String("addr", grpcAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("grpc_listen_start", slog.String("addr", grpcAddr))

	// HTTP: API, /livez, /healthz, /metrics.
	apiHandler := cataloghttp.NewRouter(svc, cataloghttp.Options{
		Logger:      log,
		Timeout:     cfg.Timeouts.Service,
		Metrics:     m,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	var ready int32 // 0 - not ready; 1 - ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&ready) == 1 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}

		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	httpLn, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 2)
	go func() {
		if err := opsSrv.Serve(grpcLn); err != nil {
			serveErrCh <- err
		}
	}()
	go func() {
		if err := httpSrv.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
	}()

	probeCtx, probeCancel := context.WithCancel(rootCtx)
	probeDone := make(chan struct{})
	go func() {
		opsSrv.StartProbe(probeCtx)
		close(probeDone)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("catalog_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("serve_failed", slog.String("err", err.Error()))
	}

	atomic.StoreInt32(&ready, 0)
	probeCancel()
	<-probeDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if opsSrv.Stop(shutdownTimeout) {
		log.Info("grpc_stopped")
	} else {
		log.Warn("grpc_force_stop")
	}

	log.Info("service_stopped")
}

// setupStorage открывает основное хранилище по cfg.Storage.Driver и
// возвращает проверку доступности для health (nil для mock).
func setupStorage(ctx context.Context, cfg *config.Config, seed *mock.Storage) (storage.Storage, ops.Pinger, error) {
	if cfg.Storage.Driver == config.DriverMock {
		return seed, nil, nil
	}

	initCtx, cancel := context.WithTimeout(ctx, cfg.Timeouts.Service)
	defer cancel()

	store, err := postgres.New(initCtx, cfg.DB.URL)
	if err != nil {
		return nil, nil, err
	}

	if cfg.DB.SeedFromMock {
		items := seed.Dump()
		if err := store.SaveContent(initCtx, items); err != nil {
			store.Close()
			return nil, nil, err
		}
		members := seed.Memberships()
		if err := store.SaveCollectionMovies(initCtx, members); err != nil {
			store.Close()
			return nil, nil, err
		}
		pkglog.From(ctx).Info("postgres_seeded",
			slog.Int("items", len(items)),
			slog.Int("collections", len(members)),
		)
	}

	return store, store, nil
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
