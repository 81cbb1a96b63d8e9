package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"anchorgate/internal/events"
	"anchorgate/internal/httpform"
	"anchorgate/internal/platform/config"
	"anchorgate/internal/platform/httpserver"
	"anchorgate/internal/platform/logger"
	platformredis "anchorgate/internal/platform/redis"
	"anchorgate/internal/ratelimit"
	"anchorgate/internal/sep10"
	"anchorgate/internal/sep12"
	"anchorgate/internal/sep12/handler"
	sep12metrics "anchorgate/internal/sep12/metrics"
	"anchorgate/internal/sep12/service"
	"anchorgate/internal/sep12/store/memory"
	"anchorgate/internal/sep12/store/postgres"
)

// main wires the SEP-12 pipeline: config, store, event publisher, rate
// limiter, and the HTTP surface. Business logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := newStore(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize customer store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	svc := service.New(
		sep12.NewLocalIntegration(store),
		publisher,
		log,
		sep12metrics.New(prometheus.DefaultRegisterer),
	)
	verifier := sep10.NewVerifier(cfg.JWTSigningKey, cfg.JWTIssuer)
	customerHandler := handler.New(svc, log, httpform.Limits{
		MaxFileSize:  cfg.MaxFileSize,
		MaxFileCount: cfg.MaxFileCount,
	})

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(sep10.RequireToken(verifier, log))
		var writeMiddlewares []func(http.Handler) http.Handler
		if cfg.RateLimitPerMinute > 0 {
			writeMiddlewares = append(writeMiddlewares,
				ratelimit.Middleware(newLimiter(cfg, redisClient), log))
		}
		customerHandler.Register(r, writeMiddlewares...)
	})

	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting anchorgate", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// newStore selects the postgres store when a DSN is configured and falls
// back to the in-memory store for development.
func newStore(ctx context.Context, cfg config.Config) (sep12.CustomerStore, func(), error) {
	if cfg.PostgresDSN == "" {
		return memory.New(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	store := postgres.New(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool.Close, nil
}

// newPublisher selects the kafka publisher when brokers are configured.
func newPublisher(ctx context.Context, cfg config.Config) (events.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewMemoryPublisher(), nil
	}
	return events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
}

// newLimiter shares limits across replicas through redis when available.
func newLimiter(cfg config.Config, redisClient *platformredis.Client) ratelimit.Limiter {
	if redisClient != nil {
		return ratelimit.NewRedisLimiter(redisClient.Client, cfg.RateLimitPerMinute, time.Minute)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
}
