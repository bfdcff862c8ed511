package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"git.platform.alem.school/amibragim/buildflow/internal/app/catalogservice"
	"git.platform.alem.school/amibragim/buildflow/internal/app/orderservice"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/cache"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/config"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/httpx"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/logger"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/rabbitmq"
	"git.platform.alem.school/amibragim/buildflow/internal/shared/storage"
	"github.com/redis/go-redis/v9"
)

// Options are the command-line settings of the api mode.
type Options struct {
	ConfigPath    string
	Port          int // 0 keeps the configured port
	MaxConcurrent int
}

// Run wires the HTTP API and blocks until ctx is cancelled.
// It returns the first terminal error (server or startup failure).
func Run(ctx context.Context, opts Options) error {
	// set up a new logger for the api with a static request ID for startup logs
	logger := logger.NewLogger("api")
	ctx = logger.WithRequestID(ctx, "startup-001")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err)
		return err
	}
	port := cfg.HTTP.Port
	if opts.Port != 0 {
		port = opts.Port
	}

	store, err := storage.Open(ctx, cfg.Database.URL, logger, storage.Options{})
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to open the store", err)
		return err
	}
	defer store.Close()

	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_config_failed", "Invalid RabbitMQ configuration", err)
		return err
	}
	defer rmq.Close()

	var redisClient *redis.Client
	if cfg.CacheEnabled() {
		redisClient, err = cache.NewClient(ctx, cfg.Redis.URL, logger)
		if err != nil {
			logger.Error(ctx, "redis_config_failed", "Invalid Redis configuration", err)
			return err
		}
		defer redisClient.Close()
	}
	productCache := cache.NewRedisCache(redisClient, cfg.Redis.CacheTTL, cfg.Redis.Timeout, logger)

	// set up application services
	orderSvc := orderservice.New(store.UoW, store.Products, store.Orders, rabbitmq.NewOrderPublisher(rmq), logger)
	catalogSvc := catalogservice.New(store.UoW, store.Products, productCache, logger)

	r := httpx.NewRouter(logger)
	r.Use(withConcurrencyLimit(opts.MaxConcurrent))
	catalogservice.NewHandler(catalogSvc, logger).Register(r)
	orderservice.NewOrderHTTPHandler(orderSvc, logger).Register(r)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// tie request contexts to the process lifetime
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logger.Info(ctx, "service_started",
		fmt.Sprintf("BuildFlow API started on port %d", port),
		map[string]any{"port": port, "max_concurrent": opts.MaxConcurrent, "store": store.Backend, "cache": cfg.CacheEnabled(), "broker_connected": rmq.Connected()},
	)

	errCh := make(chan error, 1)
	go func() {
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		// graceful HTTP shutdown (drain keep-alives / in-flight requests)
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Error(ctx, "shutdown_failed", "HTTP shutdown did not finish cleanly", err)
		}
		logger.Info(ctx, "graceful_shutdown", "API stopped", nil)
		return nil
	case err := <-errCh:
		if err != nil {
			logger.Error(ctx, "http_server_failed", "HTTP server stopped", err)
		}
		return err
	}
}

// withConcurrencyLimit is a semaphore-based limiter. It blocks until capacity
// is available, which provides natural backpressure. n <= 0 disables it.
func withConcurrencyLimit(n int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if n <= 0 {
			return next
		}
		sem := make(chan struct{}, n)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}: // acquire
			case <-r.Context().Done():
				return
			}
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		})
	}
}
