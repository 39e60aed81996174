package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallets/internal/admission"
	"wallets/internal/config"
	"wallets/internal/handlers"
	"wallets/internal/infra"
	"wallets/internal/logging"
	"wallets/internal/metrics"
	"wallets/internal/repository"
	"wallets/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	logger := logging.SetupLogger(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", slog.Any("err", err))
		os.Exit(1)
	}
	logger.Info("Server exiting")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	gin.SetMode(gin.ReleaseMode)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, closeStore, err := newRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, closeLimiter, err := newRateLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	ctrl := admission.NewController(admission.Config{
		MaxConcurrent: cfg.Admission.MaxConcurrent,
		AcquireWait:   cfg.Admission.Wait,
		Workers:       cfg.Admission.Workers,
		QueueSize:     cfg.Admission.QueueSize,
	}, limiter, logger, m)

	svc := service.NewWalletService(repo, logger,
		service.WithAdmission(ctrl),
		service.WithMetrics(m),
		service.WithOperationTimeout(cfg.OperationTimeout),
		service.WithLockTimeout(cfg.LockTimeout),
		service.WithMaxRetries(cfg.MaxCASRetries),
	)
	handler := handlers.NewWalletHTTPHandler(svc, logger)

	r := gin.New()
	r.Use(gin.Recovery(), handlers.RequestLogger(logger), metrics.HTTPMetricsMiddleware(m))
	handler.RegisterRoutes(r)
	r.GET("/metrics", metrics.Handler(reg))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			slog.String("port", cfg.Port),
			slog.String("store", cfg.StoreBackend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		if err != nil {
			ctrl.Close()
			return fmt.Errorf("listen: %w", err)
		}
	}
	logger.Info("Shutting down server")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("err", err))
	}
	ctrl.Close()
	return nil
}

func newRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.WalletRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := infra.NewPostgresPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewWalletPGRepository(pool, logger), pool.Close, nil
	case config.BackendDynamoDB:
		client, err := infra.NewDynamoDBClient(ctx, cfg.DynamoDBWalletsTable)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewWalletDynamoRepository(client, cfg.DynamoDBWalletsTable, logger), func() {}, nil
	default:
		logger.Warn("Using in-memory wallet store, balances are lost on restart")
		return repository.NewWalletMemoryRepository(), func() {}, nil
	}
}

func newRateLimiter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (admission.RateLimiter, func(), error) {
	if cfg.Admission.RateLimit == 0 {
		return admission.Unlimited(), func() {}, nil
	}
	if cfg.RedisURL == "" {
		return admission.NewFixedWindow(cfg.Admission.RateLimit, cfg.Admission.RateLimitWindow), func() {}, nil
	}

	client, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Using shared rate limiter", slog.Int("limit", cfg.Admission.RateLimit))
	return admission.NewRedisFixedWindow(client, cfg.Admission.RateLimit, cfg.Admission.RateLimitWindow), func() {
		_ = client.Close()
	}, nil
}
