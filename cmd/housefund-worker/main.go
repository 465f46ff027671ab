package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"housefund/internal/amqp"
	"housefund/internal/backend"
	"housefund/internal/config"
	applog "housefund/internal/log"
	"housefund/internal/store"
	"housefund/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentWorker,
		Format:    cfg.LogFormat,
	})
	applog.SetDefault(logger)

	logger.Info("Starting housefund-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), cfg.BackendConfig())
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, applog.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err)
			}
		}()
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	// The worker only reads; it never publishes events of its own.
	pledges := store.New(result.Store, store.Options{
		Target:         cfg.Target(),
		Window:         cfg.PledgeWindow,
		StartDateMode:  store.StartDateMode(cfg.StartDateMode),
		StorageTimeout: cfg.StorageTimeout,
		MaxRetries:     cfg.SubmitRetries,
		ReadFallback:   cfg.ReadFallback,
		Logger:         logger.WithComponent(applog.ComponentStore).Logger,
	})

	activity := worker.NewActivityWorker(pledges, cfg.Target(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.Consume(gctx, activity.HandleEvent)
	})

	logger.Info("Worker consuming pledge events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		applog.FieldBackend, cfg.DataBackend)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
