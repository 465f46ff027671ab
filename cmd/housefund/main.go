package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"housefund/internal/amqp"
	"housefund/internal/backend"
	"housefund/internal/config"
	apphttp "housefund/internal/http"
	applog "housefund/internal/log"
	"housefund/internal/store"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: applog.ComponentApp,
		Format:    cfg.LogFormat,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	// Initialize the persistence backend
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

	// Initialize the AMQP event publisher (optional)
	var events store.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without pledge events", applog.FieldError, err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
			logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	pledges := store.New(result.Store, store.Options{
		Target:         cfg.Target(),
		Window:         cfg.PledgeWindow,
		StartDateMode:  store.StartDateMode(cfg.StartDateMode),
		StorageTimeout: cfg.StorageTimeout,
		MaxRetries:     cfg.SubmitRetries,
		ReadFallback:   cfg.ReadFallback,
		Events:         events,
		Logger:         logger.WithComponent(applog.ComponentStore).Logger,
	})

	srv := apphttp.NewServer(":"+cfg.Port, pledges, cfg.Target(), cfg.PledgeWindow, logger)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting housefund server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"target", cfg.Target().String(),
		"window", cfg.PledgeWindow.String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
