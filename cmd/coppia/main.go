package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"coppia/internal/cli"
	apphttp "coppia/internal/http"
	"coppia/internal/log"
	"coppia/internal/metrics"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.MustLoadConfig(logger)

	m := metrics.New()
	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{
		Metrics:        m,
		DashboardCache: true,
	})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, app.Service, apphttp.Options{
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("HTTP server shutdown failed", "error", err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	logger.Info("Starting coppia server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"amqp_enabled", app.Backend.Publisher != nil,
		"sheets_enabled", app.Backend.Exporter != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}
