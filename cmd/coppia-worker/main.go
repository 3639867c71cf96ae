package main

import (
	"context"
	"os"

	"coppia/internal/cli"
	"coppia/internal/log"
	"coppia/internal/worker"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	cfg := cli.MustLoadConfig(logger)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to run the evaluation worker")
		os.Exit(1)
	}

	logger.Info("Starting coppia-worker", "backend", cfg.DataBackend, "prefetch", cfg.WorkerPrefetch)

	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{})
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	if app.Backend.Publisher == nil {
		// The factory degrades to inline evaluation; a worker without a broker has nothing to do.
		logger.Error("AMQP broker unreachable", "exchange", cfg.AMQPExchange)
		_ = app.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	})

	w := worker.NewEvaluationWorker(app.Service, cfg.WorkerPrefetch)
	if err := w.Run(ctx, app.Backend.Publisher); err != nil {
		logger.Error("Evaluation worker failed", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
}
