// Command ingest runs one ingestion pass: it reads every configured source,
// aggregates entity series, prepares the configured charts and publishes the
// frames to Kafka for the renderer. With SERVE_METRICS=true the process keeps
// serving health and metrics endpoints until it receives a signal.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/epi-series-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/epi-series-etl/internal/adapter/kafka"
	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/observability"
	"github.com/couchcryptid/epi-series-etl/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	charts, err := config.LoadCharts(cfg.ChartsFile)
	if err != nil {
		logger.Error("failed to load charts", "error", err)
		return 1
	}

	var loader pipeline.FrameLoader
	if cfg.PublishEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		loader = writer
	} else {
		logger.Info("publishing disabled, frames are prepared only")
	}

	p := pipeline.New(pipeline.SourcesFromConfig(cfg, logger), charts, cfg.PopulationPaths(), loader, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	code := 0
	if _, err := p.Run(ctx); err != nil {
		logger.Error("pipeline error", "error", err)
		code = 1
	}

	if cfg.ServeMetrics && ctx.Err() == nil {
		logger.Info("run finished, serving metrics until signalled")
		<-ctx.Done()
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return code
}
