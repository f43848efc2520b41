package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/quakewatch/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quakewatch/internal/adapter/kafka"
	"github.com/couchcryptid/quakewatch/internal/adapter/usgs"
	"github.com/couchcryptid/quakewatch/internal/config"
	"github.com/couchcryptid/quakewatch/internal/dashboard"
	"github.com/couchcryptid/quakewatch/internal/domain"
	"github.com/couchcryptid/quakewatch/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := usgs.NewClient(cfg.USGSBaseURL, cfg.USGSTimeout, metrics, logger)
	source := usgs.NewCachedClient(client, usgs.CacheOptions{
		FeedStaleAfter:   cfg.FeedStaleAfter,
		DetailStaleAfter: cfg.DetailStaleAfter,
		DetailCacheSize:  cfg.DetailCacheSize,
	}, metrics)

	// Alert publishing is feature-flagged via ALERTS_ENABLED.
	var (
		alerts dashboard.AlertSink
		writer *kafkaadapter.Writer
	)
	if cfg.AlertsEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		alerts = writer
		metrics.AlertsEnabled.Set(1)
		logger.Info("kafka alerts enabled",
			"brokers", cfg.KafkaBrokers,
			"topic", cfg.KafkaAlertTopic,
			"min_magnitude", cfg.AlertMinMagnitude,
		)
	} else {
		logger.Info("kafka alerts disabled")
	}

	opts := dashboard.Options{
		Filter:            domain.Filter{Window: cfg.FeedWindow},
		StatsThreshold:    cfg.StatsThreshold,
		AlertMinMagnitude: cfg.AlertMinMagnitude,
		RefreshInterval:   cfg.RefreshInterval,
		ListItemHeight:    cfg.ListItemHeight,
		ListOverscan:      cfg.ListOverscan,
		MapPadding:        cfg.MapPadding,
		MapDebounce:       cfg.MapDebounce,
	}
	dash := dashboard.New(source, source, alerts, opts, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, dash, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := dash.Run(ctx); err != nil {
			logger.Error("refresh loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
