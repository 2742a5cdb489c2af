package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/ecotrax-projection-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ecotrax-projection-service/internal/adapter/kafka"
	"github.com/couchcryptid/ecotrax-projection-service/internal/config"
	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/model"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	catalog := domain.DefaultCatalog()
	if cfg.SpeciesCatalogPath != "" {
		catalog, err = domain.LoadCatalog(cfg.SpeciesCatalogPath)
		if err != nil {
			logger.Error("failed to load species catalog", "path", cfg.SpeciesCatalogPath, "error", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sightings := store.NewSightingStore(logger)
	climate := store.NewClimateStore(logger)
	reloader := pipeline.NewReloader([]pipeline.ReloadTarget{
		{Name: "sightings", Path: cfg.SightingsPath, Loader: sightings},
		{
			Name:   "climate",
			Path:   cfg.ClimatePath,
			Loader: climate,
			OnLoad: func(s store.LoadStats) { metrics.ClimateRecordsLoaded.Set(float64(s.Records)) },
		},
	}, logger, metrics)

	// Missing data disables the affected views; the server still starts so a
	// later scheduled reload can recover.
	if err := reloader.Reload(); err != nil {
		logger.Error("initial data load incomplete", "error", err)
	}

	// A model failure disables predictions only. Historical sightings and
	// trends keep working.
	predictor, err := model.Open(ctx, model.Options{
		ArtifactPath: cfg.ModelPath,
		RemoteURL:    cfg.ModelURL,
		Timeout:      cfg.ModelTimeout,
		CacheSize:    cfg.PredictionCacheSize,
	}, logger, metrics)
	if err != nil {
		logger.Error("model unavailable, predictions disabled", "error", err)
		predictor = nil
	}

	orch := pipeline.NewOrchestrator(climate, predictor, logger, metrics, cfg.PredictionWorkers)

	var opts []pipeline.ServiceOption
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts = append(opts, pipeline.WithPublisher(writer))
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}
	svc := pipeline.NewService(sightings, climate, orch, catalog, logger, metrics, opts...)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	if cfg.ReloadSchedule != "" {
		if err := reloader.Start(cfg.ReloadSchedule); err != nil {
			logger.Error("failed to schedule reload", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	reloader.Stop(shutdownCtx)
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
