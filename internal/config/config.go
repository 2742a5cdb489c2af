package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"
)

const maxPredictionWorkers = 64

// Config holds all service settings, populated from environment variables.
type Config struct {
	SightingsPath      string
	ClimatePath        string
	SpeciesCatalogPath string

	ModelPath           string
	ModelURL            string
	ModelTimeout        time.Duration
	PredictionWorkers   int
	PredictionCacheSize int

	// ReloadSchedule is a cron spec; empty disables scheduled reloads.
	ReloadSchedule string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Kafka publishing of prediction batches.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	modelTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MODEL_TIMEOUT", "5s"))
	if err != nil || modelTimeout <= 0 {
		return nil, errors.New("invalid MODEL_TIMEOUT")
	}

	workers, err := parseIntRange("PREDICTION_WORKERS", 1, 1, maxPredictionWorkers)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseIntRange("PREDICTION_CACHE_SIZE", 4096, 0, 1<<20)
	if err != nil {
		return nil, err
	}

	schedule := os.Getenv("RELOAD_SCHEDULE")
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("invalid RELOAD_SCHEDULE: %w", err)
		}
	}

	sinkTopic := os.Getenv("KAFKA_SINK_TOPIC")
	kafkaEnabled := sinkTopic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}
	if sinkTopic == "" {
		sinkTopic = "species-projections"
	}

	cfg := &Config{
		SightingsPath:      sharedcfg.EnvOrDefault("SIGHTINGS_PATH", "data/animal_data.csv"),
		ClimatePath:        sharedcfg.EnvOrDefault("CLIMATE_PATH", "data/spatial_climate_projections_ssp370.csv"),
		SpeciesCatalogPath: os.Getenv("SPECIES_CATALOG_PATH"),

		ModelPath:           sharedcfg.EnvOrDefault("MODEL_PATH", "models/ecotrax.yaml"),
		ModelURL:            os.Getenv("MODEL_URL"),
		ModelTimeout:        modelTimeout,
		PredictionWorkers:   workers,
		PredictionCacheSize: cacheSize,
		ReloadSchedule:      schedule,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sinkTopic,
	}

	if cfg.SightingsPath == "" {
		return nil, errors.New("SIGHTINGS_PATH is required")
	}
	if cfg.ClimatePath == "" {
		return nil, errors.New("CLIMATE_PATH is required")
	}
	if cfg.ModelURL == "" && cfg.ModelPath == "" {
		return nil, errors.New("one of MODEL_PATH or MODEL_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func parseIntRange(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}
