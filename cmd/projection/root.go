package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/couchcryptid/ecotrax-projection-service/internal/config"
	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/model"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/spf13/cobra"
)

// metrics are registered once per process; commands may run several times
// in tests.
var metrics = sync.OnceValue(observability.NewMetrics)

// cliOptions holds the persistent flags. Empty flags fall back to the
// environment configuration.
type cliOptions struct {
	sightingsPath string
	climatePath   string
	modelPath     string
	modelURL      string
	catalogPath   string
	workers       int
	jsonOut       bool

	cfg    *config.Config
	logger *slog.Logger
}

func getRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "projection",
		Short: "Species population projections from climate scenarios",
		Long: `projection reads historical sightings and climate projection files,
runs the population regression model, and reports predictions and trends.

Settings come from the same environment variables as the service
(SIGHTINGS_PATH, CLIMATE_PATH, MODEL_PATH, MODEL_URL, SPECIES_CATALOG_PATH,
PREDICTION_WORKERS, LOG_LEVEL). Flags override the environment.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			opts.apply(cfg)
			opts.cfg = cfg
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: observability.ParseLevel(cfg.LogLevel),
			}))
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.sightingsPath, "sightings", "", "sightings CSV file (default $SIGHTINGS_PATH)")
	pf.StringVar(&opts.climatePath, "climate", "", "climate projections CSV file (default $CLIMATE_PATH)")
	pf.StringVar(&opts.modelPath, "model", "", "regression artifact YAML (default $MODEL_PATH)")
	pf.StringVar(&opts.modelURL, "model-url", "", "remote inference server, overrides --model (default $MODEL_URL)")
	pf.StringVar(&opts.catalogPath, "catalog", "", "species catalog YAML (default built-in)")
	pf.IntVarP(&opts.workers, "workers", "w", 0, "parallel prediction workers (default $PREDICTION_WORKERS)")
	pf.BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")

	rootCmd.Flags().BoolP("version", "V", false, "version for projection")

	rootCmd.AddCommand(getPredictCmd(opts))
	rootCmd.AddCommand(getTrendCmd(opts))
	rootCmd.AddCommand(getValidateCmd(opts))

	return rootCmd
}

func (o *cliOptions) apply(cfg *config.Config) {
	if o.sightingsPath != "" {
		cfg.SightingsPath = o.sightingsPath
	}
	if o.climatePath != "" {
		cfg.ClimatePath = o.climatePath
	}
	if o.modelPath != "" {
		cfg.ModelPath = o.modelPath
	}
	if o.modelURL != "" {
		cfg.ModelURL = o.modelURL
	}
	if o.catalogPath != "" {
		cfg.SpeciesCatalogPath = o.catalogPath
	}
	if o.workers > 0 {
		cfg.PredictionWorkers = o.workers
	}
}

func (o *cliOptions) catalog() (domain.Catalog, error) {
	if o.cfg.SpeciesCatalogPath == "" {
		return domain.DefaultCatalog(), nil
	}
	return domain.LoadCatalog(o.cfg.SpeciesCatalogPath)
}

func (o *cliOptions) openModel(ctx context.Context) (domain.Predictor, error) {
	return model.Open(ctx, model.Options{
		ArtifactPath: o.cfg.ModelPath,
		RemoteURL:    o.cfg.ModelURL,
		Timeout:      o.cfg.ModelTimeout,
		CacheSize:    o.cfg.PredictionCacheSize,
	}, o.logger, metrics())
}

func (o *cliOptions) loadClimate() (*store.ClimateStore, error) {
	s := store.NewClimateStore(o.logger)
	if _, err := s.Load(o.cfg.ClimatePath); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *cliOptions) loadSightings() (*store.SightingStore, error) {
	s := store.NewSightingStore(o.logger)
	if _, err := s.Load(o.cfg.SightingsPath); err != nil {
		return nil, err
	}
	return s, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
