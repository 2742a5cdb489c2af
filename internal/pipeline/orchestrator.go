package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ClimateSource returns the climate projection records for one species.
type ClimateSource interface {
	Query(species string) ([]domain.ClimateProjection, error)
}

// Batch is the output of one GeneratePredictions call.
type Batch struct {
	RunID   string
	Species string
	Results []domain.PredictionResult
	Failed  int
}

// Orchestrator runs the model over every climate record of a species.
type Orchestrator struct {
	climate   ClimateSource
	predictor domain.Predictor
	logger    *slog.Logger
	metrics   *observability.Metrics
	workers   int
}

// NewOrchestrator creates an Orchestrator. A nil predictor is allowed and
// means the model failed to load; every call then returns
// domain.ErrModelNotLoaded.
func NewOrchestrator(climate ClimateSource, predictor domain.Predictor, logger *slog.Logger, metrics *observability.Metrics, workers int) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		climate:   climate,
		predictor: predictor,
		logger:    logger,
		metrics:   metrics,
		workers:   workers,
	}
}

// ModelLoaded reports whether predictions can be generated.
func (o *Orchestrator) ModelLoaded() bool {
	return o.predictor != nil
}

// GeneratePredictions predicts a population count for each climate record of
// species. Records the model rejects are logged and skipped; the call only
// fails when the model or the climate data are unavailable. Results keep the
// store's record order.
func (o *Orchestrator) GeneratePredictions(ctx context.Context, species string) ([]domain.PredictionResult, error) {
	b, err := o.Run(ctx, species)
	if err != nil {
		return nil, err
	}
	return b.Results, nil
}

// Run is GeneratePredictions with the batch bookkeeping attached.
func (o *Orchestrator) Run(ctx context.Context, species string) (Batch, error) {
	if o.predictor == nil {
		return Batch{}, domain.ErrModelNotLoaded
	}
	records, err := o.climate.Query(species)
	if err != nil {
		return Batch{}, err
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID, "species", species)

	slots := make([]*domain.PredictionResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, rec := range records {
		g.Go(func() error {
			slots[i] = o.predictOne(gctx, logger, rec)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	results := make([]domain.PredictionResult, 0, len(records))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	failed := len(records) - len(results)

	o.metrics.PredictionBatchDuration.Observe(time.Since(start).Seconds())
	minYear, maxYear := yearRange(results)
	logger.Info("prediction batch complete",
		"records", len(records),
		"succeeded", len(results),
		"failed", failed,
		"min_year", minYear,
		"max_year", maxYear,
		"duration", time.Since(start),
	)

	return Batch{RunID: runID, Species: species, Results: results, Failed: failed}, nil
}

func (o *Orchestrator) predictOne(ctx context.Context, logger *slog.Logger, rec domain.ClimateProjection) *domain.PredictionResult {
	count, err := o.predictor.Predict(ctx, rec.Features())
	if err != nil {
		logger.Warn("prediction failed, skipping record",
			"error", err,
			"year", rec.Year,
			"latitude", rec.Latitude,
			"longitude", rec.Longitude,
		)
		o.metrics.Predictions.WithLabelValues("error").Inc()
		return nil
	}
	o.metrics.Predictions.WithLabelValues("success").Inc()
	res := domain.NewPredictionResult(rec, count)
	return &res
}

func yearRange(results []domain.PredictionResult) (lo, hi int) {
	for i, r := range results {
		if i == 0 || r.Year < lo {
			lo = r.Year
		}
		if r.Year > hi {
			hi = r.Year
		}
	}
	return lo, hi
}
