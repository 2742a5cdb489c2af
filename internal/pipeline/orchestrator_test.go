package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockPredictor returns a count keyed by latitude and fails for any latitude
// listed in fail.
type mockPredictor struct {
	counts map[float64]float64
	fail   map[float64]bool

	mu    sync.Mutex
	calls int
}

func (m *mockPredictor) Predict(_ context.Context, f domain.FeatureVector) (float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.fail[f.Latitude] {
		return 0, fmt.Errorf("%w: rejected", domain.ErrPrediction)
	}
	return m.counts[f.Latitude], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func climateRecord(year int, species string, lat, fireProb float64) domain.ClimateProjection {
	return domain.ClimateProjection{
		Year:            year,
		Species:         species,
		Latitude:        lat,
		Longitude:       -118.0,
		Temperature:     18.5,
		Precipitation:   400,
		NDVI:            0.4,
		FireProbability: fireProb,
	}
}

func loadedClimate(records ...domain.ClimateProjection) *store.ClimateStore {
	s := store.NewClimateStore(discardLogger())
	s.Replace(records)
	return s
}

// --- tests ---

func TestOrchestrator_GeneratePredictions(t *testing.T) {
	climate := loadedClimate(
		climateRecord(2025, "Condor", 34.0, 0.1),
		climateRecord(2025, "Condor", 36.0, 0.2),
		climateRecord(2030, "Ocelot", 26.0, 0.05),
	)
	pred := &mockPredictor{counts: map[float64]float64{34.0: 10, 36.0: 12, 26.0: 3}}
	metrics := observability.NewMetricsForTesting()

	o := pipeline.NewOrchestrator(climate, pred, discardLogger(), metrics, 1)
	got, err := o.GeneratePredictions(context.Background(), "Condor")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.InDelta(t, 10.0, got[0].PredictedCount, 1e-9)
	assert.InDelta(t, 12.0, got[1].PredictedCount, 1e-9)
	assert.Equal(t, 2025, got[0].Year)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-9)
	assert.InDelta(t, 0.8, got[1].Confidence, 1e-9)
	assert.Equal(t, 2, pred.calls)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.Predictions.WithLabelValues("success")), 1e-9)
}

func TestOrchestrator_SkipsFailedRecords(t *testing.T) {
	var records []domain.ClimateProjection
	fail := map[float64]bool{}
	for i := range 10 {
		lat := 30.0 + float64(i)
		records = append(records, climateRecord(2025+i, "Condor", lat, 0.1))
		if i%3 == 0 {
			fail[lat] = true
		}
	}
	pred := &mockPredictor{counts: map[float64]float64{}, fail: fail}
	metrics := observability.NewMetricsForTesting()

	o := pipeline.NewOrchestrator(loadedClimate(records...), pred, discardLogger(), metrics, 1)
	b, err := o.Run(context.Background(), "Condor")
	require.NoError(t, err)

	assert.Len(t, b.Results, len(records)-len(fail))
	assert.Equal(t, len(fail), b.Failed)
	assert.NotEmpty(t, b.RunID)
	assert.InDelta(t, float64(len(fail)), testutil.ToFloat64(metrics.Predictions.WithLabelValues("error")), 1e-9)
	for _, r := range b.Results {
		assert.False(t, fail[r.Latitude], "failed record %v leaked into results", r.Latitude)
	}
}

func TestOrchestrator_AllFailuresIsNotAnError(t *testing.T) {
	climate := loadedClimate(climateRecord(2025, "Condor", 34.0, 0.1))
	pred := &mockPredictor{fail: map[float64]bool{34.0: true}}

	o := pipeline.NewOrchestrator(climate, pred, discardLogger(), observability.NewMetricsForTesting(), 1)
	got, err := o.GeneratePredictions(context.Background(), "Condor")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOrchestrator_UnknownSpecies(t *testing.T) {
	climate := loadedClimate(climateRecord(2025, "Condor", 34.0, 0.1))
	pred := &mockPredictor{counts: map[float64]float64{34.0: 1}}

	o := pipeline.NewOrchestrator(climate, pred, discardLogger(), observability.NewMetricsForTesting(), 1)
	got, err := o.GeneratePredictions(context.Background(), "condor")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, pred.calls)
}

func TestOrchestrator_Preconditions(t *testing.T) {
	metrics := observability.NewMetricsForTesting()

	t.Run("model not loaded", func(t *testing.T) {
		o := pipeline.NewOrchestrator(loadedClimate(), nil, discardLogger(), metrics, 1)
		assert.False(t, o.ModelLoaded())
		_, err := o.GeneratePredictions(context.Background(), "Condor")
		assert.ErrorIs(t, err, domain.ErrModelNotLoaded)
	})

	t.Run("data not loaded", func(t *testing.T) {
		empty := store.NewClimateStore(discardLogger())
		o := pipeline.NewOrchestrator(empty, &mockPredictor{}, discardLogger(), metrics, 1)
		_, err := o.GeneratePredictions(context.Background(), "Condor")
		assert.ErrorIs(t, err, domain.ErrDataNotLoaded)
	})
}

func TestOrchestrator_ConfidenceIsOneMinusFireProbability(t *testing.T) {
	probs := []float64{0, 0.1, 0.25, 0.333, 0.5, 0.99, 1}
	var records []domain.ClimateProjection
	for i, p := range probs {
		records = append(records, climateRecord(2025, "Condor", float64(i), p))
	}
	pred := &mockPredictor{counts: map[float64]float64{}}

	o := pipeline.NewOrchestrator(loadedClimate(records...), pred, discardLogger(), observability.NewMetricsForTesting(), 1)
	got, err := o.GeneratePredictions(context.Background(), "Condor")
	require.NoError(t, err)
	require.Len(t, got, len(probs))
	for i, r := range got {
		assert.Equal(t, 1-probs[i], r.Confidence)
	}
}

func TestOrchestrator_WorkersPreserveSourceOrder(t *testing.T) {
	var records []domain.ClimateProjection
	counts := map[float64]float64{}
	fail := map[float64]bool{}
	for i := range 200 {
		lat := float64(i)
		records = append(records, climateRecord(2025+i%26, "Condor", lat, 0.1))
		counts[lat] = float64(i * 2)
		if i%7 == 0 {
			fail[lat] = true
		}
	}
	climate := loadedClimate(records...)

	serial := pipeline.NewOrchestrator(climate, &mockPredictor{counts: counts, fail: fail}, discardLogger(), observability.NewMetricsForTesting(), 1)
	parallel := pipeline.NewOrchestrator(climate, &mockPredictor{counts: counts, fail: fail}, discardLogger(), observability.NewMetricsForTesting(), 8)

	want, err := serial.GeneratePredictions(context.Background(), "Condor")
	require.NoError(t, err)
	got, err := parallel.GeneratePredictions(context.Background(), "Condor")
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("parallel results differ (-serial +parallel):\n%s", diff)
	}
}

func TestOrchestrator_FeedsTrendAggregator(t *testing.T) {
	climate := loadedClimate(
		climateRecord(2025, "Condor", 34.0, 0.1),
		climateRecord(2025, "Condor", 36.0, 0.2),
	)
	pred := &mockPredictor{counts: map[float64]float64{34.0: 10, 36.0: 12}}

	o := pipeline.NewOrchestrator(climate, pred, discardLogger(), observability.NewMetricsForTesting(), 2)
	preds, err := o.GeneratePredictions(context.Background(), "Condor")
	require.NoError(t, err)

	points := domain.BuildTrend(nil, preds, "Condor")
	require.Len(t, points, 1)
	assert.Equal(t, 2025, points[0].Year)
	assert.Equal(t, 22, points[0].Count)
	assert.True(t, points[0].IsProjected)
	conf, ok := points[0].Confidence.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.85, conf, 1e-9)
}

var errBoom = errors.New("boom")
