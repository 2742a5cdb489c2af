package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/couchcryptid/ecotrax-projection-service/internal/observability"
	"github.com/couchcryptid/ecotrax-projection-service/internal/pipeline"
	"github.com/couchcryptid/ecotrax-projection-service/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const climateFixture = `year,species,latitude,longitude,temperature_C,precipitation_mm,ndvi,fire_occurred,fire_size_km2,fire_probability
2025,Condor,34.0,-118.0,18.2,410.5,0.41,FALSE,0,0.1
2025,Condor,36.0,-120.0,18.9,390.0,0.38,TRUE,4.5,0.2
2031,Condor,34.0,-118.0,bad,390.0,0.38,TRUE,4.5,0.2
`

const sightingsFixture = `species,year,count,latitude,longitude,timeline
Condor,2020,15,34.0,-118.0,Historical
Condor,2021,20,34.0,-118.0,Historical
`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReloader_Reload(t *testing.T) {
	climate := store.NewClimateStore(discardLogger())
	sightings := store.NewSightingStore(discardLogger())
	metrics := observability.NewMetricsForTesting()

	var climateLoads int
	r := pipeline.NewReloader([]pipeline.ReloadTarget{
		{Name: "sightings", Path: writeFixture(t, "sightings.csv", sightingsFixture), Loader: sightings},
		{
			Name:   "climate",
			Path:   writeFixture(t, "climate.csv", climateFixture),
			Loader: climate,
			OnLoad: func(s store.LoadStats) {
				climateLoads++
				metrics.ClimateRecordsLoaded.Set(float64(s.Records))
			},
		},
	}, discardLogger(), metrics)

	require.NoError(t, r.Reload())

	assert.Equal(t, 2, climate.Len())
	assert.Equal(t, 2, sightings.Len())
	assert.Equal(t, 1, climateLoads)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.ClimateRecordsLoaded), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.RowsParsed.WithLabelValues("climate")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RowsDropped.WithLabelValues("climate")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.StoreReloads.WithLabelValues("success")), 1e-9)
}

func TestReloader_FailedReloadKeepsSnapshot(t *testing.T) {
	climate := store.NewClimateStore(discardLogger())
	metrics := observability.NewMetricsForTesting()
	path := writeFixture(t, "climate.csv", climateFixture)

	r := pipeline.NewReloader([]pipeline.ReloadTarget{
		{Name: "climate", Path: path, Loader: climate},
	}, discardLogger(), metrics)
	require.NoError(t, r.Reload())

	require.NoError(t, os.Remove(path))
	err := r.Reload()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataNotFound)
	assert.Contains(t, err.Error(), "climate")

	got, err := climate.Query("Condor")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.StoreReloads.WithLabelValues("error")), 1e-9)
}

func TestReloader_AttemptsEveryTarget(t *testing.T) {
	sightings := store.NewSightingStore(discardLogger())
	r := pipeline.NewReloader([]pipeline.ReloadTarget{
		{Name: "climate", Path: filepath.Join(t.TempDir(), "missing.csv"), Loader: store.NewClimateStore(discardLogger())},
		{Name: "sightings", Path: writeFixture(t, "sightings.csv", sightingsFixture), Loader: sightings},
	}, discardLogger(), observability.NewMetricsForTesting())

	err := r.Reload()
	require.Error(t, err)
	assert.True(t, sightings.Loaded())
}

func TestReloader_Schedule(t *testing.T) {
	r := pipeline.NewReloader(nil, discardLogger(), observability.NewMetricsForTesting())

	require.Error(t, r.Start("not a schedule"))
	require.NoError(t, r.Start("@every 1h"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}

func TestReloader_StopWithoutStart(t *testing.T) {
	r := pipeline.NewReloader(nil, discardLogger(), observability.NewMetricsForTesting())
	r.Stop(context.Background())
}
