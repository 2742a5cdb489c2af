package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func condorSighting(year, count int) HistoricalSighting {
	return HistoricalSighting{Species: "Condor", Year: year, Count: count, Latitude: 34.0, Longitude: -118.0, Timeline: TimelineHistorical}
}

func TestBuildTrend_EndToEndHistorical(t *testing.T) {
	input := sightingHeader +
		"Condor,2020,15,34.0,-118.0,Historical\n" +
		"Condor,2021,20,34.0,-118.0,Historical\n"
	res, err := ParseSightings(strings.NewReader(input), ParseOptions{})
	require.NoError(t, err)

	points := BuildTrend(res.Records, nil, "Condor")
	require.Len(t, points, 2)
	assert.Equal(t, 2020, points[0].Year)
	assert.Equal(t, 15, points[0].Count)
	assert.Equal(t, 2021, points[1].Year)
	assert.Equal(t, 20, points[1].Count)
	for _, p := range points {
		assert.False(t, p.IsProjected)
		assert.False(t, p.Confidence.IsSome())
	}

	change := ChangeBetween(points[0], points[1])
	assert.Equal(t, 5, change.Amount)
	assert.InDelta(t, 33.3, change.Percent, 0.05)
}

func TestBuildTrend_EndToEndProjected(t *testing.T) {
	predictions := []PredictionResult{
		NewPredictionResult(ClimateProjection{Year: 2025, Species: "Condor", Latitude: 34.0, Longitude: -118.0, FireProbability: 0.1}, 10),
		NewPredictionResult(ClimateProjection{Year: 2025, Species: "Condor", Latitude: 36.0, Longitude: -120.0, FireProbability: 0.2}, 12),
	}

	points := BuildTrend(nil, predictions, "Condor")
	require.Len(t, points, 1)
	assert.Equal(t, 2025, points[0].Year)
	assert.Equal(t, 22, points[0].Count)
	assert.True(t, points[0].IsProjected)

	conf, ok := points[0].Confidence.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.85, conf, 1e-9)
}

func TestBuildTrend_GroupsAndSorts(t *testing.T) {
	sightings := []HistoricalSighting{
		condorSighting(2012, 4),
		condorSighting(2010, 3),
		condorSighting(2012, 6),
		{Species: "Ocelot", Year: 2010, Count: 99, Timeline: TimelineHistorical},
		{Species: "Condor", Year: 2011, Count: 50, Timeline: TimelineProjected},
	}
	predictions := []PredictionResult{
		{Year: 2030, PredictedCount: 7.4, Confidence: 0.5},
		{Year: 2025, PredictedCount: 2.5, Confidence: 1},
		{Year: 2030, PredictedCount: 1.2, Confidence: 0.7},
		{Year: 2024, PredictedCount: 100, Confidence: 1},
	}

	points := BuildTrend(sightings, predictions, "Condor")

	years := make([]int, 0, len(points))
	for _, p := range points {
		years = append(years, p.Year)
	}
	assert.Equal(t, []int{2010, 2012, 2025, 2030}, years)

	assert.Equal(t, 3, points[0].Count)
	assert.Equal(t, 10, points[1].Count)
	assert.Equal(t, 3, points[2].Count, "2.5 rounds half away from zero")
	assert.Equal(t, 9, points[3].Count, "7.4 + 1.2 = 8.6 rounds to 9")

	conf, ok := points[3].Confidence.Get()
	require.True(t, ok)
	assert.InDelta(t, 0.6, conf, 1e-9)

	for i := 1; i < len(points); i++ {
		assert.Less(t, points[i-1].Year, points[i].Year)
	}
}

func TestBuildTrend_ClampsNegativeTotals(t *testing.T) {
	predictions := []PredictionResult{
		{Year: 2040, PredictedCount: -3.2, Confidence: 0.9},
		{Year: 2040, PredictedCount: 1.0, Confidence: 0.9},
	}
	points := BuildTrend(nil, predictions, "Condor")
	require.Len(t, points, 1)
	assert.Equal(t, 0, points[0].Count)
}

func TestBuildTrend_Empty(t *testing.T) {
	points := BuildTrend(nil, nil, "Condor")
	assert.Empty(t, points)
}

func TestChangeBetween(t *testing.T) {
	tests := []struct {
		name        string
		start, end  int
		wantAmount  int
		wantPercent float64
	}{
		{"growth", 20, 30, 10, 50},
		{"decline", 40, 30, -10, -25},
		{"flat", 12, 12, 0, 0},
		{"zero baseline", 0, 17, 17, 0},
		{"zero to zero", 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChangeBetween(PopulationDataPoint{Count: tt.start}, PopulationDataPoint{Count: tt.end})
			assert.Equal(t, tt.wantAmount, got.Amount)
			assert.InDelta(t, tt.wantPercent, got.Percent, 1e-9)
		})
	}
}

func TestSummarizeTrend(t *testing.T) {
	points := []PopulationDataPoint{
		{Year: 2010, Count: 10},
		{Year: 2024, Count: 15},
		{Year: 2025, Count: 16, IsProjected: true, Confidence: Some(0.8)},
		{Year: 2050, Count: 8, IsProjected: true, Confidence: Some(0.7)},
	}

	s := SummarizeTrend(points)
	assert.Equal(t, Change{Amount: 5, Percent: 50}, s.Historical)
	assert.Equal(t, Change{Amount: -8, Percent: -50}, s.Projected)

	assert.Equal(t, TrendSummary{}, SummarizeTrend(nil))
}

func TestNewTrend_StampsGeneratedAt(t *testing.T) {
	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })

	tr := NewTrend([]HistoricalSighting{condorSighting(2020, 15)}, nil, "Condor")
	assert.Equal(t, at, tr.GeneratedAt)
	assert.Equal(t, "Condor", tr.Species)
	require.Len(t, tr.Points, 1)
}

func TestPopulationDataPoint_JSON(t *testing.T) {
	hist, err := json.Marshal(PopulationDataPoint{Year: 2020, Count: 15, Confidence: None[float64]()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":2020,"count":15,"is_projected":false,"confidence":null}`, string(hist))

	proj, err := json.Marshal(PopulationDataPoint{Year: 2025, Count: 22, IsProjected: true, Confidence: Some(0.85)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"year":2025,"count":22,"is_projected":true,"confidence":0.85}`, string(proj))

	var decoded PopulationDataPoint
	require.NoError(t, json.Unmarshal(proj, &decoded))
	assert.Equal(t, 0.85, decoded.Confidence.OrElse(0))
}
