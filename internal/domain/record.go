package domain

import (
	"context"
	"math"
)

// ProjectionStartYear is the first year served by climate projections.
// Earlier years belong to the historical record.
const ProjectionStartYear = 2025

// Timeline tags a sighting as observed or model-generated.
type Timeline string

const (
	TimelineHistorical Timeline = "Historical"
	TimelineProjected  Timeline = "Projected"
)

// HistoricalSighting is one observed population count at a location and year.
type HistoricalSighting struct {
	Species   string   `json:"species"`
	Year      int      `json:"year"`
	Count     int      `json:"count"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timeline  Timeline `json:"timeline"`
}

// ClimateProjection is one species/location/year environmental record used as
// model input.
type ClimateProjection struct {
	Year            int     `json:"year"`
	Species         string  `json:"species"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	Temperature     float64 `json:"temperature_c"`
	Precipitation   float64 `json:"precipitation_mm"`
	NDVI            float64 `json:"ndvi"`
	FireOccurred    bool    `json:"fire_occurred"`
	FireSize        float64 `json:"fire_size_km2"`
	FireProbability float64 `json:"fire_probability"`
}

// Confidence is 1 - FireProbability.
func (c ClimateProjection) Confidence() float64 {
	return 1 - c.FireProbability
}

// Features builds the model input for this record.
func (c ClimateProjection) Features() FeatureVector {
	return FeatureVector{
		Species:       c.Species,
		Latitude:      c.Latitude,
		Longitude:     c.Longitude,
		Temperature:   c.Temperature,
		Precipitation: c.Precipitation,
		NDVI:          c.NDVI,
		FireOccurred:  c.FireOccurred,
		FireSize:      c.FireSize,
	}
}

// Model feature names, in the order the regression was trained with.
const (
	FeatureSpecies       = "Species"
	FeatureLatitude      = "Latitude"
	FeatureLongitude     = "Longitude"
	FeatureTemperature   = "Temperature_C"
	FeaturePrecipitation = "Precipitation_mm"
	FeatureNDVI          = "NDVI"
	FeatureFireOccurred  = "Fire_Occurred"
	FeatureFireSize      = "Fire_Size_km2"
)

// NumericFeatures lists the continuous model inputs.
var NumericFeatures = []string{
	FeatureLatitude,
	FeatureLongitude,
	FeatureTemperature,
	FeaturePrecipitation,
	FeatureNDVI,
	FeatureFireSize,
}

// FeatureVector is the fixed set of eight inputs the model accepts.
type FeatureVector struct {
	Species       string
	Latitude      float64
	Longitude     float64
	Temperature   float64
	Precipitation float64
	NDVI          float64
	FireOccurred  bool
	FireSize      float64
}

// FireOccurredLabel encodes the fire flag in the model's categorical vocabulary.
func (f FeatureVector) FireOccurredLabel() string {
	if f.FireOccurred {
		return "TRUE"
	}
	return "FALSE"
}

// Numeric returns the continuous inputs keyed by feature name.
func (f FeatureVector) Numeric() map[string]float64 {
	return map[string]float64{
		FeatureLatitude:      f.Latitude,
		FeatureLongitude:     f.Longitude,
		FeatureTemperature:   f.Temperature,
		FeaturePrecipitation: f.Precipitation,
		FeatureNDVI:          f.NDVI,
		FeatureFireSize:      f.FireSize,
	}
}

// ModelInput returns all eight features keyed by the model's feature names.
func (f FeatureVector) ModelInput() map[string]any {
	in := make(map[string]any, 8)
	for k, v := range f.Numeric() {
		in[k] = v
	}
	in[FeatureSpecies] = f.Species
	in[FeatureFireOccurred] = f.FireOccurredLabel()
	return in
}

// Finite reports whether every numeric input is a finite number.
func (f FeatureVector) Finite() bool {
	for _, v := range f.Numeric() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Predictor maps a feature vector to a predicted population count. A loaded
// predictor is deterministic: the same input yields the same output.
type Predictor interface {
	Predict(ctx context.Context, features FeatureVector) (float64, error)
}

// ClimateData echoes the climate inputs behind a prediction.
type ClimateData struct {
	Temperature     float64 `json:"temperature_c"`
	Precipitation   float64 `json:"precipitation_mm"`
	NDVI            float64 `json:"ndvi"`
	FireProbability float64 `json:"fire_probability"`
}

// PredictionResult is the model output for one climate projection record.
// PredictedCount is the raw regression output and may be negative or
// fractional; use DisplayCount for presentation.
type PredictionResult struct {
	PredictedCount float64     `json:"predicted_count"`
	Year           int         `json:"year"`
	Latitude       float64     `json:"latitude"`
	Longitude      float64     `json:"longitude"`
	Confidence     float64     `json:"confidence"`
	ClimateData    ClimateData `json:"climate_data"`
}

// NewPredictionResult pairs a model output with the record it was computed from.
// The year comes from the record.
func NewPredictionResult(src ClimateProjection, predicted float64) PredictionResult {
	return PredictionResult{
		PredictedCount: predicted,
		Year:           src.Year,
		Latitude:       src.Latitude,
		Longitude:      src.Longitude,
		Confidence:     src.Confidence(),
		ClimateData: ClimateData{
			Temperature:     src.Temperature,
			Precipitation:   src.Precipitation,
			NDVI:            src.NDVI,
			FireProbability: src.FireProbability,
		},
	}
}

// DisplayCount rounds and clamps the raw prediction to a population count.
func (p PredictionResult) DisplayCount() int {
	return DisplayCount(p.PredictedCount)
}

// DisplayCount rounds half away from zero and clamps to [0, math.MaxInt].
func DisplayCount(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	switch {
	case r < 0:
		return 0
	case r >= float64(math.MaxInt):
		return math.MaxInt
	}
	return int(r)
}

// ProjectedSightings converts one year's predictions into map points tagged
// Projected.
func ProjectedSightings(predictions []PredictionResult, species string, year int) []HistoricalSighting {
	out := make([]HistoricalSighting, 0)
	for _, p := range predictions {
		if p.Year != year {
			continue
		}
		out = append(out, HistoricalSighting{
			Species:   species,
			Year:      p.Year,
			Count:     p.DisplayCount(),
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Timeline:  TimelineProjected,
		})
	}
	return out
}
