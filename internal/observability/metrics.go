package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ecotrax"

// Metrics holds the Prometheus collectors for the projection pipeline.
type Metrics struct {
	// Ingestion metrics.
	RowsParsed           *prometheus.CounterVec // labels: file={sightings,climate}
	RowsDropped          *prometheus.CounterVec // labels: file={sightings,climate}
	ClimateRecordsLoaded prometheus.Gauge
	StoreReloads         *prometheus.CounterVec // labels: outcome={success,error}

	// Prediction metrics.
	ModelLoaded             prometheus.Gauge
	Predictions             *prometheus.CounterVec // labels: outcome={success,error}
	PredictionBatchDuration prometheus.Histogram
	PredictionCache         *prometheus.CounterVec // labels: result={hit,miss}

	PublishedPredictions prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_parsed_total",
			Help:      "Rows accepted from data files.",
		}, []string{"file"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Malformed rows skipped while reading data files.",
		}, []string{"file"}),
		ClimateRecordsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "climate_records_loaded",
			Help:      "Climate projection records in the current snapshot.",
		}),
		StoreReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_reloads_total",
			Help:      "Scheduled data reloads by outcome.",
		}, []string{"outcome"}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when the regression model is available, 0 otherwise.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Per-record predictions by outcome.",
		}, []string{"outcome"}),
		PredictionBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_batch_duration_seconds",
			Help:      "Duration of a full per-species prediction batch.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5},
		}),
		PredictionCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_cache_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		PublishedPredictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "published_predictions_total",
			Help:      "Prediction results written to the sink topic.",
		}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsParsed,
		m.RowsDropped,
		m.ClimateRecordsLoaded,
		m.StoreReloads,
		m.ModelLoaded,
		m.Predictions,
		m.PredictionBatchDuration,
		m.PredictionCache,
		m.PublishedPredictions,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many
// as they need without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
