package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/config"
	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePrediction() domain.PredictionResult {
	return domain.PredictionResult{
		PredictedCount: 11.6,
		Year:           2030,
		Latitude:       34.25,
		Longitude:      -118.5,
		Confidence:     0.9,
		ClimateData: domain.ClimateData{
			Temperature:     18.2,
			Precipitation:   410.5,
			NDVI:            0.41,
			FireProbability: 0.1,
		},
	}
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	msg, err := serializeToMessage("run-1", "Condor", samplePrediction(), now)
	require.NoError(t, err)

	assert.Equal(t, "Condor|2030|34.25|-118.5", string(msg.Key))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "species", msg.Headers[0].Key)
	assert.Equal(t, []byte("Condor"), msg.Headers[0].Value)
	assert.Equal(t, "run_id", msg.Headers[1].Key)
	assert.Equal(t, []byte("run-1"), msg.Headers[1].Value)
	assert.Equal(t, "published_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "run-1", body["run_id"])
	assert.Equal(t, "Condor", body["species"])
	assert.InDelta(t, 11.6, body["predicted_count"], 1e-9)
	assert.InDelta(t, 12.0, body["display_count"], 1e-9)
	assert.InDelta(t, 2030.0, body["year"], 1e-9)
	assert.Contains(t, body, "climate_data")
}

func TestSerializeToMessage_NonFinite(t *testing.T) {
	p := samplePrediction()
	p.PredictedCount = math.Inf(1)

	_, err := serializeToMessage("run-1", "Condor", p, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serialize prediction")
}

func TestWriter_PublishEmptyBatch(t *testing.T) {
	w := NewWriter(&config.Config{KafkaBrokers: []string{"localhost:1"}, KafkaSinkTopic: "unused"}, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = w.Close() })

	// No messages means no broker round trip.
	require.NoError(t, w.Publish(context.Background(), "run-1", "Condor", nil))
}
