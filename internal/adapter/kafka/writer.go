package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/ecotrax-projection-service/internal/config"
	"github.com/couchcryptid/ecotrax-projection-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces prediction results to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// message is the JSON value of one published prediction.
type message struct {
	RunID   string `json:"run_id"`
	Species string `json:"species"`
	domain.PredictionResult
	DisplayCount int `json:"display_count"`
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish writes one message per prediction in a single WriteMessages call.
// Messages are keyed by species, year, and location so repeated runs for the
// same record land on the same partition.
func (w *Writer) Publish(ctx context.Context, runID, species string, results []domain.PredictionResult) error {
	if len(results) == 0 {
		return nil
	}
	publishedAt := domain.Now().UTC()
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(runID, species, results[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d predictions: %w", len(msgs), err)
	}
	w.logger.Debug("predictions published", "run_id", runID, "species", species, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func messageKey(species string, r domain.PredictionResult) []byte {
	return []byte(species + "|" + strconv.Itoa(r.Year) + "|" +
		strconv.FormatFloat(r.Latitude, 'f', -1, 64) + "|" +
		strconv.FormatFloat(r.Longitude, 'f', -1, 64))
}

// serializeToMessage marshals a PredictionResult into a Kafka message.
func serializeToMessage(runID, species string, r domain.PredictionResult, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(message{
		RunID:            runID,
		Species:          species,
		PredictionResult: r,
		DisplayCount:     r.DisplayCount(),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction: %w", err)
	}
	return kafkago.Message{
		Key:   messageKey(species, r),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "species", Value: []byte(species)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
