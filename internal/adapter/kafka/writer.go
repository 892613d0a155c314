package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/ocean-data-service/internal/config"
	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

// Publisher streams cleaned record batches to the sink Kafka topic so
// downstream consumers (dashboards, model training jobs) see the same data
// the API served. Publishing is best-effort and feature flagged: a broker
// outage never affects the request path.
type Publisher struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewPublisher creates a Kafka producer for the configured sink topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	metrics.PublisherEnabled.Set(1)
	return &Publisher{writer: w, logger: logger, metrics: metrics}
}

// PublishBatch serializes and publishes a cleaned batch in a single
// WriteMessages call. Records are keyed by ID so re-published batches
// compact cleanly.
func (p *Publisher) PublishBatch(ctx context.Context, records []domain.CanonicalRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish record batch: %w", err)
	}
	p.metrics.RecordsPublished.Add(float64(len(records)))
	p.logger.Info("batch published", "topic", p.writer.Topic, "records", len(records))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(rec domain.CanonicalRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record %s: %w", rec.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "data_source", Value: []byte(rec.DataSource)},
			{Key: "measured_at", Value: []byte(rec.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}
