//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/couchcryptid/ocean-data-service/internal/adapter/kafka"
	"github.com/couchcryptid/ocean-data-service/internal/config"
	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

const testSinkTopic = "test-ocean-records"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer ctrlConn.Close()

	require.NoError(t, ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestPublisherRoundTrip verifies that a cleaned batch published through the
// adapter arrives on the sink topic with keys, headers, and payload intact.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSinkTopic)

	cfg := &config.Config{
		KafkaBrokers:   []string{broker},
		KafkaSinkTopic: testSinkTopic,
	}

	publisher := kafkaadapter.NewPublisher(cfg, discardLogger(), observability.NewMetricsForTesting())
	t.Cleanup(func() { _ = publisher.Close() })

	batch := []domain.CanonicalRecord{
		{
			ID:          "WMO_2014_IND_5904321_42",
			Lat:         -12.5,
			Lon:         85.2,
			Timestamp:   time.Date(2014, 6, 1, 12, 0, 0, 0, time.UTC),
			Temperature: domain.Float(25.43),
			Salinity:    domain.Float(35.12),
			Pressure:    domain.Float(52.3),
			CycleNumber: domain.Int(42),
			Status:      domain.StatusActive,
			DataSource:  domain.SourceLive,
		},
		{
			ID:          "WMO_2014_IND_FALLBACK_9ab31c02",
			Lat:         -20.1,
			Lon:         70.8,
			Timestamp:   time.Date(2014, 7, 3, 6, 0, 0, 0, time.UTC),
			Temperature: domain.Float(27.1),
			Salinity:    domain.Float(35.8),
			Pressure:    domain.Float(810.5),
			Status:      domain.StatusInactive,
			DataSource:  domain.SourceFallback,
		},
	}
	require.NoError(t, publisher.PublishBatch(ctx, batch))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make(map[string]domain.CanonicalRecord, len(batch))
	headers := make(map[string]map[string]string, len(batch))
	for len(received) < len(batch) {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from sink topic")

		var rec domain.CanonicalRecord
		require.NoError(t, json.Unmarshal(msg.Value, &rec))
		received[string(msg.Key)] = rec

		h := make(map[string]string, len(msg.Headers))
		for _, hdr := range msg.Headers {
			h[hdr.Key] = string(hdr.Value)
		}
		headers[string(msg.Key)] = h
	}

	for _, want := range batch {
		got, ok := received[want.ID]
		require.True(t, ok, "record %s not published", want.ID)
		assert.Equal(t, want.Lat, got.Lat)
		assert.Equal(t, want.Lon, got.Lon)
		assert.Equal(t, want.DataSource, got.DataSource)
		require.NotNil(t, got.Temperature)
		assert.Equal(t, *want.Temperature, *got.Temperature)

		h := headers[want.ID]
		assert.Equal(t, string(want.DataSource), h["data_source"])
		measured, err := time.Parse(time.RFC3339, h["measured_at"])
		assert.NoError(t, err, "measured_at should be valid RFC3339")
		assert.True(t, measured.Equal(want.Timestamp))
	}
}
