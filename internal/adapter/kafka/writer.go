package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-data-etl/internal/config"
	"github.com/couchcryptid/climate-data-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer produces sync-completed events to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sync topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSyncTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSync serializes a completed sync and writes it keyed by
// region/parameter so events for one dataset stay ordered on a partition.
func (w *Writer) PublishSync(ctx context.Context, result domain.SyncResult) error {
	msg, err := serializeToMessage(result, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish sync event %s: %w", msg.Key, err)
	}
	w.logger.Debug("sync event published", "key", string(msg.Key))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SyncResult into a Kafka message.
func serializeToMessage(result domain.SyncResult, syncedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize sync result: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.Region + "/" + result.Parameter),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "region", Value: []byte(result.Region)},
			{Key: "parameter", Value: []byte(result.Parameter)},
			{Key: "synced_at", Value: []byte(syncedAt.Format(time.RFC3339))},
		},
	}, nil
}
