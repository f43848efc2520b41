package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/quakewatch/internal/config"
	"github.com/couchcryptid/quakewatch/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer the alert writer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes significant newly-seen events to the alerts topic.
// It implements dashboard.AlertSink.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Alert is the message body written for each event.
type Alert struct {
	Event          domain.Event          `json:"event"`
	Classification domain.Classification `json:"classification"`
	Intensity      domain.Intensity      `json:"intensity"`
}

// Publish serializes the events and writes them in a single WriteMessages call.
func (w *Writer) Publish(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write alerts: %w", err)
	}
	w.logger.Info("alerts published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals an event into a keyed Kafka message. Keying by
// id keeps revisions of one event on one partition.
func serializeToMessage(event domain.Event) (kafkago.Message, error) {
	class := domain.ClassifyMagnitude(event.Magnitude)
	data, err := json.Marshal(Alert{
		Event:          event,
		Classification: class,
		Intensity:      domain.ClassifyIntensity(event.MMI),
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "band", Value: []byte(class.Band.String())},
			{Key: "occurred_at", Value: []byte(event.OccurredAt().Format(time.RFC3339))},
		},
	}, nil
}
