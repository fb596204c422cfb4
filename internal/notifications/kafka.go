package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/albapepper/darkauction/internal/failure"
)

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes every message to a Kafka topic as a JSON envelope.
type KafkaSink struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
	now    func() time.Time
}

// envelope is the record value written to Kafka.
type envelope struct {
	Kind    string    `json:"kind"`
	RunID   string    `json:"run_id,omitempty"`
	SentAt  time.Time `json:"sent_at"`
	Payload Message   `json:"payload"`
}

// NewKafkaSink creates a sink writing to topic on brokers. Returns nil if no
// brokers are configured. now stamps messages built without a time and
// defaults to time.Now.
func NewKafkaSink(brokers []string, topic string, logger *slog.Logger, now func() time.Time) *KafkaSink {
	if len(brokers) == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	return &KafkaSink{writer: w, topic: topic, logger: logger, now: now}
}

func (k *KafkaSink) Name() string { return "kafka" }

// Send writes msg synchronously. Records are keyed by run ID when present so
// all events of one auction land on the same partition.
func (k *KafkaSink) Send(ctx context.Context, msg Message) error {
	if k == nil {
		return nil
	}
	value, err := json.Marshal(envelope{
		Kind:    msg.Kind,
		RunID:   msg.RunID,
		SentAt:  k.sentAt(msg),
		Payload: msg,
	})
	if err != nil {
		return failure.Delivery("marshal kafka envelope: %v", err)
	}
	key := msg.RunID
	if key == "" {
		key = msg.Kind
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return failure.Delivery("write %s: %v", k.topic, err)
	}
	return nil
}

// sentAt is the time the message was built, or the sink clock when unset.
func (k *KafkaSink) sentAt(msg Message) time.Time {
	if !msg.At.IsZero() || k.now == nil {
		return msg.At.UTC()
	}
	return k.now().UTC()
}

// Close flushes and closes the underlying writer.
func (k *KafkaSink) Close() error {
	if k == nil {
		return nil
	}
	return k.writer.Close()
}
