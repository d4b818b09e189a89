package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Event is the unit of data published to Kafka. Key is used for partition
// hashing and Value is JSON-serialised.
type Event struct {
	Key   string
	Value any
}

// Publisher writes events to a message bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Producer publishes JSON-encoded events to a Kafka topic
type Producer struct {
	writer *kafka.Writer
	logger zerolog.Logger
}

// NewProducer creates a Producer for the given brokers and topic
func NewProducer(brokers []string, topic string, log zerolog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{
		writer: w,
		logger: log.With().Str("component", "kafka-producer").Str("topic", topic).Logger(),
	}
}

// Publish serialises a single event and writes it to Kafka synchronously
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("marshaling event value: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug().Str("key", event.Key).Int("value_size", len(value)).Msg("message published")
	return nil
}

// Close flushes pending writes and closes the underlying Kafka writer
func (p *Producer) Close() error {
	return p.writer.Close()
}
