package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events as JSON to one topic, keyed by the resource
// reference so one resource's events stay on one partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewKafkaPublisher creates a publisher for comma-separated brokers.
func NewKafkaPublisher(brokers, topic string, logger zerolog.Logger) (*KafkaPublisher, error) {
	if brokers == "" {
		return nil, fmt.Errorf("kafka brokers not configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic not configured")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(strings.Split(brokers, ",")...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}

	logger = logger.With().Str("component", "events").Str("topic", topic).Logger()
	logger.Info().Msg("Kafka publisher created")
	return &KafkaPublisher{writer: writer, log: logger}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Reference),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}

	p.log.Debug().Str("event_type", e.Type).Str("ref", e.Reference).Msg("Event published")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
