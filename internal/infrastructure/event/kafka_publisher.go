package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// messageWriter is the part of *kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards every domain event to a Kafka topic, keyed by
// aggregate id so one aggregate's events stay ordered within a partition.
// It is subscribed to the bus as a wildcard handler.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher writing to cfg.KafkaTopic
func NewKafkaPublisher(cfg config.EventConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("kafka publisher: no brokers configured")
	}
	if cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("kafka publisher: no topic configured")
	}
	batchTimeout := cfg.KafkaBatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, cfg.KafkaTopic, logger), nil
}

func newKafkaPublisher(w messageWriter, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		logger: logger.With(zap.String("topic", topic)),
	}
}

// EventTypes returns nil so the publisher receives every event
func (p *KafkaPublisher) EventTypes() []string {
	return nil
}

// Handle encodes evt and writes it to the topic
func (p *KafkaPublisher) Handle(ctx context.Context, evt shared.DomainEvent) error {
	env, err := NewEnvelope(evt)
	if err != nil {
		return err
	}
	value, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.AggregateID.String()),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.Type)},
			{Key: "event_id", Value: []byte(env.ID.String())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s to kafka: %w", env.Type, err)
	}
	p.logger.Debug("Event published", zap.String("event_type", env.Type), zap.String("event_id", env.ID.String()))
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var _ shared.EventHandler = (*KafkaPublisher)(nil)
