package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
)

// KafkaPublisher forwards events to a Kafka topic, keyed by event name
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewSaramaConfig builds the producer configuration for cfg
func NewSaramaConfig(cfg *config.KafkaConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.RequiredAcks(cfg.RequiredAcks)
	sc.Producer.Retry.Max = cfg.RetryMax
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Return.Successes = true
	sc.Net.DialTimeout = 10 * time.Second
	sc.Net.ReadTimeout = 10 * time.Second
	sc.Net.WriteTimeout = 10 * time.Second
	return sc
}

// NewKafkaPublisher connects a synchronous producer to the configured brokers
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger.Info("Kafka producer created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return NewKafkaPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger.Named("kafka-publisher"),
	}
}

// Handle is a shared.EventHandler that sends the event envelope to the topic
func (k *KafkaPublisher) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(messageKey(event)),
		Value:     sarama.ByteEncoder(data),
		Timestamp: event.OccurredAt(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(event.EventName())},
		},
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s to %s: %w", event.EventName(), k.topic, err)
	}

	k.logger.Debug("Event sent to kafka",
		zap.String("event", event.EventName()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer
func (k *KafkaPublisher) Close() error {
	if k.producer == nil {
		return nil
	}
	return k.producer.Close()
}

// messageKey keeps all messages of one plan on one partition
func messageKey(event shared.DomainEvent) string {
	if plan, err := planEvent(event); err == nil {
		return plan.PlanID.String()
	}
	return event.EventName()
}
