package notifications

import (
	"context"
	"fmt"
	"time"

	"sorso/pkg/logger"

	"github.com/IBM/sarama"
)

// Publisher pushes staff alerts to a broker
type Publisher interface {
	PublishReservationAlert(ctx context.Context, alert *ReservationAlert) error
	Close() error
}

// KafkaProducerConfig contains configuration for the Kafka alert producer
type KafkaProducerConfig struct {
	Brokers          []string
	Topic            string
	RetryMax         int
	TimeoutMs        int
	RequiredAcks     sarama.RequiredAcks
	CompressionType  sarama.CompressionCodec
	IdempotentWrites bool
	MaxMessageBytes  int
}

// DefaultKafkaProducerConfig returns a default producer configuration
func DefaultKafkaProducerConfig() *KafkaProducerConfig {
	return &KafkaProducerConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "sorso-reservations",
		RetryMax:         3,
		TimeoutMs:        10000,
		RequiredAcks:     sarama.WaitForAll, // Wait for all in-sync replicas
		CompressionType:  sarama.CompressionSnappy,
		IdempotentWrites: true,
		MaxMessageBytes:  1000000, // 1MB
	}
}

// SaramaConfig builds the sarama producer settings
func (c *KafkaProducerConfig) SaramaConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = c.RequiredAcks
	saramaConfig.Producer.Compression = c.CompressionType
	saramaConfig.Producer.Retry.Max = c.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Idempotent = c.IdempotentWrites
	saramaConfig.Producer.MaxMessageBytes = c.MaxMessageBytes

	// Idempotent producers need a single in-flight request
	if c.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
	}

	// Hash on event id so one night's alerts stay ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// KafkaAlertProducer publishes reservation alerts to Kafka
type KafkaAlertProducer struct {
	producer sarama.SyncProducer
	config   *KafkaProducerConfig
	log      *logger.Logger
}

// NewKafkaAlertProducer dials the brokers and returns a ready producer
func NewKafkaAlertProducer(config *KafkaProducerConfig, log *logger.Logger) (*KafkaAlertProducer, error) {
	producer, err := sarama.NewSyncProducer(config.Brokers, config.SaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}
	return NewKafkaAlertProducerWithClient(producer, config, log), nil
}

// NewKafkaAlertProducerWithClient wraps an existing sarama producer
func NewKafkaAlertProducerWithClient(producer sarama.SyncProducer, config *KafkaProducerConfig, log *logger.Logger) *KafkaAlertProducer {
	if log == nil {
		log = logger.Discard()
	}
	return &KafkaAlertProducer{producer: producer, config: config, log: log.WithComponent("kafka-producer")}
}

// PublishReservationAlert sends one alert and waits for the broker ack
func (p *KafkaAlertProducer) PublishReservationAlert(ctx context.Context, alert *ReservationAlert) error {
	alert.Status = NotificationStatusQueued
	alert.UpdatedAt = time.Now()

	messageBytes, err := alert.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic:     p.config.Topic,
		Key:       sarama.StringEncoder(alert.GetPartitionKey()),
		Value:     sarama.ByteEncoder(messageBytes),
		Headers:   p.createHeaders(alert),
		Timestamp: alert.CreatedAt,
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		alert.MarkFailed(err)
		return fmt.Errorf("failed to send alert to Kafka: %w", err)
	}

	p.log.DebugWithContext(ctx, "alert published", map[string]interface{}{
		"topic":     p.config.Topic,
		"partition": partition,
		"offset":    offset,
		"ref":       alert.Ref,
	})
	return nil
}

func (p *KafkaAlertProducer) createHeaders(alert *ReservationAlert) []sarama.RecordHeader {
	return []sarama.RecordHeader{
		{Key: []byte("notification_id"), Value: []byte(alert.ID.String())},
		{Key: []byte("notification_type"), Value: []byte(alert.Type)},
		{Key: []byte("event_id"), Value: []byte(alert.EventID.String())},
		{Key: []byte("reservation_id"), Value: []byte(alert.ReservationID.String())},
		{Key: []byte("producer"), Value: []byte("sorso-backend")},
		{Key: []byte("created_at"), Value: []byte(alert.CreatedAt.Format(time.RFC3339))},
	}
}

// Close closes the Kafka producer
func (p *KafkaAlertProducer) Close() error {
	if p.producer == nil {
		return nil
	}
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	return nil
}
