package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sorso/pkg/logger"

	"github.com/IBM/sarama"
)

type AlertConsumer interface {
	StartConsumers(ctx context.Context, numWorkers int) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

type ConsumerConfig struct {
	Brokers              []string
	GroupID              string
	Topics               []string
	SessionTimeoutMs     int
	HeartbeatMs          int
	RetryBackoffMs       int
	MaxProcessingTime    time.Duration
	OffsetOldest         bool
	MaxRetries           int
	RetryBackoffDuration time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:              []string{"localhost:9092"},
		GroupID:              "sorso-staff-alerts",
		Topics:               []string{"sorso-reservations"},
		SessionTimeoutMs:     30000,
		HeartbeatMs:          3000,
		RetryBackoffMs:       100,
		MaxProcessingTime:    2 * time.Minute,
		OffsetOldest:         false,
		MaxRetries:           3,
		RetryBackoffDuration: time.Second,
	}
}

// KafkaAlertConsumer reads reservation alerts and hands them to an AlertSender
type KafkaAlertConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	sender        AlertSender
	log           *logger.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

func NewKafkaAlertConsumer(config *ConsumerConfig, sender AlertSender, log *logger.Logger) (*KafkaAlertConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaAlertConsumer{
		consumerGroup: consumerGroup,
		config:        config,
		sender:        sender,
		log:           log.WithComponent("kafka-consumer"),
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func (c *KafkaAlertConsumer) StartConsumers(ctx context.Context, numWorkers int) error {
	if numWorkers < 1 {
		numWorkers = 1
	}
	c.log.Info("starting alert consumers", "workers", numWorkers, "topics", c.config.Topics)

	go c.handleErrors()

	for i := 0; i < numWorkers; i++ {
		c.wg.Add(1)
		go func(workerID int) {
			defer c.wg.Done()
			c.runWorker(ctx, workerID)
		}(i)
	}
	return nil
}

func (c *KafkaAlertConsumer) runWorker(ctx context.Context, workerID int) {
	handler := newAlertHandler(workerID, c.sender, c.config, c.log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		default:
			if err := c.consumerGroup.Consume(ctx, c.config.Topics, handler); err != nil {
				c.log.Warn("consume failed", "worker", workerID, "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (c *KafkaAlertConsumer) handleErrors() {
	for err := range c.consumerGroup.Errors() {
		c.log.Warn("consumer group error", "error", err)
	}
}

func (c *KafkaAlertConsumer) Stop() error {
	c.cancel()
	if err := c.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	c.wg.Wait()
	c.log.Info("alert consumers stopped")
	return nil
}

func (c *KafkaAlertConsumer) HealthCheck(ctx context.Context) error {
	select {
	case <-c.ctx.Done():
		return fmt.Errorf("consumer context is cancelled")
	default:
		if c.sender == nil {
			return fmt.Errorf("alert sender not configured")
		}
		return nil
	}
}

// alertHandler implements sarama.ConsumerGroupHandler
type alertHandler struct {
	workerID int
	sender   AlertSender
	config   *ConsumerConfig
	log      *logger.Logger
	sleep    func(time.Duration)
}

func newAlertHandler(workerID int, sender AlertSender, config *ConsumerConfig, log *logger.Logger) *alertHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &alertHandler{workerID: workerID, sender: sender, config: config, log: log, sleep: time.Sleep}
}

func (h *alertHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *alertHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *alertHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := h.processMessage(session.Context(), message.Value); err != nil {
				h.log.Warn("alert not delivered", "worker", h.workerID, "offset", message.Offset, "error", err)
			}
			// Alerts are best effort; a poison message must not block the partition
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *alertHandler) processMessage(ctx context.Context, value []byte) error {
	var alert ReservationAlert
	if err := json.Unmarshal(value, &alert); err != nil {
		return fmt.Errorf("failed to unmarshal alert: %w", err)
	}

	alert.Status = NotificationStatusSending
	if err := h.executeWithRetry(ctx, &alert); err != nil {
		alert.MarkFailed(err)
		return err
	}

	alert.MarkSent()
	h.log.Info("staff alert sent", "worker", h.workerID, "ref", alert.Ref)
	return nil
}

// executeWithRetry doubles the backoff after each failed attempt
func (h *alertHandler) executeWithRetry(ctx context.Context, alert *ReservationAlert) error {
	maxRetries := h.config.MaxRetries
	backoff := h.config.RetryBackoffDuration

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = h.sender.SendReservationAlert(ctx, alert); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h.sleep(backoff)
		backoff *= 2
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}
