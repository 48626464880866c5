package notifications

import (
	"context"
	"fmt"
	"sync"

	"sorso/internal/shared/config"
	"sorso/pkg/logger"
)

// Service is what the reservation flow sees of the alert pipeline
type Service interface {
	NotifyReservation(ctx context.Context, alert *ReservationAlert) error
	Start(ctx context.Context) error
	Stop() error
	HealthCheck(ctx context.Context) error
}

// AlertService publishes alerts to the configured broker and, for Kafka,
// runs the consumers that deliver them.
type AlertService struct {
	broker    string
	publisher Publisher
	consumer  AlertConsumer
	workers   int
	log       *logger.Logger

	isRunning bool
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewAlertService wires a publisher and an optional consumer
func NewAlertService(broker string, publisher Publisher, consumer AlertConsumer, workers int, log *logger.Logger) *AlertService {
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertService{
		broker:    broker,
		publisher: publisher,
		consumer:  consumer,
		workers:   workers,
		log:       log.WithComponent("notifications"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// NewServiceFromConfig builds the pipeline selected by NOTIFY_BROKER.
// "none" yields a service that only logs.
func NewServiceFromConfig(cfg *config.Config, log *logger.Logger) (*AlertService, error) {
	if log == nil {
		log = logger.Discard()
	}

	sender, err := newSender(cfg, log)
	if err != nil {
		return nil, err
	}

	switch cfg.Notify.Broker {
	case "kafka":
		producerConfig := DefaultKafkaProducerConfig()
		producerConfig.Brokers = cfg.Notify.KafkaBrokers
		producerConfig.Topic = cfg.Notify.KafkaTopic

		producer, err := NewKafkaAlertProducer(producerConfig, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create alert producer: %w", err)
		}

		consumerConfig := DefaultConsumerConfig()
		consumerConfig.Brokers = cfg.Notify.KafkaBrokers
		consumerConfig.Topics = []string{cfg.Notify.KafkaTopic}
		consumerConfig.GroupID = cfg.Notify.KafkaGroupID

		consumer, err := NewKafkaAlertConsumer(consumerConfig, sender, log)
		if err != nil {
			producer.Close()
			return nil, fmt.Errorf("failed to create alert consumer: %w", err)
		}
		return NewAlertService("kafka", producer, consumer, cfg.Notify.ConsumerWorkers, log), nil

	case "rabbitmq":
		publisher, err := NewRabbitMQPublisher(cfg.Notify.RabbitMQURL, cfg.Notify.RabbitMQExchange, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create alert publisher: %w", err)
		}
		// queue consumers live outside this process
		return NewAlertService("rabbitmq", publisher, nil, 0, log), nil

	case "", "none":
		return NewAlertService("none", &directPublisher{sender: sender}, nil, 0, log), nil

	default:
		return nil, fmt.Errorf("unknown notify broker %q", cfg.Notify.Broker)
	}
}

func newSender(cfg *config.Config, log *logger.Logger) (AlertSender, error) {
	if !cfg.SMTPConfigured() {
		return NewLogAlertSender(log), nil
	}
	return NewSMTPAlertSender(NewSMTPConfig(cfg.Email), log)
}

// NotifyReservation hands the alert to the broker
func (s *AlertService) NotifyReservation(ctx context.Context, alert *ReservationAlert) error {
	return s.publisher.PublishReservationAlert(ctx, alert)
}

func (s *AlertService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("notification service is already running")
	}
	if s.consumer != nil {
		if err := s.consumer.StartConsumers(s.ctx, s.workers); err != nil {
			return fmt.Errorf("failed to start consumers: %w", err)
		}
	}

	s.isRunning = true
	s.log.Info("notification service started", "broker", s.broker)
	return nil
}

func (s *AlertService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return fmt.Errorf("notification service is not running")
	}

	s.cancel()
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			s.log.Warn("error stopping consumer", "error", err)
		}
	}
	if err := s.publisher.Close(); err != nil {
		s.log.Warn("error closing publisher", "error", err)
	}

	s.isRunning = false
	s.log.Info("notification service stopped")
	return nil
}

func (s *AlertService) HealthCheck(ctx context.Context) error {
	s.mu.RLock()
	isRunning := s.isRunning
	s.mu.RUnlock()

	if !isRunning {
		return fmt.Errorf("notification service is not running")
	}
	if s.consumer != nil {
		if err := s.consumer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("consumer health check failed: %w", err)
		}
	}
	return nil
}

// directPublisher skips the broker and delivers in-process
type directPublisher struct {
	sender AlertSender
}

func (p *directPublisher) PublishReservationAlert(ctx context.Context, alert *ReservationAlert) error {
	if err := p.sender.SendReservationAlert(ctx, alert); err != nil {
		alert.MarkFailed(err)
		return err
	}
	alert.MarkSent()
	return nil
}

func (p *directPublisher) Close() error { return nil }
