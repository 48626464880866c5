package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sorso/internal/shared/config"
	"sorso/pkg/logger"
)

func sampleAlert() *ReservationAlert {
	a := NewReservationAlert()
	a.ReservationID = uuid.New()
	a.Ref = "SRS-20251017-AB12CD"
	a.EventID = uuid.New()
	a.EventTitle = "Venerdì Italiano"
	a.EventDate = "2025-10-17"
	a.Package = "premium"
	a.PackageLabel = "Premium"
	a.Tables = 2
	a.People = 10
	a.Total = 260
	a.Name = "Mario Rossi"
	a.Phone = "+39 333 1234567"
	return a
}

type fakeSender struct {
	mu     sync.Mutex
	fails  int
	calls  int
	alerts []*ReservationAlert
}

func (f *fakeSender) SendReservationAlert(ctx context.Context, alert *ReservationAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return errors.New("smtp down")
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func TestKafkaAlertProducer_Publish(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	alert := sampleAlert()

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got ReservationAlert
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Ref != alert.Ref {
			return errors.New("unexpected ref " + got.Ref)
		}
		return nil
	})

	p := NewKafkaAlertProducerWithClient(sp, DefaultKafkaProducerConfig(), nil)
	require.NoError(t, p.PublishReservationAlert(context.Background(), alert))
	assert.Equal(t, NotificationStatusQueued, alert.Status)
	require.NoError(t, p.Close())
}

func TestKafkaAlertProducer_PublishFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaAlertProducerWithClient(sp, DefaultKafkaProducerConfig(), nil)
	alert := sampleAlert()

	err := p.PublishReservationAlert(context.Background(), alert)
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Equal(t, NotificationStatusFailed, alert.Status)
	require.NotNil(t, alert.LastError)
	require.NoError(t, p.Close())
}

func TestPartitionKeyIsEvent(t *testing.T) {
	alert := sampleAlert()
	assert.Equal(t, alert.EventID.String(), alert.GetPartitionKey())
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestRabbitMQPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newRabbitMQPublisherWithChannel(ch, "sorso.reservations", nil)
	alert := sampleAlert()

	require.NoError(t, p.PublishReservationAlert(context.Background(), alert))

	assert.Equal(t, "sorso.reservations", ch.exchange)
	assert.Equal(t, RoutingKeyReservationCreated, ch.key)
	assert.Equal(t, amqp.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, alert.ID.String(), ch.msg.MessageId)

	var got ReservationAlert
	require.NoError(t, json.Unmarshal(ch.msg.Body, &got))
	assert.Equal(t, alert.Ref, got.Ref)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitMQPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newRabbitMQPublisherWithChannel(ch, "x", nil)

	err := p.PublishReservationAlert(context.Background(), sampleAlert())
	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestAlertHandler_RetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{fails: 2}
	cfg := DefaultConsumerConfig()
	h := newAlertHandler(0, sender, cfg, nil)

	var slept []time.Duration
	h.sleep = func(d time.Duration) { slept = append(slept, d) }

	body, err := sampleAlert().ToJSON()
	require.NoError(t, err)

	require.NoError(t, h.processMessage(context.Background(), body))
	assert.Equal(t, 3, sender.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, slept)
	require.Len(t, sender.alerts, 1)
	assert.Equal(t, "SRS-20251017-AB12CD", sender.alerts[0].Ref)
}

func TestAlertHandler_GivesUp(t *testing.T) {
	sender := &fakeSender{fails: 100}
	cfg := DefaultConsumerConfig()
	cfg.MaxRetries = 2
	h := newAlertHandler(0, sender, cfg, logger.Discard())
	h.sleep = func(time.Duration) {}

	body, _ := sampleAlert().ToJSON()
	err := h.processMessage(context.Background(), body)
	require.Error(t, err)
	assert.Equal(t, 3, sender.calls)
}

func TestAlertHandler_BadPayload(t *testing.T) {
	h := newAlertHandler(0, &fakeSender{}, DefaultConsumerConfig(), logger.Discard())
	assert.Error(t, h.processMessage(context.Background(), []byte("{not json")))
}

func TestAlertContent(t *testing.T) {
	alert := sampleAlert()
	alert.Notes = "Compleanno"

	assert.Equal(t, "Nuova prenotazione: Venerdì Italiano – 2 tavoli Premium", AlertSubject(alert))

	text := AlertText(alert)
	assert.Contains(t, text, "Totale: 260,00 €")
	assert.Contains(t, text, "Note: Compleanno")
	assert.Contains(t, text, "Tavoli: 2 (10 persone)")

	html, err := AlertHTML(alert)
	require.NoError(t, err)
	assert.Contains(t, html, "SRS-20251017-AB12CD")
	assert.Contains(t, html, "260,00 €")
}

func TestSMTPConfigValidation(t *testing.T) {
	_, err := NewSMTPAlertSender(&SMTPConfig{}, nil)
	assert.Error(t, err)

	sender, err := NewSMTPAlertSender(&SMTPConfig{
		Host: "smtp.example.com", Port: 587, Username: "u", FromEmail: "a@b.c", To: "staff@b.c",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sender)
}

func TestServiceFromConfig_None(t *testing.T) {
	cfg := &config.Config{Notify: config.NotifyConfig{Broker: "none"}}

	svc, err := NewServiceFromConfig(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	assert.NoError(t, svc.HealthCheck(context.Background()))

	alert := sampleAlert()
	require.NoError(t, svc.NotifyReservation(context.Background(), alert))
	assert.Equal(t, NotificationStatusSent, alert.Status)

	require.NoError(t, svc.Stop())
	assert.Error(t, svc.HealthCheck(context.Background()))
}

func TestServiceFromConfig_UnknownBroker(t *testing.T) {
	_, err := NewServiceFromConfig(&config.Config{Notify: config.NotifyConfig{Broker: "sqs"}}, nil)
	assert.Error(t, err)
}

func TestAlertService_StartTwice(t *testing.T) {
	svc := NewAlertService("none", &directPublisher{sender: &fakeSender{}}, nil, 0, nil)
	require.NoError(t, svc.Start(context.Background()))
	assert.Error(t, svc.Start(context.Background()))
	require.NoError(t, svc.Stop())
	assert.Error(t, svc.Stop())
}
