package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"groupgames-service/internal/observability"
	"groupgames-service/internal/telemetry"
)

const appID = "group-games"

// ErrConnectionClosed is returned once the broker connection has dropped.
var ErrConnectionClosed = errors.New("rabbitmq connection closed")

// Publisher publishes audit envelopes and relay lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// NewPublisher dials the broker and declares the topic exchange. Any failure,
// or an empty url, yields a noop publisher so the service runs without AMQP.
func NewPublisher(amqpURL, exchange string) Publisher {
	if amqpURL == "" {
		logrus.Info("rabbitmq disabled, using noop: empty amqp url")
		return noopPublisher{reason: "empty amqp url"}
	}

	p, err := dial(amqpURL, exchange)
	if err != nil {
		logrus.WithError(err).WithField("exchange", exchange).Warn("rabbitmq disabled, using noop")
		return noopPublisher{reason: err.Error()}
	}
	logrus.WithField("exchange", exchange).Info("rabbitmq connected")
	return p
}

func dial(amqpURL, exchange string) (*amqpPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// durable topic exchange; consumers bind audit.* and ws_events.*
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	p := &amqpPublisher{conn: conn, ch: ch, exchange: exchange, closed: make(chan struct{})}
	go p.watch(conn.NotifyClose(make(chan *amqp.Error, 1)))
	return p, nil
}

type amqpPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	closed   chan struct{}
	once     sync.Once
}

func (p *amqpPublisher) watch(notify <-chan *amqp.Error) {
	if err, ok := <-notify; ok && err != nil {
		logrus.WithError(err).WithField("exchange", p.exchange).Error("rabbitmq connection lost")
	}
	p.once.Do(func() { close(p.closed) })
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	select {
	case <-p.closed:
		observability.IncAMQPPublishError()
		return ErrConnectionClosed
	default:
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        appID,
		Type:         eventType(event),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"routing_key": routingKey,
			"message_id":  msg.MessageId,
		}).Warn("rabbitmq publish failed")
	}
	return err
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// eventType names the envelope for the AMQP type property.
func eventType(event any) string {
	switch envelope := event.(type) {
	case telemetry.AuditEnvelope:
		return envelope.EventType
	case observability.EventEnvelope:
		return envelope.EventType + "." + envelope.EventName
	default:
		return ""
	}
}

type noopPublisher struct {
	reason string
}

func (noopPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	entry := logrus.WithField("routing_key", routingKey)
	switch envelope := event.(type) {
	case telemetry.AuditEnvelope:
		entry = entry.WithFields(logrus.Fields{"event_type": envelope.EventType, "action": envelope.Payload.Action, "request_id": envelope.RequestID})
	case observability.EventEnvelope:
		entry = entry.WithFields(logrus.Fields{"event_type": envelope.EventType, "event_name": envelope.EventName, "request_id": envelope.RequestID})
	}
	entry.Debug("rabbitmq noop publish")
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

// PublisherMode reports "amqp" or "noop" for startup logging.
func PublisherMode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}

// PublisherNoopReason explains why AMQP is disabled, or "" when it is not.
func PublisherNoopReason(p Publisher) string {
	if n, ok := p.(noopPublisher); ok {
		return n.reason
	}
	return ""
}
