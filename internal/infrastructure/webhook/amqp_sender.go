package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/tab"
)

// AMQPSender publishes notification envelopes to a durable fanout exchange.
// One connection is kept per broker URL and re-dialled after a failure.
type AMQPSender struct {
	exchange       string
	connectTimeout time.Duration
	logger         *zap.Logger

	mu    sync.Mutex
	links map[string]*amqpLink
}

type amqpLink struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (l *amqpLink) alive() bool {
	return l.conn != nil && !l.conn.IsClosed() && l.ch != nil && !l.ch.IsClosed()
}

func (l *amqpLink) close() {
	if l.ch != nil && !l.ch.IsClosed() {
		_ = l.ch.Close()
	}
	if l.conn != nil && !l.conn.IsClosed() {
		_ = l.conn.Close()
	}
}

// NewAMQPSender creates a sender publishing to exchange
func NewAMQPSender(exchange string, connectTimeout time.Duration, logger *zap.Logger) *AMQPSender {
	if exchange == "" {
		exchange = "roomtab_notifications"
	}
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPSender{
		exchange:       exchange,
		connectTimeout: connectTimeout,
		logger:         logger,
		links:          make(map[string]*amqpLink),
	}
}

// Send implements tab.WebhookSender. The event type is used as routing key.
func (s *AMQPSender) Send(ctx context.Context, dest tab.Destination, msg tab.Message) tab.SendResult {
	body, err := json.Marshal(envelopeOrText(msg))
	if err != nil {
		return tab.SendResult{Err: fmt.Errorf("amqp: failed to marshal payload: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	link, err := s.link(dest.URL)
	if err != nil {
		return tab.SendResult{Err: fmt.Errorf("amqp: %s: %w", dest.Name, err)}
	}

	err = link.ch.PublishWithContext(ctx,
		s.exchange,
		string(msg.EventType),
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Type:         string(msg.EventType),
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		link.close()
		delete(s.links, dest.URL)
		return tab.SendResult{Err: fmt.Errorf("amqp: publish to %s: %w", dest.Name, err)}
	}

	s.logger.Debug("Notification published",
		zap.String("destination", dest.Name),
		zap.String("exchange", s.exchange),
		zap.String("event_type", string(msg.EventType)),
	)
	return tab.SendResult{}
}

// link returns a live connection for url, dialling if needed. Caller holds s.mu.
func (s *AMQPSender) link(url string) (*amqpLink, error) {
	if l, ok := s.links[url]; ok {
		if l.alive() {
			return l, nil
		}
		l.close()
		delete(s.links, url)
	}

	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(s.connectTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(s.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}

	l := &amqpLink{conn: conn, ch: ch}
	s.links[url] = l
	return l, nil
}

// Close closes every broker connection
func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for url, l := range s.links {
		l.close()
		delete(s.links, url)
	}
	return nil
}

func envelopeOrText(msg tab.Message) any {
	if msg.Envelope != nil {
		return msg.Envelope
	}
	return map[string]any{"event_type": msg.EventType, "text": msg.Text}
}

var _ tab.WebhookSender = (*AMQPSender)(nil)
