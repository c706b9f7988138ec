package tab

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of staff notification
type EventType string

const (
	EventOrderCreated  EventType = "order_created"
	EventSessionClosed EventType = "session_closed"
	EventPriceMismatch EventType = "price_mismatch"
)

// ProcessedSentinel marks a webhook event whose dispatch loop has not completed yet
var ProcessedSentinel = time.Unix(0, 0).UTC()

// WebhookEvent is the send-audit record of one attempted notification
type WebhookEvent struct {
	ID          uuid.UUID
	SessionID   string
	EventType   EventType
	ProcessedAt time.Time
	CreatedAt   time.Time
}

// NewWebhookEvent creates an audit record with the sentinel processed timestamp
func NewWebhookEvent(sessionID string, eventType EventType, now time.Time) *WebhookEvent {
	return &WebhookEvent{
		ID:          uuid.New(),
		SessionID:   sessionID,
		EventType:   eventType,
		ProcessedAt: ProcessedSentinel,
		CreatedAt:   now,
	}
}

// IsProcessed reports whether the dispatch loop for this event has completed
func (e *WebhookEvent) IsProcessed() bool {
	return e.ProcessedAt.After(ProcessedSentinel)
}

// DeliveryOutcome is the typed result of sending to one destination
type DeliveryOutcome string

const (
	DeliveryDelivered DeliveryOutcome = "delivered"
	DeliveryFailed    DeliveryOutcome = "failed"
	DeliverySkipped   DeliveryOutcome = "skipped"
)

// WebhookDelivery records the attempt of one event against one destination
type WebhookDelivery struct {
	ID          uuid.UUID
	EventID     uuid.UUID
	Destination string
	Outcome     DeliveryOutcome
	StatusCode  int
	Error       string
	Duration    time.Duration
	AttemptedAt time.Time
}

// DestinationKind selects the body shape a destination accepts
type DestinationKind string

const (
	// DestinationJSON receives the full structured envelope
	DestinationJSON DestinationKind = "json"
	// DestinationContent receives only {"content": text}
	DestinationContent DestinationKind = "content"
	// DestinationAMQP publishes the envelope to a fanout exchange
	DestinationAMQP DestinationKind = "amqp"
)

// Destination is one configured notification sink
type Destination struct {
	Name   string
	URL    string
	Kind   DestinationKind
	Events []EventType
}

// Accepts reports whether the destination is subscribed to eventType.
// A destination without an explicit list receives order and close events.
func (d Destination) Accepts(eventType EventType) bool {
	if len(d.Events) == 0 {
		return eventType == EventOrderCreated || eventType == EventSessionClosed
	}
	for _, e := range d.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

// Message is a notification ready to be shaped for a destination
type Message struct {
	EventType EventType
	Text      string
	Envelope  any
}

// SendResult is what a sender observed for one destination
type SendResult struct {
	StatusCode int
	Err        error
}

// WebhookSender delivers a message to a single destination
type WebhookSender interface {
	Send(ctx context.Context, dest Destination, msg Message) SendResult
}

// GuestNotifier pushes a short text to a guest's messaging identity
type GuestNotifier interface {
	Push(ctx context.Context, guestIdentity, text string) error
}
