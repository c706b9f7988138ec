// Package notification fans room tab events out to staff destinations and
// keeps a send-audit trail of every attempt.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

// Config configures the notification service
type Config struct {
	Destinations []tab.Destination
	MaxParallel  int
	TaxRate      decimal.Decimal
	Location     *time.Location // transcript time zone; defaults to local
}

// Service delivers notifications in the background. Each event is attempted
// once per subscribed destination; there is no retry.
type Service struct {
	sender  tab.WebhookSender
	events  tab.WebhookEventRepository
	orders  tab.OrderRepository
	metrics *telemetry.TabMetrics
	logger  *zap.Logger
	cfg     Config
	text    transcript
	now     func() time.Time

	wg sync.WaitGroup
}

// NewService creates a new notification Service
func NewService(sender tab.WebhookSender, events tab.WebhookEventRepository, orders tab.OrderRepository, metrics *telemetry.TabMetrics, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 4
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Service{
		sender:  sender,
		events:  events,
		orders:  orders,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		text:    transcript{taxRate: cfg.TaxRate, loc: cfg.Location},
		now:     time.Now,
	}
}

// NotifyOrderCreated announces a new order with the session's order history
func (s *Service) NotifyOrderCreated(ctx context.Context, session *tab.OrderSession, order *tab.Order) {
	s.spawn(ctx, func(ctx context.Context) {
		history, running := s.sessionHistory(ctx, session.ID, order)
		text := s.text.orderCreated(session, order, history, running)
		msg := tab.Message{
			EventType: tab.EventOrderCreated,
			Text:      text,
			Envelope: newOrderCreatedEnvelope(order,
				tab.ComputeTotals(order.TotalAmount, s.cfg.TaxRate),
				tab.ComputeTotals(running, s.cfg.TaxRate),
				text),
		}
		s.dispatch(ctx, session.ID, msg)
	})
}

// NotifySessionClosed announces a closed session and how it was closed
func (s *Service) NotifySessionClosed(ctx context.Context, session *tab.OrderSession, kind tab.SessionStatus) {
	s.spawn(ctx, func(ctx context.Context) {
		_, running := s.sessionHistory(ctx, session.ID, nil)
		text := s.text.sessionClosed(session, kind, running)
		msg := tab.Message{
			EventType: tab.EventSessionClosed,
			Text:      text,
			Envelope: SessionClosedEnvelope{
				EventType:  tab.EventSessionClosed,
				SessionID:  session.ID,
				RoomNumber: session.RoomID,
				CloseType:  kind.String(),
				Text:       text,
			},
		}
		s.dispatch(ctx, session.ID, msg)
	})
}

// NotifyPriceMismatch alerts the error channel that the POS did not hold the expected price
func (s *Service) NotifyPriceMismatch(ctx context.Context, session *tab.OrderSession, expected, actual decimal.Decimal) {
	s.spawn(ctx, func(ctx context.Context) {
		text := s.text.priceMismatch(session, expected, actual)
		msg := tab.Message{
			EventType: tab.EventPriceMismatch,
			Text:      text,
			Envelope: PriceMismatchEnvelope{
				EventType:  tab.EventPriceMismatch,
				SessionID:  session.ID,
				RoomNumber: session.RoomID,
				Expected:   expected,
				Actual:     actual,
				Text:       text,
			},
		}
		s.dispatch(ctx, session.ID, msg)
	})
}

// Wait blocks until every notification started so far has been attempted
func (s *Service) Wait() {
	s.wg.Wait()
}

// Drain waits for in-flight notifications until ctx is done
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spawn runs fn on a tracked goroutine detached from the request's cancellation
func (s *Service) spawn(ctx context.Context, fn func(ctx context.Context)) {
	s.wg.Add(1)
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Notification panicked", zap.Any("panic", r))
			}
		}()
		fn(ctx)
	}()
}

// sessionHistory returns the session's orders other than current, and the
// running subtotal over all of them
func (s *Service) sessionHistory(ctx context.Context, sessionID string, current *tab.Order) ([]tab.Order, decimal.Decimal) {
	orders, err := s.orders.FindBySession(ctx, sessionID)
	if err != nil {
		s.logger.Warn("Failed to load session history for notification",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		if current != nil {
			return nil, current.TotalAmount
		}
		return nil, decimal.Zero
	}

	running := decimal.Zero
	history := make([]tab.Order, 0, len(orders))
	seenCurrent := false
	for _, o := range orders {
		running = running.Add(tab.SumLines(o.Lines))
		if current != nil && o.ID == current.ID {
			seenCurrent = true
			continue
		}
		history = append(history, o)
	}
	if current != nil && !seenCurrent {
		running = running.Add(current.TotalAmount)
	}
	return history, running
}

// dispatch records the audit event, attempts every subscribed destination
// concurrently and marks the event processed once all attempts returned
func (s *Service) dispatch(ctx context.Context, sessionID string, msg tab.Message) {
	event := tab.NewWebhookEvent(sessionID, msg.EventType, s.now())
	audited := true
	if err := s.events.Create(ctx, event); err != nil {
		audited = false
		s.logger.Error("Failed to record webhook event",
			zap.String("session_id", sessionID),
			zap.String("event_type", string(msg.EventType)),
			zap.Error(err),
		)
	}

	var dests []tab.Destination
	for _, d := range s.cfg.Destinations {
		if d.Accepts(msg.EventType) {
			dests = append(dests, d)
		}
	}

	deliveries := make([]tab.WebhookDelivery, len(dests))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for i, dest := range dests {
		g.Go(func() error {
			deliveries[i] = s.deliver(gctx, event.ID, dest, msg)
			return nil
		})
	}
	_ = g.Wait()

	if len(dests) == 0 {
		s.logger.Debug("No destination subscribed to event",
			zap.String("event_type", string(msg.EventType)))
	}
	if !audited {
		return
	}
	if len(deliveries) > 0 {
		if err := s.events.SaveDeliveries(ctx, deliveries); err != nil {
			s.logger.Error("Failed to record webhook deliveries",
				zap.String("event_id", event.ID.String()),
				zap.Error(err),
			)
		}
	}
	if err := s.events.MarkProcessed(ctx, event.ID, s.now()); err != nil {
		s.logger.Error("Failed to mark webhook event processed",
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) deliver(ctx context.Context, eventID uuid.UUID, dest tab.Destination, msg tab.Message) tab.WebhookDelivery {
	start := s.now()
	result := s.sender.Send(ctx, dest, msg)
	elapsed := time.Since(start)

	delivery := tab.WebhookDelivery{
		ID:          uuid.New(),
		EventID:     eventID,
		Destination: dest.Name,
		Outcome:     tab.DeliveryDelivered,
		StatusCode:  result.StatusCode,
		Duration:    elapsed,
		AttemptedAt: start,
	}
	if result.Err != nil {
		delivery.Outcome = tab.DeliveryFailed
		delivery.Error = result.Err.Error()
		s.logger.Warn("Webhook delivery failed",
			zap.String("destination", dest.Name),
			zap.String("event_type", string(msg.EventType)),
			zap.Int("status", result.StatusCode),
			zap.Error(result.Err),
		)
	} else {
		s.logger.Debug("Webhook delivered",
			zap.String("destination", dest.Name),
			zap.String("event_type", string(msg.EventType)),
			zap.Duration("duration", elapsed),
		)
	}
	s.metrics.RecordWebhookDelivery(ctx, dest.Name, string(msg.EventType), string(delivery.Outcome), elapsed)
	return delivery
}
