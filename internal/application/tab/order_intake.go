package tab

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

// OrderIntakeDeps groups the collaborators of OrderIntake
type OrderIntakeDeps struct {
	Sessions      *SessionManager
	Mirror        *MirrorSync
	Orders        tab.OrderRepository
	Products      tab.ProductRepository
	Locker        shared.Locker
	Notifier      Notifier
	GuestNotifier tab.GuestNotifier
	Metrics       *telemetry.TabMetrics
	LockWait      time.Duration
	TaxRate       decimal.Decimal
	Logger        *zap.Logger
}

// OrderIntake accepts guest orders into room tabs
type OrderIntake struct {
	sessions *SessionManager
	mirror   *MirrorSync
	orders   tab.OrderRepository
	products tab.ProductRepository
	lock     roomLock
	notifier Notifier
	guests   tab.GuestNotifier
	metrics  *telemetry.TabMetrics
	taxRate  decimal.Decimal
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderIntake creates a new OrderIntake
func NewOrderIntake(deps OrderIntakeDeps) *OrderIntake {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderIntake{
		sessions: deps.Sessions,
		mirror:   deps.Mirror,
		orders:   deps.Orders,
		products: deps.Products,
		lock:     newRoomLock(deps.Locker, deps.LockWait),
		notifier: notifier,
		guests:   deps.GuestNotifier,
		metrics:  deps.Metrics,
		taxRate:  deps.TaxRate,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrder normalizes the requested lines, reprices the room's shadow item
// at the new running subtotal and persists the order. The order is only
// persisted once the POS holds the new total.
func (s *OrderIntake) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		return nil, shared.NewDomainError(shared.ErrValidation.Code, "room_number is required")
	}

	ctx, span := telemetry.StartSpan(ctx, "order_intake.create",
		attribute.String(telemetry.SpanAttrRoomID, roomID),
		attribute.Int(telemetry.SpanAttrLines, len(req.Lines)),
	)
	defer span.End()

	catalog, err := s.products.FindByIDs(ctx, tab.ProductIDs(req.Lines))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}
	lines := tab.NormalizeLines(req.Lines, catalog)
	if len(lines) == 0 {
		return nil, shared.ErrNoValidLines
	}
	if dropped := len(req.Lines) - len(lines); dropped > 0 {
		s.logger.Info("Dropped unresolvable order lines",
			zap.String("room_id", roomID),
			zap.Int("dropped", dropped),
		)
	}

	unlock, err := s.lock.acquire(ctx, roomID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	session, created, err := s.sessions.GetOrCreateActiveSession(ctx, roomID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrSessionID, session.ID))

	var guestIdentity *string
	if id := strings.TrimSpace(req.GuestIdentity); id != "" {
		guestIdentity = &id
	}
	order, err := tab.NewOrder(session.ID, roomID, strings.TrimSpace(req.GuestName), guestIdentity,
		strings.TrimSpace(req.Note), lines, s.now())
	if err != nil {
		return nil, err
	}

	prior, err := s.sessions.ComputeRunningSubtotal(ctx, session.ID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	newTotal := prior.Add(order.TotalAmount)
	if !tab.ValidAmount(newTotal) {
		s.logger.Warn("Rejected order beyond the session's amount limit",
			zap.String("session_id", session.ID),
			zap.String("session_total", prior.String()),
			zap.String("order_total", order.TotalAmount.String()),
		)
		return nil, shared.NewDomainError(shared.ErrValidation.Code, "session total exceeds the allowed amount")
	}

	mirrorID, err := s.mirror.SyncShadowItem(ctx, session, newTotal)
	if err == nil && mirrorID == "" {
		err = shared.ErrMirrorSyncFailed
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.orders.CreateWithLines(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Failed to persist order, restoring shadow item price",
			zap.String("session_id", session.ID),
			zap.String("order_id", order.ID.String()),
			zap.String("restore_total", prior.String()),
			zap.Error(err),
		)
		s.mirror.RestorePrice(ctx, session, prior)
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}

	s.logger.Info("Order created",
		zap.String("room_id", roomID),
		zap.String("session_id", session.ID),
		zap.String("order_id", order.ID.String()),
		zap.Int("lines", len(order.Lines)),
		zap.String("order_total", order.TotalAmount.String()),
		zap.String("session_total", newTotal.String()),
	)

	if guestIdentity != nil {
		s.pushGuestConfirmation(ctx, *guestIdentity, order)
	}
	s.notifier.NotifyOrderCreated(ctx, session, order)
	s.metrics.RecordOrderCreated(ctx, order.TotalAmount)

	return &OrderResult{
		Order:          ToOrderResponse(order),
		SessionID:      session.ID,
		SessionCreated: created,
		MirrorItemID:   mirrorID,
		OrderTotals:    tab.ComputeTotals(order.TotalAmount, s.taxRate),
		SessionTotals:  tab.ComputeTotals(newTotal, s.taxRate),
	}, nil
}

func (s *OrderIntake) pushGuestConfirmation(ctx context.Context, guestIdentity string, order *tab.Order) {
	if s.guests == nil {
		return
	}
	totals := tab.ComputeTotals(order.TotalAmount, s.taxRate)
	var b strings.Builder
	b.WriteString("Thank you for your order (room ")
	b.WriteString(order.RoomID)
	b.WriteString(").\n")
	for _, l := range order.Lines {
		b.WriteString(l.ProductName)
		b.WriteString(" x")
		b.WriteString(strconv.Itoa(l.Quantity))
		b.WriteString("\n")
	}
	b.WriteString("Total incl. tax: ")
	b.WriteString(totals.Total.StringFixed(0))

	if err := s.guests.Push(ctx, guestIdentity, b.String()); err != nil {
		s.logger.Warn("Guest notification failed",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}
