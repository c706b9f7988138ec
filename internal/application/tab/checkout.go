package tab

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/pos"
	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

// DefaultPaymentSource charges the tab as an externally settled payment
const DefaultPaymentSource = "EXTERNAL"

// CheckoutDeps groups the collaborators of Checkout
type CheckoutDeps struct {
	Sessions   *SessionManager
	POS        pos.Client
	Locker     shared.Locker
	LockWait   time.Duration
	LocationID string
	Currency   string
	Logger     *zap.Logger
}

// Checkout charges a session's running subtotal through the POS
type Checkout struct {
	sessions   *SessionManager
	pos        pos.Client
	lock       roomLock
	locationID string
	currency   string
	logger     *zap.Logger
}

// NewCheckout creates a new Checkout
func NewCheckout(deps CheckoutDeps) *Checkout {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := deps.Currency
	if currency == "" {
		currency = "JPY"
	}
	return &Checkout{
		sessions:   deps.Sessions,
		pos:        deps.POS,
		lock:       newRoomLock(deps.Locker, deps.LockWait),
		locationID: deps.LocationID,
		currency:   currency,
		logger:     logger,
	}
}

// CheckoutSession creates a POS order for the shadow variation and pays it.
// Both carry the session id as reference, so a later close resolves to Completed.
func (c *Checkout) CheckoutSession(ctx context.Context, sessionID, sourceID string) (*CheckoutResult, error) {
	if strings.TrimSpace(sourceID) == "" {
		sourceID = DefaultPaymentSource
	}
	session, err := c.sessions.FindSession(ctx, SessionLookup{SessionID: sessionID})
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "checkout.session",
		attribute.String(telemetry.SpanAttrSessionID, session.ID),
		attribute.String(telemetry.SpanAttrRoomID, session.RoomID),
	)
	defer span.End()

	unlock, err := c.lock.acquire(ctx, session.RoomID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	session, err = c.sessions.FindSession(ctx, SessionLookup{SessionID: session.ID})
	if err != nil {
		return nil, err
	}
	if !session.Active {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Session is already closed")
	}
	if !session.HasMirror() {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Session has no POS item to charge")
	}
	subtotal, err := c.sessions.ComputeRunningSubtotal(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if !subtotal.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Session has nothing to charge")
	}
	amount := pos.Money{Amount: subtotal.IntPart(), Currency: c.currency}

	order, err := c.pos.CreateOrder(ctx, uuid.NewString(), pos.Order{
		LocationID:  c.locationID,
		ReferenceID: session.ID,
		LineItems: []pos.OrderLineItem{{
			CatalogObjectID: session.MirrorVariationID,
			Quantity:        "1",
		}},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Error("POS order creation failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return nil, shared.WrapDomainError(shared.ErrPaymentFailed, err)
	}

	payment, err := c.pos.CreatePayment(ctx, uuid.NewString(), pos.Payment{
		SourceID:    sourceID,
		OrderID:     order.ID,
		LocationID:  c.locationID,
		ReferenceID: session.ID,
		AmountMoney: amount,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Error("POS payment failed",
			zap.String("session_id", session.ID),
			zap.String("pos_order_id", order.ID),
			zap.Error(err),
		)
		return nil, shared.WrapDomainError(shared.ErrPaymentFailed, err)
	}

	c.logger.Info("Session charged",
		zap.String("session_id", session.ID),
		zap.String("pos_order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.Int64("amount", amount.Amount),
	)
	return &CheckoutResult{
		SessionID:  session.ID,
		POSOrderID: order.ID,
		PaymentID:  payment.ID,
		Amount:     subtotal,
		Currency:   c.currency,
	}, nil
}
