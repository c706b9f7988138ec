// Package tab implements the room tab use cases: order intake, POS shadow
// item synchronization, session close reconciliation and checkout.
package tab

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
)

// Notifier reports tab events to staff channels. Implementations return
// immediately and deliver in the background.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, session *tab.OrderSession, order *tab.Order)
	NotifySessionClosed(ctx context.Context, session *tab.OrderSession, kind tab.SessionStatus)
	NotifyPriceMismatch(ctx context.Context, session *tab.OrderSession, expected, actual decimal.Decimal)
}

// NopNotifier discards every notification
type NopNotifier struct{}

func (NopNotifier) NotifyOrderCreated(context.Context, *tab.OrderSession, *tab.Order) {}
func (NopNotifier) NotifySessionClosed(context.Context, *tab.OrderSession, tab.SessionStatus) {
}
func (NopNotifier) NotifyPriceMismatch(context.Context, *tab.OrderSession, decimal.Decimal, decimal.Decimal) {
}

// SessionManager opens and reads room sessions
type SessionManager struct {
	sessions tab.SessionRepository
	orders   tab.OrderRepository
	taxRate  decimal.Decimal
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionManager creates a new SessionManager
func NewSessionManager(sessions tab.SessionRepository, orders tab.OrderRepository, taxRate decimal.Decimal, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		sessions: sessions,
		orders:   orders,
		taxRate:  taxRate,
		logger:   logger,
		now:      time.Now,
	}
}

// GetOrCreateActiveSession returns the room's active session, opening one when
// none exists. A concurrent creator winning the insert is resolved by reading
// its session back. Occupants of the room without a session are bound to it.
func (m *SessionManager) GetOrCreateActiveSession(ctx context.Context, roomID string) (*tab.OrderSession, bool, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, false, shared.NewDomainError(shared.ErrValidation.Code, "room_number is required")
	}

	session, created, err := m.findOrCreate(ctx, roomID)
	if err != nil {
		return nil, false, err
	}

	bound, err := m.sessions.BindOccupants(ctx, roomID, session.ID)
	if err != nil {
		m.logger.Warn("Failed to bind occupants to session",
			zap.String("room_id", roomID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else if bound > 0 {
		m.logger.Debug("Occupants bound to session",
			zap.String("session_id", session.ID),
			zap.Int64("count", bound),
		)
	}
	return session, created, nil
}

func (m *SessionManager) findOrCreate(ctx context.Context, roomID string) (*tab.OrderSession, bool, error) {
	existing, err := m.sessions.FindActiveByRoom(ctx, roomID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, shared.WrapDomainError(shared.ErrStorage, err)
	}

	session, err := tab.NewOrderSession(roomID, m.now())
	if err != nil {
		return nil, false, err
	}
	err = m.sessions.Create(ctx, session)
	if err == nil {
		m.logger.Info("Order session opened",
			zap.String("room_id", roomID),
			zap.String("session_id", session.ID),
		)
		return session, true, nil
	}
	if !errors.Is(err, shared.ErrAlreadyExists) {
		return nil, false, shared.WrapDomainError(shared.ErrStorage, err)
	}

	winner, err := m.sessions.FindActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, false, shared.WrapDomainError(shared.ErrStorage, err)
	}
	m.logger.Debug("Concurrent session creation resolved to existing session",
		zap.String("room_id", roomID),
		zap.String("session_id", winner.ID),
	)
	return winner, false, nil
}

// ComputeRunningSubtotal returns the tax-exclusive sum of every line on the session
func (m *SessionManager) ComputeRunningSubtotal(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	total, err := m.orders.SumLineSubtotals(ctx, sessionID)
	if err != nil {
		return decimal.Zero, shared.WrapDomainError(shared.ErrStorage, err)
	}
	return total, nil
}

// FindSession resolves a session by id, or the room's active session
func (m *SessionManager) FindSession(ctx context.Context, lookup SessionLookup) (*tab.OrderSession, error) {
	sessionID := strings.TrimSpace(lookup.SessionID)
	roomID := strings.TrimSpace(lookup.RoomID)

	var (
		session *tab.OrderSession
		err     error
	)
	switch {
	case sessionID != "":
		session, err = m.sessions.FindByID(ctx, sessionID)
	case roomID != "":
		session, err = m.sessions.FindActiveByRoom(ctx, roomID)
	default:
		return nil, shared.ErrMissingSessionReference
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Session not found")
	}
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}
	return session, nil
}

// GetSessionView returns the session with its orders and running totals
func (m *SessionManager) GetSessionView(ctx context.Context, lookup SessionLookup) (*SessionView, error) {
	session, err := m.FindSession(ctx, lookup)
	if err != nil {
		return nil, err
	}

	orders, err := m.orders.FindBySession(ctx, session.ID)
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}
	subtotal, err := m.ComputeRunningSubtotal(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		Session: ToSessionResponse(session),
		Orders:  make([]OrderResponse, 0, len(orders)),
		Totals:  tab.ComputeTotals(subtotal, m.taxRate),
	}
	for i := range orders {
		view.Orders = append(view.Orders, ToOrderResponse(&orders[i]))
	}
	return view, nil
}

// ListActiveSessions returns every open session, oldest first
func (m *SessionManager) ListActiveSessions(ctx context.Context) ([]SessionResponse, error) {
	sessions, err := m.sessions.ListActive(ctx)
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}
	out := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, ToSessionResponse(&sessions[i]))
	}
	return out, nil
}

// CountActiveSessions reports the number of open sessions
func (m *SessionManager) CountActiveSessions(ctx context.Context) (int64, error) {
	sessions, err := m.sessions.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(sessions)), nil
}
