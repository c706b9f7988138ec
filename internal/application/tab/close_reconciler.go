package tab

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/pos"
	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

// Payment states that do not count as paid
var unpaidPaymentStatuses = map[string]struct{}{
	"FAILED":   {},
	"CANCELED": {},
}

// CloseReconcilerDeps groups the collaborators of CloseReconciler
type CloseReconcilerDeps struct {
	Sessions     *SessionManager
	SessionStore tab.SessionRepository
	Mirror       *MirrorSync
	POS          pos.Client
	Locker       shared.Locker
	Notifier     Notifier
	Metrics      *telemetry.TabMetrics
	LockWait     time.Duration
	Logger       *zap.Logger
}

// CloseReconciler closes sessions, resolving the terminal status from POS payments
type CloseReconciler struct {
	sessions *SessionManager
	store    tab.SessionRepository
	mirror   *MirrorSync
	pos      pos.Client
	lock     roomLock
	notifier Notifier
	metrics  *telemetry.TabMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewCloseReconciler creates a new CloseReconciler
func NewCloseReconciler(deps CloseReconcilerDeps) *CloseReconciler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CloseReconciler{
		sessions: deps.Sessions,
		store:    deps.SessionStore,
		mirror:   deps.Mirror,
		pos:      deps.POS,
		lock:     newRoomLock(deps.Locker, deps.LockWait),
		notifier: notifier,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CloseSession ends a session. A forced close archives the shadow item;
// otherwise the status depends on whether the POS recorded a payment
// referencing the session.
func (r *CloseReconciler) CloseSession(ctx context.Context, req CloseRequest) (*CloseResult, error) {
	lookup := SessionLookup{SessionID: req.SessionID, RoomID: req.RoomID}
	session, err := r.sessions.FindSession(ctx, lookup)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "close_reconciler.close",
		attribute.String(telemetry.SpanAttrSessionID, session.ID),
		attribute.String(telemetry.SpanAttrRoomID, session.RoomID),
	)
	defer span.End()

	unlock, err := r.lock.acquire(ctx, session.RoomID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer unlock()

	// Re-read under the lock; another request may have closed it meanwhile.
	session, err = r.sessions.FindSession(ctx, SessionLookup{SessionID: session.ID})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !session.Active {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "Session is already closed")
	}

	status := tab.ResolveCloseStatus(req.Force, !req.Force && r.hasPayment(ctx, session))
	if err := session.Close(status, r.now()); err != nil {
		return nil, err
	}
	completed, err := r.store.Close(ctx, session)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, shared.ErrInvalidState) {
			return nil, err
		}
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}

	result := &CloseResult{
		SessionID:       session.ID,
		RoomID:          session.RoomID,
		Status:          status,
		OrdersCompleted: completed,
	}
	if status == tab.SessionStatusForceClosed && session.HasMirror() {
		if err := r.mirror.ArchiveShadowItem(ctx, session.MirrorVariationID); err != nil {
			r.logger.Warn("Failed to archive shadow item",
				zap.String("session_id", session.ID),
				zap.String("variation_id", session.MirrorVariationID),
				zap.Error(err),
			)
		} else {
			result.ShadowArchived = true
		}
	}
	result.Message = closeMessage(status)

	r.logger.Info("Order session closed",
		zap.String("session_id", session.ID),
		zap.String("room_id", session.RoomID),
		zap.String("status", status.String()),
		zap.Int64("orders_completed", completed),
	)
	r.notifier.NotifySessionClosed(ctx, session, status)
	r.metrics.RecordSessionClosed(ctx, status.String())
	return result, nil
}

// hasPayment reports whether the POS holds a payment referencing the session.
// A failed lookup counts as unpaid.
func (r *CloseReconciler) hasPayment(ctx context.Context, session *tab.OrderSession) bool {
	payments, err := r.pos.ListPaymentsByReference(ctx, session.ID)
	if err != nil {
		r.logger.Warn("Payment lookup failed, treating session as unpaid",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return false
	}
	for _, p := range payments {
		if _, unpaid := unpaidPaymentStatuses[p.Status]; !unpaid {
			return true
		}
	}
	return false
}

func closeMessage(status tab.SessionStatus) string {
	switch status {
	case tab.SessionStatusCompleted:
		return "Session closed, payment confirmed"
	case tab.SessionStatusForceClosed:
		return "Session force closed"
	default:
		return "Session closed, payment pending"
	}
}
