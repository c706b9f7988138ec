package tab

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/roomtab/backend/internal/domain/shared"
)

// SessionStatus represents the lifecycle status of an order session
type SessionStatus string

const (
	SessionStatusActive         SessionStatus = "active"
	SessionStatusCompleted      SessionStatus = "Completed"
	SessionStatusPendingPayment SessionStatus = "Pending_payment"
	SessionStatusForceClosed    SessionStatus = "Force_closed"
)

// IsValid checks if the status is a valid SessionStatus
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusPendingPayment, SessionStatusForceClosed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusPendingPayment || s == SessionStatusForceClosed
}

// CanTransitionTo checks if the status can transition to the target status
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	return s == SessionStatusActive && target.IsTerminal()
}

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	return string(s)
}

// ResolveCloseStatus picks the terminal status for a close request.
// A forced close wins over payment state; otherwise a recorded payment
// completes the session and its absence leaves it pending payment.
func ResolveCloseStatus(force, paid bool) SessionStatus {
	switch {
	case force:
		return SessionStatusForceClosed
	case paid:
		return SessionStatusCompleted
	default:
		return SessionStatusPendingPayment
	}
}

// SessionIDLength is the fixed width of a session identifier
const SessionIDLength = 21

// OrderSession is the running tab of a room, from its first order until it is closed
type OrderSession struct {
	ID                string
	RoomID            string
	Active            bool
	Status            SessionStatus
	MirrorItemID      string // POS catalog ITEM id
	MirrorVariationID string // POS ITEM_VARIATION id carrying the price
	OpenedAt          time.Time
	ClosedAt          *time.Time
}

// NewOrderSession creates a new active session for the room
func NewOrderSession(roomID string, now time.Time) (*OrderSession, error) {
	if roomID == "" {
		return nil, shared.NewDomainError("INVALID_ROOM", "Room number cannot be empty")
	}
	id, err := NewSessionID(now)
	if err != nil {
		return nil, err
	}
	return &OrderSession{
		ID:       id,
		RoomID:   roomID,
		Active:   true,
		Status:   SessionStatusActive,
		OpenedAt: now,
	}, nil
}

// HasMirror reports whether a shadow item has been attached to the session
func (s *OrderSession) HasMirror() bool {
	return s.MirrorVariationID != ""
}

// SetMirror records the POS shadow item identifiers
func (s *OrderSession) SetMirror(itemID, variationID string) {
	s.MirrorItemID = itemID
	s.MirrorVariationID = variationID
}

// Close moves the session to a terminal status
func (s *OrderSession) Close(status SessionStatus, now time.Time) error {
	if !s.Active || !s.Status.CanTransitionTo(status) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Session %s cannot be closed from status %s", s.ID, s.Status))
	}
	s.Active = false
	s.Status = status
	s.ClosedAt = &now
	return nil
}

// ShadowItemName returns the POS display name of the session's shadow item
func (s *OrderSession) ShadowItemName() string {
	return ShadowItemName(s.RoomID, s.ID)
}

// ShadowItemName returns the POS display name for a room/session pair
func ShadowItemName(roomID, sessionID string) string {
	return roomID + "-" + sessionID
}

var sessionSuffixMax = big.NewInt(1_000_000)

// NewSessionID builds a time-ordered session identifier:
// yymmddHHMMSS, 3-digit milliseconds, then a 6-digit random suffix.
func NewSessionID(now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, sessionSuffixMax)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return formatSessionID(now, n.Int64()), nil
}

func formatSessionID(now time.Time, suffix int64) string {
	ms := now.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s%03d%06d", now.Format("060102150405"), ms, suffix)
}
