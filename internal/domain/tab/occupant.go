package tab

import (
	"time"

	"github.com/google/uuid"
	"github.com/roomtab/backend/internal/domain/shared"
)

// RoomOccupant is a guest identity currently staying in a room.
// Active occupants are bound to the room's session when one opens.
type RoomOccupant struct {
	ID            uuid.UUID
	RoomID        string
	GuestIdentity string
	DisplayName   string
	Active        bool
	SessionID     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewRoomOccupant creates an active occupant for a room
func NewRoomOccupant(roomID, guestIdentity, displayName string, now time.Time) (*RoomOccupant, error) {
	if roomID == "" {
		return nil, shared.NewDomainError("INVALID_ROOM", "Room number cannot be empty")
	}
	if guestIdentity == "" {
		return nil, shared.NewDomainError("INVALID_GUEST", "Guest identity cannot be empty")
	}
	return &RoomOccupant{
		ID:            uuid.New(),
		RoomID:        roomID,
		GuestIdentity: guestIdentity,
		DisplayName:   displayName,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
