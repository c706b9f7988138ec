package tab

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
)

// OccupantService registers guest identities staying in a room
type OccupantService struct {
	occupants tab.OccupantRepository
	sessions  tab.SessionRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewOccupantService creates a new OccupantService
func NewOccupantService(occupants tab.OccupantRepository, sessions tab.SessionRepository, logger *zap.Logger) *OccupantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupantService{
		occupants: occupants,
		sessions:  sessions,
		logger:    logger,
		now:       time.Now,
	}
}

// RegisterOccupant activates the guest in the room, binding the room's
// active session when there is one
func (s *OccupantService) RegisterOccupant(ctx context.Context, roomID string, req RegisterOccupantRequest) (*OccupantResponse, error) {
	occupant, err := tab.NewRoomOccupant(strings.TrimSpace(roomID), strings.TrimSpace(req.GuestIdentity),
		strings.TrimSpace(req.DisplayName), s.now())
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.FindActiveByRoom(ctx, occupant.RoomID)
	switch {
	case err == nil:
		occupant.SessionID = &session.ID
	case !errors.Is(err, shared.ErrNotFound):
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}

	if err := s.occupants.Upsert(ctx, occupant); err != nil {
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}
	s.logger.Info("Occupant registered",
		zap.String("room_id", occupant.RoomID),
		zap.Bool("bound", occupant.SessionID != nil),
	)
	resp := ToOccupantResponse(occupant)
	return &resp, nil
}

// ListOccupants returns the active occupants of a room
func (s *OccupantService) ListOccupants(ctx context.Context, roomID string) ([]OccupantResponse, error) {
	occupants, err := s.occupants.FindActiveByRoom(ctx, strings.TrimSpace(roomID))
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrStorage, err)
	}
	out := make([]OccupantResponse, 0, len(occupants))
	for i := range occupants {
		out = append(out, ToOccupantResponse(&occupants[i]))
	}
	return out, nil
}
