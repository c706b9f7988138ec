package tab

import (
	"context"
	"errors"
	"time"

	"github.com/roomtab/backend/internal/domain/shared"
)

// roomLock serializes tab mutations per room
type roomLock struct {
	locker shared.Locker
	wait   time.Duration
}

func newRoomLock(locker shared.Locker, wait time.Duration) roomLock {
	return roomLock{locker: locker, wait: wait}
}

// acquire blocks until the room is free, ctx ends, or the wait budget runs out
func (l roomLock) acquire(ctx context.Context, roomID string) (func(), error) {
	if l.locker == nil {
		return func() {}, nil
	}
	lockCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	unlock, err := l.locker.Lock(lockCtx, shared.RoomLockKey(roomID))
	if err == nil {
		return unlock, nil
	}
	if errors.Is(err, shared.ErrLockUnavailable) {
		return nil, err
	}
	return nil, shared.WrapDomainError(shared.ErrLockUnavailable, err)
}
