package shared

import "context"

// Locker provides mutual exclusion keyed by an arbitrary string.
// Implementations must make Lock block until the key is free or ctx is done.
type Locker interface {
	// Lock acquires the lock for key and returns the function that releases it.
	// Returns ErrLockUnavailable when ctx ends before the lock is acquired.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RoomLockKey returns the lock key serializing tab mutations for a room
func RoomLockKey(roomID string) string {
	return "roomtab:lock:room:" + roomID
}
