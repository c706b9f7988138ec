package cache

import (
	"context"
	"sync"

	"github.com/roomtab/backend/internal/domain/shared"
)

// MemoryRoomLocker serializes work per key inside one process.
// Each key has a one-slot channel; holders are reference counted so idle
// keys are dropped from the map.
type MemoryRoomLocker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

// NewMemoryRoomLocker creates an in-process keyed locker
func NewMemoryRoomLocker() *MemoryRoomLocker {
	return &MemoryRoomLocker{slots: make(map[string]*lockSlot)}
}

// Lock blocks until key is free or ctx is done
func (l *MemoryRoomLocker) Lock(ctx context.Context, key string) (func(), error) {
	slot := l.acquireSlot(key)

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.releaseSlot(key, slot)
		return nil, shared.WrapDomainError(shared.ErrLockUnavailable, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.releaseSlot(key, slot)
		})
	}, nil
}

func (l *MemoryRoomLocker) acquireSlot(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *MemoryRoomLocker) releaseSlot(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// size returns the number of keys currently tracked
func (l *MemoryRoomLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}

var _ shared.Locker = (*MemoryRoomLocker)(nil)
