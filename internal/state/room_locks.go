package state

import (
	"context"
	"sync"
)

// RoomLocks serializes work per room. Entries exist only while someone holds
// or waits for the lock, so the table does not grow with every room ever seen.
type RoomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	ch   chan struct{}
	refs int
}

func NewRoomLocks() *RoomLocks {
	return &RoomLocks{locks: make(map[string]*roomLock)}
}

// Lock blocks until the room's lock is held or ctx is done. The returned
// unlock func is safe to call more than once.
func (l *RoomLocks) Lock(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	rl := l.locks[roomID]
	if rl == nil {
		rl = &roomLock{ch: make(chan struct{}, 1)}
		l.locks[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-rl.ch
				l.release(roomID, rl)
			})
		}, nil
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, ctx.Err()
	}
}

func (l *RoomLocks) release(roomID string, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.locks, roomID)
	}
}

// Active is the number of rooms currently locked or waited on.
func (l *RoomLocks) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
