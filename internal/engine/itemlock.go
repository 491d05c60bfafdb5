package engine

import (
	"context"
	"sync"
	"time"
)

// itemLocks provides per-item mutual exclusion for arbitration.  Every
// mutating engine operation serializes on the lock for its item so two
// concurrent Creates cannot both observe sufficient availability; holds on
// different items proceed fully in parallel.  Locks are channel-based so
// acquisition can be bounded by a timeout, surfacing ErrBusy instead of
// waiting indefinitely.
//
// The map grows to one idle channel per item ever touched and entries are
// never evicted: removal would let a goroutine waiting on the evicted
// channel and a fresh acquirer of its replacement hold the lock at the
// same time.  The bound is the catalogue size, a few dozen bytes per
// distinct item.
type itemLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newItemLocks() *itemLocks {
	return &itemLocks{locks: make(map[string]chan struct{})}
}

func (l *itemLocks) lockFor(itemID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[itemID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[itemID] = ch
	}
	return ch
}

// acquire takes the lock for itemID, waiting at most timeout.  It returns
// ErrBusy on timeout and the context error if ctx is cancelled first.
// Expected hold times are sub-millisecond, so a timeout firing means real
// contention rather than slowness.
func (l *itemLocks) acquire(ctx context.Context, itemID string, timeout time.Duration) error {
	ch := l.lockFor(itemID)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBusy
	case <-ctx.Done():
		return ctx.Err()
	}
}

// release frees the lock for itemID.  Must only be called after a
// successful acquire.
func (l *itemLocks) release(itemID string) {
	<-l.lockFor(itemID)
}
