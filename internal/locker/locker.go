// Package locker serializes webhook processing per target. The remote API
// redelivers webhooks aggressively; a delivery that cannot take the lock
// within the wait window is a duplicate of one already in flight and is
// discarded rather than queued.
package locker

import (
	"context"
	"sync"
	"time"
)

// DefaultWait bounds how long a delivery waits for an in-flight sibling
// before being treated as a duplicate.
const DefaultWait = 30 * time.Second

// Locker hands out at most one lease per key at a time.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
	wait time.Duration
}

// New builds a Locker. A non-positive wait falls back to DefaultWait.
func New(wait time.Duration) *Locker {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Locker{
		held: make(map[string]chan struct{}),
		wait: wait,
	}
}

// Acquire takes the lease for key, waiting up to the configured window for
// the current holder to release it. It returns a release func and true on
// success, or nil and false if the window or ctx expired first.
func (l *Locker) Acquire(ctx context.Context, key string) (func(), bool) {
	deadline := time.NewTimer(l.wait)
	defer deadline.Stop()

	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			var once sync.Once
			return func() { once.Do(func() { l.release(key, done) }) }, true
		}
		l.mu.Unlock()

		select {
		case <-ch:
			// Holder released; race for the lease again.
		case <-deadline.C:
			return nil, false
		case <-ctx.Done():
			return nil, false
		}
	}
}

func (l *Locker) release(key string, done chan struct{}) {
	l.mu.Lock()
	if l.held[key] == done {
		delete(l.held, key)
	}
	l.mu.Unlock()
	close(done)
}
