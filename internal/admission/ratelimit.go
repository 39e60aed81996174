package admission

import (
	"context"
	"sync/atomic"
	"time"
)

// RateLimiter decides whether one more request fits in the current window.
type RateLimiter interface {
	Allow(ctx context.Context) (bool, error)
}

type window struct {
	epoch int64
	count int64
}

// FixedWindow admits at most limit requests per window. The window epoch and
// its count live in one immutable pair swapped with CompareAndSwap, so a
// window boundary is crossed exactly once under contention.
type FixedWindow struct {
	limit  int64
	length time.Duration
	clock  func() time.Duration
	state  atomic.Pointer[window]
}

func NewFixedWindow(limit int, length time.Duration) *FixedWindow {
	start := time.Now()
	return newFixedWindow(limit, length, func() time.Duration { return time.Since(start) })
}

// clock must be monotonic.
func newFixedWindow(limit int, length time.Duration, clock func() time.Duration) *FixedWindow {
	if length <= 0 {
		length = time.Second
	}
	l := &FixedWindow{limit: int64(limit), length: length, clock: clock}
	l.state.Store(&window{})
	return l
}

func (l *FixedWindow) Allow(_ context.Context) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	for {
		epoch := int64(l.clock() / l.length)
		cur := l.state.Load()

		next := &window{epoch: epoch, count: 1}
		if cur.epoch >= epoch {
			if cur.count >= l.limit {
				return false, nil
			}
			next = &window{epoch: cur.epoch, count: cur.count + 1}
		}
		if l.state.CompareAndSwap(cur, next) {
			return true, nil
		}
	}
}

type unlimited struct{}

func (unlimited) Allow(context.Context) (bool, error) { return true, nil }

// Unlimited never rejects.
func Unlimited() RateLimiter { return unlimited{} }
