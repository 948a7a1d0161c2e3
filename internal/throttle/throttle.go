// Package throttle bounds the number of concurrently outstanding upstream calls.
package throttle

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is used when New is given a limit below 1.
const DefaultLimit = 30

// Throttle is a counting gate. A slot must be held for the whole duration of
// one network call. Waiters are released in no particular order.
type Throttle struct {
	sem      *semaphore.Weighted
	limit    int
	inFlight atomic.Int64
}

// New returns a Throttle allowing at most limit concurrent holders.
func New(limit int) *Throttle {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Throttle{sem: semaphore.NewWeighted(int64(limit)), limit: limit}
}

// Limit returns the configured maximum number of slots.
func (t *Throttle) Limit() int { return t.limit }

// InFlight returns the number of slots currently held.
func (t *Throttle) InFlight() int { return int(t.inFlight.Load()) }

// Acquire blocks until a slot is free or ctx is done.
// Every successful Acquire must be paired with exactly one Release.
func (t *Throttle) Acquire(ctx context.Context) error {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("throttle.Throttle.Acquire: %w", err)
	}
	t.inFlight.Add(1)
	return nil
}

// Release returns a slot to the gate.
func (t *Throttle) Release() {
	t.inFlight.Add(-1)
	t.sem.Release(1)
}

// Do runs fn while holding a slot. The slot is released when fn returns,
// errors, or panics.
func (t *Throttle) Do(ctx context.Context, fn func() error) error {
	if err := t.Acquire(ctx); err != nil {
		return err
	}
	defer t.Release()
	return fn()
}
