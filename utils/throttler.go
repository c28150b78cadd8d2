package utils

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
)

var ErrResourceBusy = errors.New("resource busy, try again")

// Throttler bounds the number of concurrent users of a shared resource and
// the number of callers allowed to wait for it.
type Throttler[T any] struct {
	resource *T
	sem      chan struct{}
	queue    atomic.Int32

	maxQueueLen int32
}

func NewThrottler[T any](concurrencyBudget uint, resource *T) *Throttler[T] {
	return &Throttler[T]{
		resource:    resource,
		sem:         make(chan struct{}, concurrencyBudget),
		maxQueueLen: math.MaxInt32,
	}
}

// WithMaxQueueLen sets the maximum length the queue can grow to
func (t *Throttler[T]) WithMaxQueueLen(maxQueueLen int32) *Throttler[T] {
	t.maxQueueLen = maxQueueLen
	return t
}

// Do lets caller acquire the resource within the context of a callback.
// Only callers that find no free slot count against the queue length, and
// waiting is abandoned once ctx is done.
func (t *Throttler[T]) Do(ctx context.Context, doer func(resource *T) error) error {
	select {
	case t.sem <- struct{}{}:
	default:
		if err := t.wait(ctx); err != nil {
			return err
		}
	}
	defer func() {
		<-t.sem
	}()
	return doer(t.resource)
}

func (t *Throttler[T]) wait(ctx context.Context) error {
	defer t.queue.Add(-1)
	if t.queue.Add(1) > t.maxQueueLen {
		return ErrResourceBusy
	}

	select {
	case t.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueLen returns the number of Do calls that is blocked on the resource
func (t *Throttler[T]) QueueLen() int {
	return int(t.queue.Load())
}

// JobsRunning returns the number of Do calls that are running at the moment
func (t *Throttler[T]) JobsRunning() int {
	return len(t.sem)
}
