// Package channel provides the bounded queue that sits between a socket
// reader and the goroutine that consumes its frames.
package channel

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Send and Receive once the queue is closed and drained.
var ErrClosed = errors.New("channel: queue closed")

// Stats is a point-in-time view of queue counters.
type Stats struct {
	Sent     int64 `json:"sent"`
	Received int64 `json:"received"`
	Dropped  int64 `json:"dropped"`
	Len      int   `json:"len"`
	Cap      int   `json:"cap"`
}

// Queue is a FIFO of bounded capacity. Order is preserved for everything that
// was accepted; TrySend drops instead of blocking when the queue is full.
type Queue[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once

	sent     atomic.Int64
	received atomic.Int64
	dropped  atomic.Int64
}

// NewQueue creates a queue holding at most size items. size < 1 is treated as 1.
func NewQueue[T any](size int) *Queue[T] {
	if size < 1 {
		size = 1
	}
	return &Queue[T]{
		ch:   make(chan T, size),
		done: make(chan struct{}),
	}
}

// Send blocks until v is enqueued, ctx is done, or the queue is closed.
func (q *Queue[T]) Send(ctx context.Context, v T) error {
	select {
	case <-q.done:
		return ErrClosed
	default:
	}
	select {
	case q.ch <- v:
		q.sent.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrClosed
	}
}

// TrySend enqueues v without blocking. It reports false (and counts a drop)
// when the queue is full or closed.
func (q *Queue[T]) TrySend(v T) bool {
	select {
	case <-q.done:
		q.dropped.Add(1)
		return false
	default:
	}
	select {
	case q.ch <- v:
		q.sent.Add(1)
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Receive returns the next item. After Close it keeps returning buffered
// items until the queue is empty, then ErrClosed.
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	select {
	case v := <-q.ch:
		q.received.Add(1)
		return v, nil
	default:
	}
	select {
	case v := <-q.ch:
		q.received.Add(1)
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case <-q.done:
		select {
		case v := <-q.ch:
			q.received.Add(1)
			return v, nil
		default:
			var zero T
			return zero, ErrClosed
		}
	}
}

// Drain discards everything currently buffered and returns the count.
func (q *Queue[T]) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
			q.dropped.Add(1)
		default:
			return n
		}
	}
}

// Close stops accepting new items. Safe to call more than once.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

// Len returns the current number of buffered items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Stats returns the queue counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Sent:     q.sent.Load(),
		Received: q.received.Load(),
		Dropped:  q.dropped.Load(),
		Len:      len(q.ch),
		Cap:      cap(q.ch),
	}
}
