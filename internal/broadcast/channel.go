// Package broadcast implements a replay-all multicast channel: every
// subscriber first receives the retained history in publication order and
// then every later record, in the same order.
package broadcast

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrClosed is returned once the channel has been closed and a
	// subscriber has consumed everything published before the close.
	ErrClosed = errors.New("broadcast: channel closed")
	// ErrLagged is returned when a subscriber's next record has already
	// been evicted from the bounded history.
	ErrLagged = errors.New("broadcast: subscriber fell behind retained history")
)

// Channel is safe for concurrent Publish and Subscribe.
//
// With a positive capacity only the newest capacity records are retained
// (drop-oldest). A capacity of zero or less retains every record for the
// lifetime of the channel.
type Channel[T any] struct {
	mu       sync.Mutex
	capacity int
	items    []T
	first    uint64 // sequence number of the oldest retained record
	next     uint64 // sequence number the next record will get
	wake     chan struct{}
	closed   bool
}

func New[T any](capacity int) *Channel[T] {
	return &Channel[T]{
		capacity: capacity,
		wake:     make(chan struct{}),
	}
}

// Publish appends v to the history and wakes every waiting subscriber.
func (c *Channel[T]) Publish(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	switch {
	case c.capacity <= 0 || len(c.items) < c.capacity:
		c.items = append(c.items, v)
	default:
		c.items[c.next%uint64(c.capacity)] = v
		c.first++
	}
	c.next++

	close(c.wake)
	c.wake = make(chan struct{})
	return nil
}

// Subscribe returns a cursor positioned at the oldest retained record.
func (c *Channel[T]) Subscribe() *Subscription[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return &Subscription[T]{ch: c, cursor: c.first}
}

// Len returns the number of retained records.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.next - c.first)
}

// Close stops accepting records. Subscribers drain what was published and
// then receive ErrClosed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.wake)
}

// at must be called with c.mu held and first <= seq < next.
func (c *Channel[T]) at(seq uint64) T {
	if c.capacity <= 0 {
		return c.items[seq-c.first]
	}
	return c.items[seq%uint64(c.capacity)]
}

// Subscription is an independent read cursor over a Channel. It is not safe
// for concurrent use; each consumer should hold its own.
type Subscription[T any] struct {
	ch     *Channel[T]
	cursor uint64
}

// Next blocks until the record after the cursor is available, ctx is done,
// or the channel is closed.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	var zero T
	c := s.ch
	for {
		c.mu.Lock()
		if s.cursor < c.first {
			c.mu.Unlock()
			return zero, ErrLagged
		}
		if s.cursor < c.next {
			v := c.at(s.cursor)
			s.cursor++
			c.mu.Unlock()
			return v, nil
		}
		if c.closed {
			c.mu.Unlock()
			return zero, ErrClosed
		}
		wake := c.wake
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-wake:
		}
	}
}
