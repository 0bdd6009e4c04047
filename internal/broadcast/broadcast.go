// Package broadcast provides an in-memory replay channel: every event ever
// published is retained, and each subscriber receives the full history
// followed by live events, in publish order, at its own pace.
//
//	ch := broadcast.New[domain.MovieInfo]()
//	ch.Publish(info)
//	for info := range ch.Subscribe(ctx) {
//		// history first, then live events until ctx is done
//	}
package broadcast

import (
	"context"
	"iter"
	"sync"
	"sync/atomic"
)

// Channel is an append-only event log with independent subscriber cursors.
// The zero value is not usable; construct with New.
type Channel[T any] struct {
	mu       sync.RWMutex
	events   []T
	notifyCh chan struct{}
}

// New returns an empty Channel.
func New[T any]() *Channel[T] {
	return &Channel[T]{notifyCh: make(chan struct{})}
}

// Publish appends event to the log and wakes waiting subscribers. It never
// waits on subscribers and succeeds whether or not any exist.
func (c *Channel[T]) Publish(event T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
	// wake waiters
	close(c.notifyCh)
	c.notifyCh = make(chan struct{})
}

// Len reports how many events have been published.
func (c *Channel[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.events)
}

// since returns the events from index cursor onward together with the channel
// that is closed on the next Publish. Both are read under the same lock so an
// append between them cannot be missed.
func (c *Channel[T]) since(cursor int) ([]T, <-chan struct{}) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	// The log only grows, so the returned window is never mutated.
	return c.events[cursor:len(c.events):len(c.events)], c.notifyCh
}

// Subscribe returns a lazy sequence that starts at the first event ever
// published and continues with live events until ctx is done or the consumer
// stops ranging. The sequence is single-use: ranging over it a second time
// yields nothing.
func (c *Channel[T]) Subscribe(ctx context.Context) iter.Seq[T] {
	var used atomic.Bool
	return func(yield func(T) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		cursor := 0
		for {
			batch, wake := c.since(cursor)
			for _, event := range batch {
				if ctx.Err() != nil {
					return
				}
				if !yield(event) {
					return
				}
				cursor++
			}
			if len(batch) > 0 {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-wake:
			}
		}
	}
}
