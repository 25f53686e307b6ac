// Package utils provides small shared primitives used across services.
package utils

import (
	"sync"
	"sync/atomic"
)

// Subscription is a single subscriber's view of a Dispatcher. Events are
// delivered in publish order on Channel. If the subscriber falls behind its
// backlog capacity, the oldest pending events are discarded and the loss is
// reported through Dropped.
type Subscription[T any] struct {
	dispatcher *Dispatcher[T]
	channel    chan T
	dropped    atomic.Uint64
	closed     bool
	mu         sync.Mutex
}

// Channel returns the receive channel for this subscription.
func (s *Subscription[T]) Channel() <-chan T {
	return s.channel
}

// Dropped returns the number of events discarded because this subscriber
// fell behind its backlog.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe detaches the subscription from its dispatcher and closes the
// channel. Safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	if s.dispatcher != nil {
		s.dispatcher.unsubscribe(s)
	}
}

func (s *Subscription[T]) deliver(event T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	for {
		select {
		case s.channel <- event:
			return
		default:
		}

		// Backlog full: discard the oldest pending event and retry.
		select {
		case <-s.channel:
			s.dropped.Add(1)
		default:
		}
	}
}

func (s *Subscription[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.channel)
	}
}

// Dispatcher is a fan-out event dispatcher. Fire never blocks the publisher:
// a subscriber that cannot keep up loses its oldest backlog entries rather
// than back-pressuring the caller. Firing with zero subscribers is a no-op.
type Dispatcher[T any] struct {
	mu          sync.RWMutex
	subscribers []*Subscription[T]
}

// Subscribe registers a new subscriber with the given backlog capacity.
func (d *Dispatcher[T]) Subscribe(capacity int) *Subscription[T] {
	if capacity < 1 {
		capacity = 1
	}

	sub := &Subscription[T]{
		dispatcher: d,
		channel:    make(chan T, capacity),
	}

	d.mu.Lock()
	d.subscribers = append(d.subscribers, sub)
	d.mu.Unlock()

	return sub
}

// Fire delivers an event to all current subscribers in publish order.
func (d *Dispatcher[T]) Fire(event T) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, sub := range d.subscribers {
		sub.deliver(event)
	}
}

// SubscriberCount returns the number of attached subscribers.
func (d *Dispatcher[T]) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.subscribers)
}

func (d *Dispatcher[T]) unsubscribe(sub *Subscription[T]) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.subscribers {
		if s == sub {
			d.subscribers = append(d.subscribers[:i], d.subscribers[i+1:]...)
			sub.close()

			return
		}
	}
}
