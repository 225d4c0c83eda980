package transport

import (
	"sync"
	"sync/atomic"
)

// EventQueue is a bounded event buffer with overwrite-oldest semantics.
//
// Hardware callbacks must never block on a slow consumer, so producers
// always succeed: when the buffer is full the oldest pending event is
// discarded and counted. The consumer side behaves like a normal Go
// channel and is intended to be drained by a single dispatch goroutine,
// which is what gives Handler its serial delivery guarantee.
//
// Push and Close may race: link watchers can still report teardown while
// the transport is shutting down. The mutex pairs every send with the
// closed check so a concurrent Close can never make a send panic.
type EventQueue struct {
	ch      chan Event
	dropped atomic.Uint64

	mu     sync.Mutex
	closed bool
}

// NewEventQueue creates an EventQueue with the given capacity.
func NewEventQueue(capacity int) *EventQueue {
	if capacity <= 0 {
		panic("transport: event queue capacity must be > 0")
	}
	return &EventQueue{ch: make(chan Event, capacity)}
}

// Push inserts an event, discarding the oldest pending event if the buffer
// is full. It never blocks indefinitely. Pushes after Close are dropped.
func (q *EventQueue) Push(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- ev:
	default:
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
		select {
		case q.ch <- ev:
		default:
			q.dropped.Add(1)
		}
	}
}

// C returns the receive side of the queue. Consumers range over it until
// Close is called and the buffer drains.
func (q *EventQueue) C() <-chan Event {
	return q.ch
}

// Dropped reports how many events were discarded due to a full buffer or
// pushes after Close.
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Close marks the queue closed and closes the underlying channel once.
func (q *EventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}
