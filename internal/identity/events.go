package identity

import (
	"sync"
	"sync/atomic"
	"time"
)

type EventType string

const (
	EventSignedIn         EventType = "signed_in"
	EventSignedOut        EventType = "signed_out"
	EventPasswordRecovery EventType = "password_recovery"
	EventPasswordUpdated  EventType = "password_updated"
	EventUserConfirmed    EventType = "user_confirmed"
)

type Event struct {
	Type      EventType
	UserID    string
	SessionID string
	At        time.Time
}

// Dispatcher is a buffered, drop-if-full event channel with one consumer.
// Emit never blocks a request.
type Dispatcher struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	dropped atomic.Uint64
}

func NewDispatcher(bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Dispatcher{ch: make(chan Event, bufferSize)}
}

func (d *Dispatcher) Emit(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return
	}

	select {
	case d.ch <- event:
	default:
		d.dropped.Add(1)
	}
}

func (d *Dispatcher) Subscribe() <-chan Event {
	return d.ch
}

// Close stops accepting events. Buffered events stay readable until the
// consumer drains the channel.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true
	close(d.ch)
}

func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
