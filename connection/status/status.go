/*
The status package fans connection-state changes out to interested listeners.
It is decoupled from the transport: the supervisor publishes transitions, and
subscribers (UI widgets, loggers) observe them through disposable
subscription handles. A slow or abandoned subscriber never blocks delivery
to the others.
*/
package status

import (
	"fmt"
	"sync"
)

// State is the connection lifecycle state machine's current position.
type State string

const (
	Idle       State = "idle"
	Connecting State = "connecting"
	Open       State = "open"
	Closing    State = "closing"
	Abandoned  State = "abandoned"
)

type Status struct {
	Connected bool
	State     State
	Detail    string
}

func (s Status) String() string {
	if s.Detail == "" {
		return string(s.State)
	}
	return fmt.Sprintf("%s (%s)", s.State, s.Detail)
}

const subscriptionBuffer = 16

type Broadcaster struct {
	mu      sync.Mutex
	subs    map[int]*Subscription
	counter int
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]*Subscription),
	}
}

// Subscribe registers a new listener and returns its disposable handle.
func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counter++
	sub := &Subscription{
		id:          b.counter,
		broadcaster: b,
		notify:      make(chan Status, subscriptionBuffer),
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers a status change to every subscriber. Delivery is
// non-blocking: a subscriber whose buffer is full misses the update rather
// than stalling the connection's state machine or the other listeners.
func (b *Broadcaster) Publish(status Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		select {
		case sub.notify <- status:
		default:
		}
	}
}

func (b *Broadcaster) NumSubscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

func (b *Broadcaster) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, id)
}

// Subscription is a listener's handle. Unsubscribing twice is safe; the
// handle's validity answers "is this listener still relevant" instead of
// manual add/remove bookkeeping.
type Subscription struct {
	id          int
	broadcaster *Broadcaster
	notify      chan Status
	once        sync.Once
}

func (s *Subscription) Notify() <-chan Status {
	return s.notify
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.broadcaster.unsubscribe(s.id)
	})
}
