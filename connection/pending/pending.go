/*
The pending package tracks correlated requests that are in flight over the
gateway connection. Each registered request id maps to a single awaiting
caller; an entry is resolved, rejected, or timed out exactly once, and is
removed from the table atomically before its result is delivered so that a
timeout racing a late response settles first-wins.
*/
package pending

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vcentea/linkedin-gateway-sub000/connection/wire"
)

// Response is what an awaiting caller eventually receives: either the
// correlated envelope or the error that rejected the request.
type Response struct {
	Envelope *wire.Envelope
	Err      error
}

type entry struct {
	result chan Response
	timer  *time.Timer
}

type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewTable() *Table {
	return &Table{
		entries: make(map[string]*entry),
	}
}

// NewRequestId allocates a fresh correlator. Ids are generated, never reused
// while pending.
func NewRequestId() string {
	return uuid.New().String()
}

// Register creates a pending entry for id and returns the channel its result
// will be delivered on. Registering a duplicate id signals a caller bug and
// fails. The result channel is buffered so delivery never blocks the
// connection's routing loop.
func (t *Table) Register(id string, timeout time.Duration) (<-chan Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[id]; exists {
		return nil, &DuplicateIdError{Id: id}
	}

	e := &entry{
		result: make(chan Response, 1),
	}

	if timeout > 0 {
		e.timer = time.AfterFunc(timeout, func() {
			t.reject(id, &TimeoutError{Id: id, Timeout: timeout})
		})
	}

	t.entries[id] = e
	return e.result, nil
}

// Resolve delivers the correlated response for id. An unknown id is a no-op
// returning false: a late or duplicate server response is logged and
// discarded by the caller, never treated as fatal.
func (t *Table) Resolve(id string, envelope *wire.Envelope) bool {
	e := t.take(id)
	if e == nil {
		return false
	}

	e.result <- Response{Envelope: envelope}
	return true
}

// RejectAll fails every pending entry with err and empties the table. Called
// when the connection is torn down for any reason.
func (t *Table) RejectAll(err error) {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[string]*entry)
	t.mu.Unlock()

	for _, e := range entries {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.result <- Response{Err: err}
	}
}

// Remove drops an entry without delivering anything, e.g. when the send that
// would have produced a response failed before leaving the process.
func (t *Table) Remove(id string) {
	t.take(id)
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.entries)
}

func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

func (t *Table) reject(id string, err error) {
	e := t.take(id)
	if e == nil {
		return
	}

	e.result <- Response{Err: err}
}

// take removes and returns the entry for id, stopping its timer. Removal
// under the lock is what enforces exactly-once resolution.
func (t *Table) take(id string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil
	}
	delete(t.entries, id)

	if e.timer != nil {
		e.timer.Stop()
	}
	return e
}
