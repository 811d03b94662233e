package tracker

import (
	"context"
	"fmt"
	"sync"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

type Op string

const (
	OpRecord Op = "record"
	OpUndo   Op = "undo"
)

// State of a pending mutation. The only transitions are Optimistic -> Confirmed
// and Optimistic -> RolledBack.
type State int

const (
	Optimistic State = iota
	Confirmed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RemoteWriteError is what a rolled back mutation reports. It unwraps to the store's error.
type RemoteWriteError struct {
	Op      Op
	EventID string
	Err     error
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("tracker: remote %s of %s failed: %v", e.Op, e.EventID, e.Err)
}

func (e *RemoteWriteError) Unwrap() error { return e.Err }

// Mutation tracks one optimistic change until the remote store settles it.
// For a record, Event is the provisional event and becomes the stored form once confirmed.
// For an undo, Event is the event that was removed.
type Mutation struct {
	op   Op
	done chan struct{}

	mu    sync.Mutex
	state State
	event model.StatEvent
	err   error
}

func newMutation(op Op, ev model.StatEvent) *Mutation {
	return &Mutation{op: op, done: make(chan struct{}), event: ev}
}

func (m *Mutation) Op() Op { return m.op }

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mutation) Event() model.StatEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.event
}

// Err is nil until the mutation settles, and stays nil if it was confirmed.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once the mutation is settled and the snapshot reflects the outcome.
func (m *Mutation) Done() <-chan struct{} { return m.done }

// Wait blocks until the mutation settles or ctx ends. Giving up on ctx does not cancel the mutation.
func (m *Mutation) Wait(ctx context.Context) (model.StatEvent, error) {
	select {
	case <-m.done:
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.event, m.err
	case <-ctx.Done():
		return model.StatEvent{}, ctx.Err()
	}
}

// settle must run with the tracker lock held, after the snapshot change is published.
func (m *Mutation) settle(state State, ev model.StatEvent, err error) {
	m.mu.Lock()
	m.state, m.event, m.err = state, ev, err
	m.mu.Unlock()
	close(m.done)
}
