package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
)

// fakeRemote is an in-memory StatEventStore. A non-nil gate makes calls block until
// something is sent on it (or it is closed) or the call's ctx ends.
// insertGate holds an insert before it is stored; storedGate holds it after the row is written.
// listGate holds ListByGame after it has taken its copy of the rows.
type fakeRemote struct {
	mu         sync.Mutex
	rows       []model.StatEvent
	refs       map[string]string
	next       int
	inserts    int
	lists      int
	deleted    []string
	insertErr  error
	deleteErr  error
	insertGate chan struct{}
	storedGate chan struct{}
	deleteGate chan struct{}
	listGate   chan struct{}
	// noEcho stores rows without their client_ref, like a server that never returns it
	noEcho bool
}

func newFakeRemote() *fakeRemote { return &fakeRemote{refs: map[string]string{}} }

func wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	f.mu.Lock()
	f.inserts++
	gate, failure := f.insertGate, f.insertErr
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return model.StatEvent{}, err
	}
	if failure != nil {
		return model.StatEvent{}, failure
	}

	ev := f.store(in)
	f.mu.Lock()
	stored := f.storedGate
	f.mu.Unlock()
	if err := wait(ctx, stored); err != nil {
		return model.StatEvent{}, err
	}
	return ev, nil
}

func (f *fakeRemote) store(in model.StatEventInput) model.StatEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.refs[in.ClientRef]; ok {
		for _, ev := range f.rows {
			if ev.ID == id {
				return ev
			}
		}
	}
	f.next++
	ev := model.StatEvent{
		ID: fmt.Sprintf("srv-%d", f.next), PlayerID: in.PlayerID, GameID: in.GameID, Kind: in.Kind, Amount: in.Amount,
		RecordedAt: in.RecordedAt, RecordedBy: in.RecordedBy, Context: in.Context,
	}
	if !f.noEcho {
		ev.ClientRef = in.ClientRef
	}
	f.rows = append(f.rows, ev)
	f.refs[in.ClientRef] = ev.ID
	return ev
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	gate, failure := f.deleteGate, f.deleteErr
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return err
	}
	if failure != nil {
		return failure
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, ev := range f.rows {
		if ev.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRemote) ListByGame(ctx context.Context, gameID int64) ([]model.StatEvent, error) {
	f.mu.Lock()
	out := []model.StatEvent{}
	for _, ev := range f.rows {
		if ev.GameID == gameID {
			out = append(out, ev)
		}
	}
	f.lists++
	gate := f.listGate
	f.mu.Unlock()

	if err := wait(ctx, gate); err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeRemote) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeRemote) rowIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.rows))
	for i, ev := range f.rows {
		ids[i] = ev.ID
	}
	return ids
}

func (f *fakeRemote) set(fn func(f *fakeRemote)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeRemote) counts() (inserts int, deleted []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inserts, append([]string(nil), f.deleted...)
}

var _ repository.StatEventStore = (*fakeRemote)(nil)

// stepClock advances one second per reading so every event gets a distinct timestamp.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{now: time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}
