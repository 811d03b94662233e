// Package tracker applies stat writes to a local snapshot first and reconciles them with
// a remote store in the background. Readers never wait on the network: every read is a
// lock-free load of the latest immutable Snapshot.
package tracker

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/config"
	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
	"github.com/maxviazov/youth-hoops-tracker/internal/stats"
)

var ErrClosed = errors.New("tracker: closed")

type Options struct {
	// Timeout bounds each remote write. Expiry counts as a failed write.
	Timeout time.Duration
	Clock   func() time.Time
	// NewID mints provisional ids; they must carry model.ProvisionalIDPrefix.
	NewID  func() string
	Logger *zerolog.Logger
	// OnSettled runs after a mutation settles, outside the tracker lock.
	OnSettled func(*Mutation)
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = config.DefaultRemoteTimeout
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return model.ProvisionalIDPrefix + uuid.NewString() }
	}
}

type Tracker struct {
	remote repository.StatEventStore
	opts   Options
	log    zerolog.Logger

	snap atomic.Pointer[Snapshot]

	mu             sync.Mutex // serializes writers
	nextSeq        uint64
	version        uint64 // bumped whenever a settled write changes the snapshot
	inflight       int
	pendingInserts map[string]*Mutation // provisional id -> record mutation
	pendingDeletes map[string]struct{}  // ids removed locally whose delete has not settled
	// removedMidRefresh collects ids whose delete settled while a refresh was fetching; nil otherwise
	removedMidRefresh map[string]struct{}
	closed            bool

	refreshMu sync.Mutex // one refresh at a time

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(remote repository.StatEventStore, opts Options) *Tracker {
	opts.setDefaults()
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	base, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		remote:         remote,
		opts:           opts,
		log:            logger.With().Str("module", "tracker").Logger(),
		pendingInserts: make(map[string]*Mutation),
		pendingDeletes: make(map[string]struct{}),
		base:           base,
		cancel:         cancel,
	}
	t.snap.Store(emptySnapshot)
	return t
}

// RecordStat appends a provisional event to the snapshot before returning and starts
// exactly one remote insert for it. Validation failures return service.ErrInvalidInput
// and touch nothing.
func (t *Tracker) RecordStat(ctx context.Context, in model.StatEventInput) (*Mutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in.RecordedBy = strings.TrimSpace(in.RecordedBy)
	if err := service.ValidateStatEventInput(in); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	ev := model.StatEvent{
		ID:         t.opts.NewID(),
		PlayerID:   in.PlayerID,
		GameID:     in.GameID,
		Kind:       in.Kind,
		Amount:     in.Amount,
		RecordedAt: t.opts.Clock().UTC().Truncate(time.Microsecond),
		RecordedBy: in.RecordedBy,
		Context:    in.Context,
	}
	t.nextSeq++
	t.snap.Store(t.snap.Load().withAppended(entry{seq: t.nextSeq, ev: ev}))
	m := newMutation(OpRecord, ev)
	t.pendingInserts[ev.ID] = m
	t.inflight++
	t.wg.Add(1)
	t.mu.Unlock()

	remoteIn := ev.Input()
	remoteIn.ClientRef = ev.ID
	go t.runInsert(m, remoteIn)

	t.log.Debug().Str("event_id", ev.ID).Int64("player_id", ev.PlayerID).Int64("game_id", ev.GameID).Str("kind", ev.Kind.String()).Msg("stat recorded locally")
	return m, nil
}

func (t *Tracker) runInsert(m *Mutation, in model.StatEventInput) {
	defer t.wg.Done()
	provisional := in.ClientRef

	ctx, cancel := context.WithTimeout(t.base, t.opts.Timeout)
	stored, err := t.remote.Insert(ctx, in)
	cancel()

	t.mu.Lock()
	delete(t.pendingInserts, provisional)
	t.inflight--
	cur := t.snap.Load()
	i := cur.index(provisional)
	if err != nil {
		if i >= 0 {
			t.snap.Store(cur.withoutIndex(i))
		}
		m.settle(RolledBack, m.event, &RemoteWriteError{Op: OpRecord, EventID: provisional, Err: err})
		t.mu.Unlock()
		t.log.Warn().Err(err).Str("event_id", provisional).Msg("remote insert failed; rolled back")
		t.settled(m)
		return
	}

	switch {
	case i < 0:
		// an undo already took it out; the confirmed id stays hidden until that delete settles
		if _, ok := t.pendingDeletes[provisional]; ok {
			t.pendingDeletes[stored.ID] = struct{}{}
			if j := cur.index(stored.ID); j >= 0 {
				// a refresh from a store that does not echo client_ref brought it back
				t.snap.Store(cur.withoutIndex(j))
			}
		}
	case cur.index(stored.ID) >= 0:
		// a refresh brought the confirmed row in first
		t.snap.Store(cur.withoutIndex(i))
	default:
		t.version++
		t.snap.Store(cur.withReplaced(i, stored, t.version))
	}
	m.settle(Confirmed, stored, nil)
	t.mu.Unlock()
	t.log.Debug().Str("event_id", provisional).Str("confirmed_id", stored.ID).Msg("remote insert confirmed")
	t.settled(m)
}

// UndoLastStat removes the scope's most recent event (by RecordedAt, then insertion order)
// and deletes it remotely. With nothing to undo it returns (nil, nil) and makes no remote call.
func (t *Tracker) UndoLastStat(ctx context.Context, playerID, gameID int64) (*Mutation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := service.ValidateScope(playerID, gameID); err != nil {
		return nil, err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	cur := t.snap.Load()
	target, ok := cur.latest(playerID, gameID)
	if !ok {
		t.mu.Unlock()
		return nil, nil
	}
	t.snap.Store(cur.withoutIndex(cur.index(target.ev.ID)))
	t.pendingDeletes[target.ev.ID] = struct{}{}
	insert := t.pendingInserts[target.ev.ID]
	m := newMutation(OpUndo, target.ev)
	t.inflight++
	t.wg.Add(1)
	t.mu.Unlock()

	go t.runDelete(m, target, insert)

	t.log.Debug().Str("event_id", target.ev.ID).Int64("player_id", playerID).Int64("game_id", gameID).Msg("stat undone locally")
	return m, nil
}

func (t *Tracker) runDelete(m *Mutation, target entry, insert *Mutation) {
	defer t.wg.Done()
	ev := target.ev

	if insert != nil {
		// the insert is bounded by its own timeout, so this always returns
		<-insert.Done()
		if insert.State() == RolledBack {
			t.mu.Lock()
			delete(t.pendingDeletes, ev.ID)
			t.inflight--
			m.settle(Confirmed, ev, nil)
			t.mu.Unlock()
			t.settled(m)
			return
		}
		ev = insert.Event()
	}

	ctx, cancel := context.WithTimeout(t.base, t.opts.Timeout)
	err := t.remote.Delete(ctx, ev.ID)
	cancel()

	t.mu.Lock()
	delete(t.pendingDeletes, target.ev.ID)
	delete(t.pendingDeletes, ev.ID)
	t.inflight--
	if err != nil {
		cur := t.snap.Load()
		if cur.index(ev.ID) < 0 {
			t.version++
			t.snap.Store(cur.withRestored(entry{seq: target.seq, ev: ev, touched: t.version}))
		}
		m.settle(RolledBack, ev, &RemoteWriteError{Op: OpUndo, EventID: ev.ID, Err: err})
		t.mu.Unlock()
		t.log.Warn().Err(err).Str("event_id", ev.ID).Msg("remote delete failed; event restored")
		t.settled(m)
		return
	}
	if t.removedMidRefresh != nil {
		t.removedMidRefresh[target.ev.ID] = struct{}{}
		t.removedMidRefresh[ev.ID] = struct{}{}
	}
	m.settle(Confirmed, ev, nil)
	t.mu.Unlock()
	t.log.Debug().Str("event_id", ev.ID).Msg("remote delete confirmed")
	t.settled(m)
}

func (t *Tracker) settled(m *Mutation) {
	if t.opts.OnSettled != nil {
		t.opts.OnSettled(m)
	}
}

// Refresh replaces the game's events with what the remote store holds. Provisional events
// still waiting for their insert stay, and so does anything a write settled while the list
// was in flight. Rows behind a pending insert or delete stay hidden.
func (t *Tracker) Refresh(ctx context.Context, gameID int64) error {
	if gameID <= 0 {
		return service.NewInvalidInputError([]service.FieldError{{Field: "game_id", Message: "must be > 0"}})
	}
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	since := t.version
	t.removedMidRefresh = make(map[string]struct{})
	t.mu.Unlock()

	remote, err := t.remote.ListByGame(ctx, gameID)

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := t.removedMidRefresh
	t.removedMidRefresh = nil
	if err != nil {
		return err
	}
	if t.closed {
		return ErrClosed
	}

	cur := t.snap.Load()
	known := make(map[string]uint64, len(cur.entries))
	kept := make(map[string]struct{})
	entries := make([]entry, 0, len(cur.entries)+len(remote))
	for _, e := range cur.entries {
		known[e.ev.ID] = e.seq
		if e.ev.GameID != gameID || model.IsProvisionalID(e.ev.ID) || e.touched > since {
			entries = append(entries, e)
			kept[e.ev.ID] = struct{}{}
		}
	}
	for _, ev := range remote {
		if _, ok := kept[ev.ID]; ok {
			continue
		}
		if t.hidden(ev, removed) {
			continue
		}
		seq, ok := known[ev.ID]
		if !ok {
			t.nextSeq++
			seq = t.nextSeq
		}
		entries = append(entries, entry{seq: seq, ev: ev})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		default:
			return 0
		}
	})
	t.snap.Store(&Snapshot{entries: entries})
	t.log.Debug().Int64("game_id", gameID).Int("remote_events", len(remote)).Msg("game refreshed")
	return nil
}

// hidden reports whether a fetched row must stay out of the snapshot: its delete is pending
// or settled after the fetch, or it is the stored copy of an insert that has not settled here.
func (t *Tracker) hidden(ev model.StatEvent, removed map[string]struct{}) bool {
	for _, id := range []string{ev.ID, ev.ClientRef} {
		if id == "" {
			continue
		}
		if _, ok := t.pendingDeletes[id]; ok {
			return true
		}
		if _, ok := removed[id]; ok {
			return true
		}
	}
	if ev.ClientRef == "" {
		return false
	}
	_, ok := t.pendingInserts[ev.ClientRef]
	return ok
}

// Snapshot returns the current immutable view.
func (t *Tracker) Snapshot() *Snapshot { return t.snap.Load() }

func (t *Tracker) Events(gameID int64) []model.StatEvent { return t.Snapshot().GameEvents(gameID) }

func (t *Tracker) ScopeEvents(playerID, gameID int64) []model.StatEvent {
	return t.Snapshot().ScopeEvents(playerID, gameID)
}

// Totals recomputes a player's line for a game from the current snapshot.
func (t *Tracker) Totals(playerID, gameID int64) model.Totals {
	return stats.ComputeTotals(t.ScopeEvents(playerID, gameID))
}

func (t *Tracker) GameTotals(gameID int64) model.GameTotals {
	events := t.Events(gameID)
	return model.GameTotals{GameID: gameID, Overall: stats.ComputeTotals(events), Players: stats.TotalsByPlayer(events)}
}

func (t *Tracker) Timeline(gameID int64) iter.Seq[model.StatEvent] {
	return stats.Timeline(t.Events(gameID))
}

// Pending reports how many mutations have not settled yet.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inflight
}

// Close stops accepting writes and waits for in-flight mutations. If ctx ends first,
// the remaining remote calls are cancelled, which rolls their mutations back.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done
		return ctx.Err()
	}
}
