package tracker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/service"
)

const (
	player = int64(7)
	game   = int64(3)
)

func newTracker(t *testing.T, remote *fakeRemote, opts Options) *Tracker {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = newStepClock(time.Second).Now
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second
	}
	tr := New(remote, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tr.Close(ctx)
	})
	return tr
}

func stat(playerID, gameID int64, kind model.StatKind) model.StatEventInput {
	return model.StatEventInput{PlayerID: playerID, GameID: gameID, Kind: kind, Amount: 1, RecordedBy: "coach"}
}

func settle(t *testing.T, m *Mutation) (model.StatEvent, error) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("%s mutation of %s never settled", m.Op(), m.Event().ID)
	}
	return m.Wait(context.Background())
}

func record(t *testing.T, tr *Tracker, in model.StatEventInput) model.StatEvent {
	t.Helper()
	m, err := tr.RecordStat(context.Background(), in)
	require.NoError(t, err)
	ev, err := settle(t, m)
	require.NoError(t, err)
	return ev
}

func TestRecordStat_VisibleBeforeRemoteSettles(t *testing.T) {
	remote := newFakeRemote()
	gate := make(chan struct{})
	remote.insertGate = gate
	tr := newTracker(t, remote, Options{})

	m, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFGMade))
	require.NoError(t, err)

	// nothing has reached the remote yet, the event is already there
	events := tr.Events(game)
	require.Len(t, events, 1)
	assert.True(t, model.IsProvisionalID(events[0].ID))
	assert.Equal(t, m.Event().ID, events[0].ID)
	assert.Equal(t, Optimistic, m.State())
	assert.Equal(t, 2, tr.Totals(player, game).Points)

	close(gate)
	ev, err := settle(t, m)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, m.State())
	assert.Equal(t, "srv-1", ev.ID)
	assert.Equal(t, []string{"srv-1"}, tr.Snapshot().IDs())
	assert.Equal(t, 0, tr.Pending())
}

func TestRecordStat_RollbackRestoresSnapshot(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})
	record(t, tr, stat(player, game, model.KindRebound))
	record(t, tr, stat(player+1, game, model.KindAssist))
	before := tr.Snapshot().IDs()

	cause := fmt.Errorf("%w: connection refused", repository.ErrUnavailable)
	remote.set(func(f *fakeRemote) { f.insertErr = cause })

	m, err := tr.RecordStat(context.Background(), stat(player, game, model.KindSteal))
	require.NoError(t, err)
	_, err = settle(t, m)

	var rwe *RemoteWriteError
	require.ErrorAs(t, err, &rwe)
	assert.Equal(t, OpRecord, rwe.Op)
	assert.Equal(t, m.Event().ID, rwe.EventID)
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.Equal(t, RolledBack, m.State())
	assert.Equal(t, before, tr.Snapshot().IDs())
	assert.Equal(t, 0, tr.Totals(player, game).Steals)
}

func TestRecordStat_ValidationTouchesNothing(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})

	cases := []model.StatEventInput{
		{GameID: game, Kind: model.KindFoul, RecordedBy: "coach"},
		{PlayerID: player, Kind: model.KindFoul, RecordedBy: "coach"},
		{PlayerID: player, GameID: game, Kind: model.KindUnknown, RecordedBy: "coach"},
		{PlayerID: player, GameID: game, Kind: model.KindFoul, RecordedBy: " "},
		{PlayerID: player, GameID: game, Kind: model.KindFoul, Amount: -1, RecordedBy: "coach"},
	}
	for i, in := range cases {
		m, err := tr.RecordStat(context.Background(), in)
		assert.ErrorIs(t, err, service.ErrInvalidInput, "case %d", i)
		assert.Nil(t, m)
	}
	inserts, _ := remote.counts()
	assert.Zero(t, inserts)
	assert.Zero(t, tr.Snapshot().Len())
}

func TestRecordStat_ZeroAmountIsAnEvent(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), Options{})
	in := stat(player, game, model.KindFGMissed)
	in.Amount = 0

	ev := record(t, tr, in)
	assert.Equal(t, 0, ev.Amount)
	assert.Equal(t, 1, tr.Totals(player, game).Events)
	assert.Equal(t, 0, tr.Totals(player, game).FGMissed)
}

func TestRecordStat_SendsProvisionalIDAsClientRef(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{NewID: func() string { return model.ProvisionalIDPrefix + "fixed" }})

	record(t, tr, stat(player, game, model.KindBlock))
	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, "srv-1", remote.refs[model.ProvisionalIDPrefix+"fixed"])
}

func TestRecordStat_TimeoutRollsBack(t *testing.T) {
	remote := newFakeRemote()
	remote.insertGate = make(chan struct{}) // never released
	tr := newTracker(t, remote, Options{Timeout: 20 * time.Millisecond})

	m, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFoul))
	require.NoError(t, err)
	_, err = settle(t, m)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, tr.Snapshot().Len())
}

func TestRecordStat_DoubleTapCountsTwice(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), Options{})
	record(t, tr, stat(player, game, model.KindFTMade))
	record(t, tr, stat(player, game, model.KindFTMade))
	assert.Equal(t, 2, tr.Totals(player, game).Points)
}

func TestUndoLastStat_RemovesLatest(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})
	e1 := record(t, tr, stat(player, game, model.KindFGMade))
	e2 := record(t, tr, stat(player, game, model.KindRebound))
	e3 := record(t, tr, stat(player, game, model.KindAssist))
	require.True(t, e1.RecordedAt.Before(e2.RecordedAt) && e2.RecordedAt.Before(e3.RecordedAt))

	m, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, OpUndo, m.Op())
	assert.Equal(t, e3.ID, m.Event().ID)
	// gone before the remote answers
	assert.Equal(t, []string{e1.ID, e2.ID}, tr.Snapshot().IDs())

	_, err = settle(t, m)
	require.NoError(t, err)
	assert.Equal(t, Confirmed, m.State())
	assert.Equal(t, []string{e1.ID, e2.ID}, tr.Snapshot().IDs())
	_, deleted := remote.counts()
	assert.Equal(t, []string{e3.ID}, deleted)
}

func TestUndoLastStat_UsesRecordedAtNotInsertionOrder(t *testing.T) {
	times := []time.Time{
		time.Date(2025, 1, 1, 10, 0, 3, 0, time.UTC),
		time.Date(2025, 1, 1, 10, 0, 1, 0, time.UTC),
		time.Date(2025, 1, 1, 10, 0, 2, 0, time.UTC),
	}
	var i int
	clock := func() time.Time { ts := times[i%len(times)]; i++; return ts }
	tr := newTracker(t, newFakeRemote(), Options{Clock: clock})

	latest := record(t, tr, stat(player, game, model.KindSteal))
	record(t, tr, stat(player, game, model.KindBlock))
	record(t, tr, stat(player, game, model.KindFoul))

	m, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, m.Event().ID)
}

func TestUndoLastStat_TieGoesToMostRecentlyInserted(t *testing.T) {
	fixed := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tr := newTracker(t, newFakeRemote(), Options{Clock: func() time.Time { return fixed }})

	record(t, tr, stat(player, game, model.KindSteal))
	second := record(t, tr, stat(player, game, model.KindBlock))

	m, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	assert.Equal(t, second.ID, m.Event().ID)
}

func TestUndoLastStat_EmptyScope(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})
	record(t, tr, stat(player+1, game, model.KindFoul))
	record(t, tr, stat(player, game+1, model.KindFoul))

	m, err := tr.UndoLastStat(context.Background(), player, game)
	assert.NoError(t, err)
	assert.Nil(t, m)
	_, deleted := remote.counts()
	assert.Empty(t, deleted)
	assert.Equal(t, 2, tr.Snapshot().Len())
}

func TestUndoLastStat_Validation(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), Options{})
	_, err := tr.UndoLastStat(context.Background(), 0, game)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = tr.UndoLastStat(context.Background(), player, -1)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestScopeIsolation(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})

	otherPlayer := record(t, tr, stat(player+1, game, model.KindFGMade))
	mine := record(t, tr, stat(player, game, model.KindFGMade))
	otherGame := record(t, tr, stat(player, game+1, model.KindFGMade))
	beforeP2 := tr.Totals(player+1, game)
	beforeG2 := tr.Totals(player, game+1)

	record(t, tr, stat(player, game, model.KindThreePtMade))
	m, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	_, err = settle(t, m)
	require.NoError(t, err)
	m, err = tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	_, err = settle(t, m)
	require.NoError(t, err)

	assert.Equal(t, beforeP2, tr.Totals(player+1, game))
	assert.Equal(t, beforeG2, tr.Totals(player, game+1))
	assert.Equal(t, []string{otherPlayer.ID, otherGame.ID}, tr.Snapshot().IDs())
	assert.NotContains(t, tr.Snapshot().IDs(), mine.ID)
}

func TestUndoLastStat_RemoteFailureRestoresPosition(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})
	e1 := record(t, tr, stat(player, game, model.KindFGMade))
	e2 := record(t, tr, stat(player, game, model.KindRebound))
	e3 := record(t, tr, stat(player+1, game, model.KindAssist))
	remote.set(func(f *fakeRemote) { f.deleteErr = errors.New("forbidden") })

	m, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	assert.Equal(t, []string{e1.ID, e3.ID}, tr.Snapshot().IDs())

	_, err = settle(t, m)
	var rwe *RemoteWriteError
	require.ErrorAs(t, err, &rwe)
	assert.Equal(t, OpUndo, rwe.Op)
	assert.Equal(t, e2.ID, rwe.EventID)
	assert.Equal(t, RolledBack, m.State())
	assert.Equal(t, []string{e1.ID, e2.ID, e3.ID}, tr.Snapshot().IDs())
}

func TestUndoLastStat_OfPendingInsertThatConfirms(t *testing.T) {
	remote := newFakeRemote()
	gate := make(chan struct{})
	remote.insertGate = gate
	tr := newTracker(t, remote, Options{})

	rec, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFGMade))
	require.NoError(t, err)
	undo, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	assert.Zero(t, tr.Snapshot().Len())

	close(gate)
	stored, err := settle(t, rec)
	require.NoError(t, err)
	_, err = settle(t, undo)
	require.NoError(t, err)

	_, deleted := remote.counts()
	assert.Equal(t, []string{stored.ID}, deleted, "the confirmed id is deleted, never the provisional one")
	assert.Zero(t, tr.Snapshot().Len())
	left, _ := remote.ListByGame(context.Background(), game)
	assert.Empty(t, left)
}

func TestUndoLastStat_OfPendingInsertThatFails(t *testing.T) {
	remote := newFakeRemote()
	gate := make(chan struct{})
	remote.insertGate = gate
	remote.insertErr = errors.New("rejected")
	tr := newTracker(t, remote, Options{})

	rec, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFGMade))
	require.NoError(t, err)
	undo, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)

	close(gate)
	_, err = settle(t, rec)
	assert.Error(t, err)
	_, err = settle(t, undo)
	assert.NoError(t, err)
	assert.Equal(t, Confirmed, undo.State())

	_, deleted := remote.counts()
	assert.Empty(t, deleted)
	assert.Zero(t, tr.Snapshot().Len())
}

func TestRefresh(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})
	confirmed := record(t, tr, stat(player, game, model.KindFGMade))
	doomed := record(t, tr, stat(player, game, model.KindRebound))

	// another scorer's write that this tracker has not seen
	_, err := remote.Insert(context.Background(), model.StatEventInput{
		ClientRef: "elsewhere", PlayerID: player + 1, GameID: game, Kind: model.KindSteal, Amount: 1,
		RecordedAt: time.Now().UTC(), RecordedBy: "parent",
	})
	require.NoError(t, err)

	deleteGate := make(chan struct{})
	insertGate := make(chan struct{})
	remote.set(func(f *fakeRemote) { f.deleteGate, f.insertGate = deleteGate, insertGate })

	undo, err := tr.UndoLastStat(context.Background(), player, game) // doomed, delete in flight
	require.NoError(t, err)
	pending, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFTMade))
	require.NoError(t, err)

	require.NoError(t, tr.Refresh(context.Background(), game))
	ids := tr.Snapshot().IDs()
	assert.Equal(t, confirmed.ID, ids[0], "known ids keep their position")
	assert.NotContains(t, ids, doomed.ID, "pending deletes stay hidden")
	assert.Contains(t, ids, pending.Event().ID, "pending inserts survive")
	assert.Len(t, ids, 3)

	close(deleteGate)
	close(insertGate)
	_, err = settle(t, undo)
	require.NoError(t, err)
	stored, err := settle(t, pending)
	require.NoError(t, err)

	ids = tr.Snapshot().IDs()
	assert.Len(t, ids, 3)
	assert.Contains(t, ids, stored.ID)
	assert.NotContains(t, ids, doomed.ID)

	assert.ErrorIs(t, tr.Refresh(context.Background(), 0), service.ErrInvalidInput)
}

// startRefresh runs Refresh in the background and returns once the remote list has been taken.
func startRefresh(t *testing.T, tr *Tracker, remote *fakeRemote) <-chan error {
	t.Helper()
	before := remote.listCalls()
	errc := make(chan error, 1)
	go func() { errc <- tr.Refresh(context.Background(), game) }()
	require.Eventually(t, func() bool { return remote.listCalls() > before }, 2*time.Second, time.Millisecond)
	return errc
}

func TestRefresh_KeepsInsertConfirmedWhileListing(t *testing.T) {
	remote := newFakeRemote()
	insertGate, listGate := make(chan struct{}), make(chan struct{})
	remote.insertGate, remote.listGate = insertGate, listGate
	tr := newTracker(t, remote, Options{})

	m, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFGMade))
	require.NoError(t, err)
	refreshed := startRefresh(t, tr, remote) // the list it holds is empty

	close(insertGate)
	stored, err := settle(t, m)
	require.NoError(t, err)
	require.Equal(t, []string{stored.ID}, tr.Snapshot().IDs())

	close(listGate)
	require.NoError(t, <-refreshed)
	assert.Equal(t, []string{stored.ID}, tr.Snapshot().IDs())
	assert.Equal(t, 2, tr.Totals(player, game).Points)

	// a fresh list agrees, and the kept entry is not duplicated
	require.NoError(t, tr.Refresh(context.Background(), game))
	assert.Equal(t, []string{stored.ID}, tr.Snapshot().IDs())
	assert.Equal(t, remote.rowIDs(), tr.Snapshot().IDs())
}

func TestRefresh_HidesDeleteSettledWhileListing(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})
	keep := record(t, tr, stat(player, game, model.KindRebound))
	record(t, tr, stat(player, game, model.KindFGMade))

	listGate := make(chan struct{})
	remote.set(func(f *fakeRemote) { f.listGate = listGate })
	refreshed := startRefresh(t, tr, remote) // still lists both events

	undo, err := tr.UndoLastStat(context.Background(), player, game)
	require.NoError(t, err)
	_, err = settle(t, undo)
	require.NoError(t, err)

	close(listGate)
	require.NoError(t, <-refreshed)
	assert.Equal(t, []string{keep.ID}, tr.Snapshot().IDs())
	assert.Equal(t, 0, tr.Totals(player, game).Points)
}

func TestRefresh_DoesNotDoubleCountLandedInsert(t *testing.T) {
	remote := newFakeRemote()
	storedGate := make(chan struct{})
	remote.storedGate = storedGate
	tr := newTracker(t, remote, Options{})

	m, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFGMade))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(remote.rowIDs()) == 1 }, 2*time.Second, time.Millisecond)

	require.NoError(t, tr.Refresh(context.Background(), game))
	assert.Equal(t, []string{m.Event().ID}, tr.Snapshot().IDs())
	assert.Equal(t, 2, tr.Totals(player, game).Points)

	close(storedGate)
	stored, err := settle(t, m)
	require.NoError(t, err)
	assert.Equal(t, []string{stored.ID}, tr.Snapshot().IDs())
	assert.Equal(t, 2, tr.Totals(player, game).Points)
}

func TestUndoLastStat_OfPendingInsert_RefreshAfterRowLanded(t *testing.T) {
	tests := []struct {
		name   string
		noEcho bool
	}{
		{"store echoes client_ref", false},
		{"store drops client_ref", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			remote := newFakeRemote()
			storedGate := make(chan struct{})
			remote.storedGate, remote.noEcho = storedGate, tc.noEcho
			tr := newTracker(t, remote, Options{})

			rec, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFGMade))
			require.NoError(t, err)
			undo, err := tr.UndoLastStat(context.Background(), player, game)
			require.NoError(t, err)
			require.Eventually(t, func() bool { return len(remote.rowIDs()) == 1 }, 2*time.Second, time.Millisecond)

			require.NoError(t, tr.Refresh(context.Background(), game))
			if !tc.noEcho {
				assert.Zero(t, tr.Snapshot().Len(), "the undone insert stays hidden")
			}

			close(storedGate)
			_, err = settle(t, rec)
			require.NoError(t, err)
			_, err = settle(t, undo)
			require.NoError(t, err)

			assert.Equal(t, Confirmed, undo.State())
			assert.Zero(t, tr.Snapshot().Len())
			assert.Zero(t, tr.Totals(player, game).Points)
			assert.Empty(t, remote.rowIDs())
			assert.Equal(t, 0, tr.Pending())
		})
	}
}

func TestConcurrentRecords(t *testing.T) {
	remote := newFakeRemote()
	tr := newTracker(t, remote, Options{})

	const writers, each = 8, 25
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		muts []*Mutation
	)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				m, err := tr.RecordStat(context.Background(), stat(int64(w+1), game, model.KindFGMade))
				if err != nil {
					t.Error(err)
					return
				}
				_ = tr.Totals(int64(w+1), game) // readers run alongside writers
				mu.Lock()
				muts = append(muts, m)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	for _, m := range muts {
		_, err := settle(t, m)
		require.NoError(t, err)
	}

	gt := tr.GameTotals(game)
	assert.Equal(t, writers*each*2, gt.Overall.Points)
	assert.Len(t, gt.Players, writers)
	ids := tr.Snapshot().IDs()
	assert.Len(t, ids, writers*each)
	assert.False(t, slices.ContainsFunc(ids, model.IsProvisionalID))
}

func TestOnSettledAndClose(t *testing.T) {
	remote := newFakeRemote()
	var (
		mu      sync.Mutex
		settled []State
	)
	tr := New(remote, Options{
		Clock: newStepClock(time.Second).Now,
		OnSettled: func(m *Mutation) {
			mu.Lock()
			settled = append(settled, m.State())
			mu.Unlock()
		},
	})

	_, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFoul))
	require.NoError(t, err)
	require.NoError(t, tr.Close(context.Background()))

	mu.Lock()
	assert.Equal(t, []State{Confirmed}, settled)
	mu.Unlock()

	_, err = tr.RecordStat(context.Background(), stat(player, game, model.KindFoul))
	assert.ErrorIs(t, err, ErrClosed)
	_, err = tr.UndoLastStat(context.Background(), player, game)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_DeadlineCancelsInFlight(t *testing.T) {
	remote := newFakeRemote()
	remote.insertGate = make(chan struct{}) // never released
	tr := New(remote, Options{Timeout: time.Minute})

	m, err := tr.RecordStat(context.Background(), stat(player, game, model.KindFoul))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Close(ctx), context.DeadlineExceeded)
	assert.Equal(t, RolledBack, m.State())
	assert.ErrorIs(t, m.Err(), context.Canceled)
	assert.Zero(t, tr.Snapshot().Len())
}

func TestTimeline(t *testing.T) {
	tr := newTracker(t, newFakeRemote(), Options{})
	a := record(t, tr, stat(player, game, model.KindFGMade))
	b := record(t, tr, stat(player+1, game, model.KindRebound))
	record(t, tr, stat(player, game+1, model.KindFoul))

	var ids []string
	for ev := range tr.Timeline(game) {
		ids = append(ids, ev.ID)
	}
	assert.Equal(t, []string{b.ID, a.ID}, ids)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "optimistic", Optimistic.String())
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "rolled_back", RolledBack.String())
	assert.Equal(t, "State(9)", State(9).String())
}
