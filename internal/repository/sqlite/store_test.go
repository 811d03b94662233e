package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository/contract"
)

var dbSeq atomic.Int64

func openTestStore(t *testing.T) *Store {
	t.Helper()
	// a distinct shared-cache name per test keeps in-memory databases isolated
	path := fmt.Sprintf("file:hoops%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	return s
}

func seedIDs() contract.Seed {
	var next atomic.Int64
	return func(_ context.Context, _ string) (int64, int64, error) {
		n := next.Add(1)
		return n, 100 + n, nil
	}
}

func TestStatEventStore_SQLiteContract(t *testing.T) {
	contract.RunStatEventStoreContract(t, func(t *testing.T) (repository.StatEventStore, contract.Seed, func()) {
		s := openTestStore(t)
		return s, seedIDs(), func() { _ = s.Close() }
	})
}

func TestPinger_SQLiteContract(t *testing.T) {
	contract.RunPingerContract(t, func(t *testing.T) (repository.Pinger, func()) {
		s := openTestStore(t)
		return s, func() { _ = s.Close() }
	})
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "game.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	ev, err := s.Insert(ctx, model.StatEventInput{
		PlayerID: 7, GameID: 3, Kind: model.KindFTMade, Amount: 1,
		RecordedAt: time.Date(2025, 11, 2, 18, 0, 0, 1, time.UTC), RecordedBy: "coach",
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// reopening runs migrations again; they must be a no-op
	s, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	list, err := s.ListByGame(ctx, 3)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ev.ID, list[0].ID)
	assert.Equal(t, ev.RecordedAt, list[0].RecordedAt)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), "  ")
	assert.Error(t, err)
}

func TestInsert_RejectsBadValues(t *testing.T) {
	s := openTestStore(t)
	t.Cleanup(func() { _ = s.Close() })

	tests := []struct {
		name string
		in   model.StatEventInput
	}{
		{"negative amount", model.StatEventInput{PlayerID: 1, GameID: 1, Kind: model.KindFoul, Amount: -1}},
		{"unknown kind", model.StatEventInput{PlayerID: 1, GameID: 1, Kind: model.KindUnknown, Amount: 1}},
		{"kind out of range", model.StatEventInput{PlayerID: 1, GameID: 1, Kind: model.StatKind(200), Amount: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.RecordedAt, tc.in.RecordedBy = time.Now(), "coach"
			_, err := s.Insert(context.Background(), tc.in)
			assert.ErrorIs(t, err, repository.ErrInvalidArgument)
			assert.NotErrorIs(t, err, repository.ErrConflict)
		})
	}
}
