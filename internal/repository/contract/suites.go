package contract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
)

// Seed creates whatever rows an event needs to reference and returns their ids.
// season is only meaningful for stores that know about games.
type Seed func(ctx context.Context, season string) (playerID, gameID int64, err error)

type StatEventStoreFactory func(t *testing.T) (store repository.StatEventStore, seed Seed, cleanup func())

type StatEventRepositoryFactory func(t *testing.T) (repo repository.StatEventRepository, seed Seed, cleanup func())

type LookupFactory func(t *testing.T) (players repository.PlayerRepository, games repository.GameRepository, seed Seed, cleanup func())

type TxFactory func(t *testing.T) (tx repository.TxManager, events repository.StatEventRepository, seed Seed, cleanup func())

type PingerFactory func(t *testing.T) (repository.Pinger, func())

func input(playerID, gameID int64, kind model.StatKind, at time.Time) model.StatEventInput {
	return model.StatEventInput{
		PlayerID:   playerID,
		GameID:     gameID,
		Kind:       kind,
		Amount:     1,
		RecordedAt: at,
		RecordedBy: "coach@example.com",
	}
}

// RunStatEventStoreContract covers the behaviour the optimistic tracker depends on.
func RunStatEventStoreContract(t *testing.T, makeStore StatEventStoreFactory) {
	t.Helper()

	t.Run("insert_assigns_id_and_round_trips", func(t *testing.T) {
		store, seed, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		quarter, clock, x, note := 2, "05:31", 0.25, "and one"
		in := input(pid, gid, model.KindThreePtMade, time.Date(2025, 11, 2, 18, 30, 0, 123000, time.UTC))
		in.Amount = 2
		in.Context = model.StatContext{Quarter: &quarter, Clock: &clock, CourtX: &x, Note: &note}

		got, err := store.Insert(ctx, in)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.ID == "" || model.IsProvisionalID(got.ID) {
			t.Fatalf("expected a remote id, got %q", got.ID)
		}
		if got.PlayerID != pid || got.GameID != gid || got.Kind != model.KindThreePtMade || got.Amount != 2 {
			t.Fatalf("mismatch: %+v", got)
		}
		if !got.RecordedAt.Equal(in.RecordedAt) || got.RecordedBy != in.RecordedBy {
			t.Fatalf("recorded fields mismatch: %+v", got)
		}
		c := got.Context
		if c.Quarter == nil || *c.Quarter != 2 || c.Clock == nil || *c.Clock != clock ||
			c.CourtX == nil || *c.CourtX != x || c.CourtY != nil || c.Note == nil || *c.Note != note {
			t.Fatalf("context mismatch: %+v", c)
		}
	})

	t.Run("list_by_game_in_insertion_order", func(t *testing.T) {
		store, seed, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		base := time.Date(2025, 11, 2, 18, 0, 0, 0, time.UTC)
		kinds := []model.StatKind{model.KindFGMade, model.KindRebound, model.KindFoul}
		var ids []string
		for i, k := range kinds {
			// later inserts carry earlier timestamps; listing must not reorder them
			ev, err := store.Insert(ctx, input(pid, gid, k, base.Add(-time.Duration(i)*time.Minute)))
			if err != nil {
				t.Fatalf("insert %d: %v", i, err)
			}
			ids = append(ids, ev.ID)
		}
		list, err := store.ListByGame(ctx, gid)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != len(ids) {
			t.Fatalf("expected %d events, got %d", len(ids), len(list))
		}
		for i := range ids {
			if list[i].ID != ids[i] || list[i].Kind != kinds[i] {
				t.Fatalf("position %d: got %s/%s want %s/%s", i, list[i].ID, list[i].Kind, ids[i], kinds[i])
			}
		}
	})

	t.Run("list_unknown_game_empty", func(t *testing.T) {
		store, _, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		list, err := store.ListByGame(context.Background(), 987654)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 0 {
			t.Fatalf("expected empty list, got %d", len(list))
		}
	})

	t.Run("zero_amount_accepted", func(t *testing.T) {
		store, seed, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		in := input(pid, gid, model.KindAssist, time.Now().UTC())
		in.Amount = 0
		got, err := store.Insert(ctx, in)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.Amount != 0 {
			t.Fatalf("expected amount 0, got %d", got.Amount)
		}
	})

	t.Run("client_ref_is_idempotent", func(t *testing.T) {
		store, seed, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		in := input(pid, gid, model.KindSteal, time.Now().UTC())
		in.ClientRef = model.ProvisionalIDPrefix + "retry-me"
		first, err := store.Insert(ctx, in)
		if err != nil {
			t.Fatalf("insert1: %v", err)
		}
		second, err := store.Insert(ctx, in)
		if err != nil {
			t.Fatalf("insert2: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("replay produced a new row: %s vs %s", first.ID, second.ID)
		}
		if first.ClientRef != in.ClientRef || second.ClientRef != in.ClientRef {
			t.Fatalf("client_ref not echoed: %q / %q", first.ClientRef, second.ClientRef)
		}
		list, err := store.ListByGame(ctx, gid)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected one stored event, got %d", len(list))
		}
		if list[0].ClientRef != in.ClientRef {
			t.Fatalf("listed event lost its client_ref: %q", list[0].ClientRef)
		}
	})

	t.Run("empty_client_ref_never_dedupes", func(t *testing.T) {
		store, seed, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		in := input(pid, gid, model.KindFTMade, time.Now().UTC())
		for i := 0; i < 2; i++ {
			if _, err := store.Insert(ctx, in); err != nil {
				t.Fatalf("insert %d: %v", i, err)
			}
		}
		list, err := store.ListByGame(ctx, gid)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("double tap must count twice, got %d", len(list))
		}
	})

	t.Run("delete_is_idempotent", func(t *testing.T) {
		store, seed, cleanup := makeStore(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		keep, err := store.Insert(ctx, input(pid, gid, model.KindBlock, time.Now().UTC()))
		if err != nil {
			t.Fatalf("insert keep: %v", err)
		}
		drop, err := store.Insert(ctx, input(pid, gid, model.KindFoul, time.Now().UTC()))
		if err != nil {
			t.Fatalf("insert drop: %v", err)
		}
		if err := store.Delete(ctx, drop.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := store.Delete(ctx, drop.ID); err != nil {
			t.Fatalf("second delete must succeed, got %v", err)
		}
		if err := store.Delete(ctx, "never-existed"); err != nil {
			t.Fatalf("deleting unknown id must succeed, got %v", err)
		}
		list, err := store.ListByGame(ctx, gid)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].ID != keep.ID {
			t.Fatalf("unexpected remaining events: %+v", list)
		}
	})
}

// RunStatEventRepositoryContract covers the server-side lookups on top of the store contract.
func RunStatEventRepositoryContract(t *testing.T, makeRepo StatEventRepositoryFactory) {
	t.Helper()

	RunStatEventStoreContract(t, func(t *testing.T) (repository.StatEventStore, Seed, func()) {
		return makeRepo(t)
	})

	t.Run("insert_once_reports_replays", func(t *testing.T) {
		repo, seed, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		in := input(pid, gid, model.KindAssist, time.Now().UTC())
		in.ClientRef = model.ProvisionalIDPrefix + "once"
		first, created, err := repo.InsertOnce(ctx, in)
		if err != nil || !created {
			t.Fatalf("first insert: created=%v err=%v", created, err)
		}
		second, created, err := repo.InsertOnce(ctx, in)
		if err != nil || created {
			t.Fatalf("replay: created=%v err=%v", created, err)
		}
		if first.ID != second.ID {
			t.Fatalf("replay produced a new row: %s vs %s", first.ID, second.ID)
		}
		in.ClientRef = ""
		if _, created, err := repo.InsertOnce(ctx, in); err != nil || !created {
			t.Fatalf("insert without client_ref: created=%v err=%v", created, err)
		}
	})

	t.Run("get_by_id", func(t *testing.T) {
		repo, seed, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		ev, err := repo.Insert(ctx, input(pid, gid, model.KindFGMissed, time.Now().UTC()))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		got, err := repo.GetByID(ctx, ev.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.ID != ev.ID || got.Kind != model.KindFGMissed {
			t.Fatalf("mismatch: %+v", got)
		}
		if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list_by_game_page_total", func(t *testing.T) {
		repo, seed, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		for i := 0; i < 7; i++ {
			if _, err := repo.Insert(ctx, input(pid, gid, model.KindRebound, time.Now().UTC())); err != nil {
				t.Fatalf("seed event %d: %v", i, err)
			}
		}
		res, err := repo.ListByGamePage(ctx, gid, repository.Page{Limit: 3, Offset: 0})
		if err != nil {
			t.Fatalf("page1: %v", err)
		}
		if len(res.Items) != 3 || res.Total != 7 {
			t.Fatalf("unexpected page: len=%d total=%d", len(res.Items), res.Total)
		}
		res, err = repo.ListByGamePage(ctx, gid, repository.Page{Limit: 3, Offset: 6})
		if err != nil {
			t.Fatalf("page3: %v", err)
		}
		if len(res.Items) != 1 || res.Total != 7 {
			t.Fatalf("unexpected last page: len=%d total=%d", len(res.Items), res.Total)
		}
		res, err = repo.ListByGamePage(ctx, gid, repository.Page{Limit: 3, Offset: 30})
		if err != nil {
			t.Fatalf("past end: %v", err)
		}
		if len(res.Items) != 0 || res.Total != 7 {
			t.Fatalf("unexpected page past end: len=%d total=%d", len(res.Items), res.Total)
		}
	})

	t.Run("list_by_player_season_filter", func(t *testing.T) {
		repo, seed, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gOld, err := seed(ctx, "2024-25")
		if err != nil {
			t.Fatalf("seed old: %v", err)
		}
		_, gNew, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed new: %v", err)
		}
		if _, err := repo.Insert(ctx, input(pid, gOld, model.KindFGMade, time.Now().UTC())); err != nil {
			t.Fatalf("insert old: %v", err)
		}
		if _, err := repo.Insert(ctx, input(pid, gNew, model.KindFGMade, time.Now().UTC())); err != nil {
			t.Fatalf("insert new: %v", err)
		}
		season := "2025-26"
		list, err := repo.ListByPlayer(ctx, pid, &season)
		if err != nil {
			t.Fatalf("season list: %v", err)
		}
		if len(list) != 1 || list[0].GameID != gNew {
			t.Fatalf("season filter failed: %+v", list)
		}
		career, err := repo.ListByPlayer(ctx, pid, nil)
		if err != nil {
			t.Fatalf("career list: %v", err)
		}
		if len(career) != 2 {
			t.Fatalf("expected 2 career events, got %d", len(career))
		}
	})

	t.Run("unknown_player_conflict", func(t *testing.T) {
		repo, seed, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		_, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		_, err = repo.Insert(ctx, input(9999999, gid, model.KindFGMade, time.Now().UTC()))
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("expected ErrConflict on FK violation, got %v", err)
		}
	})
}

func RunLookupContract(t *testing.T, makeRepos LookupFactory) {
	t.Helper()

	t.Run("get_existing", func(t *testing.T) {
		players, games, seed, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		p, err := players.GetByID(ctx, pid)
		if err != nil || p.ID != pid {
			t.Fatalf("player get: %+v %v", p, err)
		}
		g, err := games.GetByID(ctx, gid)
		if err != nil || g.ID != gid || g.Season != "2025-26" {
			t.Fatalf("game get: %+v %v", g, err)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		players, games, _, cleanup := makeRepos(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := players.GetByID(ctx, 42424242); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := games.GetByID(ctx, 7777777); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func RunTxManagerContract(t *testing.T, makeTx TxFactory) {
	t.Helper()

	t.Run("commit_on_nil_error", func(t *testing.T) {
		tx, events, seed, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		var createdID string
		err = tx.WithinTx(ctx, func(ctx context.Context) error {
			out, err := events.Insert(ctx, input(pid, gid, model.KindAssist, time.Now().UTC()))
			if err != nil {
				return err
			}
			createdID = out.ID
			return nil
		})
		if err != nil {
			t.Fatalf("WithinTx: %v", err)
		}
		if _, err := events.GetByID(ctx, createdID); err != nil {
			t.Fatalf("expected committed row visible, got err=%v", err)
		}
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		tx, events, seed, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		pid, gid, err := seed(ctx, "2025-26")
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		var createdID string
		errMarker := errors.New("boom")
		err = tx.WithinTx(ctx, func(ctx context.Context) error {
			out, err := events.Insert(ctx, input(pid, gid, model.KindAssist, time.Now().UTC()))
			if err != nil {
				return err
			}
			createdID = out.ID
			return errMarker
		})
		if !errors.Is(err, errMarker) {
			t.Fatalf("expected marker error, got %v", err)
		}
		if _, err := events.GetByID(ctx, createdID); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after rollback, got %v", err)
		}
	})
}

func RunPingerContract(t *testing.T, makePinger PingerFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		p, cleanup := makePinger(t)
		t.Cleanup(cleanup)
		if err := p.Ping(context.Background()); err != nil {
			t.Fatalf("expected ping ok, got %v", err)
		}
	})
}
