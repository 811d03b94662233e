package service_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/maxviazov/youth-hoops-tracker/internal/feed"
	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
)

// fakeEventRepo keeps events in memory; games maps game id to season for ListByPlayer.
type fakeEventRepo struct {
	mu      sync.Mutex
	events  []model.StatEvent
	refs    map[string]string
	games   map[int64]string
	nextID  int
	failErr error
}

func newFakeEventRepo(games map[int64]string) *fakeEventRepo {
	return &fakeEventRepo{refs: map[string]string{}, games: games}
}

func (f *fakeEventRepo) Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	ev, _, err := f.InsertOnce(ctx, in)
	return ev, err
}

func (f *fakeEventRepo) InsertOnce(_ context.Context, in model.StatEventInput) (model.StatEvent, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return model.StatEvent{}, false, f.failErr
	}
	if id, ok := f.refs[in.ClientRef]; ok && in.ClientRef != "" {
		for _, ev := range f.events {
			if ev.ID == id {
				return ev, false, nil
			}
		}
	}
	f.nextID++
	ev := model.StatEvent{
		ID: fmt.Sprintf("srv-%d", f.nextID), ClientRef: in.ClientRef, PlayerID: in.PlayerID, GameID: in.GameID, Kind: in.Kind,
		Amount: in.Amount, RecordedAt: in.RecordedAt, RecordedBy: in.RecordedBy, Context: in.Context,
	}
	f.events = append(f.events, ev)
	if in.ClientRef != "" {
		f.refs[in.ClientRef] = ev.ID
	}
	return ev, true, nil
}

func (f *fakeEventRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	for i, ev := range f.events {
		if ev.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeEventRepo) ListByGame(_ context.Context, gameID int64) ([]model.StatEvent, error) {
	return f.filter(func(ev model.StatEvent) bool { return ev.GameID == gameID }), nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (model.StatEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ev := range f.events {
		if ev.ID == id {
			return ev, nil
		}
	}
	return model.StatEvent{}, repository.ErrNotFound
}

func (f *fakeEventRepo) ListByGamePage(_ context.Context, gameID int64, p repository.Page) (repository.PageResult[model.StatEvent], error) {
	all := f.filter(func(ev model.StatEvent) bool { return ev.GameID == gameID })
	p = p.Sanitize()
	res := repository.PageResult[model.StatEvent]{Items: []model.StatEvent{}, Total: len(all)}
	if p.Offset < len(all) {
		res.Items = all[p.Offset:min(p.Offset+p.Limit, len(all))]
	}
	return res, nil
}

func (f *fakeEventRepo) ListByPlayer(_ context.Context, playerID int64, season *string) ([]model.StatEvent, error) {
	return f.filter(func(ev model.StatEvent) bool {
		return ev.PlayerID == playerID && (season == nil || f.games[ev.GameID] == *season)
	}), nil
}

func (f *fakeEventRepo) filter(keep func(model.StatEvent) bool) []model.StatEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.StatEvent{}
	for _, ev := range f.events {
		if keep(ev) {
			out = append(out, ev)
		}
	}
	return out
}

var _ repository.StatEventRepository = (*fakeEventRepo)(nil)

type fakePlayerLookup struct{ ok map[int64]bool }

func (f *fakePlayerLookup) GetByID(_ context.Context, id int64) (model.Player, error) {
	if f.ok[id] {
		return model.Player{ID: id}, nil
	}
	return model.Player{}, repository.ErrNotFound
}

var _ repository.PlayerRepository = (*fakePlayerLookup)(nil)

type fakeGameLookup struct{ seasons map[int64]string }

func (f *fakeGameLookup) GetByID(_ context.Context, id int64) (model.Game, error) {
	if season, ok := f.seasons[id]; ok {
		return model.Game{ID: id, Season: season}, nil
	}
	return model.Game{}, repository.ErrNotFound
}

var _ repository.GameRepository = (*fakeGameLookup)(nil)

type fakeTx struct{ calls int }

func (f *fakeTx) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	f.calls++
	return fn(ctx)
}

var _ repository.TxManager = (*fakeTx)(nil)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []feed.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg feed.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) messages() []feed.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]feed.Message(nil), p.msgs...)
}
