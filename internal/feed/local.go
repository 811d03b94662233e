package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("feed: broker closed")

// Local is an in-process broker for single-replica deployments.
type Local struct {
	mu     sync.Mutex
	subs   map[int64]map[chan Message]struct{}
	closed bool
	done   chan struct{}
	log    zerolog.Logger
}

func NewLocal(logger zerolog.Logger) *Local {
	return &Local{
		subs: make(map[int64]map[chan Message]struct{}),
		done: make(chan struct{}),
		log:  logger.With().Str("module", "feed").Str("component", "local").Logger(),
	}
}

func (b *Local) Publish(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	for ch := range b.subs[msg.GameID] {
		select {
		case ch <- msg:
		default:
			b.log.Warn().Int64("game_id", msg.GameID).Msg("subscriber lagging; message dropped")
		}
	}
	return nil
}

func (b *Local) Subscribe(ctx context.Context, gameID int64) (<-chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	ch := make(chan Message, subscriberBuffer)
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan Message]struct{})
	}
	b.subs[gameID][ch] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			b.remove(gameID, ch)
		case <-b.done:
		}
	}()
	return ch, nil
}

func (b *Local) remove(gameID int64, ch chan Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[gameID][ch]; !ok {
		return
	}
	delete(b.subs[gameID], ch)
	if len(b.subs[gameID]) == 0 {
		delete(b.subs, gameID)
	}
	close(ch)
}

// Close ends every subscription.
func (b *Local) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	for gameID, set := range b.subs {
		for ch := range set {
			close(ch)
		}
		delete(b.subs, gameID)
	}
	return nil
}

var _ Broker = (*Local)(nil)
