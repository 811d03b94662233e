// Package feed fans recorded and deleted stat events out to live viewers of a game.
package feed

import (
	"context"
	"time"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

type EventType string

const (
	EventRecorded EventType = "recorded"
	EventDeleted  EventType = "deleted"
)

// subscriberBuffer bounds how far a viewer may lag before messages are dropped for it.
const subscriberBuffer = 64

type Message struct {
	Type   EventType       `json:"type"`
	GameID int64           `json:"game_id"`
	Event  model.StatEvent `json:"event"`
	At     time.Time       `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscriber streams a game's messages until ctx is done; the channel is closed afterwards.
// Slow readers lose messages instead of blocking publishers.
type Subscriber interface {
	Subscribe(ctx context.Context, gameID int64) (<-chan Message, error)
}

type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// Nop discards everything. Used when no live feed is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Message) error { return nil }

func (Nop) Subscribe(ctx context.Context, _ int64) (<-chan Message, error) {
	ch := make(chan Message)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (Nop) Close() error { return nil }

var _ Broker = Nop{}
