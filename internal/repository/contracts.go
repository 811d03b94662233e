package repository

import (
	"context"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
)

// Pinger represents a minimal readiness probe capability.
// I use it to decouple health checks from storage implementation details.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TxFunc is the unit of work executed within a transaction boundary.
// I pass context through so nested calls can honor cancellations and deadlines.
type TxFunc func(ctx context.Context) error

// TxManager abstracts transactional execution for repositories that support it.
// I prefer a single entry point to keep transaction boundaries explicit and testable.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

// PlayerRepository is the read side of players I need for existence checks.
// Roster management belongs to the hosted backend.
type PlayerRepository interface {
	GetByID(ctx context.Context, id int64) (model.Player, error)
}

// GameRepository is the read side of games.
type GameRepository interface {
	GetByID(ctx context.Context, id int64) (model.Game, error)
}

// StatEventStore is everything the optimistic tracker needs from a remote source of truth.
// Delete is idempotent: removing an id that is already gone returns nil.
// Insert with a non-empty ClientRef is idempotent too: a replay returns the row stored first.
type StatEventStore interface {
	Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error)
	Delete(ctx context.Context, id string) error
	ListByGame(ctx context.Context, gameID int64) ([]model.StatEvent, error)
}

// StatEventRepository adds the lookups the server-side service needs on top of StatEventStore.
type StatEventRepository interface {
	StatEventStore
	// InsertOnce behaves like Insert and reports whether this call wrote the row.
	// created is false when ClientRef matched an event stored earlier.
	InsertOnce(ctx context.Context, in model.StatEventInput) (ev model.StatEvent, created bool, err error)
	GetByID(ctx context.Context, id string) (model.StatEvent, error)
	// ListByGamePage returns one window of a game's events in insertion order.
	ListByGamePage(ctx context.Context, gameID int64, p Page) (PageResult[model.StatEvent], error)
	// ListByPlayer returns a player's events, optionally restricted to games of one season.
	// A nil season returns career events.
	ListByPlayer(ctx context.Context, playerID int64, season *string) ([]model.StatEvent, error)
}
