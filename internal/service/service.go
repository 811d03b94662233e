// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// NewInvalidInputError builds an aggregated validation error, or nil when fe is empty.
func NewInvalidInputError(fe []FieldError) error {
	if len(fe) == 0 {
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error, looking through wrapping.
func FieldErrors(err error) []FieldError {
	var ie *invalidInputError
	if errors.As(err, &ie) {
		return ie.Fields()
	}
	return nil
}

// StatsService is the server side of stat tracking: it records and removes events and derives
// totals from whatever the event repository holds. Nothing here caches aggregates.
type StatsService interface {
	RecordEvent(ctx context.Context, in model.StatEventInput) (model.StatEvent, error)
	DeleteEvent(ctx context.Context, id string) error
	ListGameEvents(ctx context.Context, gameID int64, page repository.Page) (repository.PageResult[model.StatEvent], error)
	// GameTimeline returns the newest events first; limit <= 0 means all of them.
	GameTimeline(ctx context.Context, gameID int64, limit int) ([]model.StatEvent, error)
	GameTotals(ctx context.Context, gameID int64) (model.GameTotals, error)
	PlayerGameTotals(ctx context.Context, playerID, gameID int64) (model.Totals, error)
	// PlayerSeasonSummary aggregates one season ("2025-26") or, with a nil season, a whole career.
	PlayerSeasonSummary(ctx context.Context, playerID int64, season *string) (model.SeasonSummary, error)
}
