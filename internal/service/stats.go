package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/youth-hoops-tracker/internal/feed"
	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/internal/stats"
)

type statsService struct {
	events  repository.StatEventRepository
	players repository.PlayerRepository
	games   repository.GameRepository
	tx      repository.TxManager
	feed    feed.Publisher
	now     func() time.Time
	log     zerolog.Logger
}

func NewStatsService(events repository.StatEventRepository, players repository.PlayerRepository, games repository.GameRepository,
	tx repository.TxManager, publisher feed.Publisher, logger zerolog.Logger) StatsService {
	l := logger.With().Str("module", "service").Str("component", "stats").Logger()
	if publisher == nil {
		publisher = feed.Nop{}
	}
	return &statsService{events: events, players: players, games: games, tx: tx, feed: publisher, now: time.Now, log: l}
}

func (s *statsService) RecordEvent(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	start := time.Now()
	in.RecordedBy = strings.TrimSpace(in.RecordedBy)
	if err := ValidateStatEventInput(in); err != nil {
		s.log.Debug().Interface("field_errors", FieldErrors(err)).Msg("stat event validation failed")
		return model.StatEvent{}, err
	}
	if in.RecordedAt.IsZero() {
		in.RecordedAt = s.now()
	}
	// Postgres keeps microseconds; trimming here makes the response equal what a later read returns
	in.RecordedAt = in.RecordedAt.UTC().Truncate(time.Microsecond)

	var (
		out     model.StatEvent
		created bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkScope(ctx, in.PlayerID, in.GameID); err != nil {
			return err
		}
		var err error
		out, created, err = s.events.InsertOnce(ctx, in)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidInput) {
			s.log.Error().Err(err).Int64("player_id", in.PlayerID).Int64("game_id", in.GameID).Str("kind", in.Kind.String()).Msg("record stat event failed")
		}
		return model.StatEvent{}, err
	}

	if !created {
		// a transport retry of a write that already landed; subscribers saw it the first time
		s.log.Info().Str("event_id", out.ID).Str("client_ref", in.ClientRef).Msg("stat event replayed")
		return out, nil
	}
	s.publish(ctx, feed.EventRecorded, out)
	s.log.Info().Dur("took", time.Since(start)).Str("event_id", out.ID).Int64("game_id", out.GameID).Str("kind", out.Kind.String()).Msg("stat event recorded")
	return out, nil
}

// DeleteEvent is idempotent. A feed message goes out only when a row was actually removed.
func (s *statsService) DeleteEvent(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return NewInvalidInputError([]FieldError{{Field: "id", Message: "must not be empty"}})
	}
	if model.IsProvisionalID(id) {
		return NewInvalidInputError([]FieldError{{Field: "id", Message: "provisional ids are never stored"}})
	}

	var (
		removed model.StatEvent
		found   bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ev, err := s.events.GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		removed, found = ev, true
		return s.events.Delete(ctx, id)
	})
	if err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("delete stat event failed")
		return err
	}
	if found {
		s.publish(ctx, feed.EventDeleted, removed)
		s.log.Info().Str("event_id", id).Int64("game_id", removed.GameID).Msg("stat event deleted")
	}
	return nil
}

func (s *statsService) ListGameEvents(ctx context.Context, gameID int64, page repository.Page) (repository.PageResult[model.StatEvent], error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return repository.PageResult[model.StatEvent]{}, err
	}
	return s.events.ListByGamePage(ctx, gameID, page.Sanitize())
}

func (s *statsService) GameTimeline(ctx context.Context, gameID int64, limit int) ([]model.StatEvent, error) {
	events, err := s.gameEvents(ctx, gameID)
	if err != nil {
		return nil, err
	}
	out := make([]model.StatEvent, 0, len(events))
	for ev := range stats.Timeline(events) {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *statsService) GameTotals(ctx context.Context, gameID int64) (model.GameTotals, error) {
	events, err := s.gameEvents(ctx, gameID)
	if err != nil {
		return model.GameTotals{}, err
	}
	return model.GameTotals{
		GameID:  gameID,
		Overall: stats.ComputeTotals(events),
		Players: stats.TotalsByPlayer(events),
	}, nil
}

func (s *statsService) PlayerGameTotals(ctx context.Context, playerID, gameID int64) (model.Totals, error) {
	if err := ValidateScope(playerID, gameID); err != nil {
		return model.Totals{}, err
	}
	if err := s.checkScope(ctx, playerID, gameID); err != nil {
		return model.Totals{}, err
	}
	events, err := s.events.ListByGame(ctx, gameID)
	if err != nil {
		return model.Totals{}, err
	}
	scoped := slices.DeleteFunc(events, func(ev model.StatEvent) bool { return ev.PlayerID != playerID })
	return stats.ComputeTotals(scoped), nil
}

func (s *statsService) PlayerSeasonSummary(ctx context.Context, playerID int64, season *string) (model.SeasonSummary, error) {
	var ferrs []FieldError
	if playerID <= 0 {
		ferrs = append(ferrs, FieldError{Field: "player_id", Message: "must be > 0"})
	}
	if season != nil {
		trimmed := strings.TrimSpace(*season)
		season = &trimmed
		if !IsValidSeason(trimmed) {
			ferrs = append(ferrs, FieldError{Field: "season", Message: "must look like 2025-26"})
		}
	}
	if err := NewInvalidInputError(ferrs); err != nil {
		return model.SeasonSummary{}, err
	}

	if _, err := s.players.GetByID(ctx, playerID); err != nil {
		return model.SeasonSummary{}, err
	}
	events, err := s.events.ListByPlayer(ctx, playerID, season)
	if err != nil {
		return model.SeasonSummary{}, err
	}

	summary := stats.Summarize(events)
	summary.PlayerID = playerID
	if season != nil {
		summary.Season = *season
	}
	return summary, nil
}

func (s *statsService) gameEvents(ctx context.Context, gameID int64) ([]model.StatEvent, error) {
	if err := s.requireGame(ctx, gameID); err != nil {
		return nil, err
	}
	return s.events.ListByGame(ctx, gameID)
}

// requireGame validates the id and turns an unknown game into ErrNotFound.
func (s *statsService) requireGame(ctx context.Context, gameID int64) error {
	if gameID <= 0 {
		return NewInvalidInputError([]FieldError{{Field: "game_id", Message: "must be > 0"}})
	}
	_, err := s.games.GetByID(ctx, gameID)
	return err
}

// checkScope reports unknown players or games as field errors rather than 404s:
// the request itself is what is wrong.
func (s *statsService) checkScope(ctx context.Context, playerID, gameID int64) error {
	var ferrs []FieldError
	if _, err := s.players.GetByID(ctx, playerID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		ferrs = append(ferrs, FieldError{Field: "player_id", Message: "player does not exist"})
	}
	if _, err := s.games.GetByID(ctx, gameID); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		ferrs = append(ferrs, FieldError{Field: "game_id", Message: "game does not exist"})
	}
	return NewInvalidInputError(ferrs)
}

func (s *statsService) publish(ctx context.Context, typ feed.EventType, ev model.StatEvent) {
	msg := feed.Message{Type: typ, GameID: ev.GameID, Event: ev, At: s.now().UTC()}
	// the write already committed; a dead feed must not turn it into an error
	if err := s.feed.Publish(context.WithoutCancel(ctx), msg); err != nil {
		s.log.Warn().Err(err).Str("type", string(typ)).Str("event_id", ev.ID).Msg("feed publish failed")
	}
}
