// Package sqlite is the embedded event store used by the scorekeeper when it runs offline.
// It honors the same StatEventStore contract as the Postgres repository, minus rosters.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
	"github.com/maxviazov/youth-hoops-tracker/migrations"
)

const columns = `id, client_ref, player_id, game_id, kind, amount, recorded_at, recorded_by, quarter, clock, court_x, court_y, note`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the embedded migrations.
// Use "file::memory:?cache=shared" for a throwaway store.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer at a time; also keeps an in-memory database alive on a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}
	if _, err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return mapErr(s.db.PingContext(ctx))
}

func (s *Store) Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	if !in.Kind.Valid() {
		return model.StatEvent{}, fmt.Errorf("%w: unknown kind %q", repository.ErrInvalidArgument, in.Kind.String())
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.StatEvent{}, err
	}
	var clientRef sql.NullString
	if in.ClientRef != "" {
		clientRef = sql.NullString{String: in.ClientRef, Valid: true}
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO stat_events (id, client_ref, player_id, game_id, kind, amount, recorded_at, recorded_by,
		                          quarter, clock, court_x, court_y, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(client_ref) DO UPDATE SET client_ref = excluded.client_ref
		 RETURNING `+columns,
		id.String(), clientRef, in.PlayerID, in.GameID, in.Kind.String(), in.Amount, in.RecordedAt.UTC().UnixNano(), in.RecordedBy,
		in.Context.Quarter, in.Context.Clock, in.Context.CourtX, in.Context.CourtY, in.Context.Note,
	)
	ev, err := scan(row)
	if err != nil {
		return model.StatEvent{}, mapErr(err)
	}
	return ev, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM stat_events WHERE id = ?`, id)
	return mapErr(err)
}

func (s *Store) ListByGame(ctx context.Context, gameID int64) ([]model.StatEvent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+columns+` FROM stat_events WHERE game_id = ? ORDER BY seq`, gameID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]model.StatEvent, 0)
	for rows.Next() {
		ev, err := scan(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, ev)
	}
	return out, mapErr(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (model.StatEvent, error) {
	var (
		ev         model.StatEvent
		clientRef  sql.NullString
		kind       string
		recordedAt int64
		quarter    sql.NullInt64
		clock      sql.NullString
		courtX     sql.NullFloat64
		courtY     sql.NullFloat64
		note       sql.NullString
	)
	if err := row.Scan(&ev.ID, &clientRef, &ev.PlayerID, &ev.GameID, &kind, &ev.Amount, &recordedAt, &ev.RecordedBy,
		&quarter, &clock, &courtX, &courtY, &note); err != nil {
		return model.StatEvent{}, err
	}
	k, err := model.ParseStatKind(kind)
	if err != nil {
		return model.StatEvent{}, fmt.Errorf("stat event %s: %w", ev.ID, err)
	}
	ev.Kind = k
	ev.RecordedAt = time.Unix(0, recordedAt).UTC()
	ev.ClientRef = clientRef.String
	if quarter.Valid {
		q := int(quarter.Int64)
		ev.Context.Quarter = &q
	}
	if clock.Valid {
		ev.Context.Clock = &clock.String
	}
	if courtX.Valid {
		ev.Context.CourtX = &courtX.Float64
	}
	if courtY.Valid {
		ev.Context.CourtY = &courtY.Float64
	}
	if note.Valid {
		ev.Context.Note = &note.String
	}
	return ev, nil
}

// mapErr translates driver errors into repository sentinels, like MapPgError does for Postgres.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
		return repository.ErrAlreadyExists
	case sqlite3lib.SQLITE_CONSTRAINT_CHECK:
		return fmt.Errorf("%w: %v", repository.ErrInvalidArgument, err)
	case sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3lib.SQLITE_CONSTRAINT_NOTNULL:
		return repository.ErrConflict
	case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

var (
	_ repository.StatEventStore = (*Store)(nil)
	_ repository.Pinger         = (*Store)(nil)
)
