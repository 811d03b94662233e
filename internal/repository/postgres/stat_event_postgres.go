package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
)

const statEventColumns = `e.id, e.client_ref, e.player_id, e.game_id, e.kind, e.amount, e.recorded_at, e.recorded_by,
	e.quarter, e.clock, e.court_x, e.court_y, e.note`

type statEventRepository struct{ pool *pgxpool.Pool }

func NewStatEventRepository(pool *pgxpool.Pool) repository.StatEventRepository {
	return &statEventRepository{pool: pool}
}

// Insert stores a new event under a fresh UUIDv7. A repeated ClientRef returns the row stored the first time.
func (r *statEventRepository) Insert(ctx context.Context, in model.StatEventInput) (model.StatEvent, error) {
	ev, _, err := r.InsertOnce(ctx, in)
	return ev, err
}

// InsertOnce is Insert that also tells a fresh row from a ClientRef replay.
// xmax is zero only on a tuple this statement inserted; the conflict path updates it.
func (r *statEventRepository) InsertOnce(ctx context.Context, in model.StatEventInput) (model.StatEvent, bool, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.StatEvent{}, false, err
	}
	if !in.Kind.Valid() {
		return model.StatEvent{}, false, fmt.Errorf("%w: unknown kind %q", repository.ErrInvalidArgument, in.Kind.String())
	}
	id, err := uuid.NewV7()
	if err != nil {
		return model.StatEvent{}, false, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`INSERT INTO stat_events AS e (id, client_ref, player_id, game_id, kind, amount, recorded_at, recorded_by,
		                               quarter, clock, court_x, court_y, note)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (client_ref) DO UPDATE SET client_ref = EXCLUDED.client_ref
		 RETURNING `+statEventColumns+`, (e.xmax = 0) AS created`,
		id.String(), in.ClientRef, in.PlayerID, in.GameID, in.Kind.String(), in.Amount, in.RecordedAt.UTC(), in.RecordedBy,
		in.Context.Quarter, in.Context.Clock, in.Context.CourtX, in.Context.CourtY, in.Context.Note,
	)
	var created bool
	out, err := scanStatEvent(row, &created)
	if err != nil {
		return model.StatEvent{}, false, repository.MapPgError(err)
	}
	return out, created, nil
}

// Delete removes the event. Deleting an id that is already gone is not an error.
func (r *statEventRepository) Delete(ctx context.Context, id string) error {
	if err := ensurePool(r.pool); err != nil {
		return err
	}
	exec := getQ(ctx, r.pool)
	if _, err := exec.Exec(ctx, `DELETE FROM stat_events WHERE id = $1`, id); err != nil {
		return repository.MapPgError(err)
	}
	return nil
}

func (r *statEventRepository) GetByID(ctx context.Context, id string) (model.StatEvent, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.StatEvent{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx, `SELECT `+statEventColumns+` FROM stat_events e WHERE e.id = $1`, id)
	out, err := scanStatEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StatEvent{}, repository.ErrNotFound
		}
		return model.StatEvent{}, repository.MapPgError(err)
	}
	return out, nil
}

func (r *statEventRepository) ListByGame(ctx context.Context, gameID int64) ([]model.StatEvent, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	return r.list(ctx,
		`SELECT `+statEventColumns+` FROM stat_events e WHERE e.game_id = $1 ORDER BY e.seq`, gameID)
}

func (r *statEventRepository) ListByGamePage(ctx context.Context, gameID int64, p repository.Page) (repository.PageResult[model.StatEvent], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.PageResult[model.StatEvent]{}, err
	}
	p = p.Sanitize()
	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx,
		`SELECT `+statEventColumns+`, COUNT(*) OVER() AS total
		 FROM stat_events e WHERE e.game_id = $1
		 ORDER BY e.seq
		 LIMIT $2 OFFSET $3`,
		gameID, p.Limit, p.Offset,
	)
	if err != nil {
		return repository.PageResult[model.StatEvent]{}, repository.MapPgError(err)
	}
	defer rows.Close()
	res := repository.PageResult[model.StatEvent]{Items: make([]model.StatEvent, 0, p.Limit)}
	for rows.Next() {
		var total int
		it, err := scanStatEvent(rows, &total)
		if err != nil {
			return repository.PageResult[model.StatEvent]{}, repository.MapPgError(err)
		}
		res.Items = append(res.Items, it)
		res.Total = total
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.StatEvent]{}, repository.MapPgError(err)
	}
	if len(res.Items) == 0 && p.Offset > 0 {
		// the window ran past the end; COUNT(*) OVER() had no row to ride on
		if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM stat_events WHERE game_id = $1`, gameID).Scan(&res.Total); err != nil {
			return repository.PageResult[model.StatEvent]{}, repository.MapPgError(err)
		}
	}
	return res, nil
}

// ListByPlayer joins games so a season filter can be applied; a nil season returns career events.
func (r *statEventRepository) ListByPlayer(ctx context.Context, playerID int64, season *string) ([]model.StatEvent, error) {
	if err := ensurePool(r.pool); err != nil {
		return nil, err
	}
	return r.list(ctx,
		`SELECT `+statEventColumns+`
		 FROM stat_events e
		 INNER JOIN games g ON e.game_id = g.id
		 WHERE e.player_id = $1 AND ($2::TEXT IS NULL OR g.season = $2)
		 ORDER BY e.seq`,
		playerID, season,
	)
}

func (r *statEventRepository) list(ctx context.Context, sql string, args ...any) ([]model.StatEvent, error) {
	exec := getQ(ctx, r.pool)
	rows, err := exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, repository.MapPgError(err)
	}
	defer rows.Close()
	out := make([]model.StatEvent, 0)
	for rows.Next() {
		ev, err := scanStatEvent(rows)
		if err != nil {
			return nil, repository.MapPgError(err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.MapPgError(err)
	}
	return out, nil
}

func scanStatEvent(row pgx.Row, extra ...any) (model.StatEvent, error) {
	var (
		ev        model.StatEvent
		clientRef *string
		kind      string
		quarter   *int16
	)
	dest := []any{
		&ev.ID, &clientRef, &ev.PlayerID, &ev.GameID, &kind, &ev.Amount, &ev.RecordedAt, &ev.RecordedBy,
		&quarter, &ev.Context.Clock, &ev.Context.CourtX, &ev.Context.CourtY, &ev.Context.Note,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.StatEvent{}, err
	}
	k, err := model.ParseStatKind(kind)
	if err != nil {
		return model.StatEvent{}, fmt.Errorf("stat event %s: %w", ev.ID, err)
	}
	ev.Kind = k
	ev.RecordedAt = ev.RecordedAt.UTC()
	if clientRef != nil {
		ev.ClientRef = *clientRef
	}
	if quarter != nil {
		q := int(*quarter)
		ev.Context.Quarter = &q
	}
	return ev, nil
}

var _ repository.StatEventRepository = (*statEventRepository)(nil)
