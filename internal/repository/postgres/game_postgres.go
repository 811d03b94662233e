package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/youth-hoops-tracker/internal/model"
	"github.com/maxviazov/youth-hoops-tracker/internal/repository"
)

type gameRepository struct{ pool *pgxpool.Pool }

func NewGameRepository(pool *pgxpool.Pool) repository.GameRepository {
	return &gameRepository{pool: pool}
}

func (r *gameRepository) GetByID(ctx context.Context, id int64) (model.Game, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Game{}, err
	}
	exec := getQ(ctx, r.pool)
	row := exec.QueryRow(ctx,
		`SELECT id, season, date, home_team_id, away_team_id, status, created_at, updated_at
		 FROM games WHERE id = $1`, id,
	)
	var out model.Game
	if err := row.Scan(&out.ID, &out.Season, &out.Date, &out.HomeTeamID, &out.AwayTeamID, &out.Status, &out.CreatedAt, &out.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Game{}, repository.ErrNotFound
		}
		return model.Game{}, repository.MapPgError(err)
	}
	return out, nil
}

var _ repository.GameRepository = (*gameRepository)(nil)
