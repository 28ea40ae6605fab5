package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/player"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// UpsertMany merges player rows by id with the same never-null-overwrite
// rule as teams. Team affiliation is the one column an incoming row may
// move, players change teams mid-season.
func (r *PlayerRepository) UpsertMany(ctx context.Context, players []player.Player) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	if len(players) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx upsert players: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, p := range players {
		insertModel := playerInsertModel{
			ID:           p.ID,
			TeamID:       nullableString(p.TeamID),
			FullName:     p.FullName,
			Position:     nullableString(p.Position),
			JerseyNumber: p.JerseyNumber,
			HeightMeters: p.HeightMeters,
			WeightKg:     p.WeightKg,
		}
		query, args, err := qb.InsertModel("players", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    team_id = COALESCE(EXCLUDED.team_id, players.team_id),
    full_name = COALESCE(NULLIF(players.full_name, ''), EXCLUDED.full_name),
    position = COALESCE(players.position, EXCLUDED.position),
    jersey_number = COALESCE(players.jersey_number, EXCLUDED.jersey_number),
    height_meters = COALESCE(players.height_meters, EXCLUDED.height_meters),
    weight_kg = COALESCE(players.weight_kg, EXCLUDED.weight_kg),
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`)
		if err != nil {
			return result, fmt.Errorf("build upsert player query: %w", err)
		}

		var inserted bool
		rowErr, err := withSavepoint(ctx, tx, func() error {
			return tx.GetContext(ctx, &inserted, query, args...)
		})
		if err != nil {
			return result, fmt.Errorf("upsert player id=%s: %w", p.ID, err)
		}
		if rowErr != nil {
			result.Failed++
			result.Failures = append(result.Failures, ingest.RowFailure{Key: p.ID, Reason: rowErr.Error()})
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return ingest.BatchResult{}, fmt.Errorf("commit upsert players tx: %w", err)
	}
	return result, nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	query, args, err := qb.Select("*").From("players").
		Where(qb.Eq("id", playerID)).
		ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("select player: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").
		OrderBy("full_name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list players query: %w", err)
	}

	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type playerTableModel struct {
	ID           string          `db:"id"`
	TeamID       sql.NullString  `db:"team_id"`
	FullName     string          `db:"full_name"`
	Position     sql.NullString  `db:"position"`
	JerseyNumber sql.NullInt64   `db:"jersey_number"`
	HeightMeters sql.NullFloat64 `db:"height_meters"`
	WeightKg     sql.NullFloat64 `db:"weight_kg"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (m playerTableModel) toDomain() player.Player {
	p := player.Player{
		ID:       m.ID,
		TeamID:   nullStringToString(m.TeamID),
		FullName: m.FullName,
		Position: nullStringToString(m.Position),
	}
	if m.JerseyNumber.Valid {
		n := int(m.JerseyNumber.Int64)
		p.JerseyNumber = &n
	}
	if m.HeightMeters.Valid {
		h := m.HeightMeters.Float64
		p.HeightMeters = &h
	}
	if m.WeightKg.Valid {
		w := m.WeightKg.Float64
		p.WeightKg = &w
	}
	return p
}

type playerInsertModel struct {
	ID           string   `db:"id"`
	TeamID       *string  `db:"team_id"`
	FullName     string   `db:"full_name"`
	Position     *string  `db:"position"`
	JerseyNumber *int     `db:"jersey_number"`
	HeightMeters *float64 `db:"height_meters"`
	WeightKg     *float64 `db:"weight_kg"`
}
