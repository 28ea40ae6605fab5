package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/game"
	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type GameRepository struct {
	db *sqlx.DB
}

func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// InsertMany appends games. A conflict on the natural key means the game
// was ingested before; the row is counted as skipped and the stored data
// stays exactly as first written.
func (r *GameRepository) InsertMany(ctx context.Context, games []game.Game) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	if len(games) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx insert games: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, g := range games {
		insertModel := gameInsertModel{
			ID:         g.ID,
			SeasonID:   g.SeasonID,
			GameDate:   g.GameDate,
			HomeTeamID: g.HomeTeamID,
			AwayTeamID: g.AwayTeamID,
			HomeScore:  g.HomeScore,
			AwayScore:  g.AwayScore,
			Status:     g.Status,
			SourceRef:  nullableString(g.SourceRef),
		}
		query, args, err := qb.InsertModel("games", insertModel,
			`ON CONFLICT (game_date, home_team_id, away_team_id) DO NOTHING`)
		if err != nil {
			return result, fmt.Errorf("build insert game query: %w", err)
		}

		var affected int64
		rowErr, err := withSavepoint(ctx, tx, func() error {
			res, execErr := tx.ExecContext(ctx, query, args...)
			if execErr != nil {
				return execErr
			}
			affected, execErr = res.RowsAffected()
			return execErr
		})
		if err != nil {
			return result, fmt.Errorf("insert game id=%s: %w", g.ID, err)
		}
		if rowErr != nil {
			result.Failed++
			result.Failures = append(result.Failures, ingest.RowFailure{Key: g.ID, Reason: rowErr.Error()})
			continue
		}
		if affected > 0 {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return ingest.BatchResult{}, fmt.Errorf("commit insert games tx: %w", err)
	}
	return result, nil
}

func (r *GameRepository) ListByDate(ctx context.Context, date time.Time) ([]game.Game, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	query, args, err := qb.Select("*").From("games").
		Where(qb.Eq("game_date", day)).
		OrderBy("home_team_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list games by date query: %w", err)
	}

	var rows []gameTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list games by date: %w", err)
	}

	out := make([]game.Game, 0, len(rows))
	for _, row := range rows {
		g := game.Game{
			ID:         row.ID,
			SeasonID:   row.SeasonID,
			GameDate:   row.GameDate,
			HomeTeamID: row.HomeTeamID,
			AwayTeamID: row.AwayTeamID,
			Status:     row.Status,
			SourceRef:  nullStringToString(row.SourceRef),
		}
		if row.HomeScore.Valid {
			hs := int(row.HomeScore.Int64)
			g.HomeScore = &hs
		}
		if row.AwayScore.Valid {
			as := int(row.AwayScore.Int64)
			g.AwayScore = &as
		}
		out = append(out, g)
	}
	return out, nil
}

type gameTableModel struct {
	ID         string         `db:"id"`
	SeasonID   string         `db:"season_id"`
	GameDate   time.Time      `db:"game_date"`
	HomeTeamID string         `db:"home_team_id"`
	AwayTeamID string         `db:"away_team_id"`
	HomeScore  sql.NullInt64  `db:"home_score"`
	AwayScore  sql.NullInt64  `db:"away_score"`
	Status     string         `db:"status"`
	SourceRef  sql.NullString `db:"source_ref"`
	CreatedAt  time.Time      `db:"created_at"`
}

type gameInsertModel struct {
	ID         string    `db:"id"`
	SeasonID   string    `db:"season_id"`
	GameDate   time.Time `db:"game_date"`
	HomeTeamID string    `db:"home_team_id"`
	AwayTeamID string    `db:"away_team_id"`
	HomeScore  *int      `db:"home_score"`
	AwayScore  *int      `db:"away_score"`
	Status     string    `db:"status"`
	SourceRef  *string   `db:"source_ref"`
}
