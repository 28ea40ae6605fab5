package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/playerstat"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type PlayerStatRepository struct {
	db *sqlx.DB
}

func NewPlayerStatRepository(db *sqlx.DB) *PlayerStatRepository {
	return &PlayerStatRepository{db: db}
}

// InsertMany appends box-score lines; (player_id, game_id) conflicts are
// skipped so re-ingesting a date never rewrites a stat line.
func (r *PlayerStatRepository) InsertMany(ctx context.Context, lines []playerstat.Line) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	if len(lines) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx insert stat lines: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, line := range lines {
		insertModel := statLineInsertModel{
			PlayerID:       line.PlayerID,
			GameID:         line.GameID,
			TeamID:         nullableString(line.TeamID),
			Minutes:        line.Minutes,
			Points:         line.Points,
			Rebounds:       line.Rebounds,
			Assists:        line.Assists,
			Steals:         line.Steals,
			Blocks:         line.Blocks,
			Turnovers:      line.Turnovers,
			FieldGoalsMade: line.FieldGoalsMade,
			FieldGoalsAtt:  line.FieldGoalsAtt,
			ThreesMade:     line.ThreesMade,
			ThreesAtt:      line.ThreesAtt,
			FreeThrowsMade: line.FreeThrowsMade,
			FreeThrowsAtt:  line.FreeThrowsAtt,
			Started:        line.Started,
			AdvancedStats:  encodeJSONMap(line.Advanced),
		}
		query, args, err := qb.InsertModel("player_game_stats", insertModel,
			`ON CONFLICT (player_id, game_id) DO NOTHING`)
		if err != nil {
			return result, fmt.Errorf("build insert stat line query: %w", err)
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
			return result, fmt.Errorf("insert stat line player=%s game=%s: %w", line.PlayerID, line.GameID, err)
		}
		if rowErr != nil {
			result.Failed++
			result.Failures = append(result.Failures, ingest.RowFailure{
				Key:    line.PlayerID + "@" + line.GameID,
				Reason: rowErr.Error(),
			})
			continue
		}
		if affected > 0 {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return ingest.BatchResult{}, fmt.Errorf("commit insert stat lines tx: %w", err)
	}
	return result, nil
}

func (r *PlayerStatRepository) ListByGame(ctx context.Context, gameID string) ([]playerstat.Line, error) {
	query, args, err := qb.Select("*").From("player_game_stats").
		Where(qb.Eq("game_id", gameID)).
		OrderBy("points DESC", "player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list stat lines query: %w", err)
	}

	var rows []statLineTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list stat lines: %w", err)
	}

	out := make([]playerstat.Line, 0, len(rows))
	for _, row := range rows {
		out = append(out, playerstat.Line{
			PlayerID:       row.PlayerID,
			GameID:         row.GameID,
			TeamID:         nullStringToString(row.TeamID),
			Minutes:        row.Minutes,
			Points:         row.Points,
			Rebounds:       row.Rebounds,
			Assists:        row.Assists,
			Steals:         row.Steals,
			Blocks:         row.Blocks,
			Turnovers:      row.Turnovers,
			FieldGoalsMade: row.FieldGoalsMade,
			FieldGoalsAtt:  row.FieldGoalsAtt,
			ThreesMade:     row.ThreesMade,
			ThreesAtt:      row.ThreesAtt,
			FreeThrowsMade: row.FreeThrowsMade,
			FreeThrowsAtt:  row.FreeThrowsAtt,
			Started:        row.Started,
			Advanced:       decodeJSONMap(row.AdvancedStats),
		})
	}
	return out, nil
}

type statLineTableModel struct {
	PlayerID       string         `db:"player_id"`
	GameID         string         `db:"game_id"`
	TeamID         sql.NullString `db:"team_id"`
	Minutes        float64        `db:"minutes"`
	Points         int            `db:"points"`
	Rebounds       int            `db:"rebounds"`
	Assists        int            `db:"assists"`
	Steals         int            `db:"steals"`
	Blocks         int            `db:"blocks"`
	Turnovers      int            `db:"turnovers"`
	FieldGoalsMade int            `db:"field_goals_made"`
	FieldGoalsAtt  int            `db:"field_goals_att"`
	ThreesMade     int            `db:"threes_made"`
	ThreesAtt      int            `db:"threes_att"`
	FreeThrowsMade int            `db:"free_throws_made"`
	FreeThrowsAtt  int            `db:"free_throws_att"`
	Started        bool           `db:"started"`
	AdvancedStats  string         `db:"advanced_stats"`
	CreatedAt      time.Time      `db:"created_at"`
}

type statLineInsertModel struct {
	PlayerID       string  `db:"player_id"`
	GameID         string  `db:"game_id"`
	TeamID         *string `db:"team_id"`
	Minutes        float64 `db:"minutes"`
	Points         int     `db:"points"`
	Rebounds       int     `db:"rebounds"`
	Assists        int     `db:"assists"`
	Steals         int     `db:"steals"`
	Blocks         int     `db:"blocks"`
	Turnovers      int     `db:"turnovers"`
	FieldGoalsMade int     `db:"field_goals_made"`
	FieldGoalsAtt  int     `db:"field_goals_att"`
	ThreesMade     int     `db:"threes_made"`
	ThreesAtt      int     `db:"threes_att"`
	FreeThrowsMade int     `db:"free_throws_made"`
	FreeThrowsAtt  int     `db:"free_throws_att"`
	Started        bool    `db:"started"`
	AdvancedStats  string  `db:"advanced_stats"`
}
