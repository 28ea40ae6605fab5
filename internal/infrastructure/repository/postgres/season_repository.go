package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/season"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type SeasonRepository struct {
	db *sqlx.DB
}

func NewSeasonRepository(db *sqlx.DB) *SeasonRepository {
	return &SeasonRepository{db: db}
}

// InsertMany creates seasons that do not exist yet. Existing rows are
// untouched, seasons never change once written.
func (r *SeasonRepository) InsertMany(ctx context.Context, seasons []season.Season) error {
	if len(seasons) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx insert seasons: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, se := range seasons {
		insertModel := seasonInsertModel{
			ID:         se.ID,
			YearStart:  se.YearStart,
			YearEnd:    se.YearEnd,
			SeasonType: se.SeasonType,
		}
		query, args, err := qb.InsertModel("seasons", insertModel,
			`ON CONFLICT (year_start, year_end, season_type) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("build insert season query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert season id=%s: %w", se.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert seasons tx: %w", err)
	}
	return nil
}

func (r *SeasonRepository) GetByID(ctx context.Context, seasonID string) (season.Season, bool, error) {
	query, args, err := qb.Select("*").From("seasons").
		Where(qb.Eq("id", seasonID)).
		ToSQL()
	if err != nil {
		return season.Season{}, false, fmt.Errorf("build select season query: %w", err)
	}

	var row seasonTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return season.Season{}, false, nil
		}
		return season.Season{}, false, fmt.Errorf("select season: %w", err)
	}
	return season.Season{
		ID:         row.ID,
		YearStart:  row.YearStart,
		YearEnd:    row.YearEnd,
		SeasonType: row.SeasonType,
	}, true, nil
}

type seasonTableModel struct {
	ID         string    `db:"id"`
	YearStart  int       `db:"year_start"`
	YearEnd    int       `db:"year_end"`
	SeasonType string    `db:"season_type"`
	CreatedAt  time.Time `db:"created_at"`
}

type seasonInsertModel struct {
	ID         string `db:"id"`
	YearStart  int    `db:"year_start"`
	YearEnd    int    `db:"year_end"`
	SeasonType string `db:"season_type"`
}
