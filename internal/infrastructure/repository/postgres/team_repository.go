package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/team"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// UpsertMany merges team rows by id. Columns already set on the stored
// row win; incoming values only fill gaps, so enrichment never erases
// earlier data. xmax = 0 distinguishes a fresh insert from a merge.
func (r *TeamRepository) UpsertMany(ctx context.Context, teams []team.Team) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	if len(teams) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx upsert teams: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, t := range teams {
		insertModel := teamInsertModel{
			ID:           t.ID,
			Name:         t.Name,
			Abbreviation: nullableString(t.Abbreviation),
			City:         nullableString(t.City),
			Conference:   nullableString(t.Conference),
			Division:     nullableString(t.Division),
		}
		query, args, err := qb.InsertModel("teams", insertModel, `ON CONFLICT (id)
DO UPDATE SET
    name = COALESCE(NULLIF(teams.name, ''), EXCLUDED.name),
    abbreviation = COALESCE(teams.abbreviation, EXCLUDED.abbreviation),
    city = COALESCE(teams.city, EXCLUDED.city),
    conference = COALESCE(teams.conference, EXCLUDED.conference),
    division = COALESCE(teams.division, EXCLUDED.division),
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`)
		if err != nil {
			return result, fmt.Errorf("build upsert team query: %w", err)
		}

		var inserted bool
		rowErr, err := withSavepoint(ctx, tx, func() error {
			return tx.GetContext(ctx, &inserted, query, args...)
		})
		if err != nil {
			return result, fmt.Errorf("upsert team id=%s: %w", t.ID, err)
		}
		if rowErr != nil {
			result.Failed++
			result.Failures = append(result.Failures, ingest.RowFailure{Key: t.ID, Reason: rowErr.Error()})
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return ingest.BatchResult{}, fmt.Errorf("commit upsert teams tx: %w", err)
	}
	return result, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("select team: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").
		OrderBy("name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

type teamTableModel struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Abbreviation sql.NullString `db:"abbreviation"`
	City         sql.NullString `db:"city"`
	Conference   sql.NullString `db:"conference"`
	Division     sql.NullString `db:"division"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:           m.ID,
		Name:         m.Name,
		Abbreviation: nullStringToString(m.Abbreviation),
		City:         nullStringToString(m.City),
		Conference:   nullStringToString(m.Conference),
		Division:     nullStringToString(m.Division),
	}
}

type teamInsertModel struct {
	ID           string  `db:"id"`
	Name         string  `db:"name"`
	Abbreviation *string `db:"abbreviation"`
	City         *string `db:"city"`
	Conference   *string `db:"conference"`
	Division     *string `db:"division"`
}
