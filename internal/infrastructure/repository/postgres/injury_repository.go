package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/injury"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type InjuryRepository struct {
	db *sqlx.DB
}

func NewInjuryRepository(db *sqlx.DB) *InjuryRepository {
	return &InjuryRepository{db: db}
}

// InsertMany appends canonical reports. person_key carries the
// resolved player id when known, the normalized scraped name otherwise;
// one report per (person_key, status, day) survives.
func (r *InjuryRepository) InsertMany(ctx context.Context, reports []injury.Report) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	if len(reports) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin tx insert injury reports: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, report := range reports {
		personKey := report.PlayerID
		if personKey == "" {
			personKey = identity.NormalizeKey(report.RawPlayerName)
		}
		observedDay := report.ObservedAt.UTC().Truncate(24 * time.Hour)
		insertModel := injuryInsertModel{
			PersonKey:     personKey,
			PlayerID:      nullableString(report.PlayerID),
			TeamID:        nullableString(report.TeamID),
			RawPlayerName: report.RawPlayerName,
			Status:        string(report.Status),
			Detail:        nullableString(report.Detail),
			Source:        report.Source,
			SourceURL:     nullableString(report.SourceURL),
			ObservedAt:    report.ObservedAt.UTC(),
			ObservedDay:   observedDay,
		}
		query, args, err := qb.InsertModel("injury_reports", insertModel,
			`ON CONFLICT (person_key, status, observed_day) DO NOTHING`)
		if err != nil {
			return result, fmt.Errorf("build insert injury report query: %w", err)
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
			return result, fmt.Errorf("insert injury report person=%s: %w", personKey, err)
		}
		if rowErr != nil {
			result.Failed++
			result.Failures = append(result.Failures, ingest.RowFailure{Key: personKey, Reason: rowErr.Error()})
			continue
		}
		if affected > 0 {
			result.Inserted++
		} else {
			result.Skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return ingest.BatchResult{}, fmt.Errorf("commit insert injury reports tx: %w", err)
	}
	return result, nil
}

func (r *InjuryRepository) ListByDay(ctx context.Context, day time.Time) ([]injury.Report, error) {
	observedDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	query, args, err := qb.Select("*").From("injury_reports").
		Where(qb.Eq("observed_day", observedDay)).
		OrderBy("person_key", "status").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list injury reports query: %w", err)
	}

	var rows []injuryTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list injury reports: %w", err)
	}

	out := make([]injury.Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, injury.Report{
			PlayerID:      nullStringToString(row.PlayerID),
			TeamID:        nullStringToString(row.TeamID),
			RawPlayerName: row.RawPlayerName,
			Status:        injury.Status(row.Status),
			Detail:        nullStringToString(row.Detail),
			Source:        row.Source,
			SourceURL:     nullStringToString(row.SourceURL),
			ObservedAt:    row.ObservedAt,
		})
	}
	return out, nil
}

type injuryTableModel struct {
	ID            int64          `db:"id"`
	PersonKey     string         `db:"person_key"`
	PlayerID      sql.NullString `db:"player_id"`
	TeamID        sql.NullString `db:"team_id"`
	RawPlayerName string         `db:"raw_player_name"`
	Status        string         `db:"status"`
	Detail        sql.NullString `db:"detail"`
	Source        string         `db:"source"`
	SourceURL     sql.NullString `db:"source_url"`
	ObservedAt    time.Time      `db:"observed_at"`
	ObservedDay   time.Time      `db:"observed_day"`
	CreatedAt     time.Time      `db:"created_at"`
}

type injuryInsertModel struct {
	PersonKey     string    `db:"person_key"`
	PlayerID      *string   `db:"player_id"`
	TeamID        *string   `db:"team_id"`
	RawPlayerName string    `db:"raw_player_name"`
	Status        string    `db:"status"`
	Detail        *string   `db:"detail"`
	Source        string    `db:"source"`
	SourceURL     *string   `db:"source_url"`
	ObservedAt    time.Time `db:"observed_at"`
	ObservedDay   time.Time `db:"observed_day"`
}
