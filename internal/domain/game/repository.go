package game

import (
	"context"
	"time"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
)

// Repository describes game persistence needs from use cases. InsertMany
// is append-only: a row whose natural key already exists is skipped, the
// stored row is never modified.
type Repository interface {
	InsertMany(ctx context.Context, games []Game) (ingest.BatchResult, error)
	ListByDate(ctx context.Context, date time.Time) ([]Game, error)
}
