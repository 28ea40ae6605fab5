package injury

import (
	"context"
	"time"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
)

// Repository describes injury report persistence needs from use cases.
// InsertMany is append-only on the report's equivalence key and
// observation day.
type Repository interface {
	InsertMany(ctx context.Context, reports []Report) (ingest.BatchResult, error)
	ListByDay(ctx context.Context, day time.Time) ([]Report, error)
}
