package team

import (
	"context"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
)

// Repository describes team persistence needs from use cases.
// UpsertMany merges by id: columns already set on an existing row are
// kept, missing ones are filled from the incoming record.
type Repository interface {
	UpsertMany(ctx context.Context, teams []Team) (ingest.BatchResult, error)
	GetByID(ctx context.Context, teamID string) (Team, bool, error)
	List(ctx context.Context) ([]Team, error)
}
