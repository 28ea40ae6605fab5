package player

import (
	"context"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
)

// Repository describes player persistence needs from use cases.
// UpsertMany merges by id without overwriting set columns with nulls.
type Repository interface {
	UpsertMany(ctx context.Context, players []Player) (ingest.BatchResult, error)
	GetByID(ctx context.Context, playerID string) (Player, bool, error)
	List(ctx context.Context) ([]Player, error)
}
