package playerstat

import (
	"context"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
)

// Repository describes box-score persistence needs from use cases.
// InsertMany is append-only on (player_id, game_id).
type Repository interface {
	InsertMany(ctx context.Context, lines []Line) (ingest.BatchResult, error)
	ListByGame(ctx context.Context, gameID string) ([]Line, error)
}
