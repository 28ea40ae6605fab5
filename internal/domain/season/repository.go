package season

import "context"

// Repository describes season persistence needs from use cases.
// Seasons are append-only; InsertMany skips rows whose year pair and
// type already exist.
type Repository interface {
	InsertMany(ctx context.Context, seasons []Season) error
	GetByID(ctx context.Context, seasonID string) (Season, bool, error)
}
