package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
	qb "github.com/courtmetrics/hoop-ingest/internal/platform/querybuilder"
)

type IdentityRepository struct {
	db *sqlx.DB
}

func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// GetOrCreate binds naturalKey to candidateID unless a binding already
// exists. The insert races through ON CONFLICT DO NOTHING, so exactly
// one of any set of concurrent callers creates the row and everyone
// reads the same winner back.
func (r *IdentityRepository) GetOrCreate(ctx context.Context, kind identity.Kind, naturalKey, candidateID string) (string, bool, error) {
	const insertQuery = `INSERT INTO identity_map (entity_kind, natural_key, internal_id)
VALUES ($1, $2, $3)
ON CONFLICT (entity_kind, natural_key) DO NOTHING
RETURNING internal_id`

	var internalID string
	err := r.db.GetContext(ctx, &internalID, insertQuery, string(kind), naturalKey, candidateID)
	if err == nil {
		return internalID, true, nil
	}
	if !isNotFound(err) && !isUniqueViolation(err) {
		return "", false, fmt.Errorf("insert identity mapping kind=%s: %w", kind, err)
	}

	// Someone else won the insert; read their id.
	internalID, ok, err := r.Lookup(ctx, kind, naturalKey)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, fmt.Errorf("identity mapping kind=%s vanished after conflict", kind)
	}
	return internalID, false, nil
}

func (r *IdentityRepository) Lookup(ctx context.Context, kind identity.Kind, naturalKey string) (string, bool, error) {
	query, args, err := qb.Select("internal_id").From("identity_map").
		Where(
			qb.Eq("entity_kind", string(kind)),
			qb.Eq("natural_key", naturalKey),
		).
		ToSQL()
	if err != nil {
		return "", false, fmt.Errorf("build select identity mapping query: %w", err)
	}

	var internalID string
	if err := r.db.GetContext(ctx, &internalID, query, args...); err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select identity mapping kind=%s: %w", kind, err)
	}
	return internalID, true, nil
}
