package memory

import (
	"context"
	"sync"

	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
)

// IdentityRepository is an in-memory identity map with the same
// single-winner guarantee as the postgres store.
type IdentityRepository struct {
	mu       sync.Mutex
	mappings map[string]string
}

func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{mappings: make(map[string]string)}
}

func (r *IdentityRepository) GetOrCreate(_ context.Context, kind identity.Kind, naturalKey, candidateID string) (string, bool, error) {
	key := string(kind) + "\x1f" + naturalKey
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.mappings[key]; ok {
		return existing, false, nil
	}
	r.mappings[key] = candidateID
	return candidateID, true, nil
}

func (r *IdentityRepository) Lookup(_ context.Context, kind identity.Kind, naturalKey string) (string, bool, error) {
	key := string(kind) + "\x1f" + naturalKey
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.mappings[key]
	return id, ok, nil
}

// Len reports the number of bindings, handy for idempotence assertions.
func (r *IdentityRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.mappings)
}
