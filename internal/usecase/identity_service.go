package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
	"github.com/courtmetrics/hoop-ingest/internal/platform/id"
)

// IdentityService resolves source natural keys to stable internal ids
// through the append-only identity map. Resolutions are cached per
// process; the store guarantees a single winner under concurrent
// get-or-create races on the same key.
type IdentityService struct {
	repo  identity.Repository
	idGen id.Generator

	mu    sync.RWMutex
	cache map[string]string
}

func NewIdentityService(repo identity.Repository, idGen id.Generator) *IdentityService {
	return &IdentityService{
		repo:  repo,
		idGen: idGen,
		cache: make(map[string]string),
	}
}

// Resolve returns the internal id bound to the natural key, creating the
// binding on first sight. Returns ErrInvalidInput when the key
// normalizes to empty.
func (s *IdentityService) Resolve(ctx context.Context, kind identity.Kind, naturalKey string) (string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Resolve")
	defer span.End()

	key := identity.NormalizeKey(naturalKey)
	if key == "" {
		return "", fmt.Errorf("%w: natural key is required", ErrInvalidInput)
	}

	cacheKey := string(kind) + "\x1f" + key
	s.mu.RLock()
	internalID, ok := s.cache[cacheKey]
	s.mu.RUnlock()
	if ok {
		return internalID, nil
	}

	candidate, err := s.idGen.NewID()
	if err != nil {
		return "", &ResolutionError{Kind: string(kind), Key: key, Err: err}
	}

	internalID, _, err = s.repo.GetOrCreate(ctx, kind, key, candidate)
	if err != nil {
		return "", &ResolutionError{Kind: string(kind), Key: key, Err: err}
	}

	s.mu.Lock()
	s.cache[cacheKey] = internalID
	s.mu.Unlock()
	return internalID, nil
}

// Lookup resolves without creating. The second return is false when the
// key has never been seen.
func (s *IdentityService) Lookup(ctx context.Context, kind identity.Kind, naturalKey string) (string, bool, error) {
	key := identity.NormalizeKey(naturalKey)
	if key == "" {
		return "", false, nil
	}

	cacheKey := string(kind) + "\x1f" + key
	s.mu.RLock()
	internalID, ok := s.cache[cacheKey]
	s.mu.RUnlock()
	if ok {
		return internalID, true, nil
	}

	internalID, ok, err := s.repo.Lookup(ctx, kind, key)
	if err != nil {
		return "", false, &ResolutionError{Kind: string(kind), Key: key, Err: err}
	}
	if ok {
		s.mu.Lock()
		s.cache[cacheKey] = internalID
		s.mu.Unlock()
	}
	return internalID, ok, nil
}
