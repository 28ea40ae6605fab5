package identity

import "context"

// Repository is the identity map store. GetOrCreate binds naturalKey to
// candidateID unless the key is already bound, in which case the stored
// id comes back and created is false. Concurrent callers racing on the
// same key all observe the single winning id.
type Repository interface {
	GetOrCreate(ctx context.Context, kind Kind, naturalKey, candidateID string) (internalID string, created bool, err error)
	Lookup(ctx context.Context, kind Kind, naturalKey string) (internalID string, ok bool, err error)
}
