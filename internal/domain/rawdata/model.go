package rawdata

import "time"

// Payload is one raw provider response retained for replay and audit.
// EntityKey scopes the payload inside its entity type, e.g. a game ref
// or a fetch date.
type Payload struct {
	Source      string
	EntityType  string
	EntityKey   string
	PayloadJSON string
	PayloadHash string
	FetchedAt   time.Time
}
