package identity

import (
	"strings"
	"time"
)

// Kind names the entity family a natural key belongs to. Keys are only
// unique within a kind.
type Kind string

const (
	KindTeam   Kind = "team"
	KindPlayer Kind = "player"
	KindSeason Kind = "season"
	KindGame   Kind = "game"
)

// Mapping is one append-only row of the identity map: an external
// natural key bound forever to an internal id.
type Mapping struct {
	EntityKind Kind
	NaturalKey string
	InternalID string
	CreatedAt  time.Time
}

// NormalizeKey canonicalizes a natural key: trimmed, case-folded, inner
// whitespace runs collapsed to one space. Two source spellings that
// normalize equal resolve to the same identity; distinct people whose
// names collide this way share an id, which is accepted rather than
// guessed around.
func NormalizeKey(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// CompositeKey builds a scoped natural key from ordered parts, each part
// normalized independently. The separator cannot occur in normalized
// text.
func CompositeKey(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = NormalizeKey(p)
	}
	return strings.Join(normalized, "|")
}
