package injury

import (
	"fmt"
	"strings"
	"time"
)

// Status is the closed set injury designations collapse into.
type Status string

const (
	StatusOut          Status = "OUT"
	StatusQuestionable Status = "QUESTIONABLE"
	StatusProbable     Status = "PROBABLE"
	StatusAvailable    Status = "AVAILABLE"
	StatusUnknown      Status = "UNKNOWN"
)

// statusSynonyms maps the designations seen across source sites onto the
// closed set. Lookup keys are lower-cased trimmed text.
var statusSynonyms = map[string]Status{
	"out":                StatusOut,
	"injured":            StatusOut,
	"suspended":          StatusOut,
	"questionable":       StatusQuestionable,
	"doubtful":           StatusQuestionable,
	"day-to-day":         StatusQuestionable,
	"day to day":         StatusQuestionable,
	"dtd":                StatusQuestionable,
	"gtd":                StatusQuestionable,
	"game time decision": StatusQuestionable,
	"probable":           StatusProbable,
	"available":          StatusAvailable,
	"active":             StatusAvailable,
	"healthy":            StatusAvailable,
}

// NormalizeStatus collapses free-form designation text onto the closed
// status set. Unrecognized text maps to StatusUnknown rather than failing
// the row.
func NormalizeStatus(raw string) Status {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusSynonyms[key]; ok {
		return s
	}
	return StatusUnknown
}

// Report is one observation of a player's availability from one source.
// PlayerID and TeamID stay empty when the site's name could not be
// resolved; RawPlayerName always carries the scraped text.
type Report struct {
	PlayerID      string
	TeamID        string
	RawPlayerName string
	Status        Status
	Detail        string
	Source        string
	SourceURL     string
	ObservedAt    time.Time
}

func (r Report) Validate() error {
	if r.RawPlayerName == "" {
		return fmt.Errorf("injury report player name is required")
	}
	if r.Source == "" {
		return fmt.Errorf("injury report source is required")
	}
	if r.ObservedAt.IsZero() {
		return fmt.Errorf("injury report observation time is required")
	}

	return nil
}

// identityKey is the equivalence key two reports duplicate each other
// under: the resolved player when available, otherwise the normalized
// scraped name, plus the normalized status.
func (r Report) identityKey() string {
	who := r.PlayerID
	if who == "" {
		who = strings.Join(strings.Fields(strings.ToLower(r.RawPlayerName)), " ")
	}
	return who + "\x1f" + string(r.Status)
}
