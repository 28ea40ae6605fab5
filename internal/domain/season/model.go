package season

import (
	"fmt"
	"time"
)

const (
	TypeRegular   = "REGULAR"
	TypePlayoffs  = "PLAYOFFS"
	TypePreseason = "PRESEASON"
)

// Season is one NBA season, e.g. 2024-2025 regular season. Rows are
// immutable once created.
type Season struct {
	ID         string
	YearStart  int
	YearEnd    int
	SeasonType string
}

func (s Season) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("season id is required")
	}
	if s.YearEnd != s.YearStart+1 {
		return fmt.Errorf("season years must be consecutive: %d-%d", s.YearStart, s.YearEnd)
	}
	switch s.SeasonType {
	case TypeRegular, TypePlayoffs, TypePreseason:
	default:
		return fmt.Errorf("invalid season type: %s", s.SeasonType)
	}

	return nil
}

// Label renders the season in the provider's "2024-25" form.
func (s Season) Label() string {
	return fmt.Sprintf("%d-%02d", s.YearStart, s.YearEnd%100)
}

// YearsForDate maps a game date onto its season's year pair. An NBA
// season spans two calendar years; August is the earliest month a new
// season's games appear.
func YearsForDate(d time.Time) (int, int) {
	if d.Month() >= time.August {
		return d.Year(), d.Year() + 1
	}
	return d.Year() - 1, d.Year()
}
