package game

import (
	"fmt"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinal     = "FINAL"
	StatusPostponed = "POSTPONED"
)

// Game is a single contest between two resolved teams on a date.
// The (GameDate, HomeTeamID, AwayTeamID) triple is the natural key;
// rows are append-only.
type Game struct {
	ID         string
	SeasonID   string
	GameDate   time.Time
	HomeTeamID string
	AwayTeamID string
	HomeScore  *int
	AwayScore  *int
	Status     string
	SourceRef  string
}

func (g Game) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("game id is required")
	}
	if g.SeasonID == "" {
		return fmt.Errorf("game season id is required")
	}
	if g.HomeTeamID == "" || g.AwayTeamID == "" {
		return fmt.Errorf("game team ids are required")
	}
	if g.HomeTeamID == g.AwayTeamID {
		return fmt.Errorf("game teams must differ")
	}
	if g.GameDate.IsZero() {
		return fmt.Errorf("game date is required")
	}

	return nil
}
