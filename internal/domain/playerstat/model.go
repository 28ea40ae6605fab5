package playerstat

import "fmt"

// Line is one player's box-score line for one game. The (PlayerID,
// GameID) pair is the natural key; rows are append-only. Advanced holds
// derived rates (true shooting, usage) that ride along as a document.
type Line struct {
	PlayerID       string
	GameID         string
	TeamID         string
	Minutes        float64
	Points         int
	Rebounds       int
	Assists        int
	Steals         int
	Blocks         int
	Turnovers      int
	FieldGoalsMade int
	FieldGoalsAtt  int
	ThreesMade     int
	ThreesAtt      int
	FreeThrowsMade int
	FreeThrowsAtt  int
	Started        bool
	Advanced       map[string]any
}

func (l Line) Validate() error {
	if l.PlayerID == "" {
		return fmt.Errorf("stat line player id is required")
	}
	if l.GameID == "" {
		return fmt.Errorf("stat line game id is required")
	}
	if l.Minutes < 0 || l.Minutes > 70 {
		return fmt.Errorf("stat line minutes out of range: %.2f", l.Minutes)
	}
	for name, v := range map[string]int{
		"points":    l.Points,
		"rebounds":  l.Rebounds,
		"assists":   l.Assists,
		"steals":    l.Steals,
		"blocks":    l.Blocks,
		"turnovers": l.Turnovers,
	} {
		if v < 0 {
			return fmt.Errorf("stat line %s must not be negative", name)
		}
	}
	if l.FieldGoalsMade > l.FieldGoalsAtt {
		return fmt.Errorf("stat line field goals made exceeds attempts")
	}
	if l.ThreesMade > l.ThreesAtt {
		return fmt.Errorf("stat line three pointers made exceeds attempts")
	}
	if l.FreeThrowsMade > l.FreeThrowsAtt {
		return fmt.Errorf("stat line free throws made exceeds attempts")
	}

	return nil
}

// TrueShootingPct derives the true shooting percentage from the line, or
// 0 when the player took no scoring attempts.
func (l Line) TrueShootingPct() float64 {
	denom := 2 * (float64(l.FieldGoalsAtt) + 0.44*float64(l.FreeThrowsAtt))
	if denom == 0 {
		return 0
	}
	return float64(l.Points) / denom
}
