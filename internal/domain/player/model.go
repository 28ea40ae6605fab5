package player

import "fmt"

// Player is an athlete resolved to a stable internal identity. TeamID is
// empty for unaffiliated players such as free agents.
type Player struct {
	ID           string
	TeamID       string
	FullName     string
	Position     string
	JerseyNumber *int
	HeightMeters *float64
	WeightKg     *float64
}

func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player id is required")
	}
	if p.FullName == "" {
		return fmt.Errorf("player full name is required")
	}
	if p.HeightMeters != nil && (*p.HeightMeters <= 0 || *p.HeightMeters > 3) {
		return fmt.Errorf("player height out of range: %.2f", *p.HeightMeters)
	}

	return nil
}
