package team

import "fmt"

// Team is an NBA franchise resolved to a stable internal identity.
type Team struct {
	ID           string
	Name         string
	Abbreviation string
	City         string
	Conference   string
	Division     string
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
