package usecase

import (
	"context"
	"time"

	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
)

// StatsProvider is the box-score and reference data source. Implementors
// return parsed rows plus the raw payloads they were decoded from so the
// pipeline can archive them.
type StatsProvider interface {
	FetchTeams(ctx context.Context) ([]ExternalTeam, []rawdata.Payload, error)
	FetchPlayers(ctx context.Context) ([]ExternalPlayer, []rawdata.Payload, error)
	FetchGamesForDate(ctx context.Context, date time.Time) ([]ExternalGame, []rawdata.Payload, error)
	FetchBoxScore(ctx context.Context, gameRef string) ([]ExternalStatLine, []rawdata.Payload, error)
}

// InjuryProvider scrapes availability reports from the configured
// sources. A partial result with per-source errors is a valid outcome.
type InjuryProvider interface {
	FetchAll(ctx context.Context) ([]ExternalInjuryReport, []rawdata.Payload, []error)
}

type ExternalTeam struct {
	Name         string
	Abbreviation string
	City         string
	Conference   string
	Division     string
}

type ExternalPlayer struct {
	FullName     string
	TeamName     string
	Position     string
	JerseyNumber string
	HeightRaw    string
	WeightRaw    string
}

type ExternalGame struct {
	GameRef      string
	GameDate     string
	HomeTeamName string
	AwayTeamName string
	HomeScore    *int
	AwayScore    *int
	Status       string
	SeasonType   string
}

type ExternalStatLine struct {
	GameRef        string
	PlayerName     string
	TeamName       string
	MinutesRaw     string
	Points         float64
	Rebounds       float64
	Assists        float64
	Steals         float64
	Blocks         float64
	Turnovers      float64
	FieldGoalsMade float64
	FieldGoalsAtt  float64
	ThreesMade     float64
	ThreesAtt      float64
	FreeThrowsMade float64
	FreeThrowsAtt  float64
	StartPosition  string
}

type ExternalInjuryReport struct {
	PlayerName string
	TeamName   string
	StatusRaw  string
	Detail     string
	Source     string
	SourceURL  string
	ObservedAt time.Time
}
