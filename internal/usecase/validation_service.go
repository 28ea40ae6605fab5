package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/courtmetrics/hoop-ingest/internal/domain/injury"
)

// ValidationService checks raw source records before identity resolution.
// Coercion first (dates, minutes, body measurements, whole counts), then
// structural checks through validator tags. Pure, no I/O.
type ValidationService struct {
	validate *validator.Validate
}

func NewValidationService() *ValidationService {
	return &ValidationService{validate: validator.New()}
}

// ValidTeam is a team record that passed validation.
type ValidTeam struct {
	Name         string `validate:"required"`
	Abbreviation string
	City         string
	Conference   string
	Division     string
}

// ValidPlayer is a player record that passed validation. Height and
// weight stay nil when the source text was absent or unparseable.
type ValidPlayer struct {
	FullName     string `validate:"required"`
	TeamName     string
	Position     string
	JerseyNumber *int
	HeightMeters *float64
	WeightKg     *float64
}

type ValidGame struct {
	GameRef      string
	GameDate     time.Time
	HomeTeamName string `validate:"required"`
	AwayTeamName string `validate:"required,nefield=HomeTeamName"`
	HomeScore    *int
	AwayScore    *int
	Status       string
	SeasonType   string
}

// ValidStatLine carries whole counts already truncated toward zero.
type ValidStatLine struct {
	GameRef        string `validate:"required"`
	PlayerName     string `validate:"required"`
	TeamName       string
	Minutes        float64 `validate:"gte=0,lte=70"`
	Points         int     `validate:"gte=0"`
	Rebounds       int     `validate:"gte=0"`
	Assists        int     `validate:"gte=0"`
	Steals         int     `validate:"gte=0"`
	Blocks         int     `validate:"gte=0"`
	Turnovers      int     `validate:"gte=0"`
	FieldGoalsMade int     `validate:"gte=0,ltefield=FieldGoalsAtt"`
	FieldGoalsAtt  int     `validate:"gte=0"`
	ThreesMade     int     `validate:"gte=0,ltefield=ThreesAtt"`
	ThreesAtt      int     `validate:"gte=0"`
	FreeThrowsMade int     `validate:"gte=0,ltefield=FreeThrowsAtt"`
	FreeThrowsAtt  int     `validate:"gte=0"`
	Started        bool
}

type ValidInjury struct {
	PlayerName string `validate:"required"`
	TeamName   string
	Status     injury.Status
	Detail     string
	Source     string `validate:"required"`
	SourceURL  string
	ObservedAt time.Time
}

func (s *ValidationService) ValidateTeam(raw ExternalTeam) (ValidTeam, error) {
	out := ValidTeam{
		Name:         strings.TrimSpace(raw.Name),
		Abbreviation: strings.ToUpper(strings.TrimSpace(raw.Abbreviation)),
		City:         strings.TrimSpace(raw.City),
		Conference:   strings.TrimSpace(raw.Conference),
		Division:     strings.TrimSpace(raw.Division),
	}
	if err := s.validate.Struct(out); err != nil {
		return ValidTeam{}, &ValidationError{Field: "name", Reason: "team name is required"}
	}
	return out, nil
}

func (s *ValidationService) ValidatePlayer(raw ExternalPlayer) (ValidPlayer, error) {
	out := ValidPlayer{
		FullName: strings.TrimSpace(raw.FullName),
		TeamName: strings.TrimSpace(raw.TeamName),
		Position: strings.ToUpper(strings.TrimSpace(raw.Position)),
	}
	if jersey := strings.TrimSpace(raw.JerseyNumber); jersey != "" {
		if n, err := strconv.Atoi(jersey); err == nil && n >= 0 {
			out.JerseyNumber = &n
		}
	}
	if h, ok := parseHeightMeters(raw.HeightRaw); ok {
		out.HeightMeters = &h
	}
	if w, ok := parseWeightKg(raw.WeightRaw); ok {
		out.WeightKg = &w
	}
	if err := s.validate.Struct(out); err != nil {
		return ValidPlayer{}, &ValidationError{Field: "full_name", Reason: "player name is required"}
	}
	return out, nil
}

func (s *ValidationService) ValidateGame(raw ExternalGame) (ValidGame, error) {
	gameDate, err := ParseSourceDate(raw.GameDate)
	if err != nil {
		return ValidGame{}, &ValidationError{Field: "game_date", Reason: err.Error()}
	}
	out := ValidGame{
		GameRef:      strings.TrimSpace(raw.GameRef),
		GameDate:     gameDate,
		HomeTeamName: strings.TrimSpace(raw.HomeTeamName),
		AwayTeamName: strings.TrimSpace(raw.AwayTeamName),
		HomeScore:    raw.HomeScore,
		AwayScore:    raw.AwayScore,
		Status:       strings.ToUpper(strings.TrimSpace(raw.Status)),
		SeasonType:   strings.TrimSpace(raw.SeasonType),
	}
	if err := s.validate.Struct(out); err != nil {
		return ValidGame{}, validationErrorFor(err, "game")
	}
	if (out.HomeScore == nil) != (out.AwayScore == nil) {
		return ValidGame{}, &ValidationError{Field: "scores", Reason: "scores must be set together or not at all"}
	}
	return out, nil
}

func (s *ValidationService) ValidateStatLine(raw ExternalStatLine) (ValidStatLine, error) {
	minutes, err := ParseMinutes(raw.MinutesRaw)
	if err != nil {
		return ValidStatLine{}, &ValidationError{Field: "minutes", Reason: err.Error()}
	}
	out := ValidStatLine{
		GameRef:        strings.TrimSpace(raw.GameRef),
		PlayerName:     strings.TrimSpace(raw.PlayerName),
		TeamName:       strings.TrimSpace(raw.TeamName),
		Minutes:        minutes,
		Points:         TruncateCount(raw.Points),
		Rebounds:       TruncateCount(raw.Rebounds),
		Assists:        TruncateCount(raw.Assists),
		Steals:         TruncateCount(raw.Steals),
		Blocks:         TruncateCount(raw.Blocks),
		Turnovers:      TruncateCount(raw.Turnovers),
		FieldGoalsMade: TruncateCount(raw.FieldGoalsMade),
		FieldGoalsAtt:  TruncateCount(raw.FieldGoalsAtt),
		ThreesMade:     TruncateCount(raw.ThreesMade),
		ThreesAtt:      TruncateCount(raw.ThreesAtt),
		FreeThrowsMade: TruncateCount(raw.FreeThrowsMade),
		FreeThrowsAtt:  TruncateCount(raw.FreeThrowsAtt),
		Started:        strings.TrimSpace(raw.StartPosition) != "",
	}
	if err := s.validate.Struct(out); err != nil {
		return ValidStatLine{}, validationErrorFor(err, "stat_line")
	}
	return out, nil
}

func (s *ValidationService) ValidateInjury(raw ExternalInjuryReport) (ValidInjury, error) {
	out := ValidInjury{
		PlayerName: strings.TrimSpace(raw.PlayerName),
		TeamName:   strings.TrimSpace(raw.TeamName),
		Status:     injury.NormalizeStatus(raw.StatusRaw),
		Detail:     strings.TrimSpace(raw.Detail),
		Source:     strings.ToLower(strings.TrimSpace(raw.Source)),
		SourceURL:  strings.TrimSpace(raw.SourceURL),
		ObservedAt: raw.ObservedAt,
	}
	if err := s.validate.Struct(out); err != nil {
		return ValidInjury{}, validationErrorFor(err, "injury")
	}
	if out.ObservedAt.IsZero() {
		return ValidInjury{}, &ValidationError{Field: "observed_at", Reason: "observation time is required"}
	}
	return out, nil
}

func validationErrorFor(err error, record string) *ValidationError {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return &ValidationError{
			Field:  record + "." + strings.ToLower(first.Field()),
			Reason: fmt.Sprintf("failed %s check", first.Tag()),
		}
	}
	return &ValidationError{Field: record, Reason: err.Error()}
}

// sourceDateLayouts are the date shapes seen across providers, tried in
// order.
var sourceDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"Jan 2, 2006",
}

// ParseSourceDate parses a provider date string, normalized to UTC
// midnight of the game day.
func ParseSourceDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	for _, layout := range sourceDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseMinutes converts box-score minutes to fractional minutes. Accepts
// "35:30", plain "35", empty (did not play) and decimal "35.5".
func ParseMinutes(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if mm, ss, ok := strings.Cut(raw, ":"); ok {
		m, err := strconv.Atoi(strings.TrimSpace(mm))
		if err != nil {
			return 0, fmt.Errorf("unrecognized minutes %q", raw)
		}
		s, err := strconv.Atoi(strings.TrimSpace(ss))
		if err != nil || s < 0 || s > 59 {
			return 0, fmt.Errorf("unrecognized minutes %q", raw)
		}
		return float64(m) + float64(s)/60, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized minutes %q", raw)
	}
	return v, nil
}

// TruncateCount coerces a numeric cell to a whole count, truncating
// toward zero rather than rounding.
func TruncateCount(v float64) int {
	return int(v)
}

// parseHeightMeters handles the "6-8" feet-inches form and metric
// "203cm".
func parseHeightMeters(raw string) (float64, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0, false
	}
	if cm, ok := strings.CutSuffix(raw, "cm"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(cm), 64)
		if err != nil || v <= 0 {
			return 0, false
		}
		return v / 100, true
	}
	if ft, in, ok := strings.Cut(raw, "-"); ok {
		f, errF := strconv.Atoi(strings.TrimSpace(ft))
		i, errI := strconv.Atoi(strings.TrimSpace(in))
		if errF != nil || errI != nil || f < 0 || i < 0 || i > 11 {
			return 0, false
		}
		return (float64(f)*12 + float64(i)) * 0.0254, true
	}
	return 0, false
}

// parseWeightKg handles "215 lbs" and metric "98kg".
func parseWeightKg(raw string) (float64, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return 0, false
	}
	if kg, ok := strings.CutSuffix(raw, "kg"); ok {
		v, err := strconv.ParseFloat(strings.TrimSpace(kg), 64)
		if err != nil || v <= 0 {
			return 0, false
		}
		return v, true
	}
	cut := strings.TrimSuffix(strings.TrimSuffix(raw, "lbs"), "lb")
	v, err := strconv.ParseFloat(strings.TrimSpace(cut), 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v * 0.45359237, true
}
