package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/courtmetrics/hoop-ingest/internal/domain/game"
	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
	"github.com/courtmetrics/hoop-ingest/internal/domain/injury"
	"github.com/courtmetrics/hoop-ingest/internal/domain/player"
	"github.com/courtmetrics/hoop-ingest/internal/domain/playerstat"
	"github.com/courtmetrics/hoop-ingest/internal/domain/season"
	"github.com/courtmetrics/hoop-ingest/internal/domain/team"
)

// identityResolver is the slice of IdentityService the transformer needs.
type identityResolver interface {
	Resolve(ctx context.Context, kind identity.Kind, naturalKey string) (string, error)
	Lookup(ctx context.Context, kind identity.Kind, naturalKey string) (string, bool, error)
}

// TransformService turns validated source records into domain entities
// with every reference resolved to an internal id. Rows whose required
// references cannot resolve are dropped and reported, never persisted
// half-linked. Optional references stay unset when unresolved.
type TransformService struct {
	resolver identityResolver
}

func NewTransformService(resolver identityResolver) *TransformService {
	return &TransformService{resolver: resolver}
}

// RowDrop records one row excluded during transformation.
type RowDrop struct {
	Key string
	Err error
}

func (s *TransformService) TeamsFromValid(ctx context.Context, rows []ValidTeam) ([]team.Team, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransformService.TeamsFromValid")
	defer span.End()

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		teamID, err := s.resolver.Resolve(ctx, identity.KindTeam, row.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, team.Team{
			ID:           teamID,
			Name:         row.Name,
			Abbreviation: row.Abbreviation,
			City:         row.City,
			Conference:   row.Conference,
			Division:     row.Division,
		})
	}
	return out, nil
}

func (s *TransformService) PlayersFromValid(ctx context.Context, rows []ValidPlayer) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransformService.PlayersFromValid")
	defer span.End()

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		playerID, err := s.resolver.Resolve(ctx, identity.KindPlayer, row.FullName)
		if err != nil {
			return nil, err
		}
		p := player.Player{
			ID:           playerID,
			FullName:     row.FullName,
			Position:     row.Position,
			JerseyNumber: row.JerseyNumber,
			HeightMeters: row.HeightMeters,
			WeightKg:     row.WeightKg,
		}
		// Team affiliation is optional; a roster row without a known
		// team stays unaffiliated.
		if row.TeamName != "" {
			if teamID, ok, err := s.resolver.Lookup(ctx, identity.KindTeam, row.TeamName); err != nil {
				return nil, err
			} else if ok {
				p.TeamID = teamID
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// GamesFromValid resolves games plus the seasons they belong to. The
// returned map binds each source game ref to its internal game id for
// downstream stat rows.
func (s *TransformService) GamesFromValid(ctx context.Context, rows []ValidGame) ([]game.Game, []season.Season, map[string]string, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransformService.GamesFromValid")
	defer span.End()

	games := make([]game.Game, 0, len(rows))
	gameIDByRef := make(map[string]string, len(rows))
	seasons := make([]season.Season, 0, 1)
	seasonSeen := make(map[string]struct{}, 1)

	for _, row := range rows {
		homeID, err := s.resolver.Resolve(ctx, identity.KindTeam, row.HomeTeamName)
		if err != nil {
			return nil, nil, nil, err
		}
		awayID, err := s.resolver.Resolve(ctx, identity.KindTeam, row.AwayTeamName)
		if err != nil {
			return nil, nil, nil, err
		}

		yearStart, yearEnd := season.YearsForDate(row.GameDate)
		seasonType := normalizeSeasonType(row.SeasonType)
		seasonKey := identity.CompositeKey(fmt.Sprintf("%d-%d", yearStart, yearEnd), seasonType)
		seasonID, err := s.resolver.Resolve(ctx, identity.KindSeason, seasonKey)
		if err != nil {
			return nil, nil, nil, err
		}
		if _, ok := seasonSeen[seasonID]; !ok {
			seasonSeen[seasonID] = struct{}{}
			seasons = append(seasons, season.Season{
				ID:         seasonID,
				YearStart:  yearStart,
				YearEnd:    yearEnd,
				SeasonType: seasonType,
			})
		}

		gameKey := identity.CompositeKey(row.GameDate.Format("2006-01-02"), row.HomeTeamName, row.AwayTeamName)
		gameID, err := s.resolver.Resolve(ctx, identity.KindGame, gameKey)
		if err != nil {
			return nil, nil, nil, err
		}

		g := game.Game{
			ID:         gameID,
			SeasonID:   seasonID,
			GameDate:   row.GameDate,
			HomeTeamID: homeID,
			AwayTeamID: awayID,
			HomeScore:  row.HomeScore,
			AwayScore:  row.AwayScore,
			Status:     normalizeGameStatus(row.Status),
			SourceRef:  row.GameRef,
		}
		games = append(games, g)
		if row.GameRef != "" {
			gameIDByRef[row.GameRef] = gameID
		}
	}
	return games, seasons, gameIDByRef, nil
}

// StatLinesFromValid builds box-score lines. Game and player references
// are required: a line whose ref is missing from gameIDByRef, or whose
// player name was never seen in the roster feed, is dropped rather than
// minting an identity from box-score text.
func (s *TransformService) StatLinesFromValid(ctx context.Context, gameIDByRef map[string]string, rows []ValidStatLine) ([]playerstat.Line, []RowDrop, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransformService.StatLinesFromValid")
	defer span.End()

	lines := make([]playerstat.Line, 0, len(rows))
	var drops []RowDrop
	for _, row := range rows {
		gameID, ok := gameIDByRef[row.GameRef]
		if !ok {
			drops = append(drops, RowDrop{
				Key: row.PlayerName + "@" + row.GameRef,
				Err: &UnresolvedReferenceError{Field: "game_id"},
			})
			continue
		}
		playerID, ok, err := s.resolver.Lookup(ctx, identity.KindPlayer, row.PlayerName)
		if err != nil {
			return nil, drops, err
		}
		if !ok {
			drops = append(drops, RowDrop{
				Key: row.PlayerName + "@" + row.GameRef,
				Err: &UnresolvedReferenceError{Field: "player_id"},
			})
			continue
		}

		line := playerstat.Line{
			PlayerID:       playerID,
			GameID:         gameID,
			Minutes:        row.Minutes,
			Points:         row.Points,
			Rebounds:       row.Rebounds,
			Assists:        row.Assists,
			Steals:         row.Steals,
			Blocks:         row.Blocks,
			Turnovers:      row.Turnovers,
			FieldGoalsMade: row.FieldGoalsMade,
			FieldGoalsAtt:  row.FieldGoalsAtt,
			ThreesMade:     row.ThreesMade,
			ThreesAtt:      row.ThreesAtt,
			FreeThrowsMade: row.FreeThrowsMade,
			FreeThrowsAtt:  row.FreeThrowsAtt,
			Started:        row.Started,
		}
		if row.TeamName != "" {
			if teamID, ok, err := s.resolver.Lookup(ctx, identity.KindTeam, row.TeamName); err != nil {
				return nil, drops, err
			} else if ok {
				line.TeamID = teamID
			}
		}
		line.Advanced = advancedStats(line, rows, row)
		lines = append(lines, line)
	}
	return lines, drops, nil
}

// InjuriesFromValid resolves injury rows best-effort: player and team
// are optional references looked up without creating identities from
// scraped name text.
func (s *TransformService) InjuriesFromValid(ctx context.Context, rows []ValidInjury) ([]injury.Report, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransformService.InjuriesFromValid")
	defer span.End()

	out := make([]injury.Report, 0, len(rows))
	for _, row := range rows {
		r := injury.Report{
			RawPlayerName: row.PlayerName,
			Status:        row.Status,
			Detail:        row.Detail,
			Source:        row.Source,
			SourceURL:     row.SourceURL,
			ObservedAt:    row.ObservedAt,
		}
		if playerID, ok, err := s.resolver.Lookup(ctx, identity.KindPlayer, row.PlayerName); err != nil {
			return nil, err
		} else if ok {
			r.PlayerID = playerID
		}
		if row.TeamName != "" {
			if teamID, ok, err := s.resolver.Lookup(ctx, identity.KindTeam, row.TeamName); err != nil {
				return nil, err
			} else if ok {
				r.TeamID = teamID
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// advancedStats derives rate stats for one line. True shooting needs
// only the line itself; usage rate needs the team totals from the same
// game, computed over the batch being transformed.
func advancedStats(line playerstat.Line, batch []ValidStatLine, row ValidStatLine) map[string]any {
	adv := map[string]any{
		"true_shooting_pct": line.TrueShootingPct(),
	}
	var tmMinutes, tmFGA, tmFTA, tmTOV float64
	for _, other := range batch {
		if other.GameRef != row.GameRef || other.TeamName != row.TeamName {
			continue
		}
		tmMinutes += other.Minutes
		tmFGA += float64(other.FieldGoalsAtt)
		tmFTA += float64(other.FreeThrowsAtt)
		tmTOV += float64(other.Turnovers)
	}
	teamPoss := tmFGA + 0.44*tmFTA + tmTOV
	if line.Minutes > 0 && teamPoss > 0 && tmMinutes > 0 {
		playerPoss := float64(line.FieldGoalsAtt) + 0.44*float64(line.FreeThrowsAtt) + float64(line.Turnovers)
		adv["usage_rate"] = 100 * playerPoss * (tmMinutes / 5) / (line.Minutes * teamPoss)
	}
	return adv
}

func normalizeSeasonType(raw string) string {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PLAYOFFS", "PLAYOFF", "POST SEASON", "POSTSEASON":
		return season.TypePlayoffs
	case "PRESEASON", "PRE SEASON":
		return season.TypePreseason
	default:
		return season.TypeRegular
	}
}

func normalizeGameStatus(raw string) string {
	switch {
	case raw == "":
		return game.StatusScheduled
	case strings.Contains(raw, "FINAL"):
		return game.StatusFinal
	case strings.Contains(raw, "POSTPONED") || strings.Contains(raw, "PPD"):
		return game.StatusPostponed
	case strings.Contains(raw, "QTR") || strings.Contains(raw, "HALF") || raw == "LIVE":
		return game.StatusLive
	default:
		return game.StatusScheduled
	}
}
