package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/courtmetrics/hoop-ingest/internal/domain/game"
	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/injury"
	"github.com/courtmetrics/hoop-ingest/internal/domain/player"
	"github.com/courtmetrics/hoop-ingest/internal/domain/playerstat"
	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
	"github.com/courtmetrics/hoop-ingest/internal/domain/season"
	"github.com/courtmetrics/hoop-ingest/internal/domain/team"
)

// IngestionService is the write gateway for resolved entities. Reference
// kinds merge without null-overwrite, event kinds append and skip
// duplicates, and every batch returns a full row accounting.
type IngestionService struct {
	teamRepo    team.Repository
	playerRepo  player.Repository
	seasonRepo  season.Repository
	gameRepo    game.Repository
	statRepo    playerstat.Repository
	injuryRepo  injury.Repository
	rawDataRepo rawdata.Repository
}

func NewIngestionService(
	teamRepo team.Repository,
	playerRepo player.Repository,
	seasonRepo season.Repository,
	gameRepo game.Repository,
	statRepo playerstat.Repository,
	injuryRepo injury.Repository,
	rawDataRepo rawdata.Repository,
) *IngestionService {
	return &IngestionService{
		teamRepo:    teamRepo,
		playerRepo:  playerRepo,
		seasonRepo:  seasonRepo,
		gameRepo:    gameRepo,
		statRepo:    statRepo,
		injuryRepo:  injuryRepo,
		rawDataRepo: rawDataRepo,
	}
}

func (s *IngestionService) UpsertTeams(ctx context.Context, teams []team.Team) (ingest.BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertTeams")
	defer span.End()

	if len(teams) == 0 {
		return ingest.BatchResult{}, nil
	}
	for _, t := range teams {
		if err := t.Validate(); err != nil {
			return ingest.BatchResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	res, err := s.teamRepo.UpsertMany(ctx, teams)
	if err != nil {
		return ingest.BatchResult{}, &PersistenceError{Op: "teams", Err: err}
	}
	return res, nil
}

func (s *IngestionService) UpsertPlayers(ctx context.Context, players []player.Player) (ingest.BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertPlayers")
	defer span.End()

	if len(players) == 0 {
		return ingest.BatchResult{}, nil
	}
	for _, p := range players {
		if err := p.Validate(); err != nil {
			return ingest.BatchResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	res, err := s.playerRepo.UpsertMany(ctx, players)
	if err != nil {
		return ingest.BatchResult{}, &PersistenceError{Op: "players", Err: err}
	}
	return res, nil
}

func (s *IngestionService) InsertSeasons(ctx context.Context, seasons []season.Season) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.InsertSeasons")
	defer span.End()

	if len(seasons) == 0 {
		return nil
	}
	for _, se := range seasons {
		if err := se.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if err := s.seasonRepo.InsertMany(ctx, seasons); err != nil {
		return &PersistenceError{Op: "seasons", Err: err}
	}
	return nil
}

func (s *IngestionService) InsertGames(ctx context.Context, games []game.Game) (ingest.BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.InsertGames")
	defer span.End()

	if len(games) == 0 {
		return ingest.BatchResult{}, nil
	}
	for _, g := range games {
		if err := g.Validate(); err != nil {
			return ingest.BatchResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	res, err := s.gameRepo.InsertMany(ctx, games)
	if err != nil {
		return ingest.BatchResult{}, &PersistenceError{Op: "games", Err: err}
	}
	return res, nil
}

func (s *IngestionService) InsertStatLines(ctx context.Context, lines []playerstat.Line) (ingest.BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.InsertStatLines")
	defer span.End()

	if len(lines) == 0 {
		return ingest.BatchResult{}, nil
	}
	for _, l := range lines {
		if err := l.Validate(); err != nil {
			return ingest.BatchResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	res, err := s.statRepo.InsertMany(ctx, lines)
	if err != nil {
		return ingest.BatchResult{}, &PersistenceError{Op: "player_game_stats", Err: err}
	}
	return res, nil
}

func (s *IngestionService) InsertInjuryReports(ctx context.Context, reports []injury.Report) (ingest.BatchResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.InsertInjuryReports")
	defer span.End()

	if len(reports) == 0 {
		return ingest.BatchResult{}, nil
	}
	for _, r := range reports {
		if err := r.Validate(); err != nil {
			return ingest.BatchResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	res, err := s.injuryRepo.InsertMany(ctx, reports)
	if err != nil {
		return ingest.BatchResult{}, &PersistenceError{Op: "injury_reports", Err: err}
	}
	return res, nil
}

// UpsertRawPayloads archives raw provider bodies. A nil raw repository
// disables archiving rather than failing the run.
func (s *IngestionService) UpsertRawPayloads(ctx context.Context, source string, items []rawdata.Payload) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IngestionService.UpsertRawPayloads")
	defer span.End()

	if s.rawDataRepo == nil || len(items) == 0 {
		return nil
	}

	source = strings.ToLower(strings.TrimSpace(source))
	cleaned := make([]rawdata.Payload, 0, len(items))
	for _, item := range items {
		if item.Source == "" {
			item.Source = source
		}
		item.EntityType = strings.ToLower(strings.TrimSpace(item.EntityType))
		item.EntityKey = strings.TrimSpace(item.EntityKey)
		item.PayloadJSON = strings.TrimSpace(item.PayloadJSON)
		if item.EntityType == "" || item.EntityKey == "" || item.PayloadJSON == "" {
			return fmt.Errorf("%w: entity_type, entity_key and payload are required", ErrInvalidInput)
		}

		hash := sha256.Sum256([]byte(item.PayloadJSON))
		item.PayloadHash = hex.EncodeToString(hash[:])
		cleaned = append(cleaned, item)
	}

	if err := s.rawDataRepo.UpsertMany(ctx, cleaned); err != nil {
		return &PersistenceError{Op: "raw_payloads", Err: err}
	}
	return nil
}
