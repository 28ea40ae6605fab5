package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/courtmetrics/hoop-ingest/internal/domain/game"
	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/season"
)

type GameRepository struct {
	mu    sync.RWMutex
	games map[string]game.Game
	byKey map[string]string
}

func NewGameRepository() *GameRepository {
	return &GameRepository{
		games: make(map[string]game.Game),
		byKey: make(map[string]string),
	}
}

func naturalGameKey(g game.Game) string {
	return g.GameDate.Format("2006-01-02") + "\x1f" + g.HomeTeamID + "\x1f" + g.AwayTeamID
}

func (r *GameRepository) InsertMany(_ context.Context, games []game.Game) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range games {
		key := naturalGameKey(g)
		if _, ok := r.byKey[key]; ok {
			result.Skipped++
			continue
		}
		r.games[g.ID] = g
		r.byKey[key] = g.ID
		result.Inserted++
	}
	return result, nil
}

func (r *GameRepository) ListByDate(_ context.Context, date time.Time) ([]game.Game, error) {
	day := date.Format("2006-01-02")
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []game.Game
	for _, g := range r.games {
		if g.GameDate.Format("2006-01-02") == day {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len reports stored games, handy for idempotence assertions.
func (r *GameRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// SeasonRepository keeps immutable seasons keyed by year pair and type.
type SeasonRepository struct {
	mu      sync.RWMutex
	seasons map[string]season.Season
}

func NewSeasonRepository() *SeasonRepository {
	return &SeasonRepository{seasons: make(map[string]season.Season)}
}

func (r *SeasonRepository) InsertMany(_ context.Context, seasons []season.Season) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, se := range seasons {
		key := se.Label() + "\x1f" + se.SeasonType
		if _, ok := r.seasons[key]; ok {
			continue
		}
		r.seasons[key] = se
	}
	return nil
}

func (r *SeasonRepository) GetByID(_ context.Context, seasonID string) (season.Season, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, se := range r.seasons {
		if se.ID == seasonID {
			return se, true, nil
		}
	}
	return season.Season{}, false, nil
}
