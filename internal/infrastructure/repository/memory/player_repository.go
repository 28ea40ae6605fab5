package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/player"
)

type PlayerRepository struct {
	mu      sync.RWMutex
	players map[string]player.Player
}

func NewPlayerRepository() *PlayerRepository {
	return &PlayerRepository{players: make(map[string]player.Player)}
}

func (r *PlayerRepository) UpsertMany(_ context.Context, players []player.Player) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range players {
		existing, ok := r.players[p.ID]
		if !ok {
			r.players[p.ID] = p
			result.Inserted++
			continue
		}
		r.players[p.ID] = mergePlayer(existing, p)
		result.Updated++
	}
	return result, nil
}

func mergePlayer(existing, incoming player.Player) player.Player {
	// Team affiliation may move; everything else only fills gaps.
	if incoming.TeamID != "" {
		existing.TeamID = incoming.TeamID
	}
	if existing.FullName == "" {
		existing.FullName = incoming.FullName
	}
	if existing.Position == "" {
		existing.Position = incoming.Position
	}
	if existing.JerseyNumber == nil {
		existing.JerseyNumber = incoming.JerseyNumber
	}
	if existing.HeightMeters == nil {
		existing.HeightMeters = incoming.HeightMeters
	}
	if existing.WeightKg == nil {
		existing.WeightKg = incoming.WeightKg
	}
	return existing
}

func (r *PlayerRepository) GetByID(_ context.Context, playerID string) (player.Player, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[playerID]
	return p, ok, nil
}

func (r *PlayerRepository) List(_ context.Context) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]player.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}
