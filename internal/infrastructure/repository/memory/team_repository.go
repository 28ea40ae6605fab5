package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/team"
)

type TeamRepository struct {
	mu    sync.RWMutex
	teams map[string]team.Team
}

func NewTeamRepository() *TeamRepository {
	return &TeamRepository{teams: make(map[string]team.Team)}
}

func (r *TeamRepository) UpsertMany(_ context.Context, teams []team.Team) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range teams {
		existing, ok := r.teams[t.ID]
		if !ok {
			r.teams[t.ID] = t
			result.Inserted++
			continue
		}
		r.teams[t.ID] = mergeTeam(existing, t)
		result.Updated++
	}
	return result, nil
}

// mergeTeam fills gaps on the stored row and never overwrites set
// values, mirroring the postgres COALESCE merge.
func mergeTeam(existing, incoming team.Team) team.Team {
	if existing.Name == "" {
		existing.Name = incoming.Name
	}
	if existing.Abbreviation == "" {
		existing.Abbreviation = incoming.Abbreviation
	}
	if existing.City == "" {
		existing.City = incoming.City
	}
	if existing.Conference == "" {
		existing.Conference = incoming.Conference
	}
	if existing.Division == "" {
		existing.Division = incoming.Division
	}
	return existing
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[teamID]
	return t, ok, nil
}

func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]team.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
