package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/injury"
	"github.com/courtmetrics/hoop-ingest/internal/domain/playerstat"
	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
)

type PlayerStatRepository struct {
	mu    sync.RWMutex
	lines map[string]playerstat.Line
}

func NewPlayerStatRepository() *PlayerStatRepository {
	return &PlayerStatRepository{lines: make(map[string]playerstat.Line)}
}

func (r *PlayerStatRepository) InsertMany(_ context.Context, lines []playerstat.Line) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, line := range lines {
		key := line.PlayerID + "\x1f" + line.GameID
		if _, ok := r.lines[key]; ok {
			result.Skipped++
			continue
		}
		r.lines[key] = line
		result.Inserted++
	}
	return result, nil
}

func (r *PlayerStatRepository) ListByGame(_ context.Context, gameID string) ([]playerstat.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []playerstat.Line
	for _, line := range r.lines {
		if line.GameID == gameID {
			out = append(out, line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (r *PlayerStatRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lines)
}

type InjuryRepository struct {
	mu      sync.RWMutex
	reports map[string]injury.Report
}

func NewInjuryRepository() *InjuryRepository {
	return &InjuryRepository{reports: make(map[string]injury.Report)}
}

func (r *InjuryRepository) InsertMany(_ context.Context, reports []injury.Report) (ingest.BatchResult, error) {
	var result ingest.BatchResult
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, report := range reports {
		who := report.PlayerID
		if who == "" {
			who = report.RawPlayerName
		}
		key := who + "\x1f" + string(report.Status) + "\x1f" + report.ObservedAt.UTC().Format("2006-01-02")
		if _, ok := r.reports[key]; ok {
			result.Skipped++
			continue
		}
		r.reports[key] = report
		result.Inserted++
	}
	return result, nil
}

func (r *InjuryRepository) ListByDay(_ context.Context, day time.Time) ([]injury.Report, error) {
	target := day.UTC().Format("2006-01-02")
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []injury.Report
	for _, report := range r.reports {
		if report.ObservedAt.UTC().Format("2006-01-02") == target {
			out = append(out, report)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawPlayerName < out[j].RawPlayerName })
	return out, nil
}

type RawDataRepository struct {
	mu       sync.Mutex
	payloads map[string]rawdata.Payload
}

func NewRawDataRepository() *RawDataRepository {
	return &RawDataRepository{payloads: make(map[string]rawdata.Payload)}
}

func (r *RawDataRepository) UpsertMany(_ context.Context, items []rawdata.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range items {
		key := item.Source + "\x1f" + item.EntityType + "\x1f" + item.EntityKey
		r.payloads[key] = item
	}
	return nil
}

func (r *RawDataRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}
