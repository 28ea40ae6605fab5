package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/courtmetrics/hoop-ingest/internal/domain/game"
	"github.com/courtmetrics/hoop-ingest/internal/domain/ingest"
	"github.com/courtmetrics/hoop-ingest/internal/domain/injury"
	"github.com/courtmetrics/hoop-ingest/internal/domain/player"
	"github.com/courtmetrics/hoop-ingest/internal/domain/playerstat"
	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
	"github.com/courtmetrics/hoop-ingest/internal/domain/season"
	"github.com/courtmetrics/hoop-ingest/internal/domain/team"
	"github.com/courtmetrics/hoop-ingest/internal/platform/logging"
)

// Stage tracks where a pipeline run is, or where it failed.
type Stage string

const (
	StagePending           Stage = "PENDING"
	StageFetchingReference Stage = "FETCHING_REFERENCE"
	StageFetchingGames     Stage = "FETCHING_GAMES"
	StageFetchingStats     Stage = "FETCHING_STATS"
	StageFetchingInjuries  Stage = "FETCHING_INJURIES"
	StageCompleted         Stage = "COMPLETED"
	StageFailed            Stage = "FAILED"
)

const (
	defaultPipelineWorkers = 4
	maxPipelineWorkers     = 16
)

// PipelineConfig bounds retries and concurrency for a pipeline instance.
type PipelineConfig struct {
	MaxWorkers        int
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	InjurySourceRanks map[string]int
}

// PipelineService drives one ingestion run end to end: fetch, validate,
// resolve, transform, persist. Each date of a range is an independent
// unit of work so one bad slate never poisons its neighbors.
type PipelineService struct {
	cfg       PipelineConfig
	stats     StatsProvider
	injuries  InjuryProvider
	validator *ValidationService
	transform *TransformService
	ingestion *IngestionService
	logger    *logging.Logger
}

func NewPipelineService(
	cfg PipelineConfig,
	stats StatsProvider,
	injuries InjuryProvider,
	validator *ValidationService,
	transform *TransformService,
	ingestion *IngestionService,
	logger *logging.Logger,
) *PipelineService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PipelineService{
		cfg:       cfg,
		stats:     stats,
		injuries:  injuries,
		validator: validator,
		transform: transform,
		ingestion: ingestion,
		logger:    logger,
	}
}

// RunInput selects what one trigger ingests. Reference-only runs leave
// both dates zero. A single date sets FromDate == ToDate.
type RunInput struct {
	FromDate         time.Time
	ToDate           time.Time
	IncludeReference bool
	IncludeInjuries  bool
	DryRun           bool
}

// FilteredRow is one row excluded from persistence with the reason.
type FilteredRow struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// DateReport accounts for one game-date unit of work.
type DateReport struct {
	Date        string             `json:"date"`
	Stage       Stage              `json:"stage"`
	FailedStage Stage              `json:"failed_stage,omitempty"`
	Message     string             `json:"message,omitempty"`
	Games       ingest.BatchResult `json:"games"`
	Stats       ingest.BatchResult `json:"stats"`
	Filtered    []FilteredRow      `json:"filtered,omitempty"`
	Invalid     []FilteredRow      `json:"invalid,omitempty"`
	DurationMs  int64              `json:"duration_ms"`
}

// ReferenceReport accounts for the team and player reference sync.
type ReferenceReport struct {
	Teams   ingest.BatchResult `json:"teams"`
	Players ingest.BatchResult `json:"players"`
	Invalid []FilteredRow      `json:"invalid,omitempty"`
}

// InjuryReport accounts for one injury sweep.
type InjuryReport struct {
	Reports      ingest.BatchResult `json:"reports"`
	Scraped      int                `json:"scraped"`
	Deduplicated int                `json:"deduplicated"`
	SourceErrors []string           `json:"source_errors,omitempty"`
	Invalid      []FilteredRow      `json:"invalid,omitempty"`
}

// RunReport is the full outcome of one trigger. Games and Stats fold
// every date's batch result into run-wide totals.
type RunReport struct {
	Stage       Stage              `json:"stage"`
	FailedStage Stage              `json:"failed_stage,omitempty"`
	Reference   *ReferenceReport   `json:"reference,omitempty"`
	Dates       []DateReport       `json:"dates,omitempty"`
	Injuries    *InjuryReport      `json:"injuries,omitempty"`
	Games       ingest.BatchResult `json:"games_total"`
	Stats       ingest.BatchResult `json:"stats_total"`
	Completed   int                `json:"completed_dates"`
	Failed      int                `json:"failed_dates"`
	WorkerCount int                `json:"worker_count"`
	DurationMs  int64              `json:"duration_ms"`
}

// runStep is one node of the run-level DAG. Deps name stages that must
// have completed earlier in the same run; disabled steps are skipped and
// satisfy no edge.
type runStep struct {
	stage   Stage
	deps    []Stage
	enabled func(*runUnit) bool
	run     func(context.Context, *runUnit) error
}

// runUnit carries one run's input and accumulating report through the
// step graph.
type runUnit struct {
	input   RunInput
	dates   []time.Time
	workers int
	report  *RunReport
}

// stepGraph declares the run DAG as data: reference feeds the per-date
// stages, and the injury sweep needs only reference. Ordering inside a
// date is declared by dateSteps.
func (s *PipelineService) stepGraph() []runStep {
	return []runStep{
		{
			stage:   StageFetchingReference,
			enabled: func(u *runUnit) bool { return u.input.IncludeReference },
			run:     s.stepReference,
		},
		{
			stage:   StageFetchingGames,
			deps:    []Stage{StageFetchingReference},
			enabled: func(u *runUnit) bool { return len(u.dates) > 0 },
			run:     s.stepDates,
		},
		{
			stage:   StageFetchingInjuries,
			deps:    []Stage{StageFetchingReference},
			enabled: func(u *runUnit) bool { return u.input.IncludeInjuries },
			run:     s.stepInjuries,
		},
	}
}

// dateStep is one node of a single date's DAG.
type dateStep struct {
	stage Stage
	deps  []Stage
	run   func(context.Context, *dateUnit) error
}

// dateUnit carries one date's intermediate state between its steps.
type dateUnit struct {
	date        time.Time
	dryRun      bool
	workers     int
	report      *DateReport
	validGames  []ValidGame
	gameIDByRef map[string]string
}

func (s *PipelineService) dateSteps() []dateStep {
	return []dateStep{
		{stage: StageFetchingGames, run: s.stepGames},
		{stage: StageFetchingStats, deps: []Stage{StageFetchingGames}, run: s.stepStats},
	}
}

// Run executes one trigger. A reference or injury failure fails the run;
// date failures are recorded per date and never abort the remaining
// dates. Re-running the same input is idempotent: natural-key writes
// classify already-stored rows as skipped or updated, never duplicated.
func (s *PipelineService) Run(ctx context.Context, input RunInput) (RunReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.Run")
	defer span.End()

	if s.stats == nil {
		return RunReport{}, fmt.Errorf("%w: stats provider is not configured", ErrDependencyUnavailable)
	}

	dates, err := expandDates(input.FromDate, input.ToDate)
	if err != nil {
		return RunReport{}, err
	}

	start := time.Now()
	report := RunReport{
		Stage:       StagePending,
		WorkerCount: normalizeWorkerCount(s.cfg.MaxWorkers),
	}
	u := &runUnit{input: input, dates: dates, workers: report.WorkerCount, report: &report}

	steps := s.stepGraph()
	enabled := make(map[Stage]bool, len(steps))
	for _, step := range steps {
		enabled[step.stage] = step.enabled == nil || step.enabled(u)
	}

	done := make(map[Stage]bool, len(steps))
	for _, step := range steps {
		if !enabled[step.stage] {
			continue
		}
		// Cancellation is cooperative between steps; a step already
		// running finishes before the run stops.
		if len(done) > 0 && ctx.Err() != nil {
			break
		}
		for _, dep := range step.deps {
			if enabled[dep] && !done[dep] {
				report.Stage = StageFailed
				report.FailedStage = step.stage
				report.DurationMs = time.Since(start).Milliseconds()
				return report, fmt.Errorf("stage %s requires completed stage %s", step.stage, dep)
			}
		}
		report.Stage = step.stage
		if err := step.run(ctx, u); err != nil {
			report.Stage = StageFailed
			report.FailedStage = step.stage
			report.DurationMs = time.Since(start).Milliseconds()
			return report, err
		}
		done[step.stage] = true
	}

	report.Stage = StageCompleted
	report.DurationMs = time.Since(start).Milliseconds()
	s.logger.InfoContext(ctx, "pipeline run finished",
		"completed_dates", report.Completed,
		"failed_dates", report.Failed,
		"rows", report.Games.Total()+report.Stats.Total(),
		"workers", report.WorkerCount,
	)
	return report, nil
}

func (s *PipelineService) stepReference(ctx context.Context, u *runUnit) error {
	ref, err := s.runReference(ctx, u.input.DryRun)
	if err != nil {
		return err
	}
	u.report.Reference = &ref
	return nil
}

// stepDates walks the date range. Dates are independent units: a failed
// date is recorded and its siblings still run. Cancellation is checked
// between dates, never mid-date.
func (s *PipelineService) stepDates(ctx context.Context, u *runUnit) error {
	for i, date := range u.dates {
		if i > 0 && ctx.Err() != nil {
			break
		}
		dr := s.runDate(ctx, date, u.input.DryRun, u.workers)
		if dr.Stage == StageCompleted {
			u.report.Completed++
		} else {
			u.report.Failed++
		}
		u.report.Games.Merge(dr.Games)
		u.report.Stats.Merge(dr.Stats)
		u.report.Dates = append(u.report.Dates, dr)
	}
	return nil
}

func (s *PipelineService) stepInjuries(ctx context.Context, u *runUnit) error {
	ir, err := s.runInjuries(ctx, u.input.DryRun)
	if err != nil {
		return err
	}
	u.report.Injuries = &ir
	return nil
}

func (s *PipelineService) runReference(ctx context.Context, dryRun bool) (ReferenceReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.runReference")
	defer span.End()

	var report ReferenceReport

	var rawTeams []ExternalTeam
	var teamPayloads []rawdata.Payload
	err := s.withRetry(ctx, "fetch teams", func(ctx context.Context) error {
		var err error
		rawTeams, teamPayloads, err = s.stats.FetchTeams(ctx)
		return err
	})
	if err != nil {
		return report, err
	}

	validTeams := make([]ValidTeam, 0, len(rawTeams))
	for _, raw := range rawTeams {
		vt, err := s.validator.ValidateTeam(raw)
		if err != nil {
			report.Invalid = append(report.Invalid, FilteredRow{Key: raw.Name, Reason: err.Error()})
			continue
		}
		validTeams = append(validTeams, vt)
	}
	var teams []team.Team
	err = s.withRetry(ctx, "resolve teams", func(ctx context.Context) error {
		var err error
		teams, err = s.transform.TeamsFromValid(ctx, validTeams)
		return err
	})
	if err != nil {
		return report, err
	}
	if !dryRun {
		if report.Teams, err = s.ingestion.UpsertTeams(ctx, teams); err != nil {
			return report, err
		}
		if err := s.ingestion.UpsertRawPayloads(ctx, "nbastats", teamPayloads); err != nil {
			return report, err
		}
	}

	var rawPlayers []ExternalPlayer
	var playerPayloads []rawdata.Payload
	err = s.withRetry(ctx, "fetch players", func(ctx context.Context) error {
		var err error
		rawPlayers, playerPayloads, err = s.stats.FetchPlayers(ctx)
		return err
	})
	if err != nil {
		return report, err
	}

	validPlayers := make([]ValidPlayer, 0, len(rawPlayers))
	for _, raw := range rawPlayers {
		vp, err := s.validator.ValidatePlayer(raw)
		if err != nil {
			report.Invalid = append(report.Invalid, FilteredRow{Key: raw.FullName, Reason: err.Error()})
			continue
		}
		validPlayers = append(validPlayers, vp)
	}
	var players []player.Player
	err = s.withRetry(ctx, "resolve players", func(ctx context.Context) error {
		var err error
		players, err = s.transform.PlayersFromValid(ctx, validPlayers)
		return err
	})
	if err != nil {
		return report, err
	}
	if !dryRun {
		if report.Players, err = s.ingestion.UpsertPlayers(ctx, players); err != nil {
			return report, err
		}
		if err := s.ingestion.UpsertRawPayloads(ctx, "nbastats", playerPayloads); err != nil {
			return report, err
		}
	}

	return report, nil
}

// runDate walks one date's step DAG. Any step failure marks the whole
// date failed with the stage it died in.
func (s *PipelineService) runDate(ctx context.Context, date time.Time, dryRun bool, workers int) DateReport {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.runDate")
	defer span.End()

	start := time.Now()
	report := DateReport{
		Date:  date.Format("2006-01-02"),
		Stage: StagePending,
	}
	u := &dateUnit{date: date, dryRun: dryRun, workers: workers, report: &report}

	done := make(map[Stage]bool)
	for _, step := range s.dateSteps() {
		err := func() error {
			for _, dep := range step.deps {
				if !done[dep] {
					return fmt.Errorf("stage %s requires completed stage %s", step.stage, dep)
				}
			}
			report.Stage = step.stage
			return step.run(ctx, u)
		}()
		if err != nil {
			report.FailedStage = step.stage
			report.Stage = StageFailed
			report.Message = err.Error()
			report.DurationMs = time.Since(start).Milliseconds()
			s.logger.ErrorContext(ctx, "date ingestion failed",
				"date", report.Date,
				"stage", string(step.stage),
				"error", err,
			)
			return report
		}
		done[step.stage] = true
	}

	report.Stage = StageCompleted
	report.DurationMs = time.Since(start).Milliseconds()
	return report
}

func (s *PipelineService) stepGames(ctx context.Context, u *dateUnit) error {
	var rawGames []ExternalGame
	var payloads []rawdata.Payload
	err := s.withRetry(ctx, "fetch games", func(ctx context.Context) error {
		var err error
		rawGames, payloads, err = s.stats.FetchGamesForDate(ctx, u.date)
		return err
	})
	if err != nil {
		return err
	}

	u.validGames = make([]ValidGame, 0, len(rawGames))
	for _, raw := range rawGames {
		vg, err := s.validator.ValidateGame(raw)
		if err != nil {
			u.report.Invalid = append(u.report.Invalid, FilteredRow{Key: raw.GameRef, Reason: err.Error()})
			continue
		}
		u.validGames = append(u.validGames, vg)
	}

	var games []game.Game
	var seasons []season.Season
	err = s.withRetry(ctx, "resolve games", func(ctx context.Context) error {
		var err error
		games, seasons, u.gameIDByRef, err = s.transform.GamesFromValid(ctx, u.validGames)
		return err
	})
	if err != nil {
		return err
	}
	if !u.dryRun {
		if err := s.ingestion.InsertSeasons(ctx, seasons); err != nil {
			return err
		}
		if u.report.Games, err = s.ingestion.InsertGames(ctx, games); err != nil {
			return err
		}
		if err := s.ingestion.UpsertRawPayloads(ctx, "nbastats", payloads); err != nil {
			return err
		}
	}
	return nil
}

func (s *PipelineService) stepStats(ctx context.Context, u *dateUnit) error {
	rawLines, payloads, err := s.fetchBoxScores(ctx, u.validGames, u.workers)
	if err != nil {
		return err
	}

	validLines := make([]ValidStatLine, 0, len(rawLines))
	for _, raw := range rawLines {
		vl, err := s.validator.ValidateStatLine(raw)
		if err != nil {
			u.report.Invalid = append(u.report.Invalid, FilteredRow{Key: raw.PlayerName + "@" + raw.GameRef, Reason: err.Error()})
			continue
		}
		validLines = append(validLines, vl)
	}

	var lines []playerstat.Line
	var drops []RowDrop
	err = s.withRetry(ctx, "resolve stat lines", func(ctx context.Context) error {
		var err error
		lines, drops, err = s.transform.StatLinesFromValid(ctx, u.gameIDByRef, validLines)
		return err
	})
	if err != nil {
		return err
	}
	for _, drop := range drops {
		u.report.Filtered = append(u.report.Filtered, FilteredRow{Key: drop.Key, Reason: drop.Err.Error()})
	}
	if !u.dryRun {
		if u.report.Stats, err = s.ingestion.InsertStatLines(ctx, lines); err != nil {
			return err
		}
		if err := s.ingestion.UpsertRawPayloads(ctx, "nbastats", payloads); err != nil {
			return err
		}
	}
	return nil
}

// fetchBoxScores pulls one box score per game through a bounded worker
// pool. Results come back in game order regardless of completion order.
func (s *PipelineService) fetchBoxScores(ctx context.Context, games []ValidGame, workers int) ([]ExternalStatLine, []rawdata.Payload, error) {
	refs := make([]string, 0, len(games))
	for _, g := range games {
		if g.GameRef != "" {
			refs = append(refs, g.GameRef)
		}
	}
	if len(refs) == 0 {
		return nil, nil, nil
	}

	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	type boxResult struct {
		idx      int
		lines    []ExternalStatLine
		payloads []rawdata.Payload
		err      error
	}
	results := make(chan boxResult, len(refs))

	var workersWG sync.WaitGroup
	for idx, ref := range refs {
		idx, ref := idx, ref
		workersWG.Add(1)
		if err := pool.Submit(func() {
			defer workersWG.Done()
			var res boxResult
			res.idx = idx
			res.err = s.withRetry(ctx, "fetch box score "+ref, func(ctx context.Context) error {
				var err error
				res.lines, res.payloads, err = s.stats.FetchBoxScore(ctx, ref)
				return err
			})
			results <- res
		}); err != nil {
			workersWG.Done()
			return nil, nil, fmt.Errorf("submit box score task: %w", err)
		}
	}
	workersWG.Wait()
	close(results)

	ordered := make([]boxResult, 0, len(refs))
	for res := range results {
		if res.err != nil {
			return nil, nil, res.err
		}
		ordered = append(ordered, res)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].idx < ordered[j].idx })

	var lines []ExternalStatLine
	var payloads []rawdata.Payload
	for _, res := range ordered {
		lines = append(lines, res.lines...)
		payloads = append(payloads, res.payloads...)
	}
	return lines, payloads, nil
}

func (s *PipelineService) runInjuries(ctx context.Context, dryRun bool) (InjuryReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PipelineService.runInjuries")
	defer span.End()

	var report InjuryReport
	if s.injuries == nil {
		return report, fmt.Errorf("%w: injury provider is not configured", ErrDependencyUnavailable)
	}

	rawReports, payloads, sourceErrs := s.injuries.FetchAll(ctx)
	for _, err := range sourceErrs {
		report.SourceErrors = append(report.SourceErrors, err.Error())
	}
	// All sources down is a run failure; partial coverage is not.
	if len(rawReports) == 0 && len(sourceErrs) > 0 {
		return report, &FetchError{Source: "injuryweb", Endpoint: "all", Err: fmt.Errorf("every injury source failed")}
	}
	report.Scraped = len(rawReports)

	valid := make([]ValidInjury, 0, len(rawReports))
	for _, raw := range rawReports {
		vi, err := s.validator.ValidateInjury(raw)
		if err != nil {
			report.Invalid = append(report.Invalid, FilteredRow{Key: raw.PlayerName, Reason: err.Error()})
			continue
		}
		valid = append(valid, vi)
	}

	var resolved []injury.Report
	err := s.withRetry(ctx, "resolve injuries", func(ctx context.Context) error {
		var err error
		resolved, err = s.transform.InjuriesFromValid(ctx, valid)
		return err
	})
	if err != nil {
		return report, err
	}
	canonical := injury.Dedupe(resolved, s.cfg.InjurySourceRanks)
	report.Deduplicated = len(resolved) - len(canonical)

	if !dryRun {
		if report.Reports, err = s.ingestion.InsertInjuryReports(ctx, canonical); err != nil {
			return report, err
		}
		if err := s.ingestion.UpsertRawPayloads(ctx, "injuryweb", payloads); err != nil {
			return report, err
		}
	}
	return report, nil
}

// withRetry retries transient failures with doubling backoff up to the
// configured cap. Permanent errors and context cancellation return
// immediately.
func (s *PipelineService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	delay := s.cfg.RetryBaseDelay
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= s.cfg.MaxRetries || !IsTransient(err) {
			return err
		}
		s.logger.WarnContext(ctx, "retrying transient failure",
			"op", op,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if s.cfg.RetryMaxDelay > 0 && delay > s.cfg.RetryMaxDelay {
			delay = s.cfg.RetryMaxDelay
		}
	}
}

func normalizeWorkerCount(requested int) int {
	if requested <= 0 {
		return defaultPipelineWorkers
	}
	if requested > maxPipelineWorkers {
		return maxPipelineWorkers
	}
	return requested
}

// expandDates lists every date of the inclusive range. Both zero means a
// run without game dates; a reversed range is invalid.
func expandDates(from, to time.Time) ([]time.Time, error) {
	if from.IsZero() && to.IsZero() {
		return nil, nil
	}
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: from and to dates must be set together", ErrInvalidInput)
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date range is reversed", ErrInvalidInput)
	}
	var dates []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates, nil
}
