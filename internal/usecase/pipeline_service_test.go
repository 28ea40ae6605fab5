package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courtmetrics/hoop-ingest/internal/domain/identity"
	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
	"github.com/courtmetrics/hoop-ingest/internal/infrastructure/repository/memory"
	idgen "github.com/courtmetrics/hoop-ingest/internal/platform/id"
	"github.com/courtmetrics/hoop-ingest/internal/platform/logging"
)

type stubStatsProvider struct {
	teams    []ExternalTeam
	players  []ExternalPlayer
	games    map[string][]ExternalGame
	box      map[string][]ExternalStatLine
	gamesErr error

	boxCalls int
}

func (s *stubStatsProvider) FetchTeams(context.Context) ([]ExternalTeam, []rawdata.Payload, error) {
	return s.teams, nil, nil
}

func (s *stubStatsProvider) FetchPlayers(context.Context) ([]ExternalPlayer, []rawdata.Payload, error) {
	return s.players, nil, nil
}

func (s *stubStatsProvider) FetchGamesForDate(_ context.Context, date time.Time) ([]ExternalGame, []rawdata.Payload, error) {
	if s.gamesErr != nil {
		return nil, nil, s.gamesErr
	}
	return s.games[date.Format("2006-01-02")], nil, nil
}

func (s *stubStatsProvider) FetchBoxScore(_ context.Context, gameRef string) ([]ExternalStatLine, []rawdata.Payload, error) {
	s.boxCalls++
	return s.box[gameRef], nil, nil
}

type stubInjuryProvider struct {
	reports []ExternalInjuryReport
	errs    []error
}

func (s *stubInjuryProvider) FetchAll(context.Context) ([]ExternalInjuryReport, []rawdata.Payload, []error) {
	return s.reports, nil, s.errs
}

type pipelineFixture struct {
	pipeline *PipelineService
	stats    *stubStatsProvider
	injuries *stubInjuryProvider

	gameRepo *memory.GameRepository
	statRepo *memory.PlayerStatRepository
	teamRepo *memory.TeamRepository
}

func newPipelineFixture(stats *stubStatsProvider, injuries *stubInjuryProvider) *pipelineFixture {
	return newPipelineFixtureWithIdentity(stats, injuries, memory.NewIdentityRepository())
}

func newPipelineFixtureWithIdentity(stats *stubStatsProvider, injuries *stubInjuryProvider, idRepo identity.Repository) *pipelineFixture {
	resolver := NewIdentityService(idRepo, idgen.NewRandomGenerator())
	gameRepo := memory.NewGameRepository()
	statRepo := memory.NewPlayerStatRepository()
	teamRepo := memory.NewTeamRepository()

	ingestion := NewIngestionService(
		teamRepo,
		memory.NewPlayerRepository(),
		memory.NewSeasonRepository(),
		gameRepo,
		statRepo,
		memory.NewInjuryRepository(),
		memory.NewRawDataRepository(),
	)

	pipeline := NewPipelineService(
		PipelineConfig{
			MaxWorkers:        2,
			MaxRetries:        1,
			RetryBaseDelay:    time.Millisecond,
			InjurySourceRanks: map[string]int{"espn": 2, "rotowire": 1},
		},
		stats,
		injuries,
		NewValidationService(),
		NewTransformService(resolver),
		ingestion,
		logging.NewNop(),
	)

	return &pipelineFixture{
		pipeline: pipeline,
		stats:    stats,
		injuries: injuries,
		gameRepo: gameRepo,
		statRepo: statRepo,
		teamRepo: teamRepo,
	}
}

func scoreboardFixture() *stubStatsProvider {
	score := func(n int) *int { return &n }
	return &stubStatsProvider{
		teams: []ExternalTeam{
			{Name: "Boston Celtics", Abbreviation: "bos", City: "Boston"},
			{Name: "Denver Nuggets", Abbreviation: "den", City: "Denver"},
		},
		players: []ExternalPlayer{
			{FullName: "Jayson Tatum", TeamName: "Boston Celtics", Position: "f", JerseyNumber: "0", HeightRaw: "6-8", WeightRaw: "210 lbs"},
			{FullName: "Nikola Jokic", TeamName: "Denver Nuggets", Position: "c", JerseyNumber: "15"},
			{FullName: "Free Agent", TeamName: ""},
		},
		games: map[string][]ExternalGame{
			"2025-01-10": {
				{
					GameRef:      "0022400123",
					GameDate:     "2025-01-10",
					HomeTeamName: "Boston Celtics",
					AwayTeamName: "Denver Nuggets",
					HomeScore:    score(112),
					AwayScore:    score(108),
					Status:       "Final",
				},
			},
		},
		box: map[string][]ExternalStatLine{
			"0022400123": {
				{GameRef: "0022400123", PlayerName: "Jayson Tatum", TeamName: "Boston Celtics", MinutesRaw: "36:45", Points: 27, FieldGoalsMade: 10, FieldGoalsAtt: 20, StartPosition: "F"},
				{GameRef: "0022400123", PlayerName: "Nikola Jokic", TeamName: "Denver Nuggets", MinutesRaw: "38:00", Points: 31.7, FieldGoalsMade: 12, FieldGoalsAtt: 19, StartPosition: "C"},
				{GameRef: "0022400123", PlayerName: "Deep Bench", TeamName: "Denver Nuggets", MinutesRaw: "", Points: 0},
			},
		},
	}
}

func TestPipelineRun_EndToEnd(t *testing.T) {
	fixture := newPipelineFixture(scoreboardFixture(), &stubInjuryProvider{
		reports: []ExternalInjuryReport{
			{PlayerName: "Jamal Murray", TeamName: "Denver Nuggets", StatusRaw: "Day-To-Day", Source: "espn", ObservedAt: time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)},
			{PlayerName: "Jamal  MURRAY", TeamName: "Denver Nuggets", StatusRaw: "GTD", Source: "rotowire", ObservedAt: time.Date(2025, 1, 10, 16, 0, 0, 0, time.UTC)},
		},
	})

	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	report, err := fixture.pipeline.Run(context.Background(), RunInput{
		FromDate:         date,
		ToDate:           date,
		IncludeReference: true,
		IncludeInjuries:  true,
	})
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}

	if report.Stage != StageCompleted {
		t.Fatalf("unexpected stage: %s", report.Stage)
	}
	if report.Reference == nil || report.Reference.Teams.Inserted != 2 || report.Reference.Players.Inserted != 3 {
		t.Fatalf("unexpected reference report: %+v", report.Reference)
	}
	if report.Completed != 1 || report.Failed != 0 {
		t.Fatalf("unexpected date counts: completed=%d failed=%d", report.Completed, report.Failed)
	}
	if report.Games.Total() != 1 || report.Stats.Total() != 2 {
		t.Fatalf("unexpected run totals: games=%+v stats=%+v", report.Games, report.Stats)
	}

	dr := report.Dates[0]
	if dr.Games.Inserted != 1 {
		t.Fatalf("unexpected game result: %+v", dr.Games)
	}
	if dr.Stats.Inserted != 2 {
		t.Fatalf("unexpected stat result: %+v", dr.Stats)
	}
	// "Deep Bench" never appeared in the roster feed, so his line is
	// filtered instead of minting an identity from box-score text.
	if len(dr.Filtered) != 1 || len(dr.Invalid) != 0 {
		t.Fatalf("expected one filtered row, got filtered=%v invalid=%v", dr.Filtered, dr.Invalid)
	}

	// Two scrapes of the same player and status collapse to one report.
	if report.Injuries == nil || report.Injuries.Scraped != 2 || report.Injuries.Deduplicated != 1 {
		t.Fatalf("unexpected injury report: %+v", report.Injuries)
	}
	if report.Injuries.Reports.Inserted != 1 {
		t.Fatalf("unexpected injury insert count: %+v", report.Injuries.Reports)
	}
}

func TestPipelineRun_SecondRunIsIdempotent(t *testing.T) {
	fixture := newPipelineFixture(scoreboardFixture(), nil)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	input := RunInput{FromDate: date, ToDate: date, IncludeReference: true}

	if _, err := fixture.pipeline.Run(context.Background(), input); err != nil {
		t.Fatalf("first run: %v", err)
	}
	gamesAfterFirst := fixture.gameRepo.Len()
	statsAfterFirst := fixture.statRepo.Len()

	report, err := fixture.pipeline.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if fixture.gameRepo.Len() != gamesAfterFirst || fixture.statRepo.Len() != statsAfterFirst {
		t.Fatalf("second run changed row counts: games %d->%d stats %d->%d",
			gamesAfterFirst, fixture.gameRepo.Len(), statsAfterFirst, fixture.statRepo.Len())
	}

	dr := report.Dates[0]
	if dr.Games.Inserted != 0 || dr.Games.Skipped != 1 {
		t.Fatalf("expected skipped game on replay, got %+v", dr.Games)
	}
	if dr.Stats.Inserted != 0 || dr.Stats.Skipped != 2 {
		t.Fatalf("expected skipped stats on replay, got %+v", dr.Stats)
	}
	if report.Reference.Teams.Inserted != 0 || report.Reference.Teams.Updated != 2 {
		t.Fatalf("expected merged teams on replay, got %+v", report.Reference.Teams)
	}
}

func TestPipelineRun_DryRunWritesNothing(t *testing.T) {
	fixture := newPipelineFixture(scoreboardFixture(), nil)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	report, err := fixture.pipeline.Run(context.Background(), RunInput{
		FromDate:         date,
		ToDate:           date,
		IncludeReference: true,
		DryRun:           true,
	})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if report.Stage != StageCompleted {
		t.Fatalf("unexpected stage: %s", report.Stage)
	}
	if fixture.gameRepo.Len() != 0 || fixture.statRepo.Len() != 0 {
		t.Fatalf("dry run persisted rows: games=%d stats=%d", fixture.gameRepo.Len(), fixture.statRepo.Len())
	}
}

func TestPipelineRun_InvalidRowsAreFilteredNotFatal(t *testing.T) {
	stats := scoreboardFixture()
	stats.box["0022400123"] = append(stats.box["0022400123"], ExternalStatLine{
		GameRef:        "0022400123",
		PlayerName:     "Bad Shooter",
		MinutesRaw:     "20:00",
		FieldGoalsMade: 9,
		FieldGoalsAtt:  4,
	})
	fixture := newPipelineFixture(stats, nil)
	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	report, err := fixture.pipeline.Run(context.Background(), RunInput{
		FromDate:         date,
		ToDate:           date,
		IncludeReference: true,
	})
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}

	dr := report.Dates[0]
	if dr.Stage != StageCompleted {
		t.Fatalf("unexpected date stage: %s (%s)", dr.Stage, dr.Message)
	}
	if len(dr.Invalid) != 1 {
		t.Fatalf("expected 1 invalid row, got %+v", dr.Invalid)
	}
	if dr.Stats.Inserted != 2 {
		t.Fatalf("valid rows must still persist, got %+v", dr.Stats)
	}
}

func TestPipelineRun_DateFailureDoesNotAbortRange(t *testing.T) {
	stats := scoreboardFixture()
	calls := 0
	failing := &flakyStatsProvider{inner: stats, failDate: "2025-01-09", calls: &calls}
	fixture := newPipelineFixture(stats, nil)
	fixture.pipeline.stats = failing

	report, err := fixture.pipeline.Run(context.Background(), RunInput{
		FromDate: time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
		ToDate:   time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}
	if report.Failed != 1 || report.Completed != 1 {
		t.Fatalf("unexpected counts: completed=%d failed=%d", report.Completed, report.Failed)
	}
	if report.Dates[0].Stage != StageFailed || report.Dates[0].FailedStage != StageFetchingGames {
		t.Fatalf("unexpected failed date report: %+v", report.Dates[0])
	}
	if report.Dates[1].Stage != StageCompleted {
		t.Fatalf("second date should complete: %+v", report.Dates[1])
	}
}

type flakyStatsProvider struct {
	inner    *stubStatsProvider
	failDate string
	calls    *int
}

func (f *flakyStatsProvider) FetchTeams(ctx context.Context) ([]ExternalTeam, []rawdata.Payload, error) {
	return f.inner.FetchTeams(ctx)
}

func (f *flakyStatsProvider) FetchPlayers(ctx context.Context) ([]ExternalPlayer, []rawdata.Payload, error) {
	return f.inner.FetchPlayers(ctx)
}

func (f *flakyStatsProvider) FetchGamesForDate(ctx context.Context, date time.Time) ([]ExternalGame, []rawdata.Payload, error) {
	if date.Format("2006-01-02") == f.failDate {
		*f.calls++
		return nil, nil, &FetchError{Source: "nbastats", Endpoint: "/scoreboardv2", Err: errors.New("boom")}
	}
	return f.inner.FetchGamesForDate(ctx, date)
}

func (f *flakyStatsProvider) FetchBoxScore(ctx context.Context, gameRef string) ([]ExternalStatLine, []rawdata.Payload, error) {
	return f.inner.FetchBoxScore(ctx, gameRef)
}

func TestPipelineRun_RetriesTransientFetch(t *testing.T) {
	stats := scoreboardFixture()
	attempts := 0
	transient := &transientOnceProvider{inner: stats, attempts: &attempts}
	fixture := newPipelineFixture(stats, nil)
	fixture.pipeline.stats = transient

	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	report, err := fixture.pipeline.Run(context.Background(), RunInput{FromDate: date, ToDate: date})
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("expected one retry, saw %d attempts", attempts)
	}
	if report.Dates[0].Stage != StageCompleted {
		t.Fatalf("date should complete after retry: %+v", report.Dates[0])
	}
}

type transientOnceProvider struct {
	inner    *stubStatsProvider
	attempts *int
}

func (p *transientOnceProvider) FetchTeams(ctx context.Context) ([]ExternalTeam, []rawdata.Payload, error) {
	return p.inner.FetchTeams(ctx)
}

func (p *transientOnceProvider) FetchPlayers(ctx context.Context) ([]ExternalPlayer, []rawdata.Payload, error) {
	return p.inner.FetchPlayers(ctx)
}

func (p *transientOnceProvider) FetchGamesForDate(ctx context.Context, date time.Time) ([]ExternalGame, []rawdata.Payload, error) {
	*p.attempts++
	if *p.attempts == 1 {
		return nil, nil, &FetchError{Source: "nbastats", Endpoint: "/scoreboardv2", Transient: true, Err: errors.New("rate limited")}
	}
	return p.inner.FetchGamesForDate(ctx, date)
}

func (p *transientOnceProvider) FetchBoxScore(ctx context.Context, gameRef string) ([]ExternalStatLine, []rawdata.Payload, error) {
	return p.inner.FetchBoxScore(ctx, gameRef)
}

type failOnceIdentityRepo struct {
	inner    identity.Repository
	failures int
}

func (r *failOnceIdentityRepo) GetOrCreate(ctx context.Context, kind identity.Kind, naturalKey, candidateID string) (string, bool, error) {
	if r.failures > 0 {
		r.failures--
		return "", false, errors.New("identity store unavailable")
	}
	return r.inner.GetOrCreate(ctx, kind, naturalKey, candidateID)
}

func (r *failOnceIdentityRepo) Lookup(ctx context.Context, kind identity.Kind, naturalKey string) (string, bool, error) {
	return r.inner.Lookup(ctx, kind, naturalKey)
}

func TestPipelineRun_RetriesTransientResolution(t *testing.T) {
	idRepo := &failOnceIdentityRepo{inner: memory.NewIdentityRepository(), failures: 1}
	fixture := newPipelineFixtureWithIdentity(scoreboardFixture(), nil, idRepo)

	date := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	report, err := fixture.pipeline.Run(context.Background(), RunInput{FromDate: date, ToDate: date})
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}
	if report.Dates[0].Stage != StageCompleted {
		t.Fatalf("date should complete after resolution retry: %+v", report.Dates[0])
	}
	if report.Games.Inserted != 1 {
		t.Fatalf("expected game persisted after retry, got %+v", report.Games)
	}
}

func TestPipelineStepGraph(t *testing.T) {
	fixture := newPipelineFixture(scoreboardFixture(), nil)

	steps := fixture.pipeline.stepGraph()
	wantOrder := []Stage{StageFetchingReference, StageFetchingGames, StageFetchingInjuries}
	if len(steps) != len(wantOrder) {
		t.Fatalf("expected %d run steps, got %d", len(wantOrder), len(steps))
	}
	position := make(map[Stage]int, len(steps))
	for i, step := range steps {
		if step.stage != wantOrder[i] {
			t.Fatalf("step %d: expected %s, got %s", i, wantOrder[i], step.stage)
		}
		position[step.stage] = i
	}
	for _, step := range steps {
		for _, dep := range step.deps {
			at, declared := position[dep]
			if !declared || at >= position[step.stage] {
				t.Fatalf("stage %s depends on %s which does not precede it", step.stage, dep)
			}
		}
	}
	if deps := steps[1].deps; len(deps) != 1 || deps[0] != StageFetchingReference {
		t.Fatalf("game stage must depend on reference, got %v", deps)
	}
	if deps := steps[2].deps; len(deps) != 1 || deps[0] != StageFetchingReference {
		t.Fatalf("injury stage must depend on reference, got %v", deps)
	}

	dateSteps := fixture.pipeline.dateSteps()
	if len(dateSteps) != 2 || dateSteps[0].stage != StageFetchingGames || dateSteps[1].stage != StageFetchingStats {
		t.Fatalf("unexpected date steps: %+v", dateSteps)
	}
	if deps := dateSteps[1].deps; len(deps) != 1 || deps[0] != StageFetchingGames {
		t.Fatalf("stat stage must depend on games, got %v", deps)
	}
}

func TestPipelineRun_AllInjurySourcesDownFailsRun(t *testing.T) {
	fixture := newPipelineFixture(scoreboardFixture(), &stubInjuryProvider{
		errs: []error{errors.New("espn: render failed"), errors.New("rotowire: render failed")},
	})

	report, err := fixture.pipeline.Run(context.Background(), RunInput{IncludeInjuries: true})
	if err == nil {
		t.Fatalf("expected run failure when every source is down")
	}
	if report.Stage != StageFailed || report.FailedStage != StageFetchingInjuries {
		t.Fatalf("unexpected report: stage=%s failed_stage=%s", report.Stage, report.FailedStage)
	}
}

func TestPipelineRun_PartialInjuryCoverageSucceeds(t *testing.T) {
	fixture := newPipelineFixture(scoreboardFixture(), &stubInjuryProvider{
		reports: []ExternalInjuryReport{
			{PlayerName: "Jamal Murray", StatusRaw: "Out", Source: "rotowire", ObservedAt: time.Date(2025, 1, 10, 14, 0, 0, 0, time.UTC)},
		},
		errs: []error{errors.New("espn: render failed")},
	})

	report, err := fixture.pipeline.Run(context.Background(), RunInput{IncludeInjuries: true})
	if err != nil {
		t.Fatalf("run pipeline: %v", err)
	}
	if report.Injuries == nil || len(report.Injuries.SourceErrors) != 1 {
		t.Fatalf("expected recorded source error, got %+v", report.Injuries)
	}
	if report.Injuries.Reports.Inserted != 1 {
		t.Fatalf("surviving source rows must persist, got %+v", report.Injuries.Reports)
	}
}

func TestExpandDates(t *testing.T) {
	t.Run("inclusive range", func(t *testing.T) {
		dates, err := expandDates(
			time.Date(2025, 1, 9, 13, 30, 0, 0, time.UTC),
			time.Date(2025, 1, 11, 2, 0, 0, 0, time.UTC),
		)
		if err != nil {
			t.Fatalf("expand dates: %v", err)
		}
		if len(dates) != 3 {
			t.Fatalf("expected 3 dates, got %d", len(dates))
		}
		if !dates[0].Equal(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("expected midnight normalization, got %s", dates[0])
		}
	})

	t.Run("both zero is a dateless run", func(t *testing.T) {
		dates, err := expandDates(time.Time{}, time.Time{})
		if err != nil || dates != nil {
			t.Fatalf("unexpected result: dates=%v err=%v", dates, err)
		}
	})

	t.Run("half-set range rejected", func(t *testing.T) {
		_, err := expandDates(time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC), time.Time{})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("reversed range rejected", func(t *testing.T) {
		_, err := expandDates(
			time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC),
		)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}
