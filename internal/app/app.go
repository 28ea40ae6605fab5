package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/courtmetrics/hoop-ingest/external/injuryweb"
	"github.com/courtmetrics/hoop-ingest/external/nbastats"
	"github.com/courtmetrics/hoop-ingest/internal/config"
	"github.com/courtmetrics/hoop-ingest/internal/domain/rawdata"
	"github.com/courtmetrics/hoop-ingest/internal/infrastructure/repository/postgres"
	idgen "github.com/courtmetrics/hoop-ingest/internal/platform/id"
	"github.com/courtmetrics/hoop-ingest/internal/platform/logging"
	"github.com/courtmetrics/hoop-ingest/internal/platform/resilience"
	"github.com/courtmetrics/hoop-ingest/internal/usecase"
)

// App wires the pipeline against postgres and the external sources.
type App struct {
	Pipeline *usecase.PipelineService

	db       *sqlx.DB
	injuries *injuryweb.Client
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", normalizeDBURL(cfg.DBURL, cfg.DBDisablePreparedBinary))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.InfoContext(ctx, "connected to database", "db", dbNameFromURL(cfg.DBURL))

	identityRepo := postgres.NewIdentityRepository(db)
	teamRepo := postgres.NewTeamRepository(db)
	playerRepo := postgres.NewPlayerRepository(db)
	seasonRepo := postgres.NewSeasonRepository(db)
	gameRepo := postgres.NewGameRepository(db)
	statRepo := postgres.NewPlayerStatRepository(db)
	injuryRepo := postgres.NewInjuryRepository(db)

	var rawDataRepo rawdata.Repository
	if cfg.RawArchiveEnabled {
		rawDataRepo = postgres.NewRawDataRepository(db)
	}

	identitySvc := usecase.NewIdentityService(identityRepo, idgen.NewRandomGenerator())
	validationSvc := usecase.NewValidationService()
	transformSvc := usecase.NewTransformService(identitySvc)
	ingestionSvc := usecase.NewIngestionService(
		teamRepo,
		playerRepo,
		seasonRepo,
		gameRepo,
		statRepo,
		injuryRepo,
		rawDataRepo,
	)

	statsClient := nbastats.NewClient(nbastats.ClientConfig{
		BaseURL:    cfg.NBAStatsBaseURL,
		Timeout:    cfg.NBAStatsTimeout,
		MaxRetries: cfg.NBAStatsMaxRetries,
		Logger:     logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.NBAStatsCircuitEnabled,
			FailureThreshold: cfg.NBAStatsCircuitFailureCount,
			OpenTimeout:      cfg.NBAStatsCircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.NBAStatsCircuitHalfOpenMaxReq,
		},
	})

	var injuryClient *injuryweb.Client
	var injuryProvider usecase.InjuryProvider
	if cfg.InjuryScrapeEnabled {
		injuryClient = injuryweb.NewClient(injuryweb.ClientConfig{
			Sources:    injurySources(cfg.InjurySourceURLs),
			Timeout:    cfg.InjuryScrapeTimeout,
			RenderWait: cfg.InjuryRenderWait,
			Logger:     logger,
		})
		injuryProvider = injuryClient
	}

	pipeline := usecase.NewPipelineService(
		usecase.PipelineConfig{
			MaxWorkers:        cfg.IngestMaxWorkers,
			MaxRetries:        cfg.IngestMaxRetries,
			RetryBaseDelay:    cfg.IngestRetryBaseDelay,
			RetryMaxDelay:     cfg.IngestRetryMaxDelay,
			InjurySourceRanks: cfg.InjurySourceRanks,
		},
		statsClient,
		injuryProvider,
		validationSvc,
		transformSvc,
		ingestionSvc,
		logger,
	)

	return &App{
		Pipeline: pipeline,
		db:       db,
		injuries: injuryClient,
	}, nil
}

func (a *App) Close() error {
	if a.injuries != nil {
		a.injuries.Close()
	}
	return a.db.Close()
}

func injurySources(urls map[string]string) []injuryweb.SourceConfig {
	names := make([]string, 0, len(urls))
	for name := range urls {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]injuryweb.SourceConfig, 0, len(names))
	for _, name := range names {
		sources = append(sources, injuryweb.SourceConfig{Name: name, URL: urls[name]})
	}
	return sources
}
