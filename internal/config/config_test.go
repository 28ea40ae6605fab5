package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "hoop-ingest" {
		t.Fatalf("unexpected service name: %q", cfg.ServiceName)
	}
	if cfg.NBAStatsBaseURL != "https://stats.nba.com/stats" {
		t.Fatalf("unexpected nba stats base url: %q", cfg.NBAStatsBaseURL)
	}
	if cfg.NBAStatsTimeout != 20*time.Second {
		t.Fatalf("unexpected nba stats timeout: %s", cfg.NBAStatsTimeout)
	}
	if cfg.IngestMaxWorkers != 4 {
		t.Fatalf("unexpected worker count: %d", cfg.IngestMaxWorkers)
	}
	if cfg.IngestRetryBaseDelay != time.Second {
		t.Fatalf("unexpected retry base delay: %s", cfg.IngestRetryBaseDelay)
	}
	if !cfg.RawArchiveEnabled {
		t.Fatalf("expected RawArchiveEnabled=true by default")
	}
	if cfg.InjurySourceURLs["espn"] == "" || cfg.InjurySourceURLs["rotowire"] == "" {
		t.Fatalf("expected default injury sources, got %+v", cfg.InjurySourceURLs)
	}
	if cfg.InjurySourceRanks["rotowire"] != 1 {
		t.Fatalf("unexpected rotowire rank: %d", cfg.InjurySourceRanks["rotowire"])
	}
}

func TestLoad_InjurySourceParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("url map keeps scheme colons", func(t *testing.T) {
		t.Setenv("INJURY_SOURCE_URLS", "espn:https://www.espn.com/nba/injuries")
		t.Setenv("INJURY_SOURCE_RANKS", "espn:1")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if cfg.InjurySourceURLs["espn"] != "https://www.espn.com/nba/injuries" {
			t.Fatalf("unexpected espn url: %q", cfg.InjurySourceURLs["espn"])
		}
	})

	t.Run("rank required for every source", func(t *testing.T) {
		t.Setenv("INJURY_SOURCE_URLS", "espn:https://example.test,beat:https://other.test")
		t.Setenv("INJURY_SOURCE_RANKS", "espn:1")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error when a source has no rank")
		}
	})

	t.Run("invalid rank", func(t *testing.T) {
		t.Setenv("INJURY_SOURCE_URLS", "espn:https://example.test")
		t.Setenv("INJURY_SOURCE_RANKS", "espn:zero")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for non numeric rank")
		}
	})

	t.Run("scrape enabled requires sources", func(t *testing.T) {
		t.Setenv("INJURY_SCRAPE_ENABLED", "true")
		t.Setenv("INJURY_SOURCE_URLS", " ")
		t.Setenv("INJURY_SOURCE_RANKS", " ")

		if _, err := Load(); err != nil {
			t.Fatalf("blank env should fall back to defaults: %v", err)
		}
	})
}

func TestLoad_RetryDelayValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("INGEST_RETRY_BASE_DELAY", "10s")
	t.Setenv("INGEST_RETRY_MAX_DELAY", "5s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when max delay < base delay")
	}
}

func TestLoad_WorkerValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("INGEST_MAX_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for INGEST_MAX_WORKERS=0")
	}
}

func TestLoad_DBDisablePreparedBinaryResultParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	t.Run("default true", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "")
		cfg, err := Load()
		if err != nil {
			t.Fatalf("load config: %v", err)
		}
		if !cfg.DBDisablePreparedBinary {
			t.Fatalf("expected DBDisablePreparedBinary=true by default")
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("DB_DISABLE_PREPARED_BINARY_RESULT", "not-bool")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid DB_DISABLE_PREPARED_BINARY_RESULT")
		}
	})
}

func TestLoad_LogLevelParsing(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("APP_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel.String() != "warn" {
		t.Fatalf("unexpected log level: %s", cfg.LogLevel.String())
	}
}
