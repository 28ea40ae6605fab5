package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"

	"github.com/courtmetrics/hoop-ingest/internal/app"
	"github.com/courtmetrics/hoop-ingest/internal/config"
	"github.com/courtmetrics/hoop-ingest/internal/platform/logging"
	"github.com/courtmetrics/hoop-ingest/internal/usecase"
)

func main() {
	var (
		fromRaw   = flag.String("from", "", "first game date to ingest (YYYY-MM-DD)")
		toRaw     = flag.String("to", "", "last game date to ingest, defaults to -from")
		reference = flag.Bool("reference", false, "refresh teams and players before game dates")
		injuries  = flag.Bool("injuries", false, "scrape and ingest injury reports after game dates")
		dryRun    = flag.Bool("dry-run", false, "run fetch, validate and transform without writing")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck
	logging.SetDefault(logger)

	input, err := buildRunInput(*fromRaw, *toRaw, *reference, *injuries, *dryRun)
	if err != nil {
		logger.Error("invalid arguments", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("close app", "error", err)
		}
	}()

	report, err := application.Pipeline.Run(ctx, input)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion run failed", "error", err)
		os.Exit(1)
	}

	out, err := sonic.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Error("encode report", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if report.Failed > 0 || report.Stage == usecase.StageFailed {
		os.Exit(1)
	}
}

func buildRunInput(fromRaw, toRaw string, reference, injuries, dryRun bool) (usecase.RunInput, error) {
	input := usecase.RunInput{
		IncludeReference: reference,
		IncludeInjuries:  injuries,
		DryRun:           dryRun,
	}

	if fromRaw == "" && toRaw == "" {
		if !reference && !injuries {
			return usecase.RunInput{}, fmt.Errorf("nothing to do: pass -from, -reference or -injuries")
		}
		return input, nil
	}

	from, err := time.Parse("2006-01-02", fromRaw)
	if err != nil {
		return usecase.RunInput{}, fmt.Errorf("parse -from: %w", err)
	}
	input.FromDate = from

	input.ToDate = from
	if toRaw != "" {
		to, err := time.Parse("2006-01-02", toRaw)
		if err != nil {
			return usecase.RunInput{}, fmt.Errorf("parse -to: %w", err)
		}
		input.ToDate = to
	}

	return input, nil
}
