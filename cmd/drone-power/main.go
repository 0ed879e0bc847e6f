package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/iwvelando/drone-power/internal/analysis"
	"github.com/iwvelando/drone-power/internal/cases"
	"github.com/iwvelando/drone-power/internal/charts"
	"github.com/iwvelando/drone-power/internal/config"
	"github.com/iwvelando/drone-power/internal/generate"
	"github.com/iwvelando/drone-power/internal/logging"
	"github.com/iwvelando/drone-power/internal/store"
	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/iwvelando/drone-power/pkg/output"
	"github.com/iwvelando/drone-power/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is normal; the environment is used as is.
	_ = godotenv.Load()

	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	inputFlag := flag.String("input", "", "case file override")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	generateCount := flag.Int("generate", 0, "write this many synthetic cases to the input file before analysing it")
	seed := flag.Int64("seed", 0, "generator seed override (0 uses the configured seed)")
	plotDir := flag.String("plots", "", "directory for PNG charts override")
	storeDSN := flag.String("store", "", "results store DSN override (SQLite path or postgres:// URL)")
	flag.Parse()

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := logging.New(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over the config file.
	if *inputFlag != "" {
		conf.Input.File = *inputFlag
	}
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if *generateCount > 0 {
		conf.Generate.Count = *generateCount
	}
	if *seed != 0 {
		conf.Generate.Seed = *seed
	}
	if *plotDir != "" {
		conf.Plot.Directory = *plotDir
	}
	if *storeDSN != "" {
		conf.Store.DSN = *storeDSN
	}

	opts := runOptions{generate: *generateCount > 0}
	if err := run(context.Background(), logger, conf, opts, os.Stdout); err != nil {
		logger.Fatal("analysis failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}

type runOptions struct {
	generate bool
}

// run executes one batch: optional generation, reading, analysis, reporting,
// charts and storage.
func run(ctx context.Context, logger *zap.Logger, conf *config.Configuration, opts runOptions, stdout io.Writer) error {
	for _, warning := range conf.Normalize() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
		return err
	}

	if opts.generate {
		genOpts := generate.Options{
			Count:         conf.Generate.Count,
			Seed:          conf.Generate.Seed,
			Tolerance:     conf.Solver.DefaultTolerance,
			MaxIterations: conf.Solver.DefaultMaxIterations,
		}
		if err := generate.WriteFile(logger, conf.Input.File, genOpts); err != nil {
			return err
		}
	}

	list, parseErrors, err := cases.ReadFile(logger, conf.Input.File)
	if err != nil {
		return err
	}

	runner, err := analysis.NewRunner(logger, analysis.SettingsFromConfig(*conf))
	if err != nil {
		return err
	}
	start := time.Now()
	results := runner.RunAll(list)
	logger.Info(fmt.Sprintf("analysed %d cases", len(results)),
		zap.String("op", "main"),
		zap.Int("skipped", len(parseErrors)+len(list)-len(results)),
		zap.Duration("duration", time.Since(start)),
	)

	if err := output.Write(stdout, conf.Output.Format, results, parseErrors); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if conf.Plot.Directory != "" {
		if err := charts.Render(logger, conf.Plot.Directory, results); err != nil {
			return err
		}
	}

	if conf.Store.DSN != "" {
		s, err := store.Open(ctx, conf.Store.DSN)
		if err != nil {
			return err
		}
		defer func() {
			_ = s.Close()
		}()
		runID := store.NewRunID(start)
		if err := s.SaveRun(ctx, runID, results); err != nil {
			return err
		}
		logger.Info("results stored",
			zap.String("op", "main"),
			zap.String("runId", runID),
		)
	}

	return nil
}
