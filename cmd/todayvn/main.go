package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/app"
	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	envFile      = flag.String("env", ".env", "Optional .env file with API keys")
	runID        = flag.String("run-id", "", "Run identifier YYYYMMDD_HHMM (default: now in the configured timezone)")
	serve        = flag.Bool("serve", false, "Run on the configured cron schedule until interrupted")
	statusID     = flag.String("status", "", "Print the ledger of a run and exit")
	listRuns     = flag.Int("runs", 0, "Print the ledger of the N most recent runs and exit")
	noUpload     = flag.Bool("no-upload", false, "Skip the upload stage")
	logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	dataDir      = flag.String("data-dir", "", "Artifact directory (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("TodayVN version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup order: .env -> config (defaults, files, env) -> flags -> logger -> banner
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		arbor.NewLogger().Warn().Err(err).Str("path", *envFile).Msg("Failed to load env file")
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("todayvn.toml"); err == nil {
			configFiles = append(configFiles, "todayvn.toml")
		} else if _, err := os.Stat("deployments/local/todayvn.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/todayvn.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *logLevel, *dataDir, *noUpload)

	if err := config.Validate(); err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Configuration is invalid")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(config, logger)

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, application, config, logger)
	stop()

	if err := application.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close application cleanly")
	}
	os.Exit(code)
}

// execute dispatches to the selected mode and returns the process exit code
func execute(ctx context.Context, application *app.App, config *common.Config, logger arbor.ILogger) int {
	switch {
	case *statusID != "":
		run, err := application.RunStatus(ctx, *statusID)
		if errors.Is(err, interfaces.ErrRunNotFound) {
			fmt.Fprintf(os.Stderr, "no run recorded for %s\n", *statusID)
			return 1
		}
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read run ledger")
			return 1
		}
		printRun(os.Stdout, run)
		return 0

	case *listRuns > 0:
		runs, err := application.RecentRuns(ctx, *listRuns)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to read run ledger")
			return 1
		}
		printRuns(os.Stdout, runs)
		return 0

	case *serve:
		logger.Info().
			Str("schedule", config.Schedule.Cron).
			Str("timezone", config.App.Timezone).
			Msg("Serve mode - Press Ctrl+C to stop")
		if err := application.Serve(ctx); err != nil {
			logger.Error().Err(err).Msg("Scheduler stopped with error")
			return 1
		}
		return 0
	}

	target := time.Now()
	if *runID != "" {
		parsed, err := common.ParseRunID(*runID, config.Location())
		if err != nil {
			logger.Error().Err(err).Msg("Invalid run id")
			return 2
		}
		target = parsed
	}

	run, err := application.RunOnce(ctx, *runID, target)
	if run != nil {
		printRun(os.Stdout, run)
	}
	if err != nil {
		return 1
	}
	return 0
}
