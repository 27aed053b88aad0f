package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/services/aggregator"
	"github.com/ternarybob/todayvn/internal/services/digest"
	"github.com/ternarybob/todayvn/internal/services/llm"
	"github.com/ternarybob/todayvn/internal/services/media"
	"github.com/ternarybob/todayvn/internal/services/pipeline"
	"github.com/ternarybob/todayvn/internal/services/scheduler"
	"github.com/ternarybob/todayvn/internal/services/speech"
	"github.com/ternarybob/todayvn/internal/services/translator"
	"github.com/ternarybob/todayvn/internal/services/upload"
	"github.com/ternarybob/todayvn/internal/sources"
	"github.com/ternarybob/todayvn/internal/storage"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Storage    *storage.Storage
	RunStorage interfaces.RunStorage

	// Text generation
	LLMFactory *llm.ProviderFactory
	Generator  interfaces.TextGenerator

	// Stage services
	TranslatorService *translator.Service
	WeatherTranslator *translator.WeatherTranslator
	DigestService     *digest.Service
	SpeechService     *speech.Service
	MediaService      *media.Service
	UploadService     *upload.Service

	SchedulerService *scheduler.Service
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.initServices()

	logger.Debug().
		Str("data_dir", cfg.Storage.DataDir).
		Str("ledger", cfg.Storage.Badger.Path).
		Str("llm_provider", string(cfg.LLM.DefaultProvider)).
		Msg("Application initialization complete")

	return app, nil
}

func (a *App) initStorage() error {
	store, err := storage.New(a.Logger, a.Config)
	if err != nil {
		return err
	}
	a.Storage = store
	a.RunStorage = store.Ledger.RunStorage()
	return nil
}

// initServices builds the stage services in dependency order
func (a *App) initServices() {
	cfg := a.Config

	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	a.Generator = llm.NewGenerator(a.LLMFactory, cfg.Translator.Model, common.ParseDuration(cfg.Translator.Timeout, 90*time.Second))

	a.TranslatorService = translator.NewService(a.Generator, a.Storage.Reports, cfg.Translator, cfg.Pipeline.Concurrency, a.Logger)
	a.WeatherTranslator = translator.NewWeatherTranslator(a.Generator, a.Logger)
	a.DigestService = digest.NewService(a.Logger)

	runner := common.NewExecRunner()
	a.SpeechService = speech.NewService(runner, cfg.Speech, a.Logger)
	a.MediaService = media.NewService(runner, cfg.Media, a.Logger)
	a.UploadService = upload.NewService(cfg.Upload, a.Logger)
}

// newPipeline assembles a pipeline around a fresh source registry; registries are never shared across runs
func (a *App) newPipeline() *pipeline.Service {
	registry := sources.NewRegistry(a.Config, a.Logger)
	agg := aggregator.NewService(registry, a.WeatherTranslator, a.Storage.Reports, a.Config, a.Logger)

	return pipeline.NewService(pipeline.Stages{
		Aggregator: agg,
		Translator: a.TranslatorService,
		Digest:     a.DigestService,
		Speech:     a.SpeechService,
		Media:      a.MediaService,
		Uploader:   a.UploadService,
	}, a.Storage.Reports, a.RunStorage, pipeline.Options{
		ReuseArtifacts:    a.Config.Pipeline.ReuseArtifacts,
		UploadEnabled:     a.Config.Pipeline.UploadEnabled,
		DefaultBackground: a.Config.Media.DefaultBackground,
	}, a.Logger)
}

// RunOnce runs the pipeline for runID; an empty runID is derived from target
func (a *App) RunOnce(ctx context.Context, runID string, target time.Time) (*models.RunRecord, error) {
	target = target.In(a.Config.Location())
	if runID == "" {
		runID = common.NewRunID(target)
	}
	return a.newPipeline().Run(ctx, runID, target)
}

// Serve runs the pipeline on the configured schedule until ctx is cancelled
func (a *App) Serve(ctx context.Context) error {
	if a.Config.Schedule.Cron == "" {
		return errors.New("no schedule configured")
	}

	a.SchedulerService = scheduler.NewService(a.Config.Location(), a.Logger)
	err := a.SchedulerService.Schedule(a.Config.Schedule.Cron, func(jobCtx context.Context, fired time.Time) error {
		_, err := a.RunOnce(jobCtx, "", fired)
		return err
	})
	if err != nil {
		return err
	}
	if err := a.SchedulerService.Start(); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.SchedulerService.Stop(stopCtx)
}

// RunStatus returns the ledger record for runID
func (a *App) RunStatus(ctx context.Context, runID string) (*models.RunRecord, error) {
	return a.RunStorage.GetRun(ctx, runID)
}

// RecentRuns returns up to limit ledger records, newest first
func (a *App) RecentRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	return a.RunStorage.ListRuns(ctx, limit)
}

// Close releases the LLM clients and the ledger
func (a *App) Close() error {
	var errs []error
	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
