// Package pipeline runs one report end to end: aggregate, translate, render, digest, speech,
// compose and upload. Every stage transition is checkpointed in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/services/digest"
	"github.com/ternarybob/todayvn/internal/services/media"
	"github.com/ternarybob/todayvn/internal/services/script"
	"github.com/ternarybob/todayvn/internal/storage/report"
)

// Aggregator produces and persists the raw document
type Aggregator interface {
	Aggregate(ctx context.Context, runID string, target time.Time) (*models.ReportDocument, error)
}

// Translator produces and persists the translated document
type Translator interface {
	Translate(ctx context.Context, runID string, raw *models.ReportDocument) (*models.ReportDocument, error)
}

// DigestBuilder renders the Markdown, HTML and upload text of a translated document
type DigestBuilder interface {
	Build(doc *models.ReportDocument) (*digest.Digest, error)
}

// Publisher uploads the final video with metadata derived from the digest
type Publisher interface {
	interfaces.VideoUploader
	Metadata(title, description string) models.UploadMetadata
}

// Stages holds the collaborators of each stage
type Stages struct {
	Aggregator Aggregator
	Translator Translator
	Digest     DigestBuilder
	Speech     interfaces.SpeechSynthesizer
	Media      interfaces.VideoCompositor
	Uploader   Publisher
}

// Options selects the run policies
type Options struct {
	ReuseArtifacts    bool   // skip a stage whose artifact already exists
	UploadEnabled     bool   // attempt the upload stage at all
	DefaultBackground string // used when the run has no background clip of its own
}

// Service runs the pipeline
type Service struct {
	stages  Stages
	store   *report.Store
	runs    interfaces.RunStorage
	options Options
	logger  arbor.ILogger
}

// NewService creates a pipeline runner
func NewService(stages Stages, store *report.Store, runs interfaces.RunStorage, options Options, logger arbor.ILogger) *Service {
	return &Service{
		stages:  stages,
		store:   store,
		runs:    runs,
		options: options,
		logger:  logger,
	}
}

// runState carries what each stage hands to the next
type runState struct {
	target    time.Time
	artifacts report.Artifacts
	raw       *models.ReportDocument
	doc       *models.ReportDocument
	narration string
	digest    *digest.Digest
	composed  bool
	previous  *models.RunRecord
}

// Run executes every stage for runID. The first failing stage stops the run; its typed error is
// returned together with the ledger record, which names the stage and keeps every artifact
// produced so far.
func (s *Service) Run(ctx context.Context, runID string, target time.Time) (*models.RunRecord, error) {
	run := &models.RunRecord{
		RunID:         runID,
		CorrelationID: common.NewCorrelationID(),
		Status:        models.RunStatusRunning,
		TargetDate:    target.Format("2006-01-02"),
		Stages:        make([]models.StageRecord, 0, 7),
	}

	state := &runState{target: target, artifacts: s.store.Artifacts(runID)}
	if previous, err := s.runs.GetRun(ctx, runID); err == nil {
		state.previous = previous
	} else if !errors.Is(err, interfaces.ErrRunNotFound) {
		s.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to read previous run record")
	}

	s.logger.Info().
		Str("run_id", runID).
		Str("correlation_id", run.CorrelationID).
		Str("target_date", run.TargetDate).
		Bool("reuse_artifacts", s.options.ReuseArtifacts).
		Msg("Pipeline run started")
	s.checkpoint(ctx, run)

	steps := []struct {
		name     string
		artifact string
		fn       func(context.Context, *models.RunRecord, *runState) (bool, error)
	}{
		{models.StageAggregate, state.artifacts.Raw, s.aggregate},
		{models.StageTranslate, state.artifacts.Translated, s.translate},
		{models.StageRender, state.artifacts.Narration, s.render},
		{models.StageDigest, state.artifacts.Digest, s.buildDigest},
		{models.StageSpeech, state.artifacts.Audio, s.synthesize},
		{models.StageCompose, state.artifacts.Video, s.compose},
		{models.StageUpload, state.artifacts.Video, s.upload},
	}

	start := time.Now()
	for _, step := range steps {
		if err := s.runStage(ctx, run, state, step.name, step.artifact, step.fn); err != nil {
			run.Status = models.RunStatusFailed
			s.checkpoint(ctx, run)

			s.logger.Error().
				Err(err).
				Str("run_id", runID).
				Str("stage", step.name).
				Str("error_kind", string(models.KindOf(err))).
				Msg("Pipeline run failed")
			return run, err
		}
	}

	run.Status = models.RunStatusSucceeded
	s.checkpoint(ctx, run)

	s.logger.Info().
		Str("run_id", runID).
		Str("video_id", run.VideoID).
		Dur("elapsed", time.Since(start)).
		Msg("Pipeline run completed")
	return run, nil
}

// runStage records the stage as running, executes fn and records the outcome
func (s *Service) runStage(ctx context.Context, run *models.RunRecord, state *runState, name, artifact string,
	fn func(context.Context, *models.RunRecord, *runState) (bool, error)) error {

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("run cancelled before %s: %w", name, err)
	}

	run.Stages = append(run.Stages, models.StageRecord{
		Stage:     name,
		Status:    models.RunStatusRunning,
		Artifact:  artifact,
		StartedAt: time.Now(),
	})
	s.checkpoint(ctx, run)

	skipped, err := fn(ctx, run, state)

	record := &run.Stages[len(run.Stages)-1]
	finished := time.Now()
	record.FinishedAt = &finished

	switch {
	case err != nil:
		record.Status = models.RunStatusFailed
		record.ErrorKind = models.KindOf(err)
		record.Error = err.Error()
	case skipped:
		record.Status = models.RunStatusSkipped
	default:
		record.Status = models.RunStatusSucceeded
	}
	s.checkpoint(ctx, run)

	s.logger.Debug().
		Str("run_id", run.RunID).
		Str("stage", name).
		Str("status", string(record.Status)).
		Dur("elapsed", finished.Sub(record.StartedAt)).
		Msg("Stage finished")
	return err
}

// reusable reports whether path may stand in for re-running its stage
func (s *Service) reusable(paths ...string) bool {
	if !s.options.ReuseArtifacts {
		return false
	}
	for _, path := range paths {
		if !report.Exists(path) {
			return false
		}
	}
	return true
}

func (s *Service) aggregate(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	if s.reusable(state.artifacts.Raw) {
		doc, err := s.store.LoadDocument(state.artifacts.Raw)
		if err == nil {
			state.raw = doc
			s.logger.Info().Str("path", state.artifacts.Raw).Msg("Reusing raw report")
			return true, nil
		}
		s.logger.Warn().Err(err).Str("path", state.artifacts.Raw).Msg("Raw report unreadable, aggregating again")
	}

	doc, err := s.stages.Aggregator.Aggregate(ctx, run.RunID, state.target)
	if err != nil {
		return false, err
	}
	state.raw = doc
	return false, nil
}

func (s *Service) translate(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	if s.reusable(state.artifacts.Translated) {
		doc, err := s.store.LoadDocument(state.artifacts.Translated)
		if err == nil {
			state.doc = doc
			s.logger.Info().Str("path", state.artifacts.Translated).Msg("Reusing translated report")
			return true, nil
		}
		s.logger.Warn().Err(err).Str("path", state.artifacts.Translated).Msg("Translated report unreadable, translating again")
	}

	doc, err := s.stages.Translator.Translate(ctx, run.RunID, state.raw)
	if err != nil {
		return false, err
	}
	state.doc = doc
	return false, nil
}

func (s *Service) render(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	if s.reusable(state.artifacts.Narration) {
		data, err := os.ReadFile(state.artifacts.Narration)
		if err == nil {
			state.narration = string(data)
			return true, nil
		}
	}

	narration, err := script.Render(state.doc)
	if err != nil {
		return false, err
	}
	if err := report.WriteFile(state.artifacts.Narration, []byte(narration)); err != nil {
		return false, models.NewStageError(models.KindRender, models.StageRender, "", err)
	}

	state.narration = narration
	s.logger.Info().Str("path", state.artifacts.Narration).Int("lines", countLines(narration)).Msg("Narration written")
	return false, nil
}

// buildDigest always rebuilds the digest in memory since the upload needs its text; the files
// are only rewritten when they are missing or reuse is off
func (s *Service) buildDigest(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	built, err := s.stages.Digest.Build(state.doc)
	if err != nil {
		return false, err
	}
	state.digest = built

	if s.reusable(state.artifacts.Digest, state.artifacts.DigestHTML) {
		return true, nil
	}

	if err := report.WriteFile(state.artifacts.Digest, []byte(built.Markdown)); err != nil {
		return false, models.NewStageError(models.KindRender, models.StageDigest, "", err)
	}
	if err := report.WriteFile(state.artifacts.DigestHTML, []byte(built.HTML)); err != nil {
		return false, models.NewStageError(models.KindRender, models.StageDigest, "", err)
	}
	return false, nil
}

func (s *Service) synthesize(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	if s.reusable(state.artifacts.Audio) {
		s.logger.Info().Str("path", state.artifacts.Audio).Msg("Reusing narration audio")
		return true, nil
	}
	return false, s.stages.Speech.Synthesize(ctx, state.narration, state.artifacts.Audio)
}

// compose is skipped, not failed, when no background is available
func (s *Service) compose(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	if s.reusable(state.artifacts.Video) {
		state.composed = true
		s.logger.Info().Str("path", state.artifacts.Video).Msg("Reusing final video")
		return true, nil
	}

	candidates := append(s.store.BackgroundCandidates(run.RunID), s.options.DefaultBackground)
	background := media.SelectBackground(candidates...)
	if background == "" {
		s.logger.Warn().Str("run_id", run.RunID).Msg("No background video or image, report stays narration only")
		return true, nil
	}

	if err := s.stages.Media.Compose(ctx, background, state.artifacts.Audio, state.artifacts.Video); err != nil {
		return false, err
	}
	state.composed = true
	return false, nil
}

func (s *Service) upload(ctx context.Context, run *models.RunRecord, state *runState) (bool, error) {
	switch {
	case !s.options.UploadEnabled:
		s.logger.Info().Msg("Upload disabled")
		return true, nil
	case !state.composed || !report.Exists(state.artifacts.Video):
		s.logger.Info().Msg("No final video, upload skipped")
		return true, nil
	case s.options.ReuseArtifacts && state.previous != nil && state.previous.VideoID != "":
		run.VideoID = state.previous.VideoID
		s.logger.Info().Str("video_id", run.VideoID).Msg("Video already uploaded for this run")
		return true, nil
	}

	metadata := s.stages.Uploader.Metadata(state.digest.Title, state.digest.Description)
	videoID, err := s.stages.Uploader.Upload(ctx, state.artifacts.Video, metadata)
	if err != nil {
		return false, err
	}
	run.VideoID = videoID
	return false, nil
}

// checkpoint saves the ledger record; a ledger failure is logged and never fails the run
func (s *Service) checkpoint(ctx context.Context, run *models.RunRecord) {
	if err := s.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Warn().Err(err).Str("run_id", run.RunID).Msg("Failed to checkpoint run")
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	count := 1
	for _, r := range s {
		if r == '\n' {
			count++
		}
	}
	return count
}
