package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/services/digest"
	"github.com/ternarybob/todayvn/internal/storage/report"
)

const runID = "20250115_0700"

type memoryRuns struct {
	mu    sync.Mutex
	runs  map[string]models.RunRecord
	saves int
}

func newMemoryRuns() *memoryRuns {
	return &memoryRuns{runs: make(map[string]models.RunRecord)}
}

func (m *memoryRuns) SaveRun(_ context.Context, run *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	copied.Stages = append([]models.StageRecord(nil), run.Stages...)
	m.runs[run.RunID] = copied
	m.saves++
	return nil
}

func (m *memoryRuns) GetRun(_ context.Context, id string) (*models.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, interfaces.ErrRunNotFound
	}
	return &run, nil
}

func (m *memoryRuns) ListRuns(context.Context, int) ([]*models.RunRecord, error) { return nil, nil }

func (m *memoryRuns) DeleteRun(context.Context, string) error { return nil }

type fakeAggregator struct {
	calls int
	err   error
}

func (f *fakeAggregator) Aggregate(_ context.Context, _ string, target time.Time) (*models.ReportDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	doc := models.NewReportDocument(models.Metadata{Date: target.Format("2006-01-02"), Time: target.Format("15:04")})
	doc.AddSection("Nhân Dân", models.PriorityP1, []models.Item{
		models.NewsItem{ItemBase: models.ItemBase{Title: "Tin chính phủ", Content: "Nội dung", URL: "https://nhandan.vn/a"}},
	})
	return doc, nil
}

type fakeTranslator struct {
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, _ string, raw *models.ReportDocument) (*models.ReportDocument, error) {
	f.calls++
	doc := models.NewReportDocument(raw.Metadata)
	doc.AddSection("Nhân Dân", models.PriorityP1, []models.Item{
		models.NewsItem{ItemBase: models.ItemBase{Title: "정부 소식", Content: "내용", URL: "https://nhandan.vn/a"}},
	})
	return doc, nil
}

type fakeSpeech struct {
	calls int
	text  string
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, audioPath string) error {
	f.calls++
	f.text = text
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(audioPath, []byte("ID3"), 0644)
}

type fakeMedia struct {
	calls      int
	background string
}

func (f *fakeMedia) Compose(_ context.Context, backgroundPath, _, outputPath string) error {
	f.calls++
	f.background = backgroundPath
	return os.WriteFile(outputPath, []byte("mp4"), 0644)
}

type fakeUploader struct {
	calls    int
	metadata models.UploadMetadata
	err      error
}

func (f *fakeUploader) Metadata(title, description string) models.UploadMetadata {
	return models.UploadMetadata{Title: title, Description: description, Privacy: "private"}
}

func (f *fakeUploader) Upload(_ context.Context, _ string, metadata models.UploadMetadata) (string, error) {
	f.calls++
	f.metadata = metadata
	if f.err != nil {
		return "", f.err
	}
	return "yt123", nil
}

type fixture struct {
	dir        string
	store      *report.Store
	runs       *memoryRuns
	aggregator *fakeAggregator
	translator *fakeTranslator
	speech     *fakeSpeech
	media      *fakeMedia
	uploader   *fakeUploader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := report.NewStore(dir, arbor.NewLogger())
	require.NoError(t, err)

	return &fixture{
		dir:        dir,
		store:      store,
		runs:       newMemoryRuns(),
		aggregator: &fakeAggregator{},
		translator: &fakeTranslator{},
		speech:     &fakeSpeech{},
		media:      &fakeMedia{},
		uploader:   &fakeUploader{},
	}
}

func (f *fixture) service(options Options) *Service {
	logger := arbor.NewLogger()
	return NewService(Stages{
		Aggregator: f.aggregator,
		Translator: f.translator,
		Digest:     digest.NewService(logger),
		Speech:     f.speech,
		Media:      f.media,
		Uploader:   f.uploader,
	}, f.store, f.runs, options, logger)
}

func (f *fixture) background(t *testing.T) string {
	t.Helper()
	path := filepath.Join(f.dir, runID+".mp4")
	require.NoError(t, os.WriteFile(path, []byte("clip"), 0644))
	return path
}

func target() time.Time {
	return time.Date(2025, 1, 15, 7, 0, 0, 0, time.UTC)
}

func stageStatuses(run *models.RunRecord) map[string]models.RunStatus {
	statuses := make(map[string]models.RunStatus)
	for _, stage := range run.Stages {
		statuses[stage.Stage] = stage.Status
	}
	return statuses
}

func TestRun_AllStages(t *testing.T) {
	f := newFixture(t)
	background := f.background(t)

	run, err := f.service(Options{UploadEnabled: true}).Run(context.Background(), runID, target())
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, "yt123", run.VideoID)
	assert.Equal(t, map[string]models.RunStatus{
		models.StageAggregate: models.RunStatusSucceeded,
		models.StageTranslate: models.RunStatusSucceeded,
		models.StageRender:    models.RunStatusSucceeded,
		models.StageDigest:    models.RunStatusSucceeded,
		models.StageSpeech:    models.RunStatusSucceeded,
		models.StageCompose:   models.RunStatusSucceeded,
		models.StageUpload:    models.RunStatusSucceeded,
	}, stageStatuses(run))

	artifacts := f.store.Artifacts(runID)
	for _, path := range []string{artifacts.Narration, artifacts.Digest, artifacts.DigestHTML, artifacts.Audio, artifacts.Video} {
		assert.True(t, report.Exists(path), path)
	}

	assert.Contains(t, f.speech.text, "정부 소식.")
	assert.Equal(t, background, f.media.background)
	assert.Equal(t, "오늘의 베트남 뉴스 | 2025-01-15 07:00", f.uploader.metadata.Title)
	assert.Contains(t, f.uploader.metadata.Description, "정부 소식")

	stored, err := f.runs.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSucceeded, stored.Status)
	assert.Len(t, stored.Stages, 7)
	assert.NotEmpty(t, stored.CorrelationID)
}

func TestRun_ReuseArtifacts(t *testing.T) {
	f := newFixture(t)
	f.background(t)
	ctx := context.Background()

	_, err := f.service(Options{UploadEnabled: true}).Run(ctx, runID, target())
	require.NoError(t, err)

	// The fakes do not persist documents, so seed them the way the real stages would
	raw, _ := f.aggregator.Aggregate(ctx, runID, target())
	translated, _ := f.translator.Translate(ctx, runID, raw)
	artifacts := f.store.Artifacts(runID)
	require.NoError(t, f.store.SaveDocument(artifacts.Raw, raw))
	require.NoError(t, f.store.SaveDocument(artifacts.Translated, translated))

	f.aggregator.calls, f.translator.calls, f.speech.calls, f.media.calls, f.uploader.calls = 0, 0, 0, 0, 0

	run, err := f.service(Options{ReuseArtifacts: true, UploadEnabled: true}).Run(ctx, runID, target())
	require.NoError(t, err)

	assert.Zero(t, f.aggregator.calls)
	assert.Zero(t, f.translator.calls)
	assert.Zero(t, f.speech.calls)
	assert.Zero(t, f.media.calls)
	assert.Zero(t, f.uploader.calls, "a run already uploaded is not uploaded twice")
	assert.Equal(t, "yt123", run.VideoID)

	for _, stage := range run.Stages {
		assert.Equal(t, models.RunStatusSkipped, stage.Status, stage.Stage)
	}
}

func TestRun_NoBackgroundSkipsComposeAndUpload(t *testing.T) {
	f := newFixture(t)

	run, err := f.service(Options{UploadEnabled: true, DefaultBackground: filepath.Join(f.dir, "missing.jpg")}).
		Run(context.Background(), runID, target())
	require.NoError(t, err)

	statuses := stageStatuses(run)
	assert.Equal(t, models.RunStatusSucceeded, run.Status)
	assert.Equal(t, models.RunStatusSucceeded, statuses[models.StageSpeech])
	assert.Equal(t, models.RunStatusSkipped, statuses[models.StageCompose])
	assert.Equal(t, models.RunStatusSkipped, statuses[models.StageUpload])
	assert.Zero(t, f.media.calls)
	assert.Zero(t, f.uploader.calls)
}

func TestRun_DefaultBackground(t *testing.T) {
	f := newFixture(t)
	fallback := filepath.Join(f.dir, "default.jpg")
	require.NoError(t, os.WriteFile(fallback, []byte("jpg"), 0644))

	_, err := f.service(Options{DefaultBackground: fallback}).Run(context.Background(), runID, target())
	require.NoError(t, err)
	assert.Equal(t, fallback, f.media.background)
	assert.Zero(t, f.uploader.calls, "upload disabled")
}

func TestRun_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *fixture)
		stage      string
		kind       models.ErrorKind
		sentinel   error
		stageCount int
	}{
		{
			name: "aggregation failure stops the run",
			setup: func(f *fixture) {
				f.aggregator.err = models.NewStageError(models.KindAggregation, models.StageAggregate, "", errors.New("no source produced any content"))
			},
			stage:      models.StageAggregate,
			kind:       models.KindAggregation,
			sentinel:   models.ErrAggregation,
			stageCount: 1,
		},
		{
			name: "speech failure keeps earlier artifacts",
			setup: func(f *fixture) {
				f.speech.err = models.NewStageError(models.KindSpeechSynthesis, models.StageSpeech, "", errors.New("edge-tts: exit status 1"))
			},
			stage:      models.StageSpeech,
			kind:       models.KindSpeechSynthesis,
			sentinel:   models.ErrSpeechSynthesis,
			stageCount: 5,
		},
		{
			name: "upload failure",
			setup: func(f *fixture) {
				f.uploader.err = models.NewStageError(models.KindUpload, models.StageUpload, "", errors.New("quota exceeded"))
			},
			stage:      models.StageUpload,
			kind:       models.KindUpload,
			sentinel:   models.ErrUpload,
			stageCount: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.background(t)
			tt.setup(f)

			run, err := f.service(Options{UploadEnabled: true}).Run(context.Background(), runID, target())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))

			assert.Equal(t, models.RunStatusFailed, run.Status)
			require.Len(t, run.Stages, tt.stageCount)
			last := run.Stages[len(run.Stages)-1]
			assert.Equal(t, tt.stage, last.Stage)
			assert.Equal(t, models.RunStatusFailed, last.Status)
			assert.Equal(t, tt.kind, last.ErrorKind)
			assert.NotEmpty(t, last.Error)

			stored, err := f.runs.GetRun(context.Background(), runID)
			require.NoError(t, err)
			assert.Equal(t, models.RunStatusFailed, stored.Status)
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.service(Options{}).Run(ctx, runID, target())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, models.RunStatusFailed, run.Status)
	assert.Zero(t, f.aggregator.calls)
}
