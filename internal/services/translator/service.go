// Package translator turns the raw Vietnamese report into the Korean report that every
// downstream stage reads.
package translator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/retry"
	"github.com/ternarybob/todayvn/internal/storage/report"
)

const promptTemplate = `당신은 베트남 뉴스를 한국어 라디오 뉴스로 요약하는 편집자입니다.
아래는 "%s" 섹션의 기사 목록입니다(YAML).

규칙:
- 각 기사마다 title(한국어 제목)과 content(한국어 1~2문장 요약)를 작성하세요.
- url은 원문 그대로 유지하세요.
- 작은따옴표와 스마트 따옴표를 쓰지 마세요.
- 기사 수와 순서를 바꾸지 마세요.
- 설명 없이 YAML 목록만 출력하세요. 형식:
- title: ...
  content: ...
  url: ...

기사:
%s`

// promptItem is the shape each article takes inside the prompt
type promptItem struct {
	Title   string `yaml:"title"`
	Content string `yaml:"content"`
	URL     string `yaml:"url"`
}

// Service translates raw sections and assembles the translated document
type Service struct {
	generator   interfaces.TextGenerator
	store       *report.Store
	config      common.TranslatorConfig
	concurrency int
	logger      arbor.ILogger
}

// NewService creates the translator
func NewService(generator interfaces.TextGenerator, store *report.Store, config common.TranslatorConfig, concurrency int, logger arbor.ILogger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		generator:   generator,
		store:       store,
		config:      config,
		concurrency: concurrency,
		logger:      logger,
	}
}

// TranslateArticles translates at most BatchSize items of section. Any generation or parse
// problem is a TranslationFailure for this section only.
func (s *Service) TranslateArticles(ctx context.Context, section *models.Section) ([]models.Item, error) {
	batch := section.Items
	if s.config.BatchSize > 0 && len(batch) > s.config.BatchSize {
		batch = batch[:s.config.BatchSize]
	}

	prompt, err := buildPrompt(section.Name, batch)
	if err != nil {
		return nil, models.NewStageError(models.KindTranslation, models.StageTranslate, section.Name, err)
	}

	policy := &retry.Policy{
		MaxAttempts: s.config.MaxAttempts,
		RetryIf: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
	}

	text, err := retry.DoValue(ctx, policy, s.logger, func(ctx context.Context) (string, error) {
		return s.generator.GenerateText(ctx, prompt)
	})
	if err != nil {
		return nil, models.NewStageError(models.KindTranslation, models.StageTranslate, section.Name, err)
	}

	items, err := ParseTranslation(text, batch)
	if err != nil {
		return nil, models.NewStageError(models.KindTranslation, models.StageTranslate, section.Name, err)
	}

	return items, nil
}

// TranslateDocument translates every news section of raw. Sections that fail keep their
// original items. Safety and placeholder-only sections are already speakable and pass through.
// The result is in canonical order with sequential ids.
func (s *Service) TranslateDocument(ctx context.Context, raw *models.ReportDocument) (*models.ReportDocument, error) {
	if raw == nil {
		return nil, models.NewStageError(models.KindTranslationExhaustion, models.StageTranslate, "", errors.New("no raw document"))
	}

	translated := make([]*models.Section, len(raw.Sections))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, section := range raw.Sections {
		g.Go(func() error {
			translated[i] = s.translateSection(ctx, section)
			return nil
		})
	}
	_ = g.Wait()

	doc := models.NewReportDocument(raw.Metadata)
	survivors := make([]*models.Section, 0, len(translated))
	for _, section := range translated {
		if section != nil && len(section.Items) > 0 {
			survivors = append(survivors, section)
		}
	}

	if len(survivors) == 0 {
		return nil, models.NewStageError(models.KindTranslationExhaustion, models.StageTranslate, "",
			errors.New("no section survived translation"))
	}

	SortSections(survivors, s.config.SectionOrder)
	for _, section := range survivors {
		doc.AddSection(section.Name, section.Priority, section.Items)
	}

	return doc, nil
}

// Translate translates raw and persists the result as the run's translated artifact
func (s *Service) Translate(ctx context.Context, runID string, raw *models.ReportDocument) (*models.ReportDocument, error) {
	doc, err := s.TranslateDocument(ctx, raw)
	if err != nil {
		return nil, err
	}

	path := s.store.Artifacts(runID).Translated
	if err := s.store.SaveDocument(path, doc); err != nil {
		return nil, models.NewStageError(models.KindTranslationExhaustion, models.StageTranslate, "", err)
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("sections", len(doc.Sections)).
		Str("path", path).
		Msg("Translated report saved")

	return doc, nil
}

func (s *Service) translateSection(ctx context.Context, section *models.Section) *models.Section {
	out := &models.Section{
		Name:     section.Name,
		Priority: section.Priority,
		Items:    section.Items,
	}

	if !needsTranslation(section) {
		return out
	}

	items, err := s.TranslateArticles(ctx, section)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("section", section.Name).
			Int("items", len(section.Items)).
			Msg("Translation failed, passing original items through")
		return out
	}

	s.logger.Debug().Str("section", section.Name).Int("items", len(items)).Msg("Section translated")
	out.Items = items
	return out
}

// needsTranslation reports whether section carries news items. The safety section is
// composed in Korean at aggregation and placeholders are fixed Korean text.
func needsTranslation(section *models.Section) bool {
	if section.Name == common.SectionSafety {
		return false
	}
	for _, item := range section.Items {
		if item.Kind() == models.ItemKindNews {
			return true
		}
	}
	return false
}

func buildPrompt(sectionName string, items []models.Item) (string, error) {
	entries := make([]promptItem, 0, len(items))
	for _, item := range items {
		base := item.Base()
		entries = append(entries, promptItem{Title: base.Title, Content: base.Content, URL: base.URL})
	}

	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt items: %w", err)
	}
	return fmt.Sprintf(promptTemplate, sectionName, string(data)), nil
}

// SortSections orders sections canonically: names listed in order come first in that order,
// then the rest by priority, keeping input order within a priority
func SortSections(sections []*models.Section, order []string) {
	index := make(map[string]int, len(order))
	for i, name := range order {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	key := func(section *models.Section) int {
		if i, ok := index[section.Name]; ok {
			return i
		}
		return len(order) + section.Priority.Rank()
	}

	sort.SliceStable(sections, func(i, j int) bool {
		return key(sections[i]) < key(sections[j])
	})
}
