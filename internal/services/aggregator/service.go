package aggregator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/sources"
	"github.com/ternarybob/todayvn/internal/storage/report"
)

const (
	// SafetyPlaceholder is spoken when no safety metric produced anything
	SafetyPlaceholder = "기상 및 공기질 정보를 수집 중입니다..."

	// SafetyFallbackURL accompanies the safety placeholder
	SafetyFallbackURL = "https://www.nchmf.gov.vn/"

	// NewsPlaceholder is used for a P0 news section that produced nothing
	NewsPlaceholder = "오늘은 새로운 소식을 가져오지 못했습니다."

	weatherTitle = "기상 (NCHMF)"
	airTitle     = "공기질"
)

// ConditionTranslator turns a Vietnamese weather condition into Korean
type ConditionTranslator interface {
	TranslateCondition(ctx context.Context, condition string) string
}

// Service drives every source for one run and assembles the raw report
type Service struct {
	registry   *sources.Registry
	conditions ConditionTranslator
	store      *report.Store
	config     *common.Config
	logger     arbor.ILogger
}

// NewService creates the aggregator. conditions may be nil, in which case the raw
// condition text is kept.
func NewService(registry *sources.Registry, conditions ConditionTranslator, store *report.Store, config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		registry:   registry,
		conditions: conditions,
		store:      store,
		config:     config,
		logger:     logger,
	}
}

// Aggregate collects the raw document for target and persists it as the run's raw artifact.
// It fails with an AggregationFailure, and writes nothing, when no section has real content.
func (s *Service) Aggregate(ctx context.Context, runID string, target time.Time) (*models.ReportDocument, error) {
	doc := s.Collect(ctx, target)

	if doc.ContentSections() == 0 {
		return nil, models.NewStageError(models.KindAggregation, models.StageAggregate, "",
			errors.New("no source produced any content"))
	}

	path := s.store.Artifacts(runID).Raw
	if err := s.store.SaveDocument(path, doc); err != nil {
		return nil, models.NewStageError(models.KindAggregation, models.StageAggregate, "", err)
	}

	s.logger.Info().
		Str("run_id", runID).
		Int("sections", len(doc.Sections)).
		Int("content_sections", doc.ContentSections()).
		Str("path", path).
		Msg("Raw report saved")

	return doc, nil
}

// safetyResults holds the three metric readings; errors are logged, never returned
type safetyResults struct {
	weather    sources.WeatherReading
	weatherOK  bool
	air        sources.AirQualityReading
	airOK      bool
	earthquake []models.EarthquakeItem
}

// Collect runs every fetcher and merges the results in fixed priority order.
// Completion order of concurrent fetches never affects the document.
func (s *Service) Collect(ctx context.Context, target time.Time) *models.ReportDocument {
	doc := models.NewReportDocument(models.Metadata{
		Date:     target.Format("2006-01-02"),
		Time:     target.Format("15:04"),
		Location: s.config.App.Location,
	})

	var safety safetyResults
	results := make([]sources.Result, len(s.registry.News))

	var g errgroup.Group
	g.SetLimit(s.concurrency())

	// P0 safety metrics are launched first, then news in registry (priority) order
	if s.registry.Weather != nil {
		g.Go(func() error {
			s.guard("NCHMF", func() {
				reading, err := s.registry.Weather.FetchWeather(ctx)
				if err != nil {
					s.logger.Warn().Err(err).Msg("Weather fetch failed")
					return
				}
				safety.weather, safety.weatherOK = reading, true
			})
			return nil
		})
	}
	if s.registry.AirQuality != nil {
		g.Go(func() error {
			s.guard("air quality", func() {
				reading, err := s.registry.AirQuality.FetchAirQuality(ctx)
				if err != nil {
					s.logger.Warn().Err(err).Msg("Air quality fetch failed")
					return
				}
				safety.air, safety.airOK = reading, true
			})
			return nil
		})
	}
	if s.registry.Earthquake != nil {
		g.Go(func() error {
			s.guard("IGP-VAST", func() {
				quakes, err := s.registry.Earthquake.FetchEarthquakes(ctx, target)
				if err != nil {
					s.logger.Warn().Err(err).Msg("Earthquake feed failed")
					return
				}
				safety.earthquake = quakes
			})
			return nil
		})
	}

	for i, fetcher := range s.registry.News {
		g.Go(func() error {
			results[i] = s.fetchNews(ctx, fetcher, target)
			return nil
		})
	}

	_ = g.Wait()

	doc.AddSection(common.SectionSafety, models.PriorityP0, s.safetyItems(ctx, safety))

	for _, result := range results {
		s.merge(doc, result)
	}

	s.logger.Info().
		Str("date", doc.Metadata.Date).
		Int("sources", len(results)).
		Int("sections", len(doc.Sections)).
		Msg("Aggregation complete")

	return doc
}

// fetchNews isolates one fetcher: a panic becomes a FetchError result
func (s *Service) fetchNews(ctx context.Context, fetcher sources.Fetcher, target time.Time) (result sources.Result) {
	result = sources.Result{Source: fetcher.Name(), Priority: fetcher.Priority()}
	s.guard(fetcher.Name(), func() {
		result = fetcher.Fetch(ctx, target)
	})
	if result.Source == "" {
		result.Source = fetcher.Name()
	}
	return result
}

// guard runs fn and converts a panic into a logged fetch failure
func (s *Service) guard(source string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("source", source).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Source panicked, treating as empty")
		}
	}()
	fn()
}

// merge adds a news result to doc, matching sections by name. Empty P2/P1 results are
// omitted; an empty P0 section is kept with a placeholder.
func (s *Service) merge(doc *models.ReportDocument, result sources.Result) {
	if result.Err != nil {
		s.logger.Warn().Err(result.Err).Str("source", result.Source).Msg("Source failed, continuing without it")
	}

	if section := doc.Section(result.Source); section != nil {
		if len(result.Items) > 0 {
			section.Items = dropPlaceholders(section.Items)
			section.Items = append(section.Items, result.Items...)
		}
		return
	}

	if len(result.Items) > 0 {
		doc.AddSection(result.Source, result.Priority, result.Items)
		s.logger.Debug().Str("source", result.Source).Int("items", len(result.Items)).Msg("Section added")
		return
	}

	if result.Priority == models.PriorityP0 {
		doc.AddSection(result.Source, result.Priority, []models.Item{
			models.PlaceholderItem{ItemBase: models.ItemBase{Content: NewsPlaceholder}},
		})
		s.logger.Info().Str("source", result.Source).Msg("P0 section empty, placeholder added")
	}
}

// safetyItems builds the Safety section: earthquakes first, then weather, then air quality,
// or exactly one placeholder when nothing qualified
func (s *Service) safetyItems(ctx context.Context, safety safetyResults) []models.Item {
	items := make([]models.Item, 0, len(safety.earthquake)+2)

	for _, quake := range safety.earthquake {
		items = append(items, quake)
	}

	if safety.weatherOK && !safety.weather.Empty() {
		condition := safety.weather.Condition
		translated := condition
		if s.conditions != nil {
			translated = s.conditions.TranslateCondition(ctx, condition)
		}
		items = append(items, models.WeatherItem{
			ItemBase: models.ItemBase{
				Title:   weatherTitle,
				Content: translated,
				URL:     s.config.Weather.SourceURL,
			},
			Temp:       safety.weather.Temp,
			Humidity:   safety.weather.Humidity,
			RainChance: safety.weather.RainChance,
			Condition:  condition,
		})
	}

	if safety.airOK {
		title := airTitle
		if safety.air.Provider != "" {
			title = fmt.Sprintf("%s (%s)", airTitle, safety.air.Provider)
		}
		items = append(items, models.AirQualityItem{
			ItemBase: models.ItemBase{
				Title:   title,
				Content: particulateSentence(safety.air),
				URL:     s.config.AirQuality.SourceURL,
			},
			AQI:    safety.air.AQI,
			Status: safety.air.Status,
			PM25:   safety.air.PM25,
			PM10:   safety.air.PM10,
		})
	}

	if len(items) == 0 {
		s.logger.Info().Msg("No safety data available, using placeholder")
		return []models.Item{
			models.PlaceholderItem{ItemBase: models.ItemBase{
				Title:   common.SectionSafety,
				Content: SafetyPlaceholder,
				URL:     SafetyFallbackURL,
			}},
		}
	}

	return items
}

func particulateSentence(air sources.AirQualityReading) string {
	parts := make([]string, 0, 2)
	if air.PM25 != "" && air.PM25 != sources.Unknown {
		parts = append(parts, "초미세먼지 "+air.PM25)
	}
	if air.PM10 != "" && air.PM10 != sources.Unknown {
		parts = append(parts, "미세먼지 "+air.PM10)
	}
	return strings.Join(parts, ", ")
}

func dropPlaceholders(items []models.Item) []models.Item {
	kept := items[:0]
	for _, item := range items {
		if item.Kind() != models.ItemKindPlaceholder {
			kept = append(kept, item)
		}
	}
	return kept
}

func (s *Service) concurrency() int {
	if s.config.Pipeline.Concurrency < 1 {
		return 1
	}
	return s.config.Pipeline.Concurrency
}
