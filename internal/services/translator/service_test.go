package translator

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/storage/report"
)

// mockGenerator is a call-counting TextGenerator
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newsItem(title, content, url string) models.NewsItem {
	return models.NewsItem{ItemBase: models.ItemBase{Title: title, Content: content, URL: url}, Date: "10/02/2026"}
}

func testConfig() common.TranslatorConfig {
	return common.NewDefaultConfig().Translator
}

func newTestService(t *testing.T, generator *mockGenerator) (*Service, *report.Store) {
	t.Helper()
	store, err := report.NewStore(t.TempDir(), arbor.NewLogger())
	require.NoError(t, err)
	return NewService(generator, store, testConfig(), 2, arbor.NewLogger()), store
}

func TestTranslateArticles_Success(t *testing.T) {
	generator := new(mockGenerator)
	generator.On("GenerateText", mock.Anything, mock.AnythingOfType("string")).Return("```yaml\n"+
		"- title: 보건부 발표\n  content: 보건부가 새 지침을 발표했습니다.\n  url: https://suckhoedoisong.vn/a\n"+
		"- title: 두 번째\n  content: 두 번째 요약입니다.\n"+
		"```", nil).Once()

	svc, _ := newTestService(t, generator)
	section := &models.Section{Name: common.SectionHealth, Priority: models.PriorityP0, Items: []models.Item{
		newsItem("Bộ Y tế", "Nội dung", "https://suckhoedoisong.vn/a"),
		newsItem("Thứ hai", "Nội dung hai", "https://suckhoedoisong.vn/b"),
	}}

	items, err := svc.TranslateArticles(context.Background(), section)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "보건부 발표", items[0].Base().Title)
	assert.Equal(t, "https://suckhoedoisong.vn/b", items[1].Base().URL, "missing url falls back to the original")
	generator.AssertExpectations(t)
}

func TestTranslateArticles_BatchCap(t *testing.T) {
	generator := new(mockGenerator)
	var prompt string
	generator.On("GenerateText", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return("- title: a\n  content: b\n  url: u", nil)

	svc, _ := newTestService(t, generator)
	svc.config.BatchSize = 2

	section := &models.Section{Name: "VnExpress", Priority: models.PriorityP2, Items: []models.Item{
		newsItem("one", "1", "https://x/1"),
		newsItem("two", "2", "https://x/2"),
		newsItem("three", "3", "https://x/3"),
	}}

	_, err := svc.TranslateArticles(context.Background(), section)

	require.NoError(t, err)
	assert.Contains(t, prompt, "https://x/2")
	assert.NotContains(t, prompt, "https://x/3")
}

func TestTranslateArticles_GeneratorErrorRetriedThenTyped(t *testing.T) {
	generator := new(mockGenerator)
	generator.On("GenerateText", mock.Anything, mock.Anything).Return("", errors.New("503 unavailable"))

	svc, _ := newTestService(t, generator)
	section := &models.Section{Name: "VnExpress", Priority: models.PriorityP2, Items: []models.Item{newsItem("a", "b", "c")}}

	items, err := svc.TranslateArticles(context.Background(), section)

	assert.Nil(t, items)
	assert.ErrorIs(t, err, models.ErrTranslation)
	var stageErr *models.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "VnExpress", stageErr.Name)
	assert.Equal(t, models.StageTranslate, stageErr.Stage)
	generator.AssertNumberOfCalls(t, "GenerateText", 2)
}

func TestTranslateDocument_FallbackKeepsOriginalsVerbatim(t *testing.T) {
	generator := new(mockGenerator)
	generator.On("GenerateText", mock.Anything, mock.Anything).Return("Xin lỗi, tôi không thể: [unclosed", nil)

	svc, store := newTestService(t, generator)
	original := []models.Item{
		newsItem("Giá xăng giảm", "Giá xăng giảm mạnh", "https://vnexpress.net/a"),
		newsItem("Tin thứ hai", "Nội dung", "https://vnexpress.net/b"),
	}
	raw := models.NewReportDocument(models.Metadata{Date: "2026-02-10", Location: "HCMC"})
	raw.AddSection("VnExpress", models.PriorityP2, original)

	doc, err := svc.Translate(context.Background(), "20260210_0700", raw)

	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, original, doc.Sections[0].Items)
	assert.True(t, report.Exists(store.Artifacts("20260210_0700").Translated))
}

func TestTranslateDocument_CanonicalOrder(t *testing.T) {
	generator := new(mockGenerator)
	generator.On("GenerateText", mock.Anything, mock.Anything).Return("", errors.New("offline"))

	svc, _ := newTestService(t, generator)

	raw := models.NewReportDocument(models.Metadata{Date: "2026-02-10"})
	raw.AddSection("The Saigon Times", models.PriorityP2, []models.Item{newsItem("s", "s", "u")})
	raw.AddSection(common.SectionGovernment, models.PriorityP1, []models.Item{newsItem("g", "g", "u")})
	raw.AddSection("VietnamNet", models.PriorityP2, []models.Item{newsItem("v", "v", "u")})
	raw.AddSection(common.SectionHealth, models.PriorityP0, []models.Item{newsItem("h", "h", "u")})
	raw.AddSection(common.SectionSafety, models.PriorityP0, []models.Item{models.WeatherItem{ItemBase: models.ItemBase{Title: "기상"}}})

	doc, err := svc.TranslateDocument(context.Background(), raw)
	require.NoError(t, err)

	names := make([]string, 0, len(doc.Sections))
	ids := make([]string, 0, len(doc.Sections))
	for _, section := range doc.Sections {
		names = append(names, section.Name)
		ids = append(ids, section.ID)
	}
	assert.Equal(t, []string{common.SectionSafety, common.SectionHealth, common.SectionGovernment, "The Saigon Times", "VietnamNet"}, names)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids)
}

func TestTranslateDocument_SafetyNotSentToGenerator(t *testing.T) {
	generator := new(mockGenerator)

	svc, _ := newTestService(t, generator)
	raw := models.NewReportDocument(models.Metadata{Date: "2026-02-10"})
	raw.AddSection(common.SectionSafety, models.PriorityP0, []models.Item{
		models.WeatherItem{ItemBase: models.ItemBase{Title: "기상 (NCHMF)", Content: "흐림"}, Temp: "29"},
	})
	raw.AddSection(common.SectionHealth, models.PriorityP0, []models.Item{
		models.PlaceholderItem{ItemBase: models.ItemBase{Content: "없음"}},
	})

	doc, err := svc.TranslateDocument(context.Background(), raw)

	require.NoError(t, err)
	assert.Len(t, doc.Sections, 2)
	generator.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything)
}

func TestTranslate_ExhaustionWritesNothing(t *testing.T) {
	generator := new(mockGenerator)
	svc, store := newTestService(t, generator)

	raw := models.NewReportDocument(models.Metadata{Date: "2026-02-10"})
	raw.AddSection("VnExpress", models.PriorityP2, nil)

	doc, err := svc.Translate(context.Background(), "20260210_0700", raw)

	assert.Nil(t, doc)
	assert.ErrorIs(t, err, models.ErrTranslationExhaustion)
	_, statErr := os.Stat(store.Artifacts("20260210_0700").Translated)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSortSections_UnlistedByPriority(t *testing.T) {
	sections := []*models.Section{
		{Name: "b", Priority: models.PriorityP2},
		{Name: "a", Priority: models.PriorityP1},
		{Name: "c", Priority: models.PriorityP2},
		{Name: "first", Priority: models.PriorityP2},
	}

	SortSections(sections, []string{"first"})

	names := []string{sections[0].Name, sections[1].Name, sections[2].Name, sections[3].Name}
	assert.Equal(t, []string{"first", "a", "b", "c"}, names)
}
