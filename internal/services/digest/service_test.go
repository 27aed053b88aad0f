package digest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/models"
)

func testDocument() *models.ReportDocument {
	doc := models.NewReportDocument(models.Metadata{Date: "2025-01-15", Time: "07:00", Location: "Hồ Chí Minh"})
	doc.AddSection("안전 및 기상 관제", models.PriorityP0, []models.Item{
		models.WeatherItem{
			ItemBase: models.ItemBase{Title: "기상 (NCHMF)", Content: "흐림", URL: "https://www.nchmf.gov.vn/"},
			Temp:     "29",
			Humidity: "68",
		},
	})
	doc.AddSection("Nhân Dân", models.PriorityP1, []models.Item{
		models.NewsItem{ItemBase: models.ItemBase{
			Title:   "정부 <특별> 발표",
			Content: "새 정책_요약",
			URL:     "https://nhandan.vn/a",
			Note:    "후속 보도 예정",
		}},
	})
	doc.AddSection("Tuổi Trẻ", models.PriorityP2, nil)
	return doc
}

func TestBuild(t *testing.T) {
	service := NewService(arbor.NewLogger())

	digest, err := service.Build(testDocument())
	require.NoError(t, err)

	assert.Equal(t, "오늘의 베트남 뉴스 | 2025-01-15 07:00", digest.Title)

	assert.Contains(t, digest.Markdown, "# 오늘의 베트남 뉴스 | 2025-01-15 07:00\n")
	assert.Contains(t, digest.Markdown, "## 안전 및 기상 관제\n")
	assert.Contains(t, digest.Markdown, "- **[기상 (NCHMF)](https://www.nchmf.gov.vn/)**: 흐림 (기온 29°C, 습도 68%)\n")
	assert.Contains(t, digest.Markdown, "새 정책\\_요약")
	assert.Contains(t, digest.Markdown, "  - 후속 보도 예정")
	assert.Contains(t, digest.Markdown, "_새로운 소식이 없습니다._")

	assert.Contains(t, digest.HTML, "<h2>Nhân Dân</h2>")
	assert.Contains(t, digest.HTML, `<a href="https://nhandan.vn/a">`)
	assert.Contains(t, digest.HTML, "<title>오늘의 베트남 뉴스 | 2025-01-15 07:00</title>")

	assert.Contains(t, digest.Description, "[Nhân Dân]\n• 정부 특별 발표\n  https://nhandan.vn/a")
	assert.NotContains(t, digest.Description, "<")
	assert.NotContains(t, digest.Description, ">")
}

func TestBuild_NilDocument(t *testing.T) {
	_, err := NewService(arbor.NewLogger()).Build(nil)
	require.Error(t, err)
	assert.Equal(t, models.StageDigest, err.(*models.StageError).Stage)
}

func TestDescription_Capped(t *testing.T) {
	doc := models.NewReportDocument(models.Metadata{Date: "2025-01-15", Time: "07:00"})
	items := make([]models.Item, 0, 200)
	for i := 0; i < 200; i++ {
		items = append(items, models.NewsItem{ItemBase: models.ItemBase{
			Title: strings.Repeat("베트남", 10),
			URL:   "https://example.vn/article",
		}})
	}
	doc.AddSection("VnExpress", models.PriorityP2, items)

	description := Description(doc)
	assert.LessOrEqual(t, len(description), MaxDescriptionBytes)
	assert.True(t, utf8.ValidString(description))
}

func TestTruncateBytes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{name: "short", input: "abc", limit: 5, expected: "abc"},
		{name: "ascii cut", input: "abcdef", limit: 3, expected: "abc"},
		{name: "no split rune", input: "가나다", limit: 4, expected: "가"},
		{name: "exact rune boundary", input: "가나다", limit: 6, expected: "가나"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncateBytes(tt.input, tt.limit))
		})
	}
}
