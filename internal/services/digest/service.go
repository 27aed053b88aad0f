// Package digest renders a translated report as Markdown, an HTML preview and the upload text.
package digest

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/ternarybob/todayvn/internal/models"
)

const (
	// MaxDescriptionBytes is the YouTube limit on video descriptions
	MaxDescriptionBytes = 5000
	// MaxTitleRunes is the YouTube limit on video titles
	MaxTitleRunes = 100

	titlePrefix  = "오늘의 베트남 뉴스"
	emptySection = "새로운 소식이 없습니다."
)

// Digest is everything derived from one translated report
type Digest struct {
	Title       string
	Markdown    string
	HTML        string
	Description string
}

// Service builds digests
type Service struct {
	markdown goldmark.Markdown
	logger   arbor.ILogger
}

// NewService creates a digest service with GitHub Flavored Markdown enabled
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithXHTML(),
			),
		),
		logger: logger,
	}
}

// Build renders every digest form of doc
func (s *Service) Build(doc *models.ReportDocument) (*Digest, error) {
	if doc == nil {
		return nil, models.NewStageError(models.KindRender, models.StageDigest, "", fmt.Errorf("no document"))
	}

	markdown := Markdown(doc)

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(markdown), &buf); err != nil {
		return nil, models.NewStageError(models.KindRender, models.StageDigest, "", fmt.Errorf("failed to convert digest to HTML: %w", err))
	}

	digest := &Digest{
		Title:       Title(doc.Metadata),
		Markdown:    markdown,
		HTML:        wrapPage(Title(doc.Metadata), buf.String()),
		Description: Description(doc),
	}

	s.logger.Debug().
		Int("markdown_len", len(digest.Markdown)).
		Int("html_len", len(digest.HTML)).
		Int("description_len", len(digest.Description)).
		Msg("Digest built")
	return digest, nil
}

// Title returns the video title for a report
func Title(meta models.Metadata) string {
	title := strings.TrimSpace(fmt.Sprintf("%s | %s %s", titlePrefix, meta.Date, meta.Time))
	if utf8.RuneCountInString(title) > MaxTitleRunes {
		title = string([]rune(title)[:MaxTitleRunes])
	}
	return title
}

// Markdown renders doc with one heading per section and one bullet per item
func Markdown(doc *models.ReportDocument) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title(doc.Metadata))
	if doc.Metadata.Location != "" {
		fmt.Fprintf(&b, "위치: %s\n\n", doc.Metadata.Location)
	}

	for _, section := range doc.Sections {
		fmt.Fprintf(&b, "## %s\n\n", section.Name)
		if len(section.Items) == 0 {
			fmt.Fprintf(&b, "_%s_\n\n", emptySection)
			continue
		}
		for _, item := range section.Items {
			b.WriteString(markdownItem(item))
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func markdownItem(item models.Item) string {
	base := item.Base()

	heading := base.Title
	if heading == "" {
		heading = base.Content
	}
	line := "- "
	switch {
	case base.URL != "" && heading != "":
		line += fmt.Sprintf("**[%s](%s)**", escapeMarkdown(heading), base.URL)
	case heading != "":
		line += fmt.Sprintf("**%s**", escapeMarkdown(heading))
	default:
		line += base.URL
	}
	if base.Title != "" && base.Content != "" {
		line += ": " + escapeMarkdown(base.Content)
	}

	if details := detailText(item); details != "" {
		line += " (" + details + ")"
	}
	if base.Note != "" {
		line += "\n  - " + escapeMarkdown(base.Note)
	}
	return line + "\n"
}

// detailText lists the numeric readings of weather and air quality items
func detailText(item models.Item) string {
	var parts []string
	add := func(label, value, unit string) {
		value = strings.TrimSpace(value)
		if value != "" && value != "N/A" {
			parts = append(parts, label+" "+value+unit)
		}
	}

	switch v := item.(type) {
	case models.WeatherItem:
		add("기온", v.Temp, "°C")
		add("습도", v.Humidity, "%")
		add("강수 확률", v.RainChance, "%")
	case models.AirQualityItem:
		add("AQI", v.AQI, "")
		add("상태", v.Status, "")
	}
	return strings.Join(parts, ", ")
}

// Description renders a plain-text summary for the upload, capped at MaxDescriptionBytes.
// Angle brackets are removed because the upload API rejects them.
func Description(doc *models.ReportDocument) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s 기준 베트남 주요 뉴스입니다.\n", doc.Metadata.Date, doc.Metadata.Time)
	for _, section := range doc.Sections {
		fmt.Fprintf(&b, "\n[%s]\n", section.Name)
		if len(section.Items) == 0 {
			b.WriteString(emptySection + "\n")
			continue
		}
		for _, item := range section.Items {
			base := item.Base()
			text := base.Title
			if text == "" {
				text = base.Content
			}
			if details := detailText(item); details != "" {
				text += " (" + details + ")"
			}
			if text != "" {
				fmt.Fprintf(&b, "• %s\n", text)
			}
			if base.URL != "" {
				fmt.Fprintf(&b, "  %s\n", base.URL)
			}
		}
	}

	description := strings.NewReplacer("<", "", ">", "").Replace(b.String())
	return truncateBytes(strings.TrimSpace(description), MaxDescriptionBytes)
}

// truncateBytes cuts s to at most limit bytes without splitting a rune
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

var markdownEscaper = strings.NewReplacer("*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]", "`", "\\`")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func wrapPage(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: -apple-system, "Apple SD Gothic Neo", "Noto Sans KR", sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; color: #222; }
h1 { font-size: 1.5rem; border-bottom: 1px solid #ddd; padding-bottom: .5rem; }
h2 { font-size: 1.2rem; margin-top: 2rem; }
a { color: #0b57d0; }
</style>
</head>
<body>
%s</body>
</html>
`, html.EscapeString(title), body)
}
