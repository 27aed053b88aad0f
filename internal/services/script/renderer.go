// Package script flattens a translated report into narration text for speech synthesis.
package script

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/todayvn/internal/models"
)

const (
	emptySection = "이 섹션에는 새로운 소식이 없습니다."
	closing      = "이상 오늘의 베트남 주요 뉴스였습니다."
	unknownValue = "N/A"
)

var airStatusKorean = map[string]string{
	"Good":                           "좋음",
	"Moderate":                       "보통",
	"Unhealthy for Sensitive Groups": "민감군 나쁨",
	"Unhealthy":                      "나쁨",
	"Very Unhealthy":                 "매우 나쁨",
	"Hazardous":                      "위험",
}

// Render flattens doc into one sentence per line. It is pure: the same document always
// yields the same text. A nil document or one without a parseable date is a RenderFailure.
func Render(doc *models.ReportDocument) (string, error) {
	if doc == nil {
		return "", renderFailure(errors.New("no document"))
	}

	opening, err := openingSentence(doc.Metadata)
	if err != nil {
		return "", renderFailure(err)
	}

	var b builder
	b.add(opening)
	if location := SpeakableText(doc.Metadata.Location); location != "" {
		b.add(fmt.Sprintf("현재 위치는 %s입니다.", location))
	}

	for _, section := range doc.Sections {
		b.add(fmt.Sprintf("다음은 %s 소식입니다.", SpeakableText(section.Name)))

		if len(section.Items) == 0 {
			b.add(emptySection)
			continue
		}
		for _, item := range section.Items {
			renderItem(&b, item)
		}
	}

	b.add(closing)
	return b.String(), nil
}

func renderItem(b *builder, item models.Item) {
	base := item.Base()
	b.add(base.Title)
	b.add(base.Content)

	switch v := item.(type) {
	case models.WeatherItem:
		if known(v.Temp) {
			b.add(fmt.Sprintf("기온은 섭씨 %s도입니다.", v.Temp))
		}
		if known(v.Humidity) {
			b.add(fmt.Sprintf("습도는 %s퍼센트입니다.", v.Humidity))
		}
		if known(v.RainChance) {
			b.add(fmt.Sprintf("강수 확률은 %s퍼센트입니다.", v.RainChance))
		}
	case models.AirQualityItem:
		if known(v.AQI) {
			if status, ok := airStatusKorean[v.Status]; ok {
				b.add(fmt.Sprintf("대기질 지수는 %s, %s 수준입니다.", v.AQI, status))
			} else {
				b.add(fmt.Sprintf("대기질 지수는 %s입니다.", v.AQI))
			}
		}
	}

	if base.Note != "" {
		b.add("참고로, " + base.Note)
	}
}

func openingSentence(meta models.Metadata) (string, error) {
	if strings.TrimSpace(meta.Date) == "" {
		return "", errors.New("document has no date")
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(meta.Date))
	if err != nil {
		return "", fmt.Errorf("invalid document date %q: %w", meta.Date, err)
	}

	stamp := fmt.Sprintf("%d년 %d월 %d일", date.Year(), int(date.Month()), date.Day())
	if clock, err := time.Parse("15:04", strings.TrimSpace(meta.Time)); err == nil {
		stamp += fmt.Sprintf(" %d시", clock.Hour())
		if clock.Minute() > 0 {
			stamp += fmt.Sprintf(" %d분", clock.Minute())
		}
	}

	return stamp + " 기준, 오늘의 베트남 주요 뉴스를 전해 드립니다.", nil
}

func known(value string) bool {
	value = strings.TrimSpace(value)
	return value != "" && !strings.EqualFold(value, unknownValue)
}

func renderFailure(err error) error {
	return models.NewStageError(models.KindRender, models.StageRender, "", err)
}

// builder collects cleaned sentences, skipping empty ones
type builder struct {
	lines []string
}

func (b *builder) add(text string) {
	if s := sentence(SpeakableText(text)); s != "" {
		b.lines = append(b.lines, s)
	}
}

func (b *builder) String() string {
	return strings.Join(b.lines, "\n")
}

// sentence terminates s with a period unless it already ends a sentence
func sentence(s string) string {
	if s == "" {
		return ""
	}
	switch {
	case strings.HasSuffix(s, "."), strings.HasSuffix(s, "!"), strings.HasSuffix(s, "?"), strings.HasSuffix(s, "…"):
		return s
	case strings.HasSuffix(s, ","), strings.HasSuffix(s, ":"), strings.HasSuffix(s, ";"):
		return strings.TrimRight(s, ",:;") + "."
	default:
		return s + "."
	}
}
