package translator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ternarybob/arbor"
	"golang.org/x/text/unicode/norm"

	"github.com/ternarybob/todayvn/internal/interfaces"
)

type phrase struct {
	vi string
	ko string
}

// weatherPhrases maps NCHMF condition phrases to short Korean forms.
// Matching is case-insensitive and longest phrase first, so "không mưa" wins over "mưa".
var weatherPhrases = []phrase{
	{"mây thay đổi", "구름 낌"},
	{"trời nắng", "맑음"},
	{"nắng đẹp", "맑고 좋음"},
	{"trời đẹp", "좋음"},
	{"trời mưa", "비"},
	{"không mưa", "비 없음"},
	{"mưa rào", "소나기"},
	{"mưa nhỏ", "약한 비"},
	{"mưa vừa", "보통 비"},
	{"mưa to", "강한 비"},
	{"mưa", "비"},
	{"nhiều mây", "흐림"},
	{"trời âm u", "흐림"},
	{"âm u", "흐림"},
	{"trời giông", "천둥번개"},
	{"giông", "천둥번개"},
	{"sấm chớp", "천둥번개"},
	{"sương mù", "안개"},
	{"mây tản", "흐린 뒤 맑음"},
	{"nắng nóng", "무더위"},
	{"nóng", "더움"},
	{"lạnh", "추움"},
}

func init() {
	for i := range weatherPhrases {
		weatherPhrases[i].vi = norm.NFC.String(weatherPhrases[i].vi)
	}
	sort.SliceStable(weatherPhrases, func(i, j int) bool {
		return utf8.RuneCountInString(weatherPhrases[i].vi) > utf8.RuneCountInString(weatherPhrases[j].vi)
	})
}

// TranslateConditionDictionary substitutes every known phrase in condition.
// ok is false when no phrase matched; the input is then returned unchanged.
func TranslateConditionDictionary(condition string) (string, bool) {
	if strings.TrimSpace(condition) == "" {
		return condition, false
	}

	lowered := strings.ToLower(norm.NFC.String(strings.TrimSpace(condition)))
	result := lowered
	for _, p := range weatherPhrases {
		result = strings.ReplaceAll(result, p.vi, p.ko)
	}

	if result == lowered {
		return condition, false
	}
	return result, true
}

// WeatherTranslator translates weather conditions, using the dictionary first and the
// text generator only when nothing in the dictionary matched
type WeatherTranslator struct {
	generator interfaces.TextGenerator
	logger    arbor.ILogger
}

// NewWeatherTranslator creates a weather condition translator. generator may be nil.
func NewWeatherTranslator(generator interfaces.TextGenerator, logger arbor.ILogger) *WeatherTranslator {
	return &WeatherTranslator{
		generator: generator,
		logger:    logger,
	}
}

// TranslateCondition returns the Korean form of condition. Empty input returns "" without
// any call; a generator error returns the original text.
func (w *WeatherTranslator) TranslateCondition(ctx context.Context, condition string) string {
	if strings.TrimSpace(condition) == "" {
		return ""
	}

	if translated, ok := TranslateConditionDictionary(condition); ok {
		return translated
	}

	if w.generator == nil {
		return condition
	}

	prompt := fmt.Sprintf("다음 베트남어 날씨 표현을 2~4단어의 짧은 한국어로 번역하세요. 번역 결과만 한 줄로 출력하세요.\n\n%s", condition)
	text, err := w.generator.GenerateText(ctx, prompt)
	if err != nil {
		w.logger.Warn().Err(err).Str("condition", condition).Msg("Weather condition translation failed, keeping original")
		return condition
	}

	translated := firstLine(quoteStripper.Replace(text))
	if translated == "" {
		return condition
	}
	return translated
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(strings.Trim(line, "`*")); line != "" {
			return line
		}
	}
	return ""
}
