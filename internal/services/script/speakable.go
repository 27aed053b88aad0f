package script

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	urlPattern      = regexp.MustCompile(`https?://\S+`)
	mdLinkPattern   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdMarkerPattern = regexp.MustCompile("(\\*{1,3}|_{2,3}|`+|^#{1,6}\\s*|^>\\s*)")

	unitReplacer = strings.NewReplacer(
		"°C", "도",
		"℃", "도",
		"°", "도",
		"%", "퍼센트",
		"&", " 및 ",
		"~", "-",
	)
)

// SpeakableText removes everything a speech engine cannot vocalize: markup, URLs, emoji and
// symbols. Units are spelled out and whitespace is collapsed.
func SpeakableText(s string) string {
	if s == "" {
		return ""
	}

	s = tagPattern.ReplaceAllString(s, " ")
	s = mdLinkPattern.ReplaceAllString(s, "$1")
	s = urlPattern.ReplaceAllString(s, " ")
	s = mdMarkerPattern.ReplaceAllString(s, "")
	s = unitReplacer.Replace(s)

	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\u200d' || r == '\ufe0f':
			return -1
		case unicode.Is(unicode.So, r), unicode.Is(unicode.Sk, r), unicode.Is(unicode.Sm, r), unicode.Is(unicode.Cs, r), unicode.Is(unicode.Co, r):
			return -1
		case r == '#' || r == '*' || r == '_' || r == '`' || r == '[' || r == ']' || r == '|':
			return -1
		}
		return r
	}, s)

	return strings.Join(strings.Fields(s), " ")
}
