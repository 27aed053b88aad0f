package sources

import (
	"html"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var (
	quoteReplacer = strings.NewReplacer(
		"'", "",
		"‘", "",
		"’", "",
		"“", "",
		"”", "",
	)
	repeatedBang     = regexp.MustCompile(`!{2,}`)
	repeatedQuestion = regexp.MustCompile(`\?{2,}`)

	mdImage    = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdHeading  = regexp.MustCompile(`(?m)^\s*#{1,6}\s*`)
	mdListItem = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	mdRule     = regexp.MustCompile(`(?m)^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
	mdEmphasis = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	mdTable    = regexp.MustCompile(`\|`)
)

// CleanText normalizes scraped text so it is safe for structured serialization:
// HTML entities are unescaped, single and smart quotes removed, repeated ! and ? collapsed,
// and whitespace collapsed to single spaces.
func CleanText(s string) string {
	s = html.UnescapeString(s)
	s = quoteReplacer.Replace(s)
	s = repeatedBang.ReplaceAllString(s, "!")
	s = repeatedQuestion.ReplaceAllString(s, "?")
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens s to at most limit runes, marking the cut with "..."
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-3])) + "..."
}

// HTMLToText converts an HTML fragment (feed descriptions) to clean plain text.
// The fragment goes through Markdown first so block structure survives as spacing.
func HTMLToText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") {
		return CleanText(fragment)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(fragment)
	if err != nil {
		return CleanText(stripTags(fragment))
	}
	return CleanText(StripMarkdown(markdown))
}

// StripMarkdown removes Markdown syntax, keeping link text
func StripMarkdown(s string) string {
	s = mdImage.ReplaceAllString(s, "")
	s = mdLink.ReplaceAllString(s, "$1")
	s = mdRule.ReplaceAllString(s, "")
	s = mdHeading.ReplaceAllString(s, "")
	s = mdListItem.ReplaceAllString(s, "")
	s = mdEmphasis.ReplaceAllString(s, "$1")
	s = mdTable.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\\", "")
	return s
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, " ")
}
