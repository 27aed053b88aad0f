package translator

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ternarybob/todayvn/internal/models"
)

var (
	// ErrMalformedOutput means the generated text did not parse as YAML
	ErrMalformedOutput = errors.New("generated text is not valid structured output")

	// ErrUnexpectedShape means the payload parsed but is not a list of title/content/url
	ErrUnexpectedShape = errors.New("generated payload has unexpected shape")
)

// quoteStripper removes quote characters that break the YAML payload
var quoteStripper = strings.NewReplacer(
	"'", "",
	"‘", "",
	"’", "",
	"“", "",
	"”", "",
)

// StripFences returns the payload inside the first ``` fence (with or without a language tag).
// Text without fences is returned trimmed.
func StripFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return strings.TrimSpace(text)
	}

	body := text[start+3:]
	if nl := strings.Index(body, "\n"); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}

	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// ParseTranslation turns generated text into news items. The payload must be a list of
// {title, content, url} mappings or a mapping whose "items" key holds such a list.
// A missing url falls back to the url of the original item at the same position.
func ParseTranslation(text string, originals []models.Item) ([]models.Item, error) {
	payload := quoteStripper.Replace(StripFences(text))
	if payload == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedOutput)
	}

	var decoded interface{}
	if err := yaml.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	var list []interface{}
	switch v := decoded.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		items, ok := v["items"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: mapping without an items list", ErrUnexpectedShape)
		}
		list = items
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedShape, decoded)
	}

	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty list", ErrUnexpectedShape)
	}

	items := make([]models.Item, 0, len(list))
	for i, element := range list {
		entry, ok := element.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T", ErrUnexpectedShape, i, element)
		}

		item := models.NewsItem{
			ItemBase: models.ItemBase{
				Title:   field(entry, "title"),
				Content: field(entry, "content"),
				URL:     field(entry, "url"),
			},
		}
		if item.Title == "" && item.Content == "" {
			return nil, fmt.Errorf("%w: element %d has neither title nor content", ErrUnexpectedShape, i)
		}

		if i < len(originals) {
			original := originals[i].Base()
			if item.URL == "" {
				item.URL = original.URL
			}
			if news, ok := originals[i].(models.NewsItem); ok {
				item.Date = news.Date
			}
		}

		items = append(items, item)
	}

	return items, nil
}

func field(entry map[string]interface{}, key string) string {
	value, ok := entry[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.TrimSpace(fmt.Sprint(value))
}
