package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
)

// OutletFetcher scrapes article listings from an outlet's HTML pages.
// Dates follow DatePolicyHTMLBestEffort.
type OutletFetcher struct {
	config common.OutletConfig
	client *Client
	logger arbor.ILogger
}

// NewOutletFetcher creates an HTML fetcher for one outlet
func NewOutletFetcher(config common.OutletConfig, client *Client, logger arbor.ILogger) *OutletFetcher {
	return &OutletFetcher{
		config: config,
		client: client,
		logger: logger,
	}
}

func (f *OutletFetcher) Name() string { return f.config.Name }

func (f *OutletFetcher) Priority() models.Priority { return models.Priority(f.config.Priority) }

// Fetch scrapes every configured page until MaxItems articles for the target date are found.
// The outlet fails only when every page fails.
func (f *OutletFetcher) Fetch(ctx context.Context, target time.Time) Result {
	result := Result{Source: f.Name(), Priority: f.Priority(), Items: make([]models.Item, 0)}
	seen := make(map[string]bool)

	var lastErr error
	failures := 0

	for _, page := range f.config.Pages {
		if len(result.Items) >= f.config.MaxItems {
			break
		}

		doc, err := f.client.Document(ctx, page)
		if err != nil {
			failures++
			lastErr = err
			f.logger.Warn().Err(err).Str("source", f.Name()).Str("page", page).Msg("Failed to fetch outlet page")
			continue
		}

		base, err := url.Parse(page)
		if err != nil {
			failures++
			lastErr = fmt.Errorf("invalid page url %s: %w", page, err)
			continue
		}

		for _, item := range f.extract(doc, base, target, seen) {
			if len(result.Items) >= f.config.MaxItems {
				break
			}
			result.Items = append(result.Items, item)
		}
	}

	if len(f.config.Pages) > 0 && failures == len(f.config.Pages) {
		result.Err = fetchFailure(f.Name(), lastErr)
		return result
	}

	f.logger.Debug().Str("source", f.Name()).Int("items", len(result.Items)).Msg("Outlet scraped")
	return result
}

// extract inspects the first Checked containers of doc and returns the articles that pass
// the allow-list, dedupe and date checks
func (f *OutletFetcher) extract(doc *goquery.Document, base *url.URL, target time.Time, seen map[string]bool) []models.Item {
	items := make([]models.Item, 0)
	checked := 0

	doc.Find(f.config.ArticleSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if f.config.Checked > 0 && checked >= f.config.Checked {
			return false
		}

		anchor := s.Find(f.config.TitleSelector).First()
		if anchor.Length() == 0 && goquery.NodeName(s) == "a" {
			anchor = s
		}

		title := CleanText(anchor.Text())
		href, _ := anchor.Attr("href")
		link := resolveLink(base, href)
		if title == "" || link == "" {
			return true
		}
		checked++

		if !f.allowed(link) || seen[link] {
			return true
		}

		datetime, _ := s.Find("time[datetime]").First().Attr("datetime")
		dateText := ""
		if f.config.DateSelector != "" {
			dateText = CleanText(s.Find(f.config.DateSelector).First().Text())
		}
		if !MatchesHTMLDate(datetime, dateText, target) {
			return true
		}

		summary := ""
		if f.config.SummarySelector != "" {
			summary = CleanText(s.Find(f.config.SummarySelector).First().Text())
		}
		if summary == "" {
			summary = title
		}

		date := dateText
		if date == "" {
			date = datetime
		}

		seen[link] = true
		items = append(items, models.NewsItem{
			ItemBase: models.ItemBase{
				Title:   title,
				Content: Truncate(summary, MaxContentRunes),
				URL:     link,
			},
			Date: date,
		})
		return true
	})

	return items
}

func (f *OutletFetcher) allowed(link string) bool {
	if len(f.config.AllowPaths) == 0 {
		return true
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	for _, segment := range f.config.AllowPaths {
		if strings.Contains(u.Path, segment) {
			return true
		}
	}
	return false
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	resolved.Fragment = ""
	return resolved.String()
}
