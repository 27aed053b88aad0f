package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
)

// FeedFetcher reads an outlet's RSS feeds. Dates follow DatePolicyFeedExact.
// When every feed fails and a fallback is configured, the HTML fallback is used instead.
type FeedFetcher struct {
	config   common.OutletConfig
	client   *Client
	parser   *gofeed.Parser
	fallback Fetcher
	logger   arbor.ILogger
}

// NewFeedFetcher creates a feed fetcher; fallback may be nil
func NewFeedFetcher(config common.OutletConfig, client *Client, fallback Fetcher, logger arbor.ILogger) *FeedFetcher {
	return &FeedFetcher{
		config:   config,
		client:   client,
		parser:   gofeed.NewParser(),
		fallback: fallback,
		logger:   logger,
	}
}

func (f *FeedFetcher) Name() string { return f.config.Name }

func (f *FeedFetcher) Priority() models.Priority { return models.Priority(f.config.Priority) }

// Fetch takes at most MaxItems target-date entries from each feed, deduplicated by link
func (f *FeedFetcher) Fetch(ctx context.Context, target time.Time) Result {
	result := Result{Source: f.Name(), Priority: f.Priority(), Items: make([]models.Item, 0)}
	seen := make(map[string]bool)

	var lastErr error
	failures := 0

	for _, feedURL := range f.config.Feeds {
		entries, err := f.entries(ctx, feedURL)
		if err != nil {
			failures++
			lastErr = err
			f.logger.Warn().Err(err).Str("source", f.Name()).Str("feed", feedURL).Msg("Failed to read feed")
			continue
		}

		taken := 0
		for _, entry := range entries {
			if taken >= f.config.MaxItems {
				break
			}

			link := strings.TrimSpace(entry.Link)
			if link == "" || seen[link] {
				continue
			}
			if !MatchesFeedDate(publishedAt(entry), target) {
				continue
			}

			title := CleanText(entry.Title)
			if title == "" {
				continue
			}
			content := HTMLToText(entry.Description)
			if content == "" {
				content = title
			}

			seen[link] = true
			taken++
			result.Items = append(result.Items, models.NewsItem{
				ItemBase: models.ItemBase{
					Title:   title,
					Content: Truncate(content, MaxContentRunes),
					URL:     link,
				},
				Date: entry.Published,
			})
		}
	}

	if failures == len(f.config.Feeds) {
		if f.fallback != nil {
			f.logger.Info().Str("source", f.Name()).Msg("All feeds failed, using HTML fallback")
			fallback := f.fallback.Fetch(ctx, target)
			fallback.Source = f.Name()
			fallback.Priority = f.Priority()
			return fallback
		}
		if lastErr == nil {
			lastErr = errors.New("no feeds configured")
		}
		result.Err = fetchFailure(f.Name(), lastErr)
	}

	return result
}

func (f *FeedFetcher) entries(ctx context.Context, feedURL string) ([]*gofeed.Item, error) {
	body, err := f.client.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	feed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, err
	}
	return feed.Items, nil
}

func publishedAt(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	return entry.UpdatedParsed
}
