package sources

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
)

// EarthquakeFetcher reads the IGP-VAST seismic bulletin feed
type EarthquakeFetcher struct {
	config common.EarthquakeConfig
	client *Client
	parser *gofeed.Parser
	logger arbor.ILogger
}

// NewEarthquakeFetcher creates the seismic bulletin fetcher
func NewEarthquakeFetcher(config common.EarthquakeConfig, client *Client, logger arbor.ILogger) *EarthquakeFetcher {
	return &EarthquakeFetcher{
		config: config,
		client: client,
		parser: gofeed.NewParser(),
		logger: logger,
	}
}

// FetchEarthquakes returns the bulletins published on the target date, newest first as listed
func (f *EarthquakeFetcher) FetchEarthquakes(ctx context.Context, target time.Time) ([]models.EarthquakeItem, error) {
	body, err := f.client.Get(ctx, f.config.FeedURL)
	if err != nil {
		return nil, fetchFailure("IGP-VAST", err)
	}

	feed, err := f.parser.ParseString(string(body))
	if err != nil {
		return nil, fetchFailure("IGP-VAST", err)
	}

	quakes := make([]models.EarthquakeItem, 0)
	for _, entry := range feed.Items {
		if f.config.MaxItems > 0 && len(quakes) >= f.config.MaxItems {
			break
		}
		if !MatchesFeedDate(publishedAt(entry), target) {
			continue
		}

		title := CleanText(entry.Title)
		if title == "" {
			title = "Earthquake Report"
		}

		quakes = append(quakes, models.EarthquakeItem{
			ItemBase: models.ItemBase{
				Title:   title,
				Content: Truncate(HTMLToText(entry.Description), MaxEarthquakeContentRunes),
				URL:     entry.Link,
			},
			Date: entry.Published,
		})
	}

	f.logger.Debug().Int("bulletins", len(quakes)).Msg("Seismic feed read")
	return quakes, nil
}
