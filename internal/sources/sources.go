// Package sources fetches raw report items from news outlets and safety data providers.
//
// Every fetcher is failure-isolated: it reports problems through Result.Err (or a returned
// error for metric sources) and never panics into the caller. Date relevance follows one of
// two explicit policies, see MatchesFeedDate and MatchesHTMLDate.
package sources

import (
	"context"
	"time"

	"github.com/ternarybob/todayvn/internal/models"
)

const (
	// MaxContentRunes caps news item content at ingestion
	MaxContentRunes = 200

	// MaxEarthquakeContentRunes caps seismic bulletin content
	MaxEarthquakeContentRunes = 500
)

// Result is the outcome of one news fetcher. Err is a *models.StageError of kind
// FetchError when the source failed; Items may be empty without an error.
type Result struct {
	Source   string
	Priority models.Priority
	Items    []models.Item
	Err      error
}

// Fetcher collects news items for one outlet
type Fetcher interface {
	Name() string
	Priority() models.Priority
	Fetch(ctx context.Context, target time.Time) Result
}

// WeatherSource returns the current weather reading
type WeatherSource interface {
	FetchWeather(ctx context.Context) (WeatherReading, error)
}

// AirQualitySource returns the current air quality reading
type AirQualitySource interface {
	FetchAirQuality(ctx context.Context) (AirQualityReading, error)
}

// EarthquakeSource returns seismic bulletins for the target date
type EarthquakeSource interface {
	FetchEarthquakes(ctx context.Context, target time.Time) ([]models.EarthquakeItem, error)
}

func fetchFailure(source string, err error) error {
	return models.NewStageError(models.KindFetch, models.StageFetch, source, err)
}
