package sources

import (
	"net/http"
	"sort"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/airquality"
	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/retry"
)

// Registry holds the fetchers for one run. News fetchers are sorted by priority and
// keep catalog order within a priority. Metric sources are nil when disabled.
type Registry struct {
	News       []Fetcher
	Weather    WeatherSource
	AirQuality AirQualitySource
	Earthquake EarthquakeSource
}

// NewRegistry builds every enabled source from configuration
func NewRegistry(config *common.Config, logger arbor.ILogger) *Registry {
	timeout := common.ParseDuration(config.HTTP.Timeout, DefaultTimeout)
	policy := retry.NewHTTPPolicy(
		config.HTTP.MaxAttempts,
		common.ParseDuration(config.HTTP.InitialBackoff, time.Second),
		config.HTTP.BackoffFactor,
	)
	client := NewClient(logger,
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithUserAgent(config.HTTP.UserAgent),
		WithRateLimit(config.HTTP.RequestsPerSecond),
		WithRetryPolicy(policy),
	)

	registry := &Registry{}
	for _, outlet := range config.Sources.Outlets {
		registry.News = append(registry.News, newFetcher(outlet, client, logger))
	}
	SortByPriority(registry.News)

	if config.Weather.Enabled {
		registry.Weather = NewWeatherFetcher(config.Weather, client, logger)
	}

	if config.AirQuality.Enabled {
		opts := []airquality.ClientOption{
			airquality.WithLogger(logger),
			airquality.WithRateLimit(config.AirQuality.RateLimit),
			airquality.WithHTTPClient(&http.Client{Timeout: timeout}),
			airquality.WithRetryPolicy(policy),
		}
		var iqair *airquality.IQAirClient
		if config.AirQuality.IQAirAPIKey != "" {
			iqair = airquality.NewIQAirClient(config.AirQuality.IQAirAPIKey,
				append(opts, airquality.WithBaseURL(config.AirQuality.IQAirURL))...)
		}
		meteo := airquality.NewOpenMeteoClient(append(opts, airquality.WithBaseURL(config.AirQuality.OpenMeteoURL))...)
		registry.AirQuality = NewAirQualityFetcher(config.AirQuality, iqair, meteo, logger)
	}

	if config.Earthquake.Enabled {
		registry.Earthquake = NewEarthquakeFetcher(config.Earthquake, client, logger)
	}

	return registry
}

func newFetcher(outlet common.OutletConfig, client *Client, logger arbor.ILogger) Fetcher {
	if outlet.Kind == "feed" {
		var fallback Fetcher
		if outlet.Fallback != nil {
			fallback = NewOutletFetcher(*outlet.Fallback, client, logger)
		}
		return NewFeedFetcher(outlet, client, fallback, logger)
	}
	return NewOutletFetcher(outlet, client, logger)
}

// SortByPriority orders fetchers P0 first, stable within a priority
func SortByPriority(fetchers []Fetcher) {
	sort.SliceStable(fetchers, func(i, j int) bool {
		return fetchers[i].Priority().Rank() < fetchers[j].Priority().Rank()
	})
}
