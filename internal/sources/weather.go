package sources

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
)

// WeatherReading is the current weather as scraped. Numeric fields are bare numbers;
// an empty field means the page did not provide it.
type WeatherReading struct {
	Temp       string
	Condition  string
	Humidity   string
	RainChance string
}

// Empty reports whether nothing was scraped
func (r WeatherReading) Empty() bool {
	return r.Temp == "" && r.Condition == "" && r.Humidity == "" && r.RainChance == ""
}

// WeatherFetcher scrapes the NCHMF regional forecast page
type WeatherFetcher struct {
	config common.WeatherConfig
	client *Client
	logger arbor.ILogger
}

// NewWeatherFetcher creates the NCHMF scraper
func NewWeatherFetcher(config common.WeatherConfig, client *Client, logger arbor.ILogger) *WeatherFetcher {
	return &WeatherFetcher{
		config: config,
		client: client,
		logger: logger,
	}
}

// FetchWeather scrapes the current reading. A page without any of the configured
// fields is a fetch failure.
func (f *WeatherFetcher) FetchWeather(ctx context.Context) (WeatherReading, error) {
	doc, err := f.client.Document(ctx, f.config.URL)
	if err != nil {
		return WeatherReading{}, fetchFailure("NCHMF", err)
	}

	reading := parseWeather(doc, f.config)
	if reading.Empty() {
		return reading, fetchFailure("NCHMF", errors.New("no weather fields found on page"))
	}

	f.logger.Debug().
		Str("temp", reading.Temp).
		Str("condition", reading.Condition).
		Str("humidity", reading.Humidity).
		Msg("Weather scraped")
	return reading, nil
}

func parseWeather(doc *goquery.Document, config common.WeatherConfig) WeatherReading {
	field := func(selector string) string {
		if selector == "" {
			return ""
		}
		return strings.TrimSpace(strings.TrimLeft(CleanText(doc.Find(selector).First().Text()), ": "))
	}

	return WeatherReading{
		Temp:       firstNumber(field(config.TempSelector)),
		Condition:  field(config.ConditionSelector),
		Humidity:   firstNumber(field(config.HumiditySelector)),
		RainChance: firstNumber(field(config.RainSelector)),
	}
}

var numberPattern = regexp.MustCompile(`-?\d+(?:[.,]\d+)?`)

// firstNumber strips units such as °C and % and keeps the first number
func firstNumber(s string) string {
	return strings.ReplaceAll(numberPattern.FindString(s), ",", ".")
}
