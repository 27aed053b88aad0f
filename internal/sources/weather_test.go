package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/airquality"
	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/models"
	"github.com/ternarybob/todayvn/internal/retry"
)

const weatherHTML = `<html><body><ul class="list-info-wt">
<li><span class="temp">: 29°C</span></li>
<li><span class="cond">: Mây thay đổi, trời nắng</span></li>
<li><span class="hum">: 68 %</span></li>
</ul></body></html>`

func weatherConfig(url string) common.WeatherConfig {
	return common.WeatherConfig{
		Enabled:           true,
		URL:               url,
		TempSelector:      ".temp",
		ConditionSelector: ".cond",
		HumiditySelector:  ".hum",
		RainSelector:      ".rain",
	}
}

func TestParseWeather(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(weatherHTML))
	require.NoError(t, err)

	reading := parseWeather(doc, weatherConfig(""))

	assert.Equal(t, "29", reading.Temp)
	assert.Equal(t, "Mây thay đổi, trời nắng", reading.Condition)
	assert.Equal(t, "68", reading.Humidity)
	assert.Equal(t, "", reading.RainChance)
	assert.False(t, reading.Empty())
}

func TestWeatherFetcher_EmptyPageFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>bảo trì</body></html>"))
	}))
	defer server.Close()

	_, err := NewWeatherFetcher(weatherConfig(server.URL), testClient(), arbor.NewLogger()).FetchWeather(context.Background())

	assert.ErrorIs(t, err, models.ErrFetch)
}

func TestWeatherFetcher_FetchWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(weatherHTML))
	}))
	defer server.Close()

	reading, err := NewWeatherFetcher(weatherConfig(server.URL), testClient(), arbor.NewLogger()).FetchWeather(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "29", reading.Temp)
}

func TestAirQualityFetcher_OpenMeteoOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"time":"2026-02-10T07:00","pm2_5":35.2,"us_aqi":101}}`))
	}))
	defer server.Close()

	meteo := airquality.NewOpenMeteoClient(airquality.WithBaseURL(server.URL))
	fetcher := NewAirQualityFetcher(common.AirQualityConfig{Latitude: 10.78, Longitude: 106.7}, nil, meteo, arbor.NewLogger())

	reading, err := fetcher.FetchAirQuality(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "101", reading.AQI)
	assert.Equal(t, airquality.StatusSensitive, reading.Status)
	assert.Equal(t, "35.2", reading.PM25)
	assert.Equal(t, Unknown, reading.PM10)
}

func TestAirQualityFetcher_IQAirPreferred(t *testing.T) {
	iqair := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","data":{"current":{"pollution":{"aqius":42}}}}`))
	}))
	defer iqair.Close()
	meteo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"pm2_5":10.0,"pm10":20.0,"us_aqi":90}}`))
	}))
	defer meteo.Close()

	fetcher := NewAirQualityFetcher(common.AirQualityConfig{},
		airquality.NewIQAirClient("key", airquality.WithBaseURL(iqair.URL)),
		airquality.NewOpenMeteoClient(airquality.WithBaseURL(meteo.URL)),
		arbor.NewLogger())

	reading, err := fetcher.FetchAirQuality(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "42", reading.AQI)
	assert.Equal(t, airquality.StatusGood, reading.Status)
	assert.Equal(t, "10.0", reading.PM25)
	assert.Equal(t, "20.0", reading.PM10)
	assert.Equal(t, "IQAir", reading.Provider)
}

func TestAirQualityFetcher_AllProvidersFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewAirQualityFetcher(common.AirQualityConfig{}, nil,
		airquality.NewOpenMeteoClient(airquality.WithBaseURL(server.URL), noBackoff()), arbor.NewLogger())

	reading, err := fetcher.FetchAirQuality(context.Background())

	assert.ErrorIs(t, err, models.ErrFetch)
	assert.Equal(t, Unknown, reading.AQI)
}

func noBackoff() airquality.ClientOption {
	return airquality.WithRetryPolicy(retry.NewHTTPPolicy(2, 0, 1))
}

func TestAirQualityFetcher_MissingValuesAreUnknown(t *testing.T) {
	meteo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"time":"2026-02-10T07:00","pm2_5":null,"pm10":null,"us_aqi":null}}`))
	}))
	defer meteo.Close()
	iqair := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer iqair.Close()

	tests := []struct {
		name  string
		iqair *airquality.IQAirClient
	}{
		{"open-meteo only", nil},
		{"iqair rejected", airquality.NewIQAirClient("bad", airquality.WithBaseURL(iqair.URL), noBackoff())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := NewAirQualityFetcher(common.AirQualityConfig{}, tt.iqair,
				airquality.NewOpenMeteoClient(airquality.WithBaseURL(meteo.URL), noBackoff()), arbor.NewLogger())

			reading, err := fetcher.FetchAirQuality(context.Background())

			require.NoError(t, err)
			assert.Equal(t, Unknown, reading.AQI)
			assert.Equal(t, Unknown, reading.Status)
			assert.Equal(t, Unknown, reading.PM25)
			assert.Equal(t, Unknown, reading.PM10)
			assert.Empty(t, reading.Provider)
		})
	}
}

func TestAirQualityFetcher_NoProviderConfigured(t *testing.T) {
	fetcher := NewAirQualityFetcher(common.AirQualityConfig{}, nil, nil, arbor.NewLogger())

	_, err := fetcher.FetchAirQuality(context.Background())

	assert.ErrorIs(t, err, models.ErrFetch)
}
