package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/todayvn/internal/retry"
)

const (
	// DefaultIQAirBaseURL is the base URL for the IQAir AirVisual API.
	DefaultIQAirBaseURL = "http://api.airvisual.com/v2"

	// DefaultOpenMeteoBaseURL is the base URL for the Open-Meteo air quality API.
	DefaultOpenMeteoBaseURL = "https://air-quality-api.open-meteo.com/v1"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 2

	// DefaultMaxAttempts bounds attempts per request under the default retry policy.
	DefaultMaxAttempts = 3
)

// client holds what both API clients share
type client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
	policy     *retry.Policy
}

// ClientOption configures a client.
type ClientOption func(*client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithRetryPolicy sets the retry policy for requests.
func WithRetryPolicy(policy *retry.Policy) ClientOption {
	return func(c *client) {
		if policy != nil {
			c.policy = policy
		}
	}
}

func newClient(baseURL string, opts []ClientOption) client {
	c := client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		policy:  retry.NewHTTPPolicy(DefaultMaxAttempts, time.Second, 2.0),
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// get performs a GET request under the retry policy and decodes the JSON body into result.
// 5xx responses and network errors are retried; 4xx responses fail at once.
func (c *client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return retry.Do(ctx, c.policy, c.logger, func(ctx context.Context) error {
		return c.do(ctx, path, params, result)
	})
}

func (c *client) do(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("url", c.baseURL+path).
			Msg("Air quality API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// IQAirClient queries the IQAir AirVisual API. It requires an API key.
type IQAirClient struct {
	client
	apiKey string
}

// NewIQAirClient creates a new IQAir client.
func NewIQAirClient(apiKey string, opts ...ClientOption) *IQAirClient {
	return &IQAirClient{
		client: newClient(DefaultIQAirBaseURL, opts),
		apiKey: apiKey,
	}
}

// NearestCity returns the US AQI reported by the station nearest to the coordinates.
func (c *IQAirClient) NearestCity(ctx context.Context, lat, lon float64) (*Measurement, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("key", c.apiKey)

	var result iqairResponse
	if err := c.get(ctx, "/nearest_city", params, &result); err != nil {
		return nil, err
	}

	if result.Status != "success" {
		return nil, &APIError{
			StatusCode: http.StatusOK,
			Message:    "status " + result.Status,
			Endpoint:   "/nearest_city",
		}
	}

	pollution := result.Data.Current.Pollution
	aqi := pollution.AQIUS
	m := &Measurement{
		AQI:           &aqi,
		MainPollutant: pollution.MainUS,
	}
	if t, err := time.Parse(time.RFC3339, pollution.Timestamp); err == nil {
		m.ObservedAt = t
	}
	return m, nil
}

// OpenMeteoClient queries the Open-Meteo air quality API. No key is needed.
type OpenMeteoClient struct {
	client
}

// NewOpenMeteoClient creates a new Open-Meteo client.
func NewOpenMeteoClient(opts ...ClientOption) *OpenMeteoClient {
	return &OpenMeteoClient{
		client: newClient(DefaultOpenMeteoBaseURL, opts),
	}
}

// Current returns current PM2.5, PM10 and US AQI at the coordinates.
func (c *OpenMeteoClient) Current(ctx context.Context, lat, lon float64) (*Measurement, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current", "pm10,pm2_5,us_aqi")
	params.Set("timezone", "auto")

	var result openMeteoResponse
	if err := c.get(ctx, "/air-quality", params, &result); err != nil {
		return nil, err
	}

	m := &Measurement{
		PM25: result.Current.PM25,
		PM10: result.Current.PM10,
	}
	if result.Current.USAQI != nil {
		aqi := int(math.Round(*result.Current.USAQI))
		m.AQI = &aqi
	}
	if t, err := time.Parse("2006-01-02T15:04", result.Current.Time); err == nil {
		m.ObservedAt = t
	}
	return m, nil
}
