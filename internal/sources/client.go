package sources

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/todayvn/internal/retry"
)

const (
	// DefaultTimeout is the per-request timeout
	DefaultTimeout = 10 * time.Second

	// maxBodyBytes bounds how much of a response is read
	maxBodyBytes = 10 << 20
)

// Client performs rate-limited, retried GET requests for every source
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	policy     *retry.Policy
	logger     arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRateLimit sets the shared request rate. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithRetryPolicy sets the retry policy for requests.
func WithRetryPolicy(policy *retry.Policy) ClientOption {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient creates a source client
func NewClient(logger arbor.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36",
		limiter:    rate.NewLimiter(rate.Limit(5), 5),
		policy:     retry.NewHTTPPolicy(3, time.Second, 2.0),
		logger:     logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get fetches rawURL and returns the body. 4xx responses fail without retry.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	return retry.DoValue(ctx, c.policy, c.logger, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, rawURL)
	})
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "vi-VN,vi;q=0.9,en;q=0.8")

	c.logger.Debug().Str("url", rawURL).Msg("Source request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &retry.StatusError{
			StatusCode: resp.StatusCode,
			URL:        rawURL,
			Body:       Truncate(string(body), 200),
		}
	}

	return body, nil
}

// Document fetches rawURL and parses it as HTML
func (c *Client) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}
