package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// StatusError is returned for a non-2xx HTTP response
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("http %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}

// HTTPStatus returns the response status code
func (e *StatusError) HTTPStatus() int {
	return e.StatusCode
}

// StatusCoder is implemented by API client errors that carry an HTTP status
type StatusCoder interface {
	HTTPStatus() int
}

// NewHTTPPolicy creates a policy for HTTP calls: 4xx responses fail immediately,
// while 5xx responses, timeouts and network errors are retried
func NewHTTPPolicy(maxAttempts int, initialDelay time.Duration, factor float64) *Policy {
	return &Policy{
		MaxAttempts:   maxAttempts,
		InitialDelay:  initialDelay,
		BackoffFactor: factor,
		MaxDelay:      30 * time.Second,
		RetryIf:       IsRetryableHTTP,
	}
}

// IsRetryableHTTP classifies an HTTP call error
func IsRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}

	var coded StatusCoder
	if errors.As(err, &coded) {
		return coded.HTTPStatus() >= 500
	}

	// Caller gave up; retrying cannot help
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
