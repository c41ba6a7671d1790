// Package http builds the retrying HTTP client shared by the outbound integrations.
package http

import (
	"net/http"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
)

type config struct {
	timeout      time.Duration
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	retryMax     int
}

// Option configures NewClient.
type Option func(*config)

// NewClient returns a retryablehttp.Client. Defaults: 5s timeout, 1s..5s wait, 2 retries.
//
// When retries run out the last response is handed back as is instead of being turned into
// an error, so callers can still read its status code.
func NewClient(opts ...Option) *retryablehttp.Client {
	cfg := config{
		timeout:      5 * time.Second,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 5 * time.Second,
		retryMax:     2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	client := retryablehttp.NewClient()
	client.Logger = nil
	client.HTTPClient.Timeout = cfg.timeout
	client.RetryWaitMin = cfg.retryWaitMin
	client.RetryWaitMax = cfg.retryWaitMax
	client.RetryMax = cfg.retryMax
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Debug(req.Context(), "retrying http request", "http.url", req.URL.Redacted(), "attempt", attempt)
		}
	}
	return client
}

// NewStandardClient is NewClient wrapped as a *http.Client.
func NewStandardClient(opts ...Option) *http.Client {
	return NewClient(opts...).StandardClient()
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithRetryWaitMin sets the shortest wait between attempts.
func WithRetryWaitMin(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMin = d
	}
}

// WithRetryWaitMax sets the longest wait between attempts.
func WithRetryWaitMax(d time.Duration) Option {
	return func(c *config) {
		c.retryWaitMax = d
	}
}

// WithRetryMax sets how many times a request is retried. Zero disables retries.
func WithRetryMax(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.retryMax = n
		}
	}
}
