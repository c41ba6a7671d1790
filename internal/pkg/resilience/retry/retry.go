// Package retry provides a configurable retry mechanism for operations that may fail temporarily.
// It wraps the retry-go package from Avast and exposes a simple interface with functional
// options for customizing retry behavior.
//
// Delays grow exponentially from the configured base delay: the first retry waits delay, the
// second 2*delay, the third 4*delay and so on, optionally capped by WithMaxDelay.
//
// Basic usage:
//
//	r := retry.New()
//	err := r.Execute(ctx, func() error {
//	    return someOperation()
//	})
//
// Retrying only a subset of errors:
//
//	r := retry.New(
//	    retry.WithAttempts(16),
//	    retry.WithMaxDelay(0),
//	    retry.WithRetryIf(isTransient),
//	    retry.WithOnRetry(func(attempt uint, delay time.Duration, err error) {
//	        logger.Warn(ctx, "retrying", "attempt", attempt, "delay", delay, "error", err)
//	    }),
//	)
package retry

import (
	"context"
	"math"
	"time"

	retry "github.com/avast/retry-go/v4"
)

// Retry defines the interface for retry operations.
type Retry interface {
	// Execute runs the given function with configured retry logic.
	//
	// The context allows for cancellation. If the context is canceled while waiting
	// between attempts, Execute stops and returns the context error.
	//
	// Execute returns nil if the operation succeeds within the configured number of
	// attempts. Otherwise it returns the last error (or all of them when
	// WithLastErrorOnly(false) is set). Errors rejected by the RetryIf predicate are
	// returned immediately without waiting.
	Execute(ctx context.Context, operation func() error) error
}

// Timer abstracts the wait between attempts. It matches retry-go's timer so tests can
// observe or skip the backoff without sleeping.
type Timer interface {
	After(time.Duration) <-chan time.Time
}

// OnRetryFunc is called before each wait with the 1-based number of the failed attempt,
// the delay about to be applied and the error that triggered the retry.
type OnRetryFunc func(attempt uint, delay time.Duration, err error)

// config holds internal settings for the retry mechanism.
type config struct {
	attempts    uint             // maximum number of attempts, including the first one
	delay       time.Duration    // delay before the first retry
	maxDelay    time.Duration    // upper bound for a single delay, zero means uncapped
	lastErrOnly bool             // whether to return only the last error
	retryIf     func(error) bool // decides whether an error is worth another attempt
	onRetry     OnRetryFunc      // observer for retries
	timer       Timer            // optional timer override
}

// Option defines a functional option for configuring the retry mechanism.
// Options are applied in the order they are provided to New().
type Option func(*config)

// retrier implements the Retry interface using the retry-go package.
type retrier struct {
	cfg config
}

// Compile-time assertion that retrier implements Retry interface
var _ Retry = (*retrier)(nil)

// New creates and returns a Retry implementation configured with
// the provided options. If no options are given, default values are used.
//
// Default configuration:
//   - attempts:    3 (1 initial attempt + 2 retries)
//   - delay:       1 second
//   - maxDelay:    5 seconds
//   - lastErrOnly: true
//   - retryIf:     every error is retried
func New(opts ...Option) Retry {
	cfg := config{
		attempts:    3,
		delay:       1 * time.Second,
		maxDelay:    5 * time.Second,
		lastErrOnly: true,
		retryIf:     func(error) bool { return true },
		onRetry:     func(uint, time.Duration, error) {},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &retrier{
		cfg: cfg,
	}
}

// Execute implements the Retry interface.
//
// The operation is first attempted immediately. If it fails with a retryable error, it is
// retried after delay, 2*delay, 4*delay... until it succeeds or the attempts run out.
func (r *retrier) Execute(ctx context.Context, operation func() error) error {
	backoff := r.newBackoff()

	options := []retry.Option{
		retry.Attempts(r.cfg.attempts),
		retry.MaxDelay(r.cfg.maxDelay),
		retry.DelayType(backoff.delayType),
		retry.LastErrorOnly(r.cfg.lastErrOnly),
		retry.RetryIf(r.cfg.retryIf),
		retry.OnRetry(func(n uint, err error) {
			// no wait follows the final attempt
			if r.cfg.attempts > 0 && n+1 >= r.cfg.attempts {
				return
			}
			r.cfg.onRetry(n+1, backoff.peek(), err)
		}),
		retry.Context(ctx),
	}
	if r.cfg.timer != nil {
		options = append(options, retry.WithTimer(r.cfg.timer))
	}

	return retry.Do(operation, options...)
}

// backoff computes the exponential delay sequence of a single Execute call. retry-go
// invokes the delay function once per wait, so counting calls here keeps the sequence
// independent of how the library numbers its attempts.
type backoff struct {
	base     time.Duration
	maxDelay time.Duration
	waits    uint
}

func (r *retrier) newBackoff() *backoff {
	return &backoff{base: r.cfg.delay, maxDelay: r.cfg.maxDelay}
}

// peek returns the delay the next wait will use.
func (b *backoff) peek() time.Duration {
	d := b.base
	for i := uint(0); i < b.waits; i++ {
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
			break
		}
		d *= 2
	}
	if b.maxDelay > 0 && d > b.maxDelay {
		d = b.maxDelay
	}
	return d
}

func (b *backoff) delayType(_ uint, _ error, _ *retry.Config) time.Duration {
	d := b.peek()
	b.waits++
	return d
}

// WithAttempts sets the maximum number of attempts (including the initial attempt).
// Default: 3 (1 initial attempt + 2 retries).
func WithAttempts(n uint) Option {
	return func(c *config) {
		c.attempts = n
	}
}

// WithDelay sets the delay before the first retry. Each further retry doubles it.
// Default: 1 second.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxDelay sets the maximum delay between retry attempts.
// Zero disables the cap.
// Default: 5 seconds.
func WithMaxDelay(d time.Duration) Option {
	return func(c *config) {
		c.maxDelay = d
	}
}

// WithLastErrorOnly sets whether to return only the last error.
// When false, all errors from all attempts are combined.
// Default: true.
func WithLastErrorOnly(b bool) Option {
	return func(c *config) {
		c.lastErrOnly = b
	}
}

// WithRetryIf restricts retries to errors for which fn returns true. Any other error
// ends Execute immediately.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) {
		c.retryIf = fn
	}
}

// WithOnRetry registers a callback invoked before every wait.
func WithOnRetry(fn OnRetryFunc) Option {
	return func(c *config) {
		c.onRetry = fn
	}
}

// WithTimer replaces the real-time timer used between attempts.
func WithTimer(t Timer) Option {
	return func(c *config) {
		c.timer = t
	}
}
