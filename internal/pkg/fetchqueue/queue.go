// Package fetchqueue funnels reads against a rate-limited chain provider through a
// single batched queue.
//
// Operations are executed in rounds of at most batchSize. Every operation of a round runs
// concurrently, and the next round starts only when all of them have settled. Rounds are
// taken from the head of the queue, so operations are FIFO at the batch level. At most one
// drain loop runs at a time. It starts on the first Enqueue after the queue went idle and
// stops once the queue is empty.
//
// Failed operations are retried with exponential backoff when the error carries a
// transient provider code (429 rate limit or -32603 internal error). Other errors are
// returned to the caller right away.
package fetchqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/resilience/retry"

	"golang.org/x/time/rate"
)

// Operation is a zero-argument provider read. It receives the context of the caller
// that enqueued it.
type Operation func(ctx context.Context) (any, error)

// Scheduler is the contract consumers depend on.
type Scheduler interface {
	// Enqueue schedules op and blocks until its final result is available or ctx is done.
	Enqueue(ctx context.Context, op Operation) (any, error)
}

// Recorder receives queue events. Implemented by the metrics package.
type Recorder interface {
	RecordFetchBatch(size int)
	RecordFetchRetry(reason string)
	RecordFetchOperation(status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordFetchBatch(int)        {}
func (nopRecorder) RecordFetchRetry(string)     {}
func (nopRecorder) RecordFetchOperation(string) {}

type result struct {
	value any
	err   error
}

// request is one pending operation. resultCh is buffered so the drain loop never blocks on
// a caller that stopped waiting.
type request struct {
	ctx       context.Context
	operation Operation
	resultCh  chan result
}

type config struct {
	batchSize      int
	maxRetries     uint
	initialBackoff time.Duration
	retryIf        func(error) bool
	limiter        *rate.Limiter
	recorder       Recorder
	timer          retry.Timer
}

// Option configures a Queue.
type Option func(*config)

// WithBatchSize sets how many operations run concurrently per round. Default 15.
func WithBatchSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried. An operation is
// attempted at most maxRetries+1 times. Default 15.
func WithMaxRetries(n uint) Option {
	return func(c *config) {
		c.maxRetries = n
	}
}

// WithInitialBackoff sets the wait before the first retry. Each further retry doubles it.
// Default 1s.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *config) {
		c.initialBackoff = d
	}
}

// WithRetryIf replaces the transient error classifier.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) {
		c.retryIf = fn
	}
}

// WithRateLimit applies a token bucket to every executed attempt. A non-positive rps
// disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMetrics registers a recorder for batch, retry and outcome events.
func WithMetrics(r Recorder) Option {
	return func(c *config) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithTimer overrides the timer used for backoff waits.
func WithTimer(t retry.Timer) Option {
	return func(c *config) {
		c.timer = t
	}
}

// Queue is the batched fetch scheduler.
type Queue struct {
	cfg   config
	retry retry.Retry

	mu       sync.Mutex
	pending  []request
	draining bool
}

var _ Scheduler = (*Queue)(nil)

// New creates an idle Queue.
func New(opts ...Option) *Queue {
	cfg := config{
		batchSize:      15,
		maxRetries:     15,
		initialBackoff: time.Second,
		retryIf:        IsRetryable,
		recorder:       nopRecorder{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &Queue{cfg: cfg}

	retryOpts := []retry.Option{
		retry.WithAttempts(cfg.maxRetries + 1),
		retry.WithDelay(cfg.initialBackoff),
		retry.WithMaxDelay(0),
		retry.WithRetryIf(cfg.retryIf),
		retry.WithOnRetry(q.onRetry),
	}
	if cfg.timer != nil {
		retryOpts = append(retryOpts, retry.WithTimer(cfg.timer))
	}
	q.retry = retry.New(retryOpts...)

	return q
}

func (q *Queue) onRetry(attempt uint, delay time.Duration, err error) {
	reason, ok := retryReason(err)
	if !ok {
		reason = "other"
	}
	q.cfg.recorder.RecordFetchRetry(reason)

	msg := "retrying fetch operation"
	switch reason {
	case reasonRateLimit:
		msg = "rate limit exceeded, retrying"
	case reasonTimeout:
		msg = "provider timeout, retrying"
	}
	logger.Warn(context.Background(), msg, "attempt", attempt, "delay", delay.String(), "error", err)
}

// Enqueue schedules op and waits for its result. The queue never rejects an operation;
// the returned error is the operation's final error or ctx.Err() if the caller gave up
// first.
func (q *Queue) Enqueue(ctx context.Context, op Operation) (any, error) {
	req := request{
		ctx:       ctx,
		operation: op,
		resultCh:  make(chan result, 1),
	}

	q.mu.Lock()
	q.pending = append(q.pending, req)
	start := !q.draining
	q.draining = true
	q.mu.Unlock()

	if start {
		go q.drain()
	}

	select {
	case res := <-req.resultCh:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do enqueues a typed operation on s. A nil error with no value resolves to T's zero value.
func Do[T any](ctx context.Context, s Scheduler, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	value, err := s.Enqueue(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

// nextBatch pops up to batchSize requests. It clears the draining flag under the same lock
// when nothing is left so a concurrent Enqueue either lands in this loop or starts a new one.
func (q *Queue) nextBatch() []request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		q.draining = false
		q.pending = nil
		return nil
	}

	n := min(q.cfg.batchSize, len(q.pending))
	batch := make([]request, n)
	copy(batch, q.pending[:n])
	q.pending = q.pending[n:]

	return batch
}

func (q *Queue) drain() {
	for {
		batch := q.nextBatch()
		if batch == nil {
			return
		}

		var wg sync.WaitGroup
		for _, req := range batch {
			wg.Add(1)
			go func() {
				defer wg.Done()
				value, err := q.execute(req.ctx, req.operation)
				req.resultCh <- result{value: value, err: err}
			}()
		}
		wg.Wait()

		q.cfg.recorder.RecordFetchBatch(len(batch))
		logger.Debug(context.Background(), "processed fetch operations", "batch.size", len(batch))
	}
}

func (q *Queue) execute(ctx context.Context, op Operation) (any, error) {
	var value any
	err := q.retry.Execute(ctx, func() error {
		if q.cfg.limiter != nil {
			if err := q.cfg.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		v, err := op(ctx)
		if err != nil {
			return err
		}

		value = v
		return nil
	})
	if err != nil {
		q.cfg.recorder.RecordFetchOperation("error")
		return nil, err
	}

	q.cfg.recorder.RecordFetchOperation("ok")
	return value, nil
}
