// Package deposittrack scans blocks for transfers into watched addresses, stores them as
// deposits and announces each one through a Notifier.
//
// Blocks come from three sources: a backfill over a historical range, the live stream of
// new blocks and, optionally, the mempool. Chain reads go through a ChainGateway, whose
// fetch queue bounds the load on the provider, so the pipeline itself fans out freely.
package deposittrack

import (
	"context"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/resilience/retry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Service is the ingestion pipeline.
type Service interface {
	// ProcessBlock scans one block. Failures are logged and the block is skipped.
	ProcessBlock(ctx context.Context, id chaingateway.BlockID)

	// BackfillFrom scans every block from max(startBlock, latest stored block) up to the
	// current head and returns once all of them settled.
	BackfillFrom(ctx context.Context, startBlock uint64) error

	// WatchLiveBlocks subscribes to new blocks and scans each one in the background until
	// ctx is canceled. A stream that ends early is resubscribed with backoff and block
	// numbers skipped meanwhile are scanned once the new stream delivers a block.
	WatchLiveBlocks(ctx context.Context) error

	// WatchPendingTransactions subscribes to the mempool in the background until ctx is
	// canceled, resubscribing like WatchLiveBlocks. Watched transactions that are still
	// pending are only logged; their deposit is recorded when the block is scanned.
	WatchPendingTransactions(ctx context.Context) error
}

const (
	defaultResubscribeDelay = time.Second
	maxResubscribeDelay     = 30 * time.Second
)

type config struct {
	notifier            Notifier
	recorder            Recorder
	backfillConcurrency int
	tracer              trace.Tracer
	resubscribeDelay    time.Duration
}

// Option configures the pipeline.
type Option func(*config)

// WithNotifier sets where deposit messages go. Without it messages are dropped.
func WithNotifier(n Notifier) Option {
	return func(c *config) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithMetrics registers a recorder for block, deposit and notification outcomes.
func WithMetrics(r Recorder) Option {
	return func(c *config) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithBackfillConcurrency caps how many blocks a backfill scans at once. Zero leaves it
// uncapped and lets the fetch queue pace the provider.
func WithBackfillConcurrency(n int) Option {
	return func(c *config) {
		c.backfillConcurrency = n
	}
}

// WithResubscribeDelay sets the first wait before a dropped stream is resubscribed. Later
// attempts double it up to 30s.
func WithResubscribeDelay(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.resubscribeDelay = d
		}
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracer = tp.Tracer("deposittrack")
		}
	}
}

type service struct {
	gateway  ChainGateway
	store    DepositStore
	filter   FilterSet
	notifier Notifier
	recorder Recorder
	tracer   trace.Tracer

	resubscribe         retry.Retry
	backfillConcurrency int
}

var _ Service = (*service)(nil)

// New builds the pipeline.
func New(gateway ChainGateway, store DepositStore, filter FilterSet, opts ...Option) Service {
	cfg := config{
		notifier: nopNotifier{},
		recorder: nopRecorder{},
		tracer:   otel.Tracer("deposittrack"),

		resubscribeDelay: defaultResubscribeDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger.Info(context.Background(), "deposit tracker configured",
		"blockchain", gateway.Blockchain(),
		"network", gateway.Network(),
		"filter.addresses", filter.Addresses(),
	)

	return &service{
		gateway:             gateway,
		store:               store,
		filter:              filter,
		notifier:            cfg.notifier,
		recorder:            cfg.recorder,
		tracer:              cfg.tracer,
		resubscribe:         newResubscriber(cfg),
		backfillConcurrency: cfg.backfillConcurrency,
	}
}

// newResubscriber retries a subscription until it succeeds or ctx ends.
func newResubscriber(cfg config) retry.Retry {
	return retry.New(
		retry.WithAttempts(0),
		retry.WithDelay(cfg.resubscribeDelay),
		retry.WithMaxDelay(maxResubscribeDelay),
		retry.WithOnRetry(func(attempt uint, delay time.Duration, err error) {
			logger.Warn(context.Background(), "resubscribe failed",
				"attempt", attempt,
				"delay", delay.String(),
				"error", err,
			)
		}),
	)
}
