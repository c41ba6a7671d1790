// Command depositwatch tracks deposits into a set of addresses on an EVM chain.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/config"
	"github.com/gabapcia/depositwatch/internal/depositquery"
	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/handlers/cli"
	httphandler "github.com/gabapcia/depositwatch/internal/handlers/http"
	"github.com/gabapcia/depositwatch/internal/pkg/fetchqueue"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/metrics"
	"github.com/gabapcia/depositwatch/internal/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.TelemetryEnabled {
		shutdown, err := telemetry.Init(ctx, cfg.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
			}
		}()
	}

	if err := logger.Init(logger.WithLevel(cfg.LogLevel)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(registry)

	go func() {
		if err := httphandler.Serve(ctx, cfg.MetricsAddr, registry); err != nil {
			logger.Error(ctx, "metrics server stopped", "error", err)
		}
	}()

	provider, closeProvider, err := newProvider(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeProvider()

	store, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	notifier, closeNotifier, err := newNotifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	queue := fetchqueue.New(
		fetchqueue.WithBatchSize(cfg.BatchSize),
		fetchqueue.WithMaxRetries(cfg.MaxRetries),
		fetchqueue.WithInitialBackoff(cfg.InitialBackoff),
		fetchqueue.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		fetchqueue.WithMetrics(m),
	)

	gateway, err := chaingateway.New(provider, queue, chaingateway.Identity{
		Blockchain: cfg.Blockchain,
		Network:    cfg.Network,
		Token:      cfg.Token,
	})
	if err != nil {
		return err
	}

	tracker := deposittrack.New(gateway, store, deposittrack.NewFilterSet(cfg.FilterIn...),
		deposittrack.WithNotifier(notifier),
		deposittrack.WithMetrics(m),
		deposittrack.WithBackfillConcurrency(cfg.BackfillConcurrency),
	)

	return cli.Run(ctx, tracker, depositquery.New(store), notifier, cli.Settings{
		Blockchain: cfg.Blockchain,
		Network:    cfg.Network,
		Token:      cfg.Token,
		StartBlock: cfg.StartBlock,
	})
}
