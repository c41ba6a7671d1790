package main

import (
	"context"
	"fmt"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/config"
	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/infra/blockchain/ethereum"
	"github.com/gabapcia/depositwatch/internal/infra/blockchain/geth"
	lognotifier "github.com/gabapcia/depositwatch/internal/infra/notification/log"
	natsnotifier "github.com/gabapcia/depositwatch/internal/infra/notification/nats"
	"github.com/gabapcia/depositwatch/internal/infra/notification/telegram"
	"github.com/gabapcia/depositwatch/internal/infra/storage/postgres"
	"github.com/gabapcia/depositwatch/internal/infra/storage/redis"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/transport/http"
	"github.com/gabapcia/depositwatch/internal/pkg/transport/jsonrpc"
)

// closer releases a dependency on shutdown.
type closer func()

func newProvider(ctx context.Context, cfg config.Config) (chaingateway.ChainProvider, closer, error) {
	switch cfg.Provider {
	case config.ProviderGeth:
		c, err := geth.Dial(ctx, cfg.SubscriptionURL())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to dial node: %w", err)
		}
		return c, c.Close, nil
	default:
		c := ethereum.NewClient(newRPCConn(cfg), ethereum.WithBlockPollInterval(cfg.PollInterval))
		return c, func() {}, nil
	}
}

// newRPCConn builds the JSON-RPC transport. Retries belong to the fetch queue, so the HTTP
// client sends each request once.
func newRPCConn(cfg config.Config) jsonrpc.Client {
	httpClient := http.NewStandardClient(
		http.WithTimeout(cfg.HTTPTimeout),
		http.WithRetryMax(0),
	)
	return jsonrpc.NewClient(httpClient, cfg.RPCURL)
}

func newStore(ctx context.Context, cfg config.Config) (deposittrack.DepositStore, closer, error) {
	switch cfg.Store {
	case config.StoreRedis:
		s, err := redis.New(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn(ctx, "failed to close redis connection", "error", err)
			}
		}, nil
	default:
		s, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return s, s.Close, nil
	}
}

func newNotifier(ctx context.Context, cfg config.Config) (deposittrack.Notifier, closer, error) {
	switch cfg.Notifier {
	case config.NotifierTelegram:
		httpClient := http.NewStandardClient(http.WithTimeout(cfg.HTTPTimeout))
		n := telegram.NewNotifier(httpClient, cfg.TelegramBotToken, cfg.TelegramChatID, telegram.WithAPIURL(cfg.TelegramAPIURL))
		return n, func() {}, nil
	case config.NotifierNATS:
		n, err := natsnotifier.NewNotifier(ctx, cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		return n, func() {
			if err := n.Close(); err != nil {
				logger.Warn(ctx, "failed to close nats connection", "error", err)
			}
		}, nil
	default:
		return lognotifier.NewNotifier(), func() {}, nil
	}
}
