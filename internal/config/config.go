// Package config loads the service configuration from DEPOSITWATCH_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/gabapcia/depositwatch/internal/pkg/validator"

	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every variable name, e.g. DEPOSITWATCH_RPC_URL.
const Prefix = "depositwatch"

const (
	ProviderJSONRPC = "jsonrpc"
	ProviderGeth    = "geth"

	StorePostgres = "postgres"
	StoreRedis    = "redis"

	NotifierLog      = "log"
	NotifierTelegram = "telegram"
	NotifierNATS     = "nats"
)

// Config is the full set of settings.
type Config struct {
	LogLevel         string `envconfig:"LOG_LEVEL" default:"info"`
	ServiceName      string `envconfig:"SERVICE_NAME" default:"depositwatch"`
	TelemetryEnabled bool   `envconfig:"TELEMETRY_ENABLED" default:"false"`
	MetricsAddr      string `envconfig:"METRICS_ADDR" default:":9090"`

	Blockchain string `envconfig:"BLOCKCHAIN" default:"ethereum" validate:"required"`
	Network    string `envconfig:"NETWORK" default:"mainnet" validate:"required"`
	Token      string `envconfig:"TOKEN" default:"ETH" validate:"required"`

	Provider     string        `envconfig:"PROVIDER" default:"jsonrpc" validate:"oneof=jsonrpc geth"`
	RPCURL       string        `envconfig:"RPC_URL" validate:"required,url"`
	WSURL        string        `envconfig:"WS_URL" validate:"omitempty,url"`
	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"12s" validate:"gt=0"`
	HTTPTimeout  time.Duration `envconfig:"HTTP_TIMEOUT" default:"5s" validate:"gt=0"`

	BatchSize           int           `envconfig:"BATCH_SIZE" default:"15" validate:"gt=0"`
	MaxRetries          uint          `envconfig:"MAX_RETRIES" default:"15"`
	InitialBackoff      time.Duration `envconfig:"INITIAL_BACKOFF" default:"1s" validate:"gt=0"`
	RateLimitRPS        float64       `envconfig:"RATE_LIMIT_RPS" default:"0" validate:"gte=0"`
	RateLimitBurst      int           `envconfig:"RATE_LIMIT_BURST" default:"1" validate:"gt=0"`
	BackfillConcurrency int           `envconfig:"BACKFILL_CONCURRENCY" default:"0" validate:"gte=0"`

	FilterIn   []string `envconfig:"FILTER_IN" validate:"required,min=1,dive,hexprefixed"`
	StartBlock uint64   `envconfig:"START_BLOCK" default:"0"`

	Store         string `envconfig:"STORE" default:"postgres" validate:"oneof=postgres redis"`
	DatabaseURL   string `envconfig:"DATABASE_URL" validate:"required_if=Store postgres"`
	RedisAddr     string `envconfig:"REDIS_ADDR" validate:"required_if=Store redis"`
	RedisUsername string `envconfig:"REDIS_USERNAME"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0" validate:"gte=0"`

	Notifier         string `envconfig:"NOTIFIER" default:"log" validate:"oneof=log telegram nats"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" validate:"required_if=Notifier telegram"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID" validate:"required_if=Notifier telegram"`
	TelegramAPIURL   string `envconfig:"TELEGRAM_API_URL" default:"https://api.telegram.org" validate:"url"`
	NATSURL          string `envconfig:"NATS_URL" validate:"required_if=Notifier nats"`
	NATSSubject      string `envconfig:"NATS_SUBJECT" default:"deposits.notifications" validate:"required"`
}

// Load reads and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := validator.Validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SubscriptionURL is the endpoint used for server-side subscriptions: WSURL when set,
// RPCURL otherwise.
func (c Config) SubscriptionURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	return c.RPCURL
}
