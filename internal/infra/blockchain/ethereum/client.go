// Package ethereum is a chaingateway.ChainProvider for Ethereum nodes reached over plain
// JSON-RPC HTTP. New blocks and pending transactions are discovered by polling.
package ethereum

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/transport/jsonrpc"
)

const (
	// averageBlockTime is the default interval between head polls.
	averageBlockTime = 12 * time.Second

	// averageNumberOfTransactionsPerBlock sizes the subscription buffers.
	averageNumberOfTransactionsPerBlock = 200

	defaultPendingPollInterval = time.Second
)

type config struct {
	blockPollInterval   time.Duration
	pendingPollInterval time.Duration
}

// Option configures the client.
type Option func(*config)

// WithBlockPollInterval sets how often the chain head is checked for new blocks.
func WithBlockPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.blockPollInterval = d
		}
	}
}

// WithPendingPollInterval sets how often the pending transaction filter is drained.
func WithPendingPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pendingPollInterval = d
		}
	}
}

type client struct {
	conn jsonrpc.Client

	blockPollInterval   time.Duration
	pendingPollInterval time.Duration
}

var _ chaingateway.ChainProvider = (*client)(nil)

// NewClient returns a provider issuing its calls through conn.
func NewClient(conn jsonrpc.Client, opts ...Option) *client {
	cfg := config{
		blockPollInterval:   averageBlockTime,
		pendingPollInterval: defaultPendingPollInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &client{
		conn:                conn,
		blockPollInterval:   cfg.blockPollInterval,
		pendingPollInterval: cfg.pendingPollInterval,
	}
}

// call runs method and decodes its result into out. It reports false when the node
// answered with a null result.
func (c *client) call(ctx context.Context, out any, method string, params ...any) (bool, error) {
	data, err := c.conn.Fetch(ctx, method, params...)
	if err != nil {
		return false, toProviderError(err)
	}

	if len(data) == 0 || string(data) == "null" {
		return false, nil
	}

	return true, json.Unmarshal(data, out)
}

// toProviderError carries the node's error code over so the fetch queue can classify it.
func toProviderError(err error) error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return &chaingateway.ProviderError{Code: rpcErr.Code, Message: rpcErr.Message}
	}
	return err
}
