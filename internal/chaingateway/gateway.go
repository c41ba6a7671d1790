// Package chaingateway exposes chain reads to the ingestion pipeline. A Gateway wraps a
// ChainProvider, routes every read through a fetch queue and stamps results with the
// static identity of the watched chain.
package chaingateway

import (
	"context"
	"fmt"

	"github.com/gabapcia/depositwatch/internal/pkg/fetchqueue"
	"github.com/gabapcia/depositwatch/internal/pkg/validator"
)

// ChainProvider is implemented by chain clients.
type ChainProvider interface {
	// GetTransaction returns nil, nil when the hash is unknown.
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)

	// GetBlock returns nil, nil when the block does not exist yet.
	GetBlock(ctx context.Context, id BlockID) (*Block, error)

	GetBlockNumber(ctx context.Context) (uint64, error)

	// SubscribeBlocks emits the number of every new block until ctx is canceled.
	SubscribeBlocks(ctx context.Context) (<-chan uint64, error)

	// SubscribePending emits hashes of transactions entering the mempool until ctx is canceled.
	SubscribePending(ctx context.Context) (<-chan string, error)
}

// Identity names the chain a gateway reads from.
type Identity struct {
	Blockchain string `validate:"required"`
	Network    string `validate:"required"`
	Token      string `validate:"required"`
}

// Gateway is the pipeline's view of the chain.
type Gateway struct {
	provider ChainProvider
	queue    fetchqueue.Scheduler
	identity Identity
}

// New validates identity and builds a Gateway.
func New(provider ChainProvider, queue fetchqueue.Scheduler, identity Identity) (*Gateway, error) {
	if err := validator.Validate(identity); err != nil {
		return nil, fmt.Errorf("invalid chain identity: %w", err)
	}

	return &Gateway{
		provider: provider,
		queue:    queue,
		identity: identity,
	}, nil
}

func (g *Gateway) Blockchain() string { return g.identity.Blockchain }
func (g *Gateway) Network() string    { return g.identity.Network }
func (g *Gateway) Token() string      { return g.identity.Token }

// Block fetches a block header with its transaction hashes. Returns nil when the provider
// does not know the block.
func (g *Gateway) Block(ctx context.Context, id BlockID) (*Block, error) {
	return fetchqueue.Do(ctx, g.queue, func(ctx context.Context) (*Block, error) {
		return g.provider.GetBlock(ctx, id)
	})
}

// TransactionData looks up a transaction and, once mined, its block timestamp. Both lookups
// run as a single queued operation so a retry repeats them together. Returns nil when the
// transaction is unknown.
func (g *Gateway) TransactionData(ctx context.Context, hash string) (*TransactionData, error) {
	return fetchqueue.Do(ctx, g.queue, func(ctx context.Context) (*TransactionData, error) {
		tx, err := g.provider.GetTransaction(ctx, hash)
		if err != nil {
			return nil, err
		}
		if tx == nil {
			return nil, nil
		}

		data := &TransactionData{Transaction: *tx}
		if tx.Pending {
			return data, nil
		}

		id := ByNumber(tx.BlockNumber)
		if tx.BlockHash != "" {
			id = ByHash(tx.BlockHash)
		}

		block, err := g.provider.GetBlock(ctx, id)
		if err != nil {
			return nil, err
		}
		if block != nil {
			data.BlockTimestamp = block.Timestamp
		}

		return data, nil
	})
}

// BlockNumber returns the current chain head.
func (g *Gateway) BlockNumber(ctx context.Context) (uint64, error) {
	return fetchqueue.Do(ctx, g.queue, g.provider.GetBlockNumber)
}

// WatchBlocks subscribes to new block numbers. Subscriptions bypass the fetch queue.
func (g *Gateway) WatchBlocks(ctx context.Context) (<-chan uint64, error) {
	return g.provider.SubscribeBlocks(ctx)
}

// WatchPendingTransactions subscribes to pending transaction hashes.
func (g *Gateway) WatchPendingTransactions(ctx context.Context) (<-chan string, error) {
	return g.provider.SubscribePending(ctx)
}
