package ethereum

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/types"
	"github.com/gabapcia/depositwatch/internal/pkg/x/chflow"
)

// GetBlockNumber implements chaingateway.ChainProvider.
func (c *client) GetBlockNumber(ctx context.Context) (uint64, error) {
	var head types.Hex
	found, err := c.call(ctx, &head, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("eth_blockNumber returned no result")
	}

	return head.Uint64()
}

// GetBlock implements chaingateway.ChainProvider. Only transaction hashes are requested.
func (c *client) GetBlock(ctx context.Context, id chaingateway.BlockID) (*chaingateway.Block, error) {
	var (
		res   BlockResponse
		found bool
		err   error
	)
	switch {
	case id.IsHash():
		found, err = c.call(ctx, &res, "eth_getBlockByHash", id.Hash, false)
	case id.Latest:
		found, err = c.call(ctx, &res, "eth_getBlockByNumber", "latest", false)
	default:
		found, err = c.call(ctx, &res, "eth_getBlockByNumber", types.HexFromUint64(id.Number), false)
	}
	if err != nil || !found {
		return nil, err
	}

	block, err := res.toBlock()
	if err != nil {
		return nil, fmt.Errorf("decode block %s: %w", id, err)
	}
	return &block, nil
}

// pollNewBlocks emits every block after last up to the current head and returns the new
// last emitted number. On failure last is returned unchanged and the range is retried on
// the next tick.
func (c *client) pollNewBlocks(ctx context.Context, last uint64, ch chan<- uint64) uint64 {
	head, err := c.GetBlockNumber(ctx)
	if err != nil {
		logger.Warn(ctx, "failed to poll chain head", "error", err)
		return last
	}

	for n := last + 1; n <= head; n++ {
		if !chflow.Send(ctx, ch, n) {
			return n - 1
		}
	}

	return max(last, head)
}

// SubscribeBlocks implements chaingateway.ChainProvider. Numbers start after the head
// observed at subscription time.
func (c *client) SubscribeBlocks(ctx context.Context) (<-chan uint64, error) {
	last, err := c.GetBlockNumber(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan uint64, averageNumberOfTransactionsPerBlock)
	go func() {
		defer close(ch)

		ticker := time.NewTicker(c.blockPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				last = c.pollNewBlocks(ctx, last, ch)
			}
		}
	}()

	return ch, nil
}
