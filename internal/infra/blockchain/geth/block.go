package geth

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/x/chflow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// rpcBlock is the part of a non-hydrated block this provider reads.
type rpcBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	Timestamp    hexutil.Uint64 `json:"timestamp"`
	Transactions []common.Hash  `json:"transactions"`
}

// GetBlockNumber implements chaingateway.ChainProvider.
func (c *client) GetBlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	return n, toProviderError(err)
}

// GetBlock implements chaingateway.ChainProvider.
func (c *client) GetBlock(ctx context.Context, id chaingateway.BlockID) (*chaingateway.Block, error) {
	var (
		res *rpcBlock
		err error
	)
	switch {
	case id.IsHash():
		err = c.rpc.CallContext(ctx, &res, "eth_getBlockByHash", common.HexToHash(id.Hash), false)
	case id.Latest:
		err = c.rpc.CallContext(ctx, &res, "eth_getBlockByNumber", "latest", false)
	default:
		err = c.rpc.CallContext(ctx, &res, "eth_getBlockByNumber", hexutil.EncodeUint64(id.Number), false)
	}
	if err != nil {
		return nil, toProviderError(err)
	}
	if res == nil {
		return nil, nil
	}

	hashes := make([]string, len(res.Transactions))
	for i, h := range res.Transactions {
		hashes[i] = h.Hex()
	}

	return &chaingateway.Block{
		Number:            uint64(res.Number),
		Hash:              res.Hash.Hex(),
		Timestamp:         uint64(res.Timestamp),
		TransactionHashes: hashes,
	}, nil
}

// SubscribeBlocks implements chaingateway.ChainProvider over eth_subscribe("newHeads").
// The channel closes when ctx is done or the subscription fails.
func (c *client) SubscribeBlocks(ctx context.Context) (<-chan uint64, error) {
	heads := make(chan *types.Header, subscriptionBuffer)
	sub, err := c.eth.SubscribeNewHead(ctx, heads)
	if err != nil {
		return nil, err
	}

	out := make(chan uint64, subscriptionBuffer)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		select {
		case <-ctx.Done():
		case err := <-sub.Err():
			if err != nil {
				logger.Error(ctx, "new heads subscription failed", "error", err)
			}
		}
	}()

	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		chflow.Forward(ctx, heads, out, func(h *types.Header) uint64 {
			return h.Number.Uint64()
		})
	}()

	return out, nil
}
