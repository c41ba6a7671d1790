package geth

import (
	"context"
	"encoding/json"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/x/chflow"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// rpcTransaction is a signed transaction plus the fields the node adds around it.
type rpcTransaction struct {
	tx *types.Transaction
	txExtraInfo
}

type txExtraInfo struct {
	BlockNumber      *hexutil.Uint64 `json:"blockNumber"`
	BlockHash        *common.Hash    `json:"blockHash"`
	From             *common.Address `json:"from"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
}

func (t *rpcTransaction) UnmarshalJSON(msg []byte) error {
	if err := json.Unmarshal(msg, &t.tx); err != nil {
		return err
	}
	return json.Unmarshal(msg, &t.txExtraInfo)
}

func (t *rpcTransaction) toTransaction() chaingateway.Transaction {
	tx := chaingateway.Transaction{
		Hash:     t.tx.Hash().Hex(),
		From:     addressString(t.From),
		To:       addressString(t.tx.To()),
		Value:    t.tx.Value(),
		Nonce:    t.tx.Nonce(),
		GasPrice: t.tx.GasPrice(),
		GasLimit: t.tx.Gas(),
		Type:     t.tx.Type(),
		Pending:  t.BlockNumber == nil,
	}

	// Mined dynamic fee transactions report the effective price next to the caps.
	if t.GasPrice != nil {
		tx.GasPrice = t.GasPrice.ToInt()
	}
	if t.BlockNumber != nil {
		tx.BlockNumber = uint64(*t.BlockNumber)
	}
	if t.BlockHash != nil {
		tx.BlockHash = t.BlockHash.Hex()
	}
	if t.TransactionIndex != nil {
		tx.Index = uint64(*t.TransactionIndex)
	}
	if tx.Type >= types.DynamicFeeTxType {
		tx.MaxFeePerGas = t.tx.GasFeeCap()
		tx.MaxPriorityFeePerGas = t.tx.GasTipCap()
	}
	if tx.Type == types.BlobTxType {
		tx.MaxFeePerBlobGas = t.tx.BlobGasFeeCap()
	}

	return tx
}

// GetTransaction implements chaingateway.ChainProvider.
func (c *client) GetTransaction(ctx context.Context, hash string) (*chaingateway.Transaction, error) {
	var res *rpcTransaction
	if err := c.rpc.CallContext(ctx, &res, "eth_getTransactionByHash", common.HexToHash(hash)); err != nil {
		return nil, toProviderError(err)
	}
	if res == nil {
		return nil, nil
	}

	tx := res.toTransaction()
	return &tx, nil
}

// SubscribePending implements chaingateway.ChainProvider over
// eth_subscribe("newPendingTransactions").
func (c *client) SubscribePending(ctx context.Context) (<-chan string, error) {
	hashes := make(chan common.Hash, subscriptionBuffer)
	sub, err := c.geth.SubscribePendingTransactions(ctx, hashes)
	if err != nil {
		return nil, err
	}

	out := make(chan string, subscriptionBuffer)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer cancel()
		select {
		case <-ctx.Done():
		case err := <-sub.Err():
			if err != nil {
				logger.Error(ctx, "pending transactions subscription failed", "error", err)
			}
		}
	}()

	go func() {
		defer close(out)
		defer sub.Unsubscribe()

		chflow.Forward(ctx, hashes, out, func(h common.Hash) string {
			return h.Hex()
		})
	}()

	return out, nil
}
