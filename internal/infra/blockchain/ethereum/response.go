package ethereum

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/types"
)

type (
	// TransactionResponse is a transaction object as returned by eth_getTransactionByHash.
	// Block fields are null while the transaction is pending.
	TransactionResponse struct {
		Type                 types.Hex  `json:"type"`
		Nonce                types.Hex  `json:"nonce"`
		Gas                  types.Hex  `json:"gas"`
		GasPrice             *types.Hex `json:"gasPrice"`
		MaxFeePerGas         *types.Hex `json:"maxFeePerGas"`
		MaxPriorityFeePerGas *types.Hex `json:"maxPriorityFeePerGas"`
		MaxFeePerBlobGas     *types.Hex `json:"maxFeePerBlobGas"`
		To                   string     `json:"to"`
		From                 string     `json:"from"`
		Value                types.Hex  `json:"value"`
		Hash                 string     `json:"hash"`
		BlockHash            string     `json:"blockHash"`
		BlockNumber          *types.Hex `json:"blockNumber"`
		TransactionIndex     *types.Hex `json:"transactionIndex"`
	}

	// BlockResponse is a block as returned by eth_getBlockBy* with hydration disabled.
	BlockResponse struct {
		Hash         string    `json:"hash"`
		Number       types.Hex `json:"number"`
		Timestamp    types.Hex `json:"timestamp"`
		Transactions []string  `json:"transactions"`
	}
)

func (t TransactionResponse) toTransaction() (chaingateway.Transaction, error) {
	tx := chaingateway.Transaction{
		Hash:      strings.ToLower(t.Hash),
		From:      t.From,
		To:        t.To,
		BlockHash: t.BlockHash,
		Pending:   t.BlockNumber == nil,
	}

	var err error
	if tx.Value, err = t.Value.BigInt(); err != nil {
		return tx, fmt.Errorf("value: %w", err)
	}
	if tx.Nonce, err = t.Nonce.Uint64(); err != nil {
		return tx, fmt.Errorf("nonce: %w", err)
	}
	if tx.GasLimit, err = t.Gas.Uint64(); err != nil {
		return tx, fmt.Errorf("gas: %w", err)
	}
	if t.Type != "" {
		kind, err := t.Type.Uint64()
		if err != nil {
			return tx, fmt.Errorf("type: %w", err)
		}
		tx.Type = uint8(kind)
	}
	if t.BlockNumber != nil {
		if tx.BlockNumber, err = t.BlockNumber.Uint64(); err != nil {
			return tx, fmt.Errorf("blockNumber: %w", err)
		}
	}
	if t.TransactionIndex != nil {
		if tx.Index, err = t.TransactionIndex.Uint64(); err != nil {
			return tx, fmt.Errorf("transactionIndex: %w", err)
		}
	}

	for _, f := range []struct {
		name string
		src  *types.Hex
		dst  **big.Int
	}{
		{"gasPrice", t.GasPrice, &tx.GasPrice},
		{"maxFeePerGas", t.MaxFeePerGas, &tx.MaxFeePerGas},
		{"maxPriorityFeePerGas", t.MaxPriorityFeePerGas, &tx.MaxPriorityFeePerGas},
		{"maxFeePerBlobGas", t.MaxFeePerBlobGas, &tx.MaxFeePerBlobGas},
	} {
		if f.src == nil {
			continue
		}
		if *f.dst, err = f.src.BigInt(); err != nil {
			return tx, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	return tx, nil
}

func (b BlockResponse) toBlock() (chaingateway.Block, error) {
	number, err := b.Number.Uint64()
	if err != nil {
		return chaingateway.Block{}, fmt.Errorf("number: %w", err)
	}

	timestamp, err := b.Timestamp.Uint64()
	if err != nil {
		return chaingateway.Block{}, fmt.Errorf("timestamp: %w", err)
	}

	return chaingateway.Block{
		Number:            number,
		Hash:              b.Hash,
		Timestamp:         timestamp,
		TransactionHashes: b.Transactions,
	}, nil
}
