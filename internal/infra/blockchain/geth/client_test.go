package geth

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	watched   = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	blockHash = common.HexToHash("0x8f9a7b3e4d1c0e2f6a5b4c3d2e1f0a9b8c7d6e5f4a3b2c1d0e9f8a7b6c5d4e3f")
)

// ethService answers the handful of eth_ methods the provider uses.
type ethService struct {
	head    uint64
	txs     map[common.Hash]map[string]any
	blocks  map[string]map[string]any
	heads   []uint64
	pending []common.Hash
	failure error
}

func (s *ethService) BlockNumber() (hexutil.Uint64, error) {
	if s.failure != nil {
		return 0, s.failure
	}
	return hexutil.Uint64(s.head), nil
}

func (s *ethService) GetTransactionByHash(hash common.Hash) (map[string]any, error) {
	return s.txs[hash], nil
}

func (s *ethService) GetBlockByNumber(number string, full bool) (map[string]any, error) {
	return s.blocks[number], nil
}

func (s *ethService) GetBlockByHash(hash common.Hash, full bool) (map[string]any, error) {
	return s.blocks[hash.Hex()], nil
}

func (s *ethService) NewHeads(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}

	sub := notifier.CreateSubscription()
	go func() {
		for _, n := range s.heads {
			_ = notifier.Notify(sub.ID, &types.Header{Number: new(big.Int).SetUint64(n), Difficulty: big.NewInt(0)})
		}
	}()
	return sub, nil
}

func (s *ethService) NewPendingTransactions(ctx context.Context) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}

	sub := notifier.CreateSubscription()
	go func() {
		for _, h := range s.pending {
			_ = notifier.Notify(sub.ID, h)
		}
	}()
	return sub, nil
}

func newTestClient(t *testing.T, svc *ethService) *client {
	t.Helper()

	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", svc))
	t.Cleanup(srv.Stop)

	c := NewClient(rpc.DialInProc(srv))
	t.Cleanup(c.Close)
	return c
}

// signedTransaction returns a dynamic fee transfer to watched as the node would report it
// once mined at block 100.
func signedTransaction(t *testing.T) (common.Hash, common.Address, map[string]any) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	tx, err := types.SignNewTx(key, types.LatestSignerForChainID(big.NewInt(1)), &types.DynamicFeeTx{
		ChainID:   big.NewInt(1),
		Nonce:     7,
		GasTipCap: big.NewInt(2),
		GasFeeCap: big.NewInt(100),
		Gas:       21000,
		To:        &watched,
		Value:     big.NewInt(1_000_000_000_000_000_000),
	})
	require.NoError(t, err)

	raw, err := tx.MarshalJSON()
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	from := crypto.PubkeyToAddress(key.PublicKey)
	fields["from"] = from
	fields["blockNumber"] = hexutil.Uint64(100)
	fields["blockHash"] = blockHash
	fields["transactionIndex"] = hexutil.Uint64(3)
	fields["gasPrice"] = (*hexutil.Big)(big.NewInt(50))

	return tx.Hash(), from, fields
}

func TestClient_GetTransaction(t *testing.T) {
	t.Run("should decode a mined transaction", func(t *testing.T) {
		hash, from, fields := signedTransaction(t)
		c := newTestClient(t, &ethService{txs: map[common.Hash]map[string]any{hash: fields}})

		tx, err := c.GetTransaction(t.Context(), hash.Hex())

		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, hash.Hex(), tx.Hash)
		assert.Equal(t, strings.ToLower(from.Hex()), tx.From)
		assert.Equal(t, strings.ToLower(watched.Hex()), tx.To)
		assert.Equal(t, "1000000000000000000", tx.Value.String())
		assert.Equal(t, uint64(7), tx.Nonce)
		assert.Equal(t, uint64(21000), tx.GasLimit)
		assert.Equal(t, int64(50), tx.GasPrice.Int64())
		assert.Equal(t, int64(100), tx.MaxFeePerGas.Int64())
		assert.Equal(t, int64(2), tx.MaxPriorityFeePerGas.Int64())
		assert.Equal(t, uint64(100), tx.BlockNumber)
		assert.Equal(t, blockHash.Hex(), tx.BlockHash)
		assert.Equal(t, uint64(3), tx.Index)
		assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type)
		assert.False(t, tx.Pending)
	})

	t.Run("should flag a pending transaction", func(t *testing.T) {
		hash, _, fields := signedTransaction(t)
		fields["blockNumber"] = nil
		fields["blockHash"] = nil
		fields["transactionIndex"] = nil
		delete(fields, "gasPrice")
		c := newTestClient(t, &ethService{txs: map[common.Hash]map[string]any{hash: fields}})

		tx, err := c.GetTransaction(t.Context(), hash.Hex())

		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.True(t, tx.Pending)
		assert.Zero(t, tx.BlockNumber)
		assert.Empty(t, tx.BlockHash)
		assert.Equal(t, int64(100), tx.GasPrice.Int64())
	})

	t.Run("should return nil for an unknown hash", func(t *testing.T) {
		c := newTestClient(t, &ethService{})

		tx, err := c.GetTransaction(t.Context(), common.Hash{1}.Hex())

		require.NoError(t, err)
		assert.Nil(t, tx)
	})
}

func TestClient_GetBlock(t *testing.T) {
	block := map[string]any{
		"number":       hexutil.Uint64(100),
		"hash":         blockHash,
		"timestamp":    hexutil.Uint64(1700000000),
		"transactions": []common.Hash{{1}, {2}},
	}
	expected := chaingateway.Block{
		Number:            100,
		Hash:              blockHash.Hex(),
		Timestamp:         1700000000,
		TransactionHashes: []string{common.Hash{1}.Hex(), common.Hash{2}.Hex()},
	}

	c := newTestClient(t, &ethService{blocks: map[string]map[string]any{
		"0x64":          block,
		"latest":        block,
		blockHash.Hex(): block,
	}})

	for name, id := range map[string]chaingateway.BlockID{
		"should fetch by number":        chaingateway.ByNumber(100),
		"should fetch by hash":          chaingateway.ByHash(blockHash.Hex()),
		"should fetch the latest block": chaingateway.LatestBlock,
	} {
		t.Run(name, func(t *testing.T) {
			got, err := c.GetBlock(t.Context(), id)

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, expected, *got)
		})
	}

	t.Run("should return nil for a block that does not exist", func(t *testing.T) {
		got, err := c.GetBlock(t.Context(), chaingateway.ByNumber(101))

		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestClient_GetBlockNumber(t *testing.T) {
	t.Run("should return the head", func(t *testing.T) {
		c := newTestClient(t, &ethService{head: 19})

		n, err := c.GetBlockNumber(t.Context())

		require.NoError(t, err)
		assert.Equal(t, uint64(19), n)
	})

	t.Run("should keep the JSON-RPC error code", func(t *testing.T) {
		c := newTestClient(t, &ethService{failure: errors.New("boom")})

		_, err := c.GetBlockNumber(t.Context())

		var providerErr *chaingateway.ProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.Equal(t, -32000, providerErr.Code)
	})

	t.Run("should keep the HTTP status code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer server.Close()

		c, err := Dial(t.Context(), server.URL)
		require.NoError(t, err)
		defer c.Close()

		_, err = c.GetBlockNumber(t.Context())

		var providerErr *chaingateway.ProviderError
		require.ErrorAs(t, err, &providerErr)
		assert.Equal(t, http.StatusTooManyRequests, providerErr.Code)
	})
}

func TestClient_Subscriptions(t *testing.T) {
	t.Run("should relay new heads", func(t *testing.T) {
		c := newTestClient(t, &ethService{heads: []uint64{100, 101}})
		ctx, cancel := context.WithCancel(t.Context())

		ch, err := c.SubscribeBlocks(ctx)
		require.NoError(t, err)

		assert.Equal(t, uint64(100), receive(t, ch))
		assert.Equal(t, uint64(101), receive(t, ch))

		cancel()
		for range ch {
		}
	})

	t.Run("should relay pending transaction hashes", func(t *testing.T) {
		c := newTestClient(t, &ethService{pending: []common.Hash{{1}, {2}}})
		ctx, cancel := context.WithCancel(t.Context())

		ch, err := c.SubscribePending(ctx)
		require.NoError(t, err)

		assert.Equal(t, common.Hash{1}.Hex(), receive(t, ch))
		assert.Equal(t, common.Hash{2}.Hex(), receive(t, ch))

		cancel()
		for range ch {
		}
	})

	t.Run("should fail over plain HTTP", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		c, err := Dial(t.Context(), server.URL)
		require.NoError(t, err)
		defer c.Close()

		_, err = c.SubscribeBlocks(t.Context())

		assert.ErrorIs(t, err, rpc.ErrNotificationsUnsupported)
	})
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a notification")
		var zero T
		return zero
	}
}
