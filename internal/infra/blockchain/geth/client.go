// Package geth is a chaingateway.ChainProvider built on go-ethereum's RPC client. Dialed
// over a websocket or IPC endpoint it receives new heads and pending transactions as
// server-side subscriptions instead of polling.
package geth

import (
	"context"
	"errors"
	"strings"

	"github.com/gabapcia/depositwatch/internal/chaingateway"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const subscriptionBuffer = 200

type client struct {
	rpc  *rpc.Client
	eth  *ethclient.Client
	geth *gethclient.Client
}

var _ chaingateway.ChainProvider = (*client)(nil)

// Dial connects to a node. rawURL may be http(s), ws(s) or an IPC path; subscriptions need
// one of the latter two.
func Dial(ctx context.Context, rawURL string) (*client, error) {
	rc, err := rpc.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return NewClient(rc), nil
}

// NewClient wraps an established RPC connection.
func NewClient(rc *rpc.Client) *client {
	return &client{
		rpc:  rc,
		eth:  ethclient.NewClient(rc),
		geth: gethclient.New(rc),
	}
}

// Close tears the connection down.
func (c *client) Close() {
	c.rpc.Close()
}

// toProviderError keeps the HTTP status or JSON-RPC code of a failed call.
func toProviderError(err error) error {
	if err == nil {
		return nil
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return &chaingateway.ProviderError{Code: httpErr.StatusCode, Message: httpErr.Status}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return &chaingateway.ProviderError{Code: rpcErr.ErrorCode(), Message: rpcErr.Error()}
	}

	return err
}

func addressString(a *common.Address) string {
	if a == nil {
		return ""
	}
	return strings.ToLower(a.Hex())
}
