package ethereum

import (
	"context"
	"fmt"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/x/chflow"
)

// GetTransaction implements chaingateway.ChainProvider.
func (c *client) GetTransaction(ctx context.Context, hash string) (*chaingateway.Transaction, error) {
	var res TransactionResponse
	found, err := c.call(ctx, &res, "eth_getTransactionByHash", hash)
	if err != nil || !found {
		return nil, err
	}

	tx, err := res.toTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", hash, err)
	}
	return &tx, nil
}

func (c *client) newPendingFilter(ctx context.Context) (string, error) {
	var id string
	if _, err := c.call(ctx, &id, "eth_newPendingTransactionFilter"); err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("eth_newPendingTransactionFilter returned no filter id")
	}
	return id, nil
}

// SubscribePending implements chaingateway.ChainProvider through a node-side pending
// transaction filter. A filter the node dropped is reinstalled on the next tick.
func (c *client) SubscribePending(ctx context.Context) (<-chan string, error) {
	filterID, err := c.newPendingFilter(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan string, averageNumberOfTransactionsPerBlock)
	go func() {
		defer close(ch)
		defer func() {
			if filterID == "" {
				return
			}
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := c.call(cleanupCtx, new(bool), "eth_uninstallFilter", filterID); err != nil {
				logger.Warn(ctx, "failed to uninstall pending transaction filter", "filter.id", filterID, "error", err)
			}
		}()

		ticker := time.NewTicker(c.pendingPollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if filterID == "" {
				if filterID, err = c.newPendingFilter(ctx); err != nil {
					logger.Warn(ctx, "failed to reinstall pending transaction filter", "error", err)
					continue
				}
			}

			var hashes []string
			if _, err := c.call(ctx, &hashes, "eth_getFilterChanges", filterID); err != nil {
				logger.Warn(ctx, "failed to poll pending transactions", "filter.id", filterID, "error", err)
				filterID = ""
				continue
			}

			for _, hash := range hashes {
				if !chflow.Send(ctx, ch, hash) {
					return
				}
			}
		}
	}()

	return ch, nil
}
