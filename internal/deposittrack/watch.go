package deposittrack

import (
	"context"
	"fmt"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/x/chflow"
)

// WatchLiveBlocks implements Service.
func (s *service) WatchLiveBlocks(ctx context.Context) error {
	blocks, err := s.gateway.WatchBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to new blocks: %w", err)
	}

	logger.Info(ctx, "watching new blocks",
		"blockchain", s.gateway.Blockchain(),
		"network", s.gateway.Network(),
	)

	go func() {
		var last uint64
		for {
			n, ok := chflow.Receive(ctx, blocks)
			if ok {
				s.dispatchBlock(ctx, last, n)
				last = max(last, n)
				continue
			}

			if ctx.Err() != nil {
				logger.Info(ctx, "stopped watching new blocks")
				return
			}

			logger.Warn(ctx, "new blocks stream ended, resubscribing", "last_block", last)
			if blocks, ok = resubscribe(ctx, s, s.gateway.WatchBlocks); !ok {
				logger.Info(ctx, "stopped watching new blocks")
				return
			}
			logger.Info(ctx, "resubscribed to new blocks")
		}
	}()

	return nil
}

// dispatchBlock scans n in the background, together with any number between the last seen
// block and n that the stream skipped.
func (s *service) dispatchBlock(ctx context.Context, last, n uint64) {
	if last > 0 && n > last+1 {
		logger.Warn(ctx, "block stream skipped blocks, scanning the gap", "from", last+1, "to", n-1)
		for missed := last + 1; missed < n; missed++ {
			go s.ProcessBlock(ctx, chaingateway.ByNumber(missed))
		}
	}

	go s.ProcessBlock(ctx, chaingateway.ByNumber(n))
}

// WatchPendingTransactions implements Service.
func (s *service) WatchPendingTransactions(ctx context.Context) error {
	hashes, err := s.gateway.WatchPendingTransactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to pending transactions: %w", err)
	}

	logger.Info(ctx, "watching pending transactions",
		"blockchain", s.gateway.Blockchain(),
		"network", s.gateway.Network(),
	)

	go func() {
		for {
			hash, ok := chflow.Receive(ctx, hashes)
			if ok {
				go s.processPendingTransaction(ctx, hash)
				continue
			}

			if ctx.Err() != nil {
				logger.Info(ctx, "stopped watching pending transactions")
				return
			}

			logger.Warn(ctx, "pending transactions stream ended, resubscribing")
			if hashes, ok = resubscribe(ctx, s, s.gateway.WatchPendingTransactions); !ok {
				logger.Info(ctx, "stopped watching pending transactions")
				return
			}
			logger.Info(ctx, "resubscribed to pending transactions")
		}
	}()

	return nil
}

// resubscribe calls subscribe with backoff until it succeeds. It reports false once ctx ends.
func resubscribe[T any](ctx context.Context, s *service, subscribe func(context.Context) (<-chan T, error)) (<-chan T, bool) {
	var ch <-chan T
	err := s.resubscribe.Execute(ctx, func() error {
		var err error
		ch, err = subscribe(ctx)
		return err
	})
	if err != nil {
		return nil, false
	}
	return ch, true
}

func (s *service) processPendingTransaction(ctx context.Context, hash string) {
	tx, err := s.gateway.TransactionData(ctx, hash)
	if err != nil {
		logger.Warn(ctx, "failed to resolve pending transaction", "tx.hash", hash, "error", err)
		return
	}
	if tx == nil {
		return
	}

	if tx.Pending {
		if s.filter.Contains(tx.To) {
			logger.Info(ctx, "incoming deposit seen in mempool", "tx.hash", tx.Hash, "from", tx.From, "to", tx.To)
		}
		return
	}

	s.handleTransaction(ctx, *tx)
}
