package deposittrack

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ErrBlockNotFound is reported when the provider does not know a requested block.
var ErrBlockNotFound = errors.New("block not found")

// ProcessBlock implements Service.
//
// All transactions of the block are resolved before any of them is handled. If one
// lookup fails the whole block is skipped, so a block is either fully scanned or not at all.
func (s *service) ProcessBlock(ctx context.Context, id chaingateway.BlockID) {
	ctx, span := s.tracer.Start(ctx, "deposittrack.ProcessBlock",
		trace.WithAttributes(attribute.String("block.id", id.String())),
	)
	defer span.End()

	txs, err := s.fetchBlockTransactions(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.recorder.RecordBlock(statusSkipped)
		logger.Error(ctx, "failed to process block", "block.id", id.String(), "error", err)
		return
	}

	var wg sync.WaitGroup
	for _, tx := range txs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleTransaction(ctx, tx)
		}()
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("block.transactions", len(txs)))
	s.recorder.RecordBlock(statusProcessed)
	logger.Debug(ctx, "block processed", "block.id", id.String(), "transactions", len(txs))
}

func (s *service) fetchBlockTransactions(ctx context.Context, id chaingateway.BlockID) ([]chaingateway.TransactionData, error) {
	block, err := s.gateway.Block(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch block: %w", err)
	}
	if block == nil {
		return nil, ErrBlockNotFound
	}

	resolved := make([]*chaingateway.TransactionData, len(block.TransactionHashes))

	g, gctx := errgroup.WithContext(ctx)
	for i, hash := range block.TransactionHashes {
		g.Go(func() error {
			tx, err := s.gateway.TransactionData(gctx, hash)
			if err != nil {
				return fmt.Errorf("fetch transaction %s: %w", hash, err)
			}
			resolved[i] = tx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	txs := make([]chaingateway.TransactionData, 0, len(resolved))
	for _, tx := range resolved {
		if tx != nil {
			txs = append(txs, *tx)
		}
	}
	return txs, nil
}

// BackfillFrom implements Service.
func (s *service) BackfillFrom(ctx context.Context, startBlock uint64) error {
	ctx, span := s.tracer.Start(ctx, "deposittrack.BackfillFrom")
	defer span.End()

	lastStored, found, err := s.store.LatestStoredBlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read latest stored block: %w", err)
	}

	from := startBlock
	if found && lastStored > from {
		from = lastStored
	}

	head, err := s.gateway.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("failed to read chain head: %w", err)
	}

	if from > head {
		logger.Info(ctx, "backfill not needed", "from", from, "head", head)
		return nil
	}

	span.SetAttributes(
		attribute.Int64("backfill.from", int64(from)),
		attribute.Int64("backfill.to", int64(head)),
	)
	logger.Info(ctx, "backfill started", "from", from, "to", head, "blocks", head-from+1)

	g := new(errgroup.Group)
	if s.backfillConcurrency > 0 {
		g.SetLimit(s.backfillConcurrency)
	}

	// Blocks absorb their own failures, so the only error a scan reports is cancellation.
	for n := from; ctx.Err() == nil; n++ {
		g.Go(func() error {
			s.ProcessBlock(ctx, chaingateway.ByNumber(n))
			return ctx.Err()
		})
		if n == head {
			break
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	logger.Info(ctx, "backfill finished", "from", from, "to", head)
	return nil
}
