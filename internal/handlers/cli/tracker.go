package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"

	"github.com/urfave/cli/v3"
)

const startedMessage = "Deposits tracker service started"

func startBlockFlag(settings Settings) *cli.Uint64Flag {
	return &cli.Uint64Flag{
		Name:  "start-block",
		Usage: "First block to scan when nothing newer is stored",
		Value: settings.StartBlock,
	}
}

// startCommand follows the chain until SIGINT or SIGTERM. Live blocks are subscribed to
// before the backfill starts so no block falls between the two.
//
//	depositwatch start --start-block 19000000 --pending
func startCommand(tracker deposittrack.Service, notifier deposittrack.Notifier, settings Settings) *cli.Command {
	return &cli.Command{
		Name:        "start",
		Description: "Backfills missed blocks and then processes every new block until interrupted.",
		Usage:       "Runs the deposit tracker. Terminates gracefully on Ctrl+C or termination signals.",
		Flags: []cli.Flag{
			startBlockFlag(settings),
			&cli.BoolFlag{
				Name:  "pending",
				Usage: "Also inspect transactions while they are still in the mempool",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := tracker.WatchLiveBlocks(ctx); err != nil {
				return err
			}

			if c.Bool("pending") {
				if err := tracker.WatchPendingTransactions(ctx); err != nil {
					return err
				}
			}

			if err := notifier.Notify(ctx, startedMessage); err != nil {
				logger.Warn(ctx, "failed to send start notification", "error", err)
			}

			go func() {
				err := tracker.BackfillFrom(ctx, c.Uint64("start-block"))
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error(ctx, "backfill failed", "error", err)
				}
			}()

			<-ctx.Done()
			logger.Info(ctx, "shutting down")
			return nil
		},
	}
}

//	depositwatch backfill --start-block 19000000
func backfillCommand(tracker deposittrack.Service, settings Settings) *cli.Command {
	return &cli.Command{
		Name:        "backfill",
		Description: "Scans every block from the start block, or the latest stored one, up to the current head.",
		Usage:       "Runs a one-off backfill and exits.",
		Flags:       []cli.Flag{startBlockFlag(settings)},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return tracker.BackfillFrom(ctx, c.Uint64("start-block"))
		},
	}
}

//	depositwatch process-block --block 0x12a05f2
func processBlockCommand(tracker deposittrack.Service) *cli.Command {
	return &cli.Command{
		Name:        "process-block",
		Description: "Scans a single block for deposits.",
		Usage:       "Accepts a decimal number, a 0x-prefixed number, a block hash or 'latest'.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "block",
				Usage: "Block to scan",
				Value: "latest",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := chaingateway.ParseBlockID(c.String("block"))
			if err != nil {
				return fmt.Errorf("--block: %w", err)
			}

			tracker.ProcessBlock(ctx, id)
			return nil
		},
	}
}
