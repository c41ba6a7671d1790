package cli

import (
	"context"
	"os"

	"github.com/gabapcia/depositwatch/internal/depositquery"
	"github.com/gabapcia/depositwatch/internal/deposittrack"

	"github.com/urfave/cli/v3"
)

// Settings are the configured values the commands fall back to when a flag is not given.
type Settings struct {
	Blockchain string
	Network    string
	Token      string
	StartBlock uint64
}

func newApp(tracker deposittrack.Service, query depositquery.Service, notifier deposittrack.Notifier, settings Settings) *cli.Command {
	return &cli.Command{
		EnableShellCompletion: true,
		Name:                  "depositwatch",
		Description:           "Watches an EVM chain for deposits into a set of addresses.",
		Usage:                 "depositwatch [command] [flags]",
		Commands: []*cli.Command{
			startCommand(tracker, notifier, settings),
			backfillCommand(tracker, settings),
			processBlockCommand(tracker),
			depositsCommand(query, settings),
		},
	}
}

// Run parses os.Args and executes the matching command:
//
//   - `start`: backfill then follow the chain head until interrupted
//   - `backfill`: scan from a block up to the current head and exit
//   - `process-block`: scan a single block
//   - `deposits`: print stored deposits as JSON lines
func Run(ctx context.Context, tracker deposittrack.Service, query depositquery.Service, notifier deposittrack.Notifier, settings Settings) error {
	return newApp(tracker, query, notifier, settings).Run(ctx, os.Args)
}
