package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gabapcia/depositwatch/internal/depositquery"

	"github.com/urfave/cli/v3"
)

// depositsCommand prints one JSON document per stored deposit.
//
//	depositwatch deposits --since 2024-03-01T00:00:00Z
func depositsCommand(query depositquery.Service, settings Settings) *cli.Command {
	return &cli.Command{
		Name:        "deposits",
		Description: "Lists stored deposits of a chain and token, oldest block first.",
		Usage:       "Prints deposits as JSON lines.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "blockchain", Value: settings.Blockchain},
			&cli.StringFlag{Name: "network", Value: settings.Network},
			&cli.StringFlag{Name: "token", Value: settings.Token},
			&cli.StringFlag{
				Name:  "since",
				Usage: "Only deposits mined at or after this RFC 3339 time",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			filter := depositquery.Filter{
				Blockchain: c.String("blockchain"),
				Network:    c.String("network"),
				Token:      c.String("token"),
			}

			if since := c.String("since"); since != "" {
				t, err := time.Parse(time.RFC3339, since)
				if err != nil {
					return fmt.Errorf("--since: %w", err)
				}
				filter.MinBlockTimestamp = &t
			}

			deposits, err := query.GetDeposits(ctx, filter)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(c.Root().Writer)
			for _, d := range deposits {
				if err := enc.Encode(d); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
