package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/soltransfer/service/config"
	"github.com/brojonat/soltransfer/service/db"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded transfers, newest first (requires DATABASE_URL)",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   20,
				Usage:   "Maximum number of transfers to show",
			},
			&cli.IntFlag{
				Name:  "offset",
				Value: 0,
				Usage: "Number of transfers to skip",
			},
		}, outputFlags()...),
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for history")
			}

			ctx := context.Background()
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer pool.Close()

			store := db.NewStore(pool)
			transfers, err := store.ListTransfers(ctx, db.ListTransfersParams{
				Network: cfg.Network,
				Limit:   int32(c.Int("limit")),
				Offset:  int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list transfers: %w", err)
			}

			if c.Bool("json") || c.String("filter") != "" {
				return printOutput(transfers, c.String("filter"))
			}

			if len(transfers) == 0 {
				fmt.Println("No transfers recorded.")
				return nil
			}
			for _, t := range transfers {
				mint := "SOL"
				if t.Mint != nil {
					mint = *t.Mint
				}
				fmt.Printf("%s  %-7s %-9s %s -> %s (raw %d, %s)\n",
					t.CreatedAt.Format("2006-01-02 15:04:05"),
					t.Kind,
					t.Status,
					mint,
					t.Recipient,
					t.RawAmount,
					t.Signature,
				)
			}
			return nil
		},
	}
}
