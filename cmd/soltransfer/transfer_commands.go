package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "jq filter applied to JSON output",
		},
	}
}

func balanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Show the SOL balance of an address",
		ArgsUsage: "ADDRESS",
		Flags:     outputFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("address is required")
			}
			address := c.Args().Get(0)

			svc, cfg, cleanup, err := newService()
			if err != nil {
				return err
			}
			defer cleanup()

			balance, err := svc.GetSolanaBalance(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}

			if c.Bool("json") || c.String("filter") != "" {
				return printOutput(map[string]interface{}{
					"address": address,
					"network": cfg.Network,
					"balance": balance.String(),
					"asset":   "SOL",
				}, c.String("filter"))
			}

			fmt.Printf("%s SOL\n", balance)
			return nil
		},
	}
}

func tokenBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "token-balance",
		Usage:     "Show the SPL token balance of an address",
		ArgsUsage: "ADDRESS",
		Flags:     outputFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("address is required")
			}
			address := c.Args().Get(0)

			svc, cfg, cleanup, err := newService()
			if err != nil {
				return err
			}
			defer cleanup()

			balance, err := svc.GetSplBalance(context.Background(), address)
			if err != nil {
				return fmt.Errorf("failed to get token balance: %w", err)
			}

			if c.Bool("json") || c.String("filter") != "" {
				return printOutput(map[string]interface{}{
					"address": address,
					"network": cfg.Network,
					"balance": balance.String(),
					"mint":    cfg.MintAddress(),
				}, c.String("filter"))
			}

			fmt.Printf("%s (mint %s)\n", balance, cfg.MintAddress())
			return nil
		},
	}
}

func transferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Transfer SOL from the service wallet and wait for finality",
		ArgsUsage: "RECIPIENT AMOUNT",
		Flags:     outputFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("recipient and amount are required")
			}
			recipient := c.Args().Get(0)
			amount, err := decimal.NewFromString(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
			}

			svc, cfg, cleanup, err := newService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.TransferSolana(context.Background(), recipient, amount)
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}

			if c.Bool("json") || c.String("filter") != "" {
				return printOutput(map[string]interface{}{
					"tx":        result.Signature,
					"recipient": recipient,
					"amount":    amount.String(),
					"network":   cfg.Network,
					"asset":     "SOL",
				}, c.String("filter"))
			}

			fmt.Printf("✓ Transfer finalized\n")
			fmt.Printf("  Signature: %s\n", result.Signature)
			fmt.Printf("  Recipient: %s\n", recipient)
			fmt.Printf("  Amount: %s SOL\n", amount)
			return nil
		},
	}
}

func tokenTransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "token-transfer",
		Usage:     "Transfer SPL tokens from the service wallet and wait for finality",
		ArgsUsage: "RECIPIENT AMOUNT",
		Flags:     outputFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("recipient and amount are required")
			}
			recipient := c.Args().Get(0)
			amount, err := decimal.NewFromString(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(1), err)
			}

			svc, cfg, cleanup, err := newService()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := svc.TransferSpl(context.Background(), recipient, amount)
			if err != nil {
				return fmt.Errorf("transfer failed: %w", err)
			}

			if c.Bool("json") || c.String("filter") != "" {
				return printOutput(map[string]interface{}{
					"tx":        result.Signature,
					"recipient": recipient,
					"amount":    amount.String(),
					"network":   cfg.Network,
					"mint":      cfg.MintAddress(),
				}, c.String("filter"))
			}

			fmt.Printf("✓ Transfer finalized\n")
			fmt.Printf("  Signature: %s\n", result.Signature)
			fmt.Printf("  Recipient: %s\n", recipient)
			fmt.Printf("  Amount: %s (mint %s)\n", amount, cfg.MintAddress())
			return nil
		},
	}
}
