package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "soltransfer",
		Usage: "Solana native and SPL token transfer CLI",
		Description: `A command-line tool for moving SOL and SPL token balances out of the
service wallet and inspecting the transfer history.

Configuration is read from the environment: SOLANA_NETWORK picks the
cluster, SOLANA_<NETWORK>_RPC_URL and TOKEN_<NETWORK>_MINT_ADDRESS are
required for the active network, and DATABASE_URL, NATS_URL and
METRICS_ADDR enable the optional integrations. The wallet secret key is
read from the variable named by WALLET_SECRET_ENV (default
WALLET_SECRET_KEY).`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			balanceCommand(),
			tokenBalanceCommand(),
			transferCommand(),
			tokenTransferCommand(),
			historyCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
