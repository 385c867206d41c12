package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/itchyny/gojq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/soltransfer/service/config"
	"github.com/brojonat/soltransfer/service/db"
	"github.com/brojonat/soltransfer/service/metrics"
	"github.com/brojonat/soltransfer/service/nats"
	"github.com/brojonat/soltransfer/service/solana"
	"github.com/brojonat/soltransfer/service/transfer"
)

// newLogger builds the CLI logger: JSON to stderr so stdout stays clean
// for command output.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// newService wires a transfer.Service from the environment configuration.
// A fresh Prometheus registry backs the collectors; METRICS_ADDR exposes
// it for scraping. The transfer history store and the event publisher are
// attached when DATABASE_URL and NATS_URL are set. The returned cleanup
// function closes whatever was opened.
func newService() (*transfer.Service, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := newLogger(cfg.LogLevel)

	tokenProgram, err := solanago.PublicKeyFromBase58(cfg.TokenProgramID())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid token program ID %q: %w", cfg.TokenProgramID(), err)
	}
	mint, err := solanago.PublicKeyFromBase58(cfg.MintAddress())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid mint address %q: %w", cfg.MintAddress(), err)
	}

	profile := solana.Profile{
		TokenProgramID: tokenProgram,
		Decimals:       uint8(cfg.TokenDecimals()),
	}

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	rpcClient := solana.NewRPCClient(cfg.RPCURL())

	submitCfg := solana.SubmitConfig{
		MaxRetries:     cfg.SubmitMaxRetries,
		RetryBackoff:   cfg.SubmitRetryBackoff,
		PollInterval:   cfg.ConfirmPollInterval,
		ConfirmTimeout: cfg.ConfirmTimeout,
	}
	submitter := solana.NewSubmitter(rpcClient, submitCfg, cfg.Network, m, logger)

	provisionCfg := submitCfg
	provisionCfg.MaxRetries = cfg.ProvisionMaxRetries
	provisionSubmitter := solana.NewSubmitter(rpcClient, provisionCfg, cfg.Network, m, logger)
	provisioner := solana.NewProvisioner(rpcClient, provisionSubmitter, m, logger)

	cleanup := func() {}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		prev := cleanup
		cleanup = func() { srv.Shutdown(context.Background()); prev() }
	}

	var store transfer.HistoryStore
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s := db.NewStore(pool)
		if err := s.EnsureSchema(context.Background()); err != nil {
			pool.Close()
			cleanup()
			return nil, nil, nil, err
		}
		store = s
		prev := cleanup
		cleanup = func() { pool.Close(); prev() }
	}

	var publisher nats.Publisher
	if cfg.NATSURL != "" {
		p, err := nats.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		publisher = p
		prev := cleanup
		cleanup = func() { p.Close(); prev() }
	}

	svc := transfer.NewService(transfer.Params{
		RPC:           rpcClient,
		Submitter:     submitter,
		Provisioner:   provisioner,
		Secrets:       config.EnvSecretStore{},
		WalletKeyName: cfg.WalletSecretEnv,
		Mint:          mint,
		Profile:       profile,
		Network:       solana.Network(cfg.Network),
		Store:         store,
		Publisher:     publisher,
		Metrics:       m,
		Logger:        logger,
	})

	return svc, cfg, cleanup, nil
}

// printOutput renders v as JSON, optionally piped through a jq filter.
func printOutput(v interface{}, filter string) error {
	if filter == "" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// Round-trip through JSON so gojq sees plain maps and slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to unmarshal output: %w", err)
	}

	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return fmt.Errorf("jq filter error: %w", err)
		}
		data, err := json.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to marshal filtered output: %w", err)
		}
		fmt.Println(string(data))
	}
	return nil
}
