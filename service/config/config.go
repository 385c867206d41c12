package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default program IDs for the two token program variants. These are
// protocol-wide well-known addresses; they are defaults here, not
// compiled-in constants, so tests and unusual deployments can override
// them through the environment.
const (
	DefaultMainnetTokenProgramID = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	DefaultDevnetTokenProgramID  = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
)

// Config holds all application configuration loaded from environment
// variables. All required fields are validated at load time to ensure
// fail-fast behavior.
type Config struct {
	LogLevel string

	// Active network: "mainnet" or "devnet"
	Network string

	// Solana configuration - Mainnet
	MainnetRPCURL         string
	MainnetMintAddress    string
	MainnetTokenProgramID string
	MainnetTokenDecimals  int

	// Solana configuration - Devnet
	DevnetRPCURL         string
	DevnetMintAddress    string
	DevnetTokenProgramID string
	DevnetTokenDecimals  int

	// Wallet secret key environment variable name; the key material itself
	// is read through the SecretStore, never held here.
	WalletSecretEnv string

	// Submission configuration
	SubmitMaxRetries    int
	SubmitRetryBackoff  time.Duration
	ConfirmPollInterval time.Duration
	ConfirmTimeout      time.Duration

	// Provisioning uses a tighter retry budget than transfers.
	ProvisionMaxRetries int

	// Optional integrations; empty disables them.
	DatabaseURL string
	NATSURL     string

	// MetricsAddr is the listen address for the Prometheus scrape
	// endpoint; empty disables it.
	MetricsAddr string
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.Network = getEnvOrDefault("SOLANA_NETWORK", "devnet")
	if cfg.Network != "mainnet" && cfg.Network != "devnet" {
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be \"mainnet\" or \"devnet\", got %q", cfg.Network))
	}

	cfg.MainnetRPCURL = os.Getenv("SOLANA_MAINNET_RPC_URL")
	cfg.DevnetRPCURL = os.Getenv("SOLANA_DEVNET_RPC_URL")

	cfg.MainnetMintAddress = os.Getenv("TOKEN_MAINNET_MINT_ADDRESS")
	cfg.DevnetMintAddress = os.Getenv("TOKEN_DEVNET_MINT_ADDRESS")

	cfg.MainnetTokenProgramID = getEnvOrDefault("TOKEN_MAINNET_PROGRAM_ID", DefaultMainnetTokenProgramID)
	cfg.DevnetTokenProgramID = getEnvOrDefault("TOKEN_DEVNET_PROGRAM_ID", DefaultDevnetTokenProgramID)

	mainnetDecimals, err := parseInt("TOKEN_MAINNET_DECIMALS", 8)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MainnetTokenDecimals = mainnetDecimals
	}

	devnetDecimals, err := parseInt("TOKEN_DEVNET_DECIMALS", 9)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.DevnetTokenDecimals = devnetDecimals
	}

	cfg.WalletSecretEnv = getEnvOrDefault("WALLET_SECRET_ENV", "WALLET_SECRET_KEY")

	maxRetries, err := parseInt("SUBMIT_MAX_RETRIES", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SubmitMaxRetries = maxRetries
	}

	retryBackoff, err := parseDuration("SUBMIT_RETRY_BACKOFF", "1s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SubmitRetryBackoff = retryBackoff
	}

	pollInterval, err := parseDuration("CONFIRM_POLL_INTERVAL", "500ms")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmPollInterval = pollInterval
	}

	confirmTimeout, err := parseDuration("CONFIRM_TIMEOUT", "8s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	provisionRetries, err := parseInt("PROVISION_MAX_RETRIES", 3)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ProvisionMaxRetries = provisionRetries
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for process initialization where misconfiguration should halt
// startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	switch c.Network {
	case "mainnet":
		if c.MainnetRPCURL == "" {
			errs = append(errs, fmt.Errorf("SOLANA_MAINNET_RPC_URL is required on mainnet"))
		}
		if c.MainnetMintAddress == "" {
			errs = append(errs, fmt.Errorf("TOKEN_MAINNET_MINT_ADDRESS is required on mainnet"))
		}
	case "devnet":
		if c.DevnetRPCURL == "" {
			errs = append(errs, fmt.Errorf("SOLANA_DEVNET_RPC_URL is required on devnet"))
		}
		if c.DevnetMintAddress == "" {
			errs = append(errs, fmt.Errorf("TOKEN_DEVNET_MINT_ADDRESS is required on devnet"))
		}
	}

	if c.MainnetRPCURL != "" && c.MainnetRPCURL == c.DevnetRPCURL {
		errs = append(errs, fmt.Errorf("SOLANA_MAINNET_RPC_URL and SOLANA_DEVNET_RPC_URL must be different"))
	}

	if c.MainnetMintAddress != "" && c.MainnetMintAddress == c.DevnetMintAddress {
		errs = append(errs, fmt.Errorf("TOKEN_MAINNET_MINT_ADDRESS and TOKEN_DEVNET_MINT_ADDRESS must be different"))
	}

	if c.MainnetTokenDecimals < 0 || c.MainnetTokenDecimals > 18 {
		errs = append(errs, fmt.Errorf("TOKEN_MAINNET_DECIMALS must be between 0 and 18"))
	}
	if c.DevnetTokenDecimals < 0 || c.DevnetTokenDecimals > 18 {
		errs = append(errs, fmt.Errorf("TOKEN_DEVNET_DECIMALS must be between 0 and 18"))
	}

	if c.SubmitMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("SUBMIT_MAX_RETRIES must be at least 1"))
	}
	if c.ProvisionMaxRetries < 1 {
		errs = append(errs, fmt.Errorf("PROVISION_MAX_RETRIES must be at least 1"))
	}
	if c.ConfirmPollInterval > c.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("CONFIRM_POLL_INTERVAL (%v) cannot be greater than CONFIRM_TIMEOUT (%v)",
			c.ConfirmPollInterval, c.ConfirmTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%v", errs)
	}

	return nil
}

// RPCURL returns the RPC endpoint for the active network.
func (c *Config) RPCURL() string {
	if c.Network == "mainnet" {
		return c.MainnetRPCURL
	}
	return c.DevnetRPCURL
}

// MintAddress returns the token mint address for the active network.
func (c *Config) MintAddress() string {
	if c.Network == "mainnet" {
		return c.MainnetMintAddress
	}
	return c.DevnetMintAddress
}

// TokenProgramID returns the token program ID for the active network.
func (c *Config) TokenProgramID() string {
	if c.Network == "mainnet" {
		return c.MainnetTokenProgramID
	}
	return c.DevnetTokenProgramID
}

// TokenDecimals returns the token decimal precision for the active network.
func (c *Config) TokenDecimals() int {
	if c.Network == "mainnet" {
		return c.MainnetTokenDecimals
	}
	return c.DevnetTokenDecimals
}

// EnvSecretStore reads secret key material from environment variables.
// It satisfies the transfer service's SecretStore interface; the key name
// is the environment variable holding the base58-encoded secret.
type EnvSecretStore struct{}

// PrivateKeyMaterial returns the base58-encoded secret for keyName.
func (EnvSecretStore) PrivateKeyMaterial(_ context.Context, keyName string) (string, error) {
	material := os.Getenv(keyName)
	if material == "" {
		return "", fmt.Errorf("secret %s is not set", keyName)
	}
	return material, nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
