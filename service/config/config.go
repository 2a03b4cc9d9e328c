package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all application configuration loaded from environment
// variables. All required fields are validated at load so a bad secret key
// or missing RPC URL aborts before any network call.
type Config struct {
	// Cluster RPC
	SolanaRPCURL string

	// Signer: exactly one of these must be set.
	SolanaPrivateKey  string // base58-encoded secret key
	SolanaKeypairFile string // path to a solana-keygen JSON file

	// Optional lookup table registry. Empty disables the registry.
	DatabaseURL string

	LogLevel string

	// Confirmation wait tuning
	ConfirmPollInterval time.Duration
	ConfirmTimeout      time.Duration

	// Table visibility polling (replaces the fixed post-creation sleep)
	TablePollInterval   time.Duration
	TableVisibleTimeout time.Duration
}

// Load reads configuration from environment variables and validates all
// required fields. Returns an error if any required configuration is
// missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.SolanaPrivateKey = os.Getenv("SOLANA_PRIVATE_KEY")
	cfg.SolanaKeypairFile = os.Getenv("SOLANA_KEYPAIR_FILE")
	if cfg.SolanaPrivateKey == "" && cfg.SolanaKeypairFile == "" {
		errs = append(errs, fmt.Errorf("one of SOLANA_PRIVATE_KEY or SOLANA_KEYPAIR_FILE is required"))
	}
	if cfg.SolanaPrivateKey != "" && cfg.SolanaKeypairFile != "" {
		errs = append(errs, fmt.Errorf("SOLANA_PRIVATE_KEY and SOLANA_KEYPAIR_FILE are mutually exclusive"))
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	confirmPoll, err := parseDuration("CONFIRM_POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmPollInterval = confirmPoll
	}

	confirmTimeout, err := parseDuration("CONFIRM_TIMEOUT", "90s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ConfirmTimeout = confirmTimeout
	}

	tablePoll, err := parseDuration("TABLE_POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TablePollInterval = tablePoll
	}

	tableTimeout, err := parseDuration("TABLE_VISIBLE_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TableVisibleTimeout = tableTimeout
	}

	if cfg.ConfirmPollInterval > cfg.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("CONFIRM_POLL_INTERVAL (%v) cannot be greater than CONFIRM_TIMEOUT (%v)",
			cfg.ConfirmPollInterval, cfg.ConfirmTimeout))
	}
	if cfg.TablePollInterval > cfg.TableVisibleTimeout {
		errs = append(errs, fmt.Errorf("TABLE_POLL_INTERVAL (%v) cannot be greater than TABLE_VISIBLE_TIMEOUT (%v)",
			cfg.TablePollInterval, cfg.TableVisibleTimeout))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
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

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}
	if c.SolanaPrivateKey == "" && c.SolanaKeypairFile == "" {
		errs = append(errs, fmt.Errorf("a signer source is required"))
	}
	if c.ConfirmPollInterval < 100*time.Millisecond {
		errs = append(errs, fmt.Errorf("ConfirmPollInterval must be at least 100ms"))
	}
	if c.ConfirmPollInterval > c.ConfirmTimeout {
		errs = append(errs, fmt.Errorf("ConfirmPollInterval cannot be greater than ConfirmTimeout"))
	}
	if c.TablePollInterval > c.TableVisibleTimeout {
		errs = append(errs, fmt.Errorf("TablePollInterval cannot be greater than TableVisibleTimeout"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
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
