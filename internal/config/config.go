// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"sonic-transfer/internal/solana"
	"sonic-transfer/internal/transfer"
)

// DefaultRPCEndpoint is the Sonic devnet RPC.
const DefaultRPCEndpoint = "https://devnet.sonic.game/"

// Environment keys. Viper upper-cases them for lookup.
const (
	KeySeedPhrase     = "seed_phrase"
	KeyRPCEndpoint    = "rpc_endpoint"
	KeyWSEndpoint     = "ws_endpoint"
	KeyCommitment     = "commitment"
	KeyMaxTransfers   = "max_transfers"
	KeyMinAmount      = "min_amount_sol"
	KeyMaxAmount      = "max_amount_sol"
	KeyRPCRateLimit   = "rpc_rate_limit"
	KeyConfirmTimeout = "confirm_timeout"
	KeyMetricsAddr    = "metrics_addr"
)

// ErrMissingSeedPhrase is returned when SEED_PHRASE is unset or blank.
var ErrMissingSeedPhrase = errors.New("SEED_PHRASE is not set in the environment or .env file")

// Config holds runtime settings.
type Config struct {
	SeedPhrase     string
	RPCEndpoint    string
	WSEndpoint     string
	Commitment     solana.Commitment
	MaxTransfers   int
	MinAmount      float64
	MaxAmount      float64
	RPCRateLimit   float64       // requests per second, 0 disables
	ConfirmTimeout time.Duration // per transfer, 0 leaves it to the RPC client
	MetricsAddr    string        // empty disables the metrics server
}

// Load reads envFiles (default ".env") into the process environment without
// overriding variables already set, then builds Config from the environment.
// Missing env files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromViper(New())
}

// New returns a viper instance bound to the environment with defaults applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyRPCEndpoint, DefaultRPCEndpoint)
	v.SetDefault(KeyCommitment, string(solana.DefaultCommitment))
	v.SetDefault(KeyMaxTransfers, transfer.DefaultMaxTransfers)
	v.SetDefault(KeyMinAmount, transfer.DefaultMinAmount)
	v.SetDefault(KeyMaxAmount, transfer.DefaultMaxAmount)
	v.SetDefault(KeyRPCRateLimit, 0)
	v.SetDefault(KeyConfirmTimeout, time.Duration(0))
	v.AutomaticEnv()
	return v
}

// FromViper builds and validates Config. The seed phrase is checked first so a
// missing secret is reported before anything else.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		SeedPhrase:     strings.TrimSpace(v.GetString(KeySeedPhrase)),
		RPCEndpoint:    strings.TrimSpace(v.GetString(KeyRPCEndpoint)),
		WSEndpoint:     strings.TrimSpace(v.GetString(KeyWSEndpoint)),
		Commitment:     solana.Commitment(strings.ToLower(v.GetString(KeyCommitment))),
		MaxTransfers:   v.GetInt(KeyMaxTransfers),
		MinAmount:      v.GetFloat64(KeyMinAmount),
		MaxAmount:      v.GetFloat64(KeyMaxAmount),
		RPCRateLimit:   v.GetFloat64(KeyRPCRateLimit),
		ConfirmTimeout: v.GetDuration(KeyConfirmTimeout),
		MetricsAddr:    v.GetString(KeyMetricsAddr),
	}

	if cfg.SeedPhrase == "" {
		return nil, ErrMissingSeedPhrase
	}
	if cfg.WSEndpoint == "" {
		cfg.WSEndpoint = solana.WSEndpoint(cfg.RPCEndpoint)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.SeedPhrase == "":
		return ErrMissingSeedPhrase
	case c.RPCEndpoint == "":
		return fmt.Errorf("RPC_ENDPOINT must not be empty")
	case !c.Commitment.Valid():
		return fmt.Errorf("COMMITMENT must be processed, confirmed or finalized, got %q", c.Commitment)
	case c.MaxTransfers <= 0:
		return fmt.Errorf("MAX_TRANSFERS must be positive, got %d", c.MaxTransfers)
	case c.MinAmount <= 0:
		return fmt.Errorf("MIN_AMOUNT_SOL must be positive, got %v", c.MinAmount)
	case c.MaxAmount <= c.MinAmount:
		return fmt.Errorf("MAX_AMOUNT_SOL (%v) must exceed MIN_AMOUNT_SOL (%v)", c.MaxAmount, c.MinAmount)
	case c.RPCRateLimit < 0:
		return fmt.Errorf("RPC_RATE_LIMIT must not be negative, got %v", c.RPCRateLimit)
	case c.ConfirmTimeout < 0:
		return fmt.Errorf("CONFIRM_TIMEOUT must not be negative, got %s", c.ConfirmTimeout)
	}
	return nil
}

// TransferConfig returns the loop settings.
func (c *Config) TransferConfig() transfer.Config {
	cfg := transfer.DefaultConfig()
	cfg.MaxTransfers = c.MaxTransfers
	cfg.Sampler = transfer.UniformSampler{Min: c.MinAmount, Max: c.MaxAmount}
	return cfg
}
