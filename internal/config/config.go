// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"math/big"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by ARBSCAN_* environment
// variables. Core components never see this type; they receive plain values
// at construction.
type Config struct {
	Network  NetworkConfig    `toml:"network"`
	Scanner  ScannerConfig    `toml:"scanner"`
	Tokens   []TokenConfig    `toml:"tokens"`
	Dexes    []DexVenueConfig `toml:"dexes"`
	Cexes    []CexVenueConfig `toml:"cexes"`
	Guard    GuardConfig      `toml:"guard"`
	Redis    RedisConfig      `toml:"redis"`
	Postgres PostgresConfig   `toml:"postgres"`
	S3       S3Config         `toml:"s3"`
	Notify   NotifyConfig     `toml:"notify"`
	Mode     string           `toml:"mode"`
	LogLevel string           `toml:"log_level"`
}

// NetworkConfig selects the chain the scanner operates on.
type NetworkConfig struct {
	ChainID int `toml:"chain_id"`
}

// ScannerConfig holds the detection and scheduling parameters.
type ScannerConfig struct {
	// Pairs is the candidate list, "BASE/QUOTE" per entry.
	Pairs []string `toml:"pairs"`
	// Notional is the trade size as a decimal integer in the base token's
	// smallest unit, e.g. "1000000000000000000" for 1 WETH.
	Notional string `toml:"notional"`
	// TotalFeePct lumps flashloan fee, DEX fee, CEX taker fee, and gas into
	// one flat percentage. Flat by design: it will overestimate costs for
	// large notionals and underestimate them for small ones.
	TotalFeePct float64 `toml:"total_fee_pct"`
	// MinProfitPct is the emission threshold on fee-adjusted profit.
	MinProfitPct    float64 `toml:"min_profit_pct"`
	IntervalSec     int     `toml:"interval_sec"`
	QuoteTimeoutSec int     `toml:"quote_timeout_sec"`
	// TopN caps how many opportunities an alert lists.
	TopN int `toml:"top_n"`
}

// TokenConfig is one token mapping row.
type TokenConfig struct {
	Symbol   string `toml:"symbol"`
	ChainID  int    `toml:"chain_id"`
	Address  string `toml:"address"`
	Decimals int    `toml:"decimals"`
}

// DexVenueConfig describes one on-chain venue.
type DexVenueConfig struct {
	Name   string `toml:"name"`
	RPCURL string `toml:"rpc_url"`
	Router string `toml:"router"`
}

// CexVenueConfig describes one centralized venue. Kind selects the adapter:
// "binance", "kraken", or "binance_ws".
type CexVenueConfig struct {
	Name      string `toml:"name"`
	Kind      string `toml:"kind"`
	BaseURL   string `toml:"base_url"`
	WSURL     string `toml:"ws_url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	// MaxAgeSec applies to streaming venues: quotes older than this count as
	// unlisted. Zero disables the check.
	MaxAgeSec int `toml:"max_age_sec"`
}

// GuardConfig selects and tunes the rate guard.
type GuardConfig struct {
	// Backend is "local", "redis", or "none".
	Backend    string  `toml:"backend"`
	RatePerSec float64 `toml:"rate_per_sec"`
	Burst      int     `toml:"burst"`
	// Limit and WindowSec tune the redis sliding window.
	Limit     int `toml:"limit"`
	WindowSec int `toml:"window_sec"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables the
// Redis-backed collaborators.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the opportunity
// history store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds object storage parameters for the cycle archiver.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// NotifyConfig holds alerting parameters.
type NotifyConfig struct {
	TelegramToken  string `toml:"telegram_token"`
	TelegramChatID string `toml:"telegram_chat_id"`
	CooldownSec    int    `toml:"cooldown_sec"`
}

// Defaults returns the built-in configuration baseline.
func Defaults() Config {
	return Config{
		Network: NetworkConfig{ChainID: 1},
		Scanner: ScannerConfig{
			Notional:        "1000000000000000000",
			TotalFeePct:     0.5,
			MinProfitPct:    0.3,
			IntervalSec:     30,
			QuoteTimeoutSec: 10,
			TopN:            5,
		},
		Guard: GuardConfig{
			Backend:    "local",
			RatePerSec: 5,
			Burst:      2,
			Limit:      10,
			WindowSec:  1,
		},
		Notify:   NotifyConfig{CooldownSec: 300},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// ParsedNotional parses the configured notional into a positive integer.
func (c ScannerConfig) ParsedNotional() (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(c.Notional), 10)
	if !ok {
		return nil, fmt.Errorf("config: notional %q is not a decimal integer", c.Notional)
	}
	if n.Sign() <= 0 {
		return nil, fmt.Errorf("config: notional must be positive, got %s", c.Notional)
	}
	return n, nil
}

// Validate checks the configuration for the selected mode. It must be called
// after Load and before wiring.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "scan", "monitor":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Network.ChainID <= 0 {
		return fmt.Errorf("config: network.chain_id must be positive")
	}

	if len(c.Scanner.Pairs) == 0 {
		return fmt.Errorf("config: scanner.pairs must not be empty")
	}
	for _, p := range c.Scanner.Pairs {
		parts := strings.Split(p, "/")
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return fmt.Errorf("config: malformed pair %q, want BASE/QUOTE", p)
		}
	}

	if _, err := c.Scanner.ParsedNotional(); err != nil {
		return err
	}
	if c.Scanner.TotalFeePct < 0 {
		return fmt.Errorf("config: scanner.total_fee_pct must not be negative")
	}
	if c.Scanner.MinProfitPct < 0 {
		return fmt.Errorf("config: scanner.min_profit_pct must not be negative")
	}
	if c.Mode == "monitor" && c.Scanner.IntervalSec <= 0 {
		return fmt.Errorf("config: scanner.interval_sec must be positive in monitor mode")
	}

	if len(c.Dexes)+len(c.Cexes) == 0 {
		return fmt.Errorf("config: at least one venue must be configured")
	}
	for _, d := range c.Dexes {
		if d.Name == "" || d.RPCURL == "" || d.Router == "" {
			return fmt.Errorf("config: dex venue %q needs name, rpc_url, and router", d.Name)
		}
	}
	for _, x := range c.Cexes {
		switch x.Kind {
		case "binance", "kraken", "binance_ws":
		default:
			return fmt.Errorf("config: cex venue %q has unsupported kind %q", x.Name, x.Kind)
		}
	}

	// Venue names key the rate guard and identify venues on opportunities, so
	// they must be unique across the whole venue set. An unnamed cex falls
	// back to its kind.
	venueNames := make(map[string]bool, len(c.Dexes)+len(c.Cexes))
	for _, d := range c.Dexes {
		if venueNames[d.Name] {
			return fmt.Errorf("config: duplicate venue name %q", d.Name)
		}
		venueNames[d.Name] = true
	}
	for _, x := range c.Cexes {
		name := x.Name
		if name == "" {
			name = x.Kind
		}
		if venueNames[name] {
			return fmt.Errorf("config: duplicate venue name %q", name)
		}
		venueNames[name] = true
	}

	if len(c.Tokens) == 0 && len(c.Dexes) > 0 {
		return fmt.Errorf("config: tokens must be configured when dex venues are present")
	}

	switch c.Guard.Backend {
	case "local", "redis", "none":
	default:
		return fmt.Errorf("config: unsupported guard backend %q", c.Guard.Backend)
	}
	if c.Guard.Backend == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("config: guard backend redis requires redis.addr")
	}

	if c.Postgres.Enabled && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres enabled but neither dsn nor host set")
	}
	if c.S3.Enabled && (c.S3.Bucket == "" || c.S3.Region == "") {
		return fmt.Errorf("config: s3 enabled but bucket or region missing")
	}

	return nil
}
