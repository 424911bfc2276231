// Package config defines the top-level configuration for the vault agent
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by VAULTAGENT_* environment
// variables.
type Config struct {
	Wallet   WalletConfig   `toml:"wallet"`
	Arc      ArcConfig      `toml:"arc"`
	Bridge   BridgeConfig   `toml:"bridge"`
	Oracle   OracleConfig   `toml:"oracle"`
	Risk     RiskConfig     `toml:"risk"`
	Assets   AssetsConfig   `toml:"assets"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// WalletConfig holds the agent's signing key used for bridge and settlement
// transactions.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// ArcConfig holds the source-network RPC endpoint and vault contract
// parameters for the poll-based notification adapter.
type ArcConfig struct {
	RPCURL        string   `toml:"rpc_url"`
	VaultAddress  string   `toml:"vault_address"`
	ChainID       int64    `toml:"chain_id"`
	PollInterval  duration `toml:"poll_interval"`
	LookbackBlocks uint64  `toml:"lookback_blocks"`
}

// BridgeConfig holds the cross-network transfer (CCTP) parameters.
type BridgeConfig struct {
	TokenMessenger    string `toml:"token_messenger"`
	USDCAddress       string `toml:"usdc_address"`
	DestinationDomain uint32 `toml:"destination_domain"`
	Recipient         string `toml:"recipient"`
	Asset             string `toml:"asset"`
	GasLimit          uint64 `toml:"gas_limit"`
	// DryRun selects the simulated bridge implementation; no transactions
	// are signed or broadcast.
	DryRun bool `toml:"dry_run"`
}

// OracleConfig holds the market data feed endpoint and per-call fee
// accounting parameters.
type OracleConfig struct {
	ClobHost string `toml:"clob_host"`
	// FeePerCall is the micro-fee debited before each data request.
	FeePerCall float64 `toml:"fee_per_call"`
	// FeeBudget caps cumulative fees; 0 means unlimited. Once exhausted,
	// quote calls fail with an authorization error.
	FeeBudget float64 `toml:"fee_budget"`
	// SelfTestMarket, when non-empty, is fetched once at startup to verify
	// the feed is reachable.
	SelfTestMarket string `toml:"self_test_market"`
}

// RiskConfig holds the liquidation and hedge cycle parameters.
type RiskConfig struct {
	// LiquidationThreshold is the PnL fraction at or below which a tracked
	// position is force-closed. Reference value: -0.80.
	LiquidationThreshold float64  `toml:"liquidation_threshold"`
	LiquidationInterval  duration `toml:"liquidation_interval"`
	// HedgeThreshold is the vault imbalance above which a rebalancing
	// transfer is triggered. Imbalance exactly at the threshold does not
	// trigger.
	HedgeThreshold float64  `toml:"hedge_threshold"`
	BridgeAmount   float64  `toml:"bridge_amount"`
	HedgeInterval  duration `toml:"hedge_interval"`
	// YesSplit is the fixed fraction of the vault balance assumed to be
	// long-yes exposure in the simplified exposure model.
	YesSplit float64 `toml:"yes_split"`
}

// AssetsConfig declares the decimal count of each collateral asset by
// symbol. The chain adapter uses it to descale raw collateral amounts;
// webhook notifications declare decimals inline instead.
type AssetsConfig struct {
	Decimals map[string]int `toml:"decimals"`
	// Default is used for assets not present in Decimals.
	Default int `toml:"default"`
}

// DecimalsFor returns the declared decimal count for the given asset symbol.
func (a AssetsConfig) DecimalsFor(asset string) int {
	if d, ok := a.Decimals[strings.ToUpper(strings.TrimSpace(asset))]; ok {
		return d
	}
	return a.Default
}

// PostgresConfig holds PostgreSQL connection parameters for the settlement
// journal. An empty DSN with an empty host disables persistence.
type PostgresConfig struct {
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

// Enabled reports whether a database connection is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.DSN) != "" || strings.TrimSpace(p.Host) != ""
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Enabled reports whether a Redis connection is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// S3Config holds S3-compatible object storage parameters for the settlement
// archive.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	// ArchiveInterval is how often the journal snapshot is uploaded.
	ArchiveInterval duration `toml:"archive_interval"`
}

// Enabled reports whether object storage is configured.
func (s S3Config) Enabled() bool {
	return strings.TrimSpace(s.Bucket) != ""
}

// ServerConfig holds HTTP server parameters for the push-based notification
// adapter and the read-only listing endpoints.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"` // empty disables authentication
	// BridgeTxPath is the well-known file the latest bridge transaction
	// reference is written to when Redis is not configured.
	BridgeTxPath string `toml:"bridge_tx_path"`
	// RateLimit caps requests per client IP per RateWindow. Requires Redis;
	// 0 disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "10s", "2m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "10s" or "2m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns the built-in configuration; values mirror the reference
// deployment (10s liquidation cycle, 1000-unit hedge threshold and bridge
// amount, 0.001 oracle fee).
func Defaults() Config {
	return Config{
		Arc: ArcConfig{
			RPCURL:         "https://rpc-testnet.arc.network",
			ChainID:        10087,
			PollInterval:   duration{2 * time.Second},
			LookbackBlocks: 10,
		},
		Bridge: BridgeConfig{
			TokenMessenger:    "0x8FE6B999Dc680CcFDD5Bf7EB0974218be2542DAA",
			USDCAddress:       "0x3600000000000000000000000000000000000000",
			DestinationDomain: 7, // Polygon PoS
			Asset:             "USDC",
			GasLimit:          200_000,
			DryRun:            true,
		},
		Oracle: OracleConfig{
			ClobHost:   "https://clob.polymarket.com",
			FeePerCall: 0.001,
		},
		Risk: RiskConfig{
			LiquidationThreshold: -0.80,
			LiquidationInterval:  duration{10 * time.Second},
			HedgeThreshold:       1000,
			BridgeAmount:         1000,
			HedgeInterval:        duration{30 * time.Second},
			YesSplit:             0.70,
		},
		Assets: AssetsConfig{
			Decimals: map[string]int{"USDC": 6},
			Default:  6,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "vaultagent",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:          "us-east-1",
			ForcePathStyle:  true,
			ArchiveInterval: duration{24 * time.Hour},
		},
		Server: ServerConfig{
			Port:         5001,
			BridgeTxPath: "public/latest_bridge_tx.json",
			RateWindow:   duration{time.Minute},
		},
		Mode:     "webhook",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"webhook":  true,
	"listener": true,
	"full":     true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency. It collects
// all problems and returns them as a single error so operators can fix an
// entire config file in one pass.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: webhook, listener, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet checks apply only when real transactions will be signed.
	if !c.Bridge.DryRun {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when bridge.dry_run is false")
		}
		if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
			errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
		}
		if c.Bridge.TokenMessenger == "" {
			errs = append(errs, "bridge: token_messenger must not be empty when dry_run is false")
		}
		if c.Bridge.USDCAddress == "" {
			errs = append(errs, "bridge: usdc_address must not be empty when dry_run is false")
		}
		if c.Bridge.Recipient == "" {
			errs = append(errs, "bridge: recipient must not be empty when dry_run is false")
		}
	}

	// Chain access is required for listener and full modes.
	if mode == "listener" || mode == "full" {
		if c.Arc.RPCURL == "" {
			errs = append(errs, "arc: rpc_url is required for mode "+mode)
		}
		if c.Arc.VaultAddress == "" {
			errs = append(errs, "arc: vault_address is required for mode "+mode)
		}
		if c.Arc.PollInterval.Duration <= 0 {
			errs = append(errs, "arc: poll_interval must be positive")
		}
	}

	// Oracle
	if c.Oracle.ClobHost == "" {
		errs = append(errs, "oracle: clob_host must not be empty")
	}
	if c.Oracle.FeePerCall < 0 {
		errs = append(errs, "oracle: fee_per_call must be >= 0")
	}
	if c.Oracle.FeeBudget < 0 {
		errs = append(errs, "oracle: fee_budget must be >= 0")
	}

	// Risk
	if c.Risk.LiquidationThreshold >= 0 {
		errs = append(errs, fmt.Sprintf("risk: liquidation_threshold must be negative, got %v", c.Risk.LiquidationThreshold))
	}
	if c.Risk.LiquidationInterval.Duration <= 0 {
		errs = append(errs, "risk: liquidation_interval must be positive")
	}
	if c.Risk.HedgeInterval.Duration <= 0 {
		errs = append(errs, "risk: hedge_interval must be positive")
	}
	if c.Risk.HedgeThreshold < 0 {
		errs = append(errs, "risk: hedge_threshold must be >= 0")
	}
	if c.Risk.BridgeAmount <= 0 {
		errs = append(errs, "risk: bridge_amount must be positive")
	}
	if c.Risk.YesSplit < 0 || c.Risk.YesSplit > 1 {
		errs = append(errs, fmt.Sprintf("risk: yes_split must be within [0,1], got %v", c.Risk.YesSplit))
	}

	// Assets
	if c.Assets.Default < 0 || c.Assets.Default > 30 {
		errs = append(errs, fmt.Sprintf("assets: default decimals must be 0-30, got %d", c.Assets.Default))
	}
	for sym, d := range c.Assets.Decimals {
		if d < 0 || d > 30 {
			errs = append(errs, fmt.Sprintf("assets: decimals for %s must be 0-30, got %d", sym, d))
		}
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	// Postgres settings are validated only when enabled.
	if c.Postgres.Enabled() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty (or set postgres.dsn)")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
