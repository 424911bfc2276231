package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies VAULTAGENT_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known VAULTAGENT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "VAULTAGENT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.PrivateKey, "AGENT_PRIVATE_KEY") // compatibility alias
	setStr(&cfg.Wallet.EncryptedKeyPath, "VAULTAGENT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "VAULTAGENT_WALLET_KEY_PASSWORD")

	// ── Arc ──
	setStr(&cfg.Arc.RPCURL, "VAULTAGENT_ARC_RPC_URL")
	setStr(&cfg.Arc.RPCURL, "ARC_RPC_URL") // compatibility alias
	setStr(&cfg.Arc.VaultAddress, "VAULTAGENT_ARC_VAULT_ADDRESS")
	setStr(&cfg.Arc.VaultAddress, "CONTRACT_ADDRESS") // compatibility alias
	setInt64(&cfg.Arc.ChainID, "VAULTAGENT_ARC_CHAIN_ID")
	setDuration(&cfg.Arc.PollInterval, "VAULTAGENT_ARC_POLL_INTERVAL")
	setUint64(&cfg.Arc.LookbackBlocks, "VAULTAGENT_ARC_LOOKBACK_BLOCKS")

	// ── Bridge ──
	setStr(&cfg.Bridge.TokenMessenger, "VAULTAGENT_BRIDGE_TOKEN_MESSENGER")
	setStr(&cfg.Bridge.TokenMessenger, "ARC_TOKEN_MESSENGER") // compatibility alias
	setStr(&cfg.Bridge.USDCAddress, "VAULTAGENT_BRIDGE_USDC_ADDRESS")
	setStr(&cfg.Bridge.USDCAddress, "ARC_USDC_ADDRESS") // compatibility alias
	setUint32(&cfg.Bridge.DestinationDomain, "VAULTAGENT_BRIDGE_DESTINATION_DOMAIN")
	setUint32(&cfg.Bridge.DestinationDomain, "POLYGON_DOMAIN_ID") // compatibility alias
	setStr(&cfg.Bridge.Recipient, "VAULTAGENT_BRIDGE_RECIPIENT")
	setStr(&cfg.Bridge.Asset, "VAULTAGENT_BRIDGE_ASSET")
	setUint64(&cfg.Bridge.GasLimit, "VAULTAGENT_BRIDGE_GAS_LIMIT")
	setBool(&cfg.Bridge.DryRun, "VAULTAGENT_BRIDGE_DRY_RUN")

	// ── Oracle ──
	setStr(&cfg.Oracle.ClobHost, "VAULTAGENT_ORACLE_CLOB_HOST")
	setFloat64(&cfg.Oracle.FeePerCall, "VAULTAGENT_ORACLE_FEE_PER_CALL")
	setFloat64(&cfg.Oracle.FeeBudget, "VAULTAGENT_ORACLE_FEE_BUDGET")
	setStr(&cfg.Oracle.SelfTestMarket, "VAULTAGENT_ORACLE_SELF_TEST_MARKET")

	// ── Risk ──
	setFloat64(&cfg.Risk.LiquidationThreshold, "VAULTAGENT_RISK_LIQUIDATION_THRESHOLD")
	setDuration(&cfg.Risk.LiquidationInterval, "VAULTAGENT_RISK_LIQUIDATION_INTERVAL")
	setFloat64(&cfg.Risk.HedgeThreshold, "VAULTAGENT_RISK_HEDGE_THRESHOLD")
	setFloat64(&cfg.Risk.BridgeAmount, "VAULTAGENT_RISK_BRIDGE_AMOUNT")
	setDuration(&cfg.Risk.HedgeInterval, "VAULTAGENT_RISK_HEDGE_INTERVAL")
	setFloat64(&cfg.Risk.YesSplit, "VAULTAGENT_RISK_YES_SPLIT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "VAULTAGENT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "VAULTAGENT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "VAULTAGENT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "VAULTAGENT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "VAULTAGENT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "VAULTAGENT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "VAULTAGENT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "VAULTAGENT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "VAULTAGENT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "VAULTAGENT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "VAULTAGENT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "VAULTAGENT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "VAULTAGENT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "VAULTAGENT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "VAULTAGENT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "VAULTAGENT_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "VAULTAGENT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "VAULTAGENT_S3_REGION")
	setStr(&cfg.S3.Bucket, "VAULTAGENT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "VAULTAGENT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "VAULTAGENT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "VAULTAGENT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "VAULTAGENT_S3_FORCE_PATH_STYLE")
	setDuration(&cfg.S3.ArchiveInterval, "VAULTAGENT_S3_ARCHIVE_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "VAULTAGENT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "VAULTAGENT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "VAULTAGENT_SERVER_API_KEY")
	setStr(&cfg.Server.BridgeTxPath, "VAULTAGENT_SERVER_BRIDGE_TX_PATH")
	setInt(&cfg.Server.RateLimit, "VAULTAGENT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "VAULTAGENT_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "VAULTAGENT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "VAULTAGENT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "VAULTAGENT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "VAULTAGENT_NOTIFY_EVENTS")

	// ── Top level ──
	setStr(&cfg.Mode, "VAULTAGENT_MODE")
	setStr(&cfg.LogLevel, "VAULTAGENT_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint32(dst *uint32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			*dst = uint32(n)
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
