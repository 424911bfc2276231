package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/signalvault/vaultagent/internal/blob/s3"
	"github.com/signalvault/vaultagent/internal/cache/redis"
	"github.com/signalvault/vaultagent/internal/config"
	"github.com/signalvault/vaultagent/internal/crypto"
	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/notify"
	"github.com/signalvault/vaultagent/internal/platform/arc"
	"github.com/signalvault/vaultagent/internal/platform/circle"
	"github.com/signalvault/vaultagent/internal/platform/polymarket"
	"github.com/signalvault/vaultagent/internal/recorder"
	"github.com/signalvault/vaultagent/internal/registry"
	"github.com/signalvault/vaultagent/internal/store/postgres"
)

// simulatedVaultBalance seeds the dry-run vault so exposure estimates have
// something to work with.
const simulatedVaultBalance = 10_000

// Dependencies bundles every collaborator the application modes need. Nil
// fields mean the corresponding backend is not configured.
type Dependencies struct {
	Registry *registry.Registry
	Oracle   *polymarket.Client
	Bridge   domain.Bridge
	Vault    domain.VaultContract
	Chain    *arc.Client
	Recorder domain.BridgeTxRecorder

	SignalBus   domain.SignalBus
	RateLimiter domain.RateLimiter

	Settlements  domain.SettlementStore
	Liquidations domain.LiquidationStore
	Archiver     *s3blob.Archiver

	Notifier *notify.Notifier
}

// needsChain reports whether the configuration requires a live RPC
// connection: the poll adapter always does, and real (non-dry-run) bridging
// and settlement do regardless of mode.
func needsChain(cfg *config.Config) bool {
	mode := strings.ToLower(cfg.Mode)
	return mode == "listener" || mode == "full" || !cfg.Bridge.DryRun
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function to be
// called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Registry: registry.New(),
	}

	// --- Oracle with per-call fee accounting ---
	meter := polymarket.NewFeeMeter(cfg.Oracle.FeePerCall, cfg.Oracle.FeeBudget)
	deps.Oracle = polymarket.NewClient(cfg.Oracle.ClobHost, meter, logger)

	// --- Chain connection, vault, and bridge ---
	if needsChain(cfg) {
		var signer *crypto.TxSigner
		if !cfg.Bridge.DryRun {
			keyHex, err := crypto.LoadKey(crypto.KeyConfig{
				RawPrivateKey:    cfg.Wallet.PrivateKey,
				EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
				KeyPassword:      cfg.Wallet.KeyPassword,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: load key: %w", err)
			}
			signer, err = crypto.NewTxSigner(keyHex, cfg.Arc.ChainID)
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: signer: %w", err)
			}
		}

		chain, err := arc.Dial(ctx, cfg.Arc.RPCURL, signer, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: chain: %w", err)
		}
		closers = append(closers, chain.Close)
		deps.Chain = chain
	}

	if cfg.Bridge.DryRun {
		deps.Bridge = circle.NewSimulatedBridge(logger)
		deps.Vault = arc.NewSimulatedVault(simulatedVaultBalance)
	} else {
		deps.Bridge = circle.NewBridge(deps.Chain, circle.Config{
			TokenMessenger: cfg.Bridge.TokenMessenger,
			BurnToken:      cfg.Bridge.USDCAddress,
			AssetDecimals:  cfg.Assets.DecimalsFor(cfg.Bridge.Asset),
			GasLimit:       cfg.Bridge.GasLimit,
		}, logger)
		deps.Vault = arc.NewVault(deps.Chain, cfg.Arc.VaultAddress, cfg.Bridge.GasLimit, logger)
	}

	// --- PostgreSQL journal ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Settlements = postgres.NewSettlementStore(pool)
		deps.Liquidations = postgres.NewLiquidationStore(pool)
	}

	// --- Redis signal bus, rate limiter, and bridge tx recorder ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SignalBus = redis.NewSignalBus(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Recorder = redis.NewBridgeRecorder(redisClient)
	} else {
		// Fall back to the well-known file for downstream consumers.
		deps.Recorder = recorder.NewFileRecorder(cfg.Server.BridgeTxPath)
	}

	// --- S3 journal archive ---
	if cfg.S3.Enabled() && deps.Settlements != nil {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.Settlements,
			deps.Liquidations,
			logger,
		)
	}

	// --- Operator notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
