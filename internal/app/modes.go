package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/signalvault/vaultagent/internal/feed"
	"github.com/signalvault/vaultagent/internal/server"
	"github.com/signalvault/vaultagent/internal/server/handler"
	"github.com/signalvault/vaultagent/internal/server/ws"
	"github.com/signalvault/vaultagent/internal/service"
)

// shutdownTimeout bounds how long in-flight HTTP requests may run after the
// context is cancelled.
const shutdownTimeout = 10 * time.Second

// services bundles the mode-independent decision services.
type services struct {
	router *service.TradeRouter
	liq    *service.LiquidationService
	hedge  *service.HedgeService
}

// buildServices constructs the trade router, liquidation evaluator, and
// hedge manager from the wired dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	router := service.NewTradeRouter(
		deps.Registry, deps.Bridge, deps.Recorder, deps.Settlements, deps.SignalBus,
		service.RouterConfig{
			DestinationDomain: a.cfg.Bridge.DestinationDomain,
			Recipient:         a.cfg.Bridge.Recipient,
			Asset:             a.cfg.Bridge.Asset,
		},
		a.logger,
	)

	liq := service.NewLiquidationService(
		deps.Registry, deps.Oracle, deps.Vault,
		deps.Liquidations, deps.Settlements, deps.SignalBus, deps.Notifier,
		service.LiquidationConfig{
			Threshold: a.cfg.Risk.LiquidationThreshold,
			Interval:  a.cfg.Risk.LiquidationInterval.Duration,
		},
		a.logger,
	)

	hedge := service.NewHedgeService(
		deps.Vault, deps.Bridge, deps.Recorder, deps.Settlements, deps.SignalBus, deps.Notifier,
		service.HedgeConfig{
			Threshold:         a.cfg.Risk.HedgeThreshold,
			BridgeAmount:      a.cfg.Risk.BridgeAmount,
			YesSplit:          a.cfg.Risk.YesSplit,
			Interval:          a.cfg.Risk.HedgeInterval.Duration,
			DestinationDomain: a.cfg.Bridge.DestinationDomain,
			Recipient:         a.cfg.Bridge.Recipient,
			Asset:             a.cfg.Bridge.Asset,
		},
		a.logger,
	)

	return &services{router: router, liq: liq, hedge: hedge}
}

// oracleSelfTest fetches the configured market once so a broken feed shows
// up at startup rather than on the first liquidation sweep.
func (a *App) oracleSelfTest(ctx context.Context, deps *Dependencies) {
	market := a.cfg.Oracle.SelfTestMarket
	if market == "" {
		return
	}
	quote, err := deps.Oracle.Quote(ctx, market)
	if err != nil {
		a.logger.WarnContext(ctx, "oracle self-test failed",
			slog.String("market_id", market),
			slog.String("error", err.Error()),
		)
		return
	}
	a.logger.InfoContext(ctx, "oracle self-test ok",
		slog.String("market_id", market),
		slog.Float64("yes_price", quote.YesPrice),
		slog.Bool("simulated", quote.Simulated),
	)
}

// startCore launches the liquidation loop, hedge loop, and optional journal
// archiver on the errgroup.
func (a *App) startCore(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	g.Go(func() error {
		return svcs.liq.Run(ctx)
	})
	g.Go(func() error {
		return svcs.hedge.Run(ctx)
	})
	if deps.Archiver != nil {
		interval := a.cfg.S3.ArchiveInterval.Duration
		if interval <= 0 {
			interval = 24 * time.Hour
		}
		g.Go(func() error {
			return deps.Archiver.Run(ctx, interval)
		})
	}
}

// startServer builds the HTTP + WebSocket API and launches it on the
// errgroup with graceful shutdown. readOnly drops the webhook ingest routes
// while keeping positions, stats, history, and the event stream reachable.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services, readOnly bool) {
	startedAt := time.Now().UTC()

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, deps.Registry.Size, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: startedAt,
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.cfg.Mode, startedAt, a.logger),
		Positions: handler.NewPositionHandler(svcs.router, deps.Registry, a.logger),
		Stats: handler.NewStatsHandler(
			deps.Registry, svcs.router, svcs.hedge, svcs.liq,
			deps.Oracle, deps.Recorder, a.logger,
		),
	}
	if deps.Settlements != nil {
		handlers.History = handler.NewHistoryHandler(deps.Settlements, deps.Liquidations, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
		ReadOnly:    readOnly,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startListener launches the chain poll adapter on the errgroup.
func (a *App) startListener(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) error {
	if deps.Chain == nil {
		return fmt.Errorf("app: listener requires a chain connection")
	}

	listener := feed.NewChainListener(deps.Chain, svcs.router, feed.ListenerConfig{
		VaultAddress:       a.cfg.Arc.VaultAddress,
		PollInterval:       a.cfg.Arc.PollInterval.Duration,
		LookbackBlocks:     a.cfg.Arc.LookbackBlocks,
		CollateralDecimals: a.cfg.Assets.DecimalsFor(a.cfg.Bridge.Asset),
	}, a.logger)

	g.Go(func() error {
		return listener.Run(ctx)
	})
	return nil
}

// WebhookMode serves the push-based notification API alongside the
// liquidation and hedge loops.
func (a *App) WebhookMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting webhook mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.oracleSelfTest(ctx, deps)
	a.startCore(ctx, g, deps, svcs)
	a.startServer(ctx, g, deps, svcs, false)

	return g.Wait()
}

// ListenerMode polls the vault contract for PositionOpened events alongside
// the liquidation and hedge loops. The HTTP API is served read-only: the
// chain poller is the sole ingest channel, but positions and stats stay
// queryable.
func (a *App) ListenerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting listener mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.oracleSelfTest(ctx, deps)
	a.startCore(ctx, g, deps, svcs)
	a.startServer(ctx, g, deps, svcs, true)
	if err := a.startListener(ctx, g, deps, svcs); err != nil {
		return err
	}

	return g.Wait()
}

// FullMode runs both notification adapters against the single shared
// registry and router.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.oracleSelfTest(ctx, deps)
	a.startCore(ctx, g, deps, svcs)
	a.startServer(ctx, g, deps, svcs, false)
	if err := a.startListener(ctx, g, deps, svcs); err != nil {
		return err
	}

	return g.Wait()
}
