package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/registry"
)

// LiquidationConfig holds the sweep parameters.
type LiquidationConfig struct {
	// Threshold is the PnL fraction at or below which a position is
	// force-settled. It is negative; -0.80 means an 80% loss.
	Threshold float64
	// Interval is the sweep cadence.
	Interval time.Duration
}

// LiquidationService sweeps every tracked position on a timer, marks each
// to the oracle's current quote, and force-settles those whose leveraged
// PnL has fallen to the threshold. A position leaves the registry once a
// settlement is attempted, whether or not the attempt succeeded; reconciling
// a failed settlement is an operator action, not a retry loop.
type LiquidationService struct {
	registry *registry.Registry
	oracle   domain.Oracle
	vault    domain.VaultContract
	audit    domain.LiquidationStore
	journal  domain.SettlementStore
	bus      domain.SignalBus
	alerter  Alerter
	cfg      LiquidationConfig
	logger   *slog.Logger

	sweeping atomic.Bool
	swept    atomic.Int64
	settled  atomic.Int64
}

// NewLiquidationService creates a LiquidationService. audit, journal, bus,
// and alerter may be nil.
func NewLiquidationService(
	reg *registry.Registry,
	oracle domain.Oracle,
	vault domain.VaultContract,
	audit domain.LiquidationStore,
	journal domain.SettlementStore,
	bus domain.SignalBus,
	alerter Alerter,
	cfg LiquidationConfig,
	logger *slog.Logger,
) *LiquidationService {
	return &LiquidationService{
		registry: reg,
		oracle:   oracle,
		vault:    vault,
		audit:    audit,
		journal:  journal,
		bus:      bus,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "liquidation")),
	}
}

// Run sweeps on the configured interval until the context is cancelled. A
// tick that arrives while the previous sweep is still in flight is skipped
// rather than queued.
func (s *LiquidationService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "liquidation loop started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Float64("threshold", s.cfg.Threshold),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("liquidation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if !s.sweeping.CompareAndSwap(false, true) {
				s.logger.Warn("previous sweep still running, skipping tick")
				continue
			}
			if _, err := s.EvaluateOnce(ctx); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", slog.String("error", err.Error()))
			}
			s.sweeping.Store(false)
		}
	}
}

// EvaluateOnce checks every tracked position against the threshold exactly
// once and returns the number of positions liquidated. A per-position
// oracle failure skips that position; the sweep continues.
func (s *LiquidationService) EvaluateOnce(ctx context.Context) (int, error) {
	positions := s.registry.Snapshot()
	if len(positions) == 0 {
		return 0, nil
	}

	liquidated := 0
	for _, pos := range positions {
		select {
		case <-ctx.Done():
			return liquidated, ctx.Err()
		default:
		}

		quote, err := s.oracle.Quote(ctx, pos.MarketID)
		if err != nil {
			s.logger.WarnContext(ctx, "oracle quote failed, skipping position",
				slog.String("position_id", pos.ID),
				slog.String("market_id", pos.MarketID),
				slog.String("error", err.Error()),
			)
			continue
		}

		current := pos.SidePrice(quote)
		pnl := pos.PnLFraction(current)

		s.logger.DebugContext(ctx, "position checked",
			slog.String("position_id", pos.ID),
			slog.Float64("entry_price", pos.EntryPrice),
			slog.Float64("current_price", current),
			slog.Float64("pnl_fraction", pnl),
		)

		if pnl > s.cfg.Threshold {
			continue
		}

		s.liquidate(ctx, pos, current, pnl)
		liquidated++
	}

	s.swept.Add(1)
	s.settled.Add(int64(liquidated))
	return liquidated, nil
}

// liquidate force-settles a position and removes it from tracking. Removal
// happens regardless of the settlement outcome; the audit row records
// whether the on-chain call succeeded.
func (s *LiquidationService) liquidate(ctx context.Context, pos domain.Position, current, pnl float64) {
	settleErr := s.vault.SettlePosition(ctx, pos.ID)
	s.registry.Remove(pos.ID)

	if settleErr != nil {
		s.logger.ErrorContext(ctx, "liquidation settlement failed",
			slog.String("position_id", pos.ID),
			slog.Float64("pnl_fraction", pnl),
			slog.String("error", settleErr.Error()),
		)
	} else {
		s.logger.InfoContext(ctx, "position liquidated",
			slog.String("position_id", pos.ID),
			slog.String("market_id", pos.MarketID),
			slog.Float64("entry_price", pos.EntryPrice),
			slog.Float64("current_price", current),
			slog.Float64("pnl_fraction", pnl),
		)
	}

	ev := domain.LiquidationEvent{
		PositionID:   pos.ID,
		MarketID:     pos.MarketID,
		Side:         pos.Side(),
		EntryPrice:   pos.EntryPrice,
		CurrentPrice: current,
		Leverage:     pos.Leverage,
		PnLFraction:  pnl,
		Settled:      settleErr == nil,
		CreatedAt:    time.Now().UTC(),
	}
	if s.audit != nil {
		if err := s.audit.Insert(ctx, ev); err != nil {
			s.logger.WarnContext(ctx, "audit insert failed", slog.String("error", err.Error()))
		}
	}
	if s.journal != nil {
		rec := domain.SettlementRecord{
			ID:         uuid.NewString(),
			Kind:       "liquidation",
			PositionID: pos.ID,
			MarketID:   pos.MarketID,
			Amount:     pos.Collateral,
			Success:    settleErr == nil,
			CreatedAt:  ev.CreatedAt,
		}
		if settleErr != nil {
			rec.Detail = settleErr.Error()
		}
		if err := s.journal.Insert(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "journal insert failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		if data, err := json.Marshal(ev); err == nil {
			if err := s.bus.Publish(ctx, "liquidations", data); err != nil {
				s.logger.WarnContext(ctx, "publish failed", slog.String("error", err.Error()))
			}
		}
	}
	if s.alerter != nil {
		msg := fmt.Sprintf("position %s (%s %s %dx) liquidated at %.1f, pnl %.0f%%",
			pos.ID, pos.MarketID, pos.Side(), pos.Leverage, current, pnl*100)
		if err := s.alerter.Notify(ctx, "liquidation", "Position liquidated", msg); err != nil {
			s.logger.WarnContext(ctx, "alert failed", slog.String("error", err.Error()))
		}
	}
}

// Stats reports sweep counters for the stats endpoint.
func (s *LiquidationService) Stats() (sweeps, liquidated int64) {
	return s.swept.Load(), s.settled.Load()
}
