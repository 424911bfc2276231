// Package service contains the agent's decision logic: the trade router
// that splits incoming positions into spot settlement versus leveraged
// tracking, the liquidation evaluator that sweeps tracked positions on a
// timer, and the hedge manager that rebalances vault exposure.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/registry"
)

// Alerter delivers operator notifications. It matches the notify package's
// Notifier and may be nil when no channels are configured.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// statsLogEvery is how many routed notifications elapse between summary log
// lines.
const statsLogEvery = 10

// RouterConfig holds the spot-settlement bridge parameters.
type RouterConfig struct {
	DestinationDomain uint32
	Recipient         string
	Asset             string
}

// TradeRouter consumes trade-opened notifications and performs exactly one
// side effect per notification: an unlevered position is settled spot by
// bridging its collateral out immediately, and a leveraged position is
// registered for liquidation tracking. A notification is never both bridged
// and registered.
type TradeRouter struct {
	registry *registry.Registry
	bridge   domain.Bridge
	recorder domain.BridgeTxRecorder
	journal  domain.SettlementStore
	bus      domain.SignalBus
	cfg      RouterConfig
	logger   *slog.Logger

	mu        sync.Mutex
	outcomes  map[domain.RouteOutcome]int64
	processed int64
}

// NewTradeRouter creates a TradeRouter. recorder, journal, and bus may be
// nil when the corresponding backends are not configured.
func NewTradeRouter(
	reg *registry.Registry,
	bridge domain.Bridge,
	recorder domain.BridgeTxRecorder,
	journal domain.SettlementStore,
	bus domain.SignalBus,
	cfg RouterConfig,
	logger *slog.Logger,
) *TradeRouter {
	return &TradeRouter{
		registry: reg,
		bridge:   bridge,
		recorder: recorder,
		journal:  journal,
		bus:      bus,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "trade_router")),
		outcomes: make(map[domain.RouteOutcome]int64),
	}
}

// Stats returns how many notifications were routed to each outcome.
func (r *TradeRouter) Stats() map[domain.RouteOutcome]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.RouteOutcome]int64, len(r.outcomes))
	for k, v := range r.outcomes {
		out[k] = v
	}
	return out
}

// count records the outcome and returns the total processed so far.
func (r *TradeRouter) count(outcome domain.RouteOutcome) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
	r.processed++
	return r.processed
}

// Route dispatches a notification by leverage. Leverage 1 settles spot via
// the bridge; leverage above 1 registers the position. The returned result
// names the outcome even when an error is also returned. A summary log line
// is emitted every statsLogEvery notifications.
func (r *TradeRouter) Route(ctx context.Context, n domain.Notification) (domain.RouteResult, error) {
	res, err := r.route(ctx, n)
	if total := r.count(res.Outcome); total%statsLogEvery == 0 {
		r.logSummary(ctx, total)
	}
	return res, err
}

// logSummary emits a one-line routing digest, mirroring the outcome counters
// exposed on the stats endpoint.
func (r *TradeRouter) logSummary(ctx context.Context, processed int64) {
	stats := r.Stats()
	r.logger.InfoContext(ctx, "routing summary",
		slog.Int64("processed", processed),
		slog.Int64("settled", stats[domain.OutcomeSettled]),
		slog.Int64("tracked", stats[domain.OutcomeTracked]),
		slog.Int64("rejected", stats[domain.OutcomeRejected]),
		slog.Int64("settlement_failed", stats[domain.OutcomeSettlementFailed]),
		slog.Int("open_positions", r.registry.Size()),
	)
}

func (r *TradeRouter) route(ctx context.Context, n domain.Notification) (domain.RouteResult, error) {
	if err := n.Validate(); err != nil {
		r.logger.WarnContext(ctx, "rejecting notification",
			slog.String("position_id", n.PositionID),
			slog.String("error", err.Error()),
		)
		return domain.RouteResult{
			Outcome:    domain.OutcomeRejected,
			PositionID: n.PositionID,
			Reason:     err.Error(),
		}, err
	}

	if n.Leverage == 1 {
		return r.settleSpot(ctx, n)
	}
	return r.track(ctx, n)
}

// settleSpot bridges the notification's collateral out in a single
// at-most-once attempt. The position is never registered, even on failure.
func (r *TradeRouter) settleSpot(ctx context.Context, n domain.Notification) (domain.RouteResult, error) {
	req := domain.BridgeRequest{
		Amount:            n.Amount(),
		DestinationDomain: r.cfg.DestinationDomain,
		Recipient:         r.cfg.Recipient,
		Asset:             r.cfg.Asset,
		Purpose:           "spot_settlement",
	}

	receipt, err := r.bridge.Transfer(ctx, req)
	if err != nil {
		r.logger.ErrorContext(ctx, "spot settlement failed",
			slog.String("position_id", n.PositionID),
			slog.Float64("amount", req.Amount),
			slog.String("error", err.Error()),
		)
		r.journalRecord(ctx, domain.SettlementRecord{
			ID:         uuid.NewString(),
			Kind:       "spot",
			PositionID: n.PositionID,
			MarketID:   n.MarketID,
			Amount:     req.Amount,
			Success:    false,
			Detail:     err.Error(),
			CreatedAt:  time.Now().UTC(),
		})
		res := domain.RouteResult{
			Outcome:    domain.OutcomeSettlementFailed,
			PositionID: n.PositionID,
			Reason:     err.Error(),
		}
		return res, fmt.Errorf("service: spot settlement for %s: %w", n.PositionID, err)
	}

	r.logger.InfoContext(ctx, "spot position settled",
		slog.String("position_id", n.PositionID),
		slog.Float64("amount", req.Amount),
		slog.String("tx_ref", receipt.TxRef),
		slog.Bool("simulated", receipt.Simulated),
	)

	if r.recorder != nil {
		if err := r.recorder.Record(ctx, receipt); err != nil {
			r.logger.WarnContext(ctx, "recording bridge tx failed", slog.String("error", err.Error()))
		}
	}
	r.journalRecord(ctx, domain.SettlementRecord{
		ID:         uuid.NewString(),
		Kind:       "spot",
		PositionID: n.PositionID,
		MarketID:   n.MarketID,
		Amount:     req.Amount,
		TxRef:      receipt.TxRef,
		Success:    true,
		CreatedAt:  time.Now().UTC(),
	})
	r.publish(ctx, "positions", map[string]any{
		"type":        "position_settled",
		"position_id": n.PositionID,
		"market_id":   n.MarketID,
		"amount":      req.Amount,
		"tx_ref":      receipt.TxRef,
	})

	return domain.RouteResult{
		Outcome:    domain.OutcomeSettled,
		PositionID: n.PositionID,
		TxRef:      receipt.TxRef,
	}, nil
}

// track registers a leveraged position in the in-memory registry.
func (r *TradeRouter) track(ctx context.Context, n domain.Notification) (domain.RouteResult, error) {
	pos := n.ToPosition(time.Now().UTC())
	if err := r.registry.Insert(pos); err != nil {
		if errors.Is(err, domain.ErrDuplicateID) {
			r.logger.WarnContext(ctx, "duplicate position rejected",
				slog.String("position_id", n.PositionID),
			)
		}
		return domain.RouteResult{
			Outcome:    domain.OutcomeRejected,
			PositionID: n.PositionID,
			Reason:     err.Error(),
		}, fmt.Errorf("service: track %s: %w", n.PositionID, err)
	}

	r.logger.InfoContext(ctx, "leveraged position tracked",
		slog.String("position_id", pos.ID),
		slog.String("market_id", pos.MarketID),
		slog.String("side", pos.Side()),
		slog.Int("leverage", pos.Leverage),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Float64("collateral", pos.Collateral),
	)
	r.publish(ctx, "positions", map[string]any{
		"type":        "position_opened",
		"position_id": pos.ID,
		"market_id":   pos.MarketID,
		"side":        pos.Side(),
		"leverage":    pos.Leverage,
		"entry_price": pos.EntryPrice,
	})

	return domain.RouteResult{
		Outcome:    domain.OutcomeTracked,
		PositionID: pos.ID,
	}, nil
}

// journalRecord persists a settlement record on a best-effort basis.
func (r *TradeRouter) journalRecord(ctx context.Context, rec domain.SettlementRecord) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Insert(ctx, rec); err != nil {
		r.logger.WarnContext(ctx, "journal insert failed",
			slog.String("kind", rec.Kind),
			slog.String("error", err.Error()),
		)
	}
}

// publish emits an event on the signal bus on a best-effort basis.
func (r *TradeRouter) publish(ctx context.Context, channel string, payload map[string]any) {
	if r.bus == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := r.bus.Publish(ctx, channel, data); err != nil {
		r.logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
