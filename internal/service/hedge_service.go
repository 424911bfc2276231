package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/signalvault/vaultagent/internal/domain"
)

// HedgeConfig holds the exposure-rebalancing parameters.
type HedgeConfig struct {
	// Threshold is the imbalance above which a hedge is triggered. An
	// imbalance exactly at the threshold does not hedge.
	Threshold float64
	// BridgeAmount is the fixed amount moved per hedge.
	BridgeAmount float64
	// YesSplit is the assumed fraction of vault balance carrying YES
	// exposure; the remainder is NO.
	YesSplit          float64
	Interval          time.Duration
	DestinationDomain uint32
	Recipient         string
	Asset             string
}

// HedgeService estimates vault exposure on a timer and moves a fixed amount
// across the bridge whenever the YES/NO imbalance exceeds the threshold.
type HedgeService struct {
	vault    domain.VaultContract
	bridge   domain.Bridge
	recorder domain.BridgeTxRecorder
	journal  domain.SettlementStore
	bus      domain.SignalBus
	alerter  Alerter
	cfg      HedgeConfig
	logger   *slog.Logger

	hedging atomic.Bool

	mu          sync.Mutex
	totalHedged float64
	bridgeTxs   int64
}

// NewHedgeService creates a HedgeService. recorder, journal, bus, and
// alerter may be nil.
func NewHedgeService(
	vault domain.VaultContract,
	bridge domain.Bridge,
	recorder domain.BridgeTxRecorder,
	journal domain.SettlementStore,
	bus domain.SignalBus,
	alerter Alerter,
	cfg HedgeConfig,
	logger *slog.Logger,
) *HedgeService {
	return &HedgeService{
		vault:    vault,
		bridge:   bridge,
		recorder: recorder,
		journal:  journal,
		bus:      bus,
		alerter:  alerter,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "hedge")),
	}
}

// Run estimates and hedges on the configured interval until the context is
// cancelled. Ticks arriving mid-hedge are skipped.
func (s *HedgeService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "hedge loop started",
		slog.Duration("interval", s.cfg.Interval),
		slog.Float64("threshold", s.cfg.Threshold),
		slog.Float64("bridge_amount", s.cfg.BridgeAmount),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("hedge loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if !s.hedging.CompareAndSwap(false, true) {
				s.logger.Warn("previous hedge cycle still running, skipping tick")
				continue
			}
			s.cycle(ctx)
			s.hedging.Store(false)
		}
	}
}

// cycle performs one estimate-and-maybe-hedge pass.
func (s *HedgeService) cycle(ctx context.Context) {
	snap, err := s.Estimate(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "exposure estimate failed", slog.String("error", err.Error()))
		return
	}
	if err := s.MaybeHedge(ctx, snap); err != nil {
		s.logger.ErrorContext(ctx, "hedge failed", slog.String("error", err.Error()))
	}
}

// Estimate reads the vault balance and splits it into assumed YES and NO
// exposure. NeedsHedge is set only when the imbalance strictly exceeds the
// threshold.
func (s *HedgeService) Estimate(ctx context.Context) (domain.ExposureSnapshot, error) {
	balance, err := s.vault.Balance(ctx)
	if err != nil {
		return domain.ExposureSnapshot{}, fmt.Errorf("service: vault balance: %w", err)
	}

	yes := balance * s.cfg.YesSplit
	no := balance - yes
	imbalance := math.Abs(yes - no)

	snap := domain.ExposureSnapshot{
		VaultBalance: balance,
		YesExposure:  yes,
		NoExposure:   no,
		Imbalance:    imbalance,
		NeedsHedge:   imbalance > s.cfg.Threshold,
	}

	s.logger.DebugContext(ctx, "exposure estimated",
		slog.Float64("balance", balance),
		slog.Float64("yes_exposure", yes),
		slog.Float64("no_exposure", no),
		slog.Float64("imbalance", imbalance),
		slog.Bool("needs_hedge", snap.NeedsHedge),
	)
	return snap, nil
}

// MaybeHedge bridges the configured amount when the snapshot calls for a
// hedge. It is a no-op otherwise.
func (s *HedgeService) MaybeHedge(ctx context.Context, snap domain.ExposureSnapshot) error {
	if !snap.NeedsHedge {
		return nil
	}

	req := domain.BridgeRequest{
		Amount:            s.cfg.BridgeAmount,
		DestinationDomain: s.cfg.DestinationDomain,
		Recipient:         s.cfg.Recipient,
		Asset:             s.cfg.Asset,
		Purpose:           "hedge",
	}
	receipt, err := s.bridge.Transfer(ctx, req)
	if err != nil {
		if s.journal != nil {
			rec := domain.SettlementRecord{
				ID:        uuid.NewString(),
				Kind:      "hedge",
				Amount:    req.Amount,
				Success:   false,
				Detail:    err.Error(),
				CreatedAt: time.Now().UTC(),
			}
			if jerr := s.journal.Insert(ctx, rec); jerr != nil {
				s.logger.WarnContext(ctx, "journal insert failed", slog.String("error", jerr.Error()))
			}
		}
		return fmt.Errorf("service: hedge transfer: %w", err)
	}

	s.mu.Lock()
	s.totalHedged += req.Amount
	s.bridgeTxs++
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "hedge executed",
		slog.Float64("amount", req.Amount),
		slog.Float64("imbalance", snap.Imbalance),
		slog.String("tx_ref", receipt.TxRef),
		slog.Bool("simulated", receipt.Simulated),
	)

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, receipt); err != nil {
			s.logger.WarnContext(ctx, "recording bridge tx failed", slog.String("error", err.Error()))
		}
	}
	if s.journal != nil {
		rec := domain.SettlementRecord{
			ID:        uuid.NewString(),
			Kind:      "hedge",
			Amount:    req.Amount,
			TxRef:     receipt.TxRef,
			Success:   true,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.journal.Insert(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "journal insert failed", slog.String("error", err.Error()))
		}
	}
	if s.bus != nil {
		payload, err := json.Marshal(map[string]any{
			"type":      "hedge_executed",
			"amount":    req.Amount,
			"imbalance": snap.Imbalance,
			"tx_ref":    receipt.TxRef,
		})
		if err == nil {
			if err := s.bus.Publish(ctx, "hedges", payload); err != nil {
				s.logger.WarnContext(ctx, "publish failed", slog.String("error", err.Error()))
			}
		}
	}
	if s.alerter != nil {
		msg := fmt.Sprintf("bridged %.2f %s after imbalance %.2f exceeded threshold %.2f",
			req.Amount, req.Asset, snap.Imbalance, s.cfg.Threshold)
		if err := s.alerter.Notify(ctx, "hedge", "Hedge executed", msg); err != nil {
			s.logger.WarnContext(ctx, "alert failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Stats reports the cumulative hedged amount and bridge transaction count.
func (s *HedgeService) Stats() (totalHedged float64, bridgeTxCount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalHedged, s.bridgeTxs
}
