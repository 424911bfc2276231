// Package feed contains the chain ingress adapter: a polling listener that
// scans the vault contract for PositionOpened logs and converts them into
// normalized notifications for the trade router.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/arc"
)

// PositionRouter consumes a normalized notification and performs exactly one
// routing side effect.
type PositionRouter interface {
	Route(ctx context.Context, n domain.Notification) (domain.RouteResult, error)
}

// ListenerConfig holds the poller parameters.
type ListenerConfig struct {
	VaultAddress string
	PollInterval time.Duration
	// LookbackBlocks widens the first scan so events emitted shortly
	// before startup are not missed.
	LookbackBlocks uint64
	// CollateralDecimals is the decimal count of the on-chain collateral
	// token, used to fill each notification's declared decimals.
	CollateralDecimals int
}

// ChainListener polls the source network for PositionOpened events and
// routes each exactly once. Blocks are processed in order; a block is never
// scanned twice.
type ChainListener struct {
	client    *arc.Client
	router    PositionRouter
	vault     common.Address
	cfg       ListenerConfig
	logger    *slog.Logger
	lastBlock uint64
}

// NewChainListener creates a listener for the configured vault contract.
func NewChainListener(client *arc.Client, router PositionRouter, cfg ListenerConfig, logger *slog.Logger) *ChainListener {
	return &ChainListener{
		client: client,
		router: router,
		vault:  common.HexToAddress(cfg.VaultAddress),
		cfg:    cfg,
		logger: logger.With(slog.String("component", "chain_listener")),
	}
}

// Run polls for new PositionOpened logs until the context is cancelled. The
// first iteration starts LookbackBlocks behind the current head.
func (l *ChainListener) Run(ctx context.Context) error {
	head, err := l.client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("feed: initial head: %w", err)
	}
	if head > l.cfg.LookbackBlocks {
		l.lastBlock = head - l.cfg.LookbackBlocks
	} else {
		l.lastBlock = 0
	}
	l.logger.InfoContext(ctx, "listener started",
		slog.String("vault", l.vault.Hex()),
		slog.Uint64("from_block", l.lastBlock),
		slog.Duration("poll_interval", l.cfg.PollInterval),
	)

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("listener stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := l.poll(ctx); err != nil {
				l.logger.ErrorContext(ctx, "poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// poll scans the blocks mined since the previous iteration.
func (l *ChainListener) poll(ctx context.Context) error {
	head, err := l.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	if head <= l.lastBlock {
		return nil
	}

	eventID := arc.VaultABI().Events["PositionOpened"].ID
	logs, err := l.client.FilterLogs(ctx, l.vault, [][]common.Hash{{eventID}}, l.lastBlock+1, head)
	if err != nil {
		return err
	}

	for _, lg := range logs {
		n, err := l.decode(lg)
		if err != nil {
			l.logger.WarnContext(ctx, "skipping undecodable log",
				slog.String("tx_hash", lg.TxHash.Hex()),
				slog.String("error", err.Error()),
			)
			continue
		}

		res, err := l.router.Route(ctx, n)
		if err != nil {
			l.logger.ErrorContext(ctx, "routing failed",
				slog.String("position_id", n.PositionID),
				slog.String("outcome", string(res.Outcome)),
				slog.String("error", err.Error()),
			)
			continue
		}
		l.logger.InfoContext(ctx, "position routed",
			slog.String("position_id", n.PositionID),
			slog.String("market_id", n.MarketID),
			slog.Int("leverage", n.Leverage),
			slog.String("outcome", string(res.Outcome)),
		)
	}

	l.lastBlock = head
	return nil
}

// decode converts a PositionOpened log into a notification. positionId and
// trader are indexed; the remaining fields arrive in the data segment.
func (l *ChainListener) decode(lg types.Log) (domain.Notification, error) {
	if len(lg.Topics) < 3 {
		return domain.Notification{}, fmt.Errorf("feed: expected 3 topics, got %d", len(lg.Topics))
	}

	fields := make(map[string]any)
	if err := arc.VaultABI().UnpackIntoMap(fields, "PositionOpened", lg.Data); err != nil {
		return domain.Notification{}, fmt.Errorf("feed: unpack PositionOpened: %w", err)
	}

	marketID, ok := fields["marketId"].(string)
	if !ok {
		return domain.Notification{}, fmt.Errorf("feed: marketId missing")
	}
	longYes, ok := fields["isLongYes"].(bool)
	if !ok {
		return domain.Notification{}, fmt.Errorf("feed: isLongYes missing")
	}
	entryPrice, ok := fields["entryPrice"].(*big.Int)
	if !ok {
		return domain.Notification{}, fmt.Errorf("feed: entryPrice missing")
	}
	collateral, ok := fields["collateral"].(*big.Int)
	if !ok {
		return domain.Notification{}, fmt.Errorf("feed: collateral missing")
	}
	leverage, ok := fields["leverage"].(*big.Int)
	if !ok {
		return domain.Notification{}, fmt.Errorf("feed: leverage missing")
	}

	rawCollateral, _ := new(big.Float).SetInt(collateral).Float64()

	return domain.Notification{
		PositionID: new(big.Int).SetBytes(lg.Topics[1].Bytes()).String(),
		Trader:     common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
		MarketID:   marketID,
		LongYes:    longYes,
		EntryPrice: float64(entryPrice.Uint64()),
		Collateral: rawCollateral,
		Decimals:   l.cfg.CollateralDecimals,
		Leverage:   int(leverage.Int64()),
	}, nil
}
