package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/signalvault/vaultagent/internal/domain"
)

// LiquidationStore implements domain.LiquidationStore using PostgreSQL.
type LiquidationStore struct {
	pool *pgxpool.Pool
}

// NewLiquidationStore creates a LiquidationStore backed by the given pool.
func NewLiquidationStore(pool *pgxpool.Pool) *LiquidationStore {
	return &LiquidationStore{pool: pool}
}

// Insert appends a liquidation event to the audit trail.
func (s *LiquidationStore) Insert(ctx context.Context, ev domain.LiquidationEvent) error {
	const query = `
		INSERT INTO liquidations (position_id, market_id, side, entry_price, current_price, leverage, pnl_fraction, settled, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.pool.Exec(ctx, query,
		ev.PositionID, ev.MarketID, ev.Side, ev.EntryPrice,
		ev.CurrentPrice, ev.Leverage, ev.PnLFraction, ev.Settled, ev.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert liquidation %s: %w", ev.PositionID, err)
	}
	return nil
}

// ListRecent returns the most recent liquidation events, newest first.
func (s *LiquidationStore) ListRecent(ctx context.Context, limit int) ([]domain.LiquidationEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT position_id, market_id, side, entry_price, current_price, leverage, pnl_fraction, settled, created_at
		FROM liquidations
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list liquidations: %w", err)
	}
	defer rows.Close()

	var events []domain.LiquidationEvent
	for rows.Next() {
		var ev domain.LiquidationEvent
		if err := rows.Scan(
			&ev.PositionID, &ev.MarketID, &ev.Side, &ev.EntryPrice,
			&ev.CurrentPrice, &ev.Leverage, &ev.PnLFraction, &ev.Settled, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan liquidation: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate liquidations: %w", err)
	}
	return events, nil
}

// Compile-time interface check.
var _ domain.LiquidationStore = (*LiquidationStore)(nil)
