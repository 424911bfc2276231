package domain

import (
	"context"
	"io"
	"time"
)

// Oracle fetches a current price/probability reading for a market. Every
// call performs its own payment/authorization step with the upstream
// provider; implementations return ErrUnauthorized when that step fails and
// a Simulated fallback quote (never an error) when live data is missing.
type Oracle interface {
	Quote(ctx context.Context, marketID string) (OracleQuote, error)
}

// Bridge executes a cross-network asset transfer. Each invocation is a
// single, independent at-most-once attempt: implementations do not retry
// and callers do not roll back on failure.
type Bridge interface {
	Transfer(ctx context.Context, req BridgeRequest) (BridgeReceipt, error)
}

// VaultContract is the on-chain vault collaborator: it settles positions by
// identifier and reports the vault's current balance in the unit-of-account.
type VaultContract interface {
	SettlePosition(ctx context.Context, positionID string) error
	Balance(ctx context.Context) (float64, error)
}

// BridgeTxRecorder exposes the last successful bridge transaction reference
// at a well-known location for downstream consumers (e.g. a UI poller).
type BridgeTxRecorder interface {
	Record(ctx context.Context, receipt BridgeReceipt) error
	Latest(ctx context.Context) (BridgeReceipt, error)
}

// SignalBus fans position lifecycle events out to interested consumers
// (WebSocket hub, dashboards). Publishing is best effort; a bus failure
// never fails the operation that produced the event.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// RateLimiter answers whether a keyed request fits inside a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SettlementStore persists the journal of effectful operations.
type SettlementStore interface {
	Insert(ctx context.Context, rec SettlementRecord) error
	ListRecent(ctx context.Context, limit int) ([]SettlementRecord, error)
}

// LiquidationStore persists the liquidation audit trail.
type LiquidationStore interface {
	Insert(ctx context.Context, ev LiquidationEvent) error
	ListRecent(ctx context.Context, limit int) ([]LiquidationEvent, error)
}
