package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/signalvault/vaultagent/internal/domain"
)

// bridgeTxKey is the well-known key holding the most recent bridge receipt.
const bridgeTxKey = "vaultagent:latest_bridge_tx"

// BridgeRecorder implements domain.BridgeTxRecorder on a single Redis key,
// overwritten on each successful bridge transfer.
type BridgeRecorder struct {
	rdb *redis.Client
}

// NewBridgeRecorder creates a BridgeRecorder backed by the given Client.
func NewBridgeRecorder(c *Client) *BridgeRecorder {
	return &BridgeRecorder{rdb: c.Underlying()}
}

// Record stores the receipt as the latest bridge transaction.
func (b *BridgeRecorder) Record(ctx context.Context, receipt domain.BridgeReceipt) error {
	data, err := json.Marshal(receipt)
	if err != nil {
		return fmt.Errorf("redis: marshal bridge receipt: %w", err)
	}
	if err := b.rdb.Set(ctx, bridgeTxKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis: record bridge tx: %w", err)
	}
	return nil
}

// Latest returns the most recently recorded receipt, or ErrNotFound when no
// bridge has run yet.
func (b *BridgeRecorder) Latest(ctx context.Context) (domain.BridgeReceipt, error) {
	data, err := b.rdb.Get(ctx, bridgeTxKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.BridgeReceipt{}, domain.ErrNotFound
		}
		return domain.BridgeReceipt{}, fmt.Errorf("redis: latest bridge tx: %w", err)
	}

	var receipt domain.BridgeReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return domain.BridgeReceipt{}, fmt.Errorf("redis: unmarshal bridge receipt: %w", err)
	}
	return receipt, nil
}

// Compile-time interface check.
var _ domain.BridgeTxRecorder = (*BridgeRecorder)(nil)
