// Package domain defines the core types of the vault monitoring agent:
// positions, trade-opened notifications, oracle quotes, exposure snapshots,
// and the narrow collaborator interfaces through which all external effects
// (oracle fetches, bridging, on-chain settlement) are performed.
package domain

import (
	"math"
	"strings"
	"time"
)

// Notification is a normalized trade-opened event. Both ingress adapters
// (the chain log poller and the webhook handler) produce this type; it is
// consumed exactly once by the trade router and never retained.
type Notification struct {
	PositionID string `json:"positionId"`
	Trader     string `json:"trader"`
	MarketID   string `json:"marketId"`
	LongYes    bool   `json:"isLongYes"`
	EntryPrice float64 `json:"entryPrice"` // 0-100 probability scale
	Collateral float64 `json:"collateral"` // raw units of the collateral asset
	// Decimals is the asset-declared decimal count used to descale
	// Collateral into the vault's unit-of-account. It is supplied
	// explicitly with each notification rather than inferred from the
	// magnitude of the raw amount.
	Decimals int `json:"collateralDecimals"`
	Leverage int `json:"leverage"`
}

// Validate checks the invariants every notification must satisfy before
// routing. It returns ErrInvalidNotification wrapped with the offending
// field for malformed input.
func (n Notification) Validate() error {
	switch {
	case strings.TrimSpace(n.PositionID) == "":
		return invalidNotification("positionId is required")
	case strings.TrimSpace(n.MarketID) == "":
		return invalidNotification("marketId is required")
	case n.Leverage < 1:
		return invalidNotification("leverage must be >= 1")
	case n.Collateral < 0:
		return invalidNotification("collateral must be >= 0")
	case n.Decimals < 0 || n.Decimals > 30:
		return invalidNotification("collateralDecimals out of range")
	case n.EntryPrice < 0 || n.EntryPrice > 100:
		return invalidNotification("entryPrice must be within [0,100]")
	}
	return nil
}

// Amount returns the collateral descaled by the declared decimal count.
func (n Notification) Amount() float64 {
	return n.Collateral / math.Pow10(n.Decimals)
}

// ToPosition builds an immutable Position from a leveraged notification.
func (n Notification) ToPosition(openedAt time.Time) Position {
	return Position{
		ID:         n.PositionID,
		MarketID:   n.MarketID,
		Trader:     n.Trader,
		LongYes:    n.LongYes,
		EntryPrice: n.EntryPrice,
		Collateral: n.Amount(),
		Leverage:   n.Leverage,
		OpenedAt:   openedAt,
	}
}
