package domain

import "time"

// BridgeRequest describes a single cross-network asset transfer: burn the
// amount on the source network and mint it to the recipient on the
// destination domain.
type BridgeRequest struct {
	Amount            float64 `json:"amount"` // unit-of-account
	DestinationDomain uint32  `json:"destination_domain"`
	Recipient         string  `json:"recipient"`
	Asset             string  `json:"asset"`
	// Purpose is a free-form label carried into logs and the settlement
	// journal ("spot_settlement" or "hedge").
	Purpose string `json:"purpose"`
}

// BridgeReceipt is the result of a successful bridge invocation.
type BridgeReceipt struct {
	TxRef     string    `json:"tx_hash"`
	Simulated bool      `json:"simulated"`
	Timestamp time.Time `json:"timestamp"`
}

// SettlementRecord is a journal row for a completed (or attempted) effectful
// operation: a spot settlement, a hedge transfer, or a forced liquidation.
type SettlementRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"` // "spot", "hedge", "liquidation"
	PositionID string    `json:"position_id,omitempty"`
	MarketID   string    `json:"market_id,omitempty"`
	Amount     float64   `json:"amount"`
	TxRef      string    `json:"tx_ref,omitempty"`
	Success    bool      `json:"success"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LiquidationEvent records a liquidation decision for the audit trail.
type LiquidationEvent struct {
	PositionID   string    `json:"position_id"`
	MarketID     string    `json:"market_id"`
	Side         string    `json:"side"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	Leverage     int       `json:"leverage"`
	PnLFraction  float64   `json:"pnl_fraction"`
	Settled      bool      `json:"settled"`
	CreatedAt    time.Time `json:"created_at"`
}
