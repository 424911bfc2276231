package domain

import "time"

// Position is an open leveraged bet held in the vault and tracked for
// liquidation. Fields are immutable after creation; current price and PnL
// are recomputed by the liquidation evaluator each cycle, never stored back.
type Position struct {
	ID         string    `json:"id"`
	MarketID   string    `json:"market_id"`
	Trader     string    `json:"trader"`
	LongYes    bool      `json:"is_long_yes"`
	EntryPrice float64   `json:"entry_price"` // 0-100 probability scale
	Collateral float64   `json:"collateral"`  // unit-of-account, already descaled
	Leverage   int       `json:"leverage"`
	OpenedAt   time.Time `json:"opened_at"`
}

// Side returns the human-readable side label for logs and notifications.
func (p Position) Side() string {
	if p.LongYes {
		return "YES"
	}
	return "NO"
}

// SidePrice selects the side-relevant price from a quote, expressed on the
// 0-100 scale used by entry prices: the YES price for long-yes positions,
// the NO price otherwise. A falling side price always means a loss
// regardless of side.
func (p Position) SidePrice(q OracleQuote) float64 {
	if p.LongYes {
		return q.YesPrice * 100
	}
	return q.NoPrice * 100
}

// PnLFraction computes the leveraged profit/loss fraction of the position
// against the current side-relevant price on the 0-100 scale. A value of
// -1.0 means the full collateral is lost.
func (p Position) PnLFraction(currentPrice float64) float64 {
	return ((currentPrice - p.EntryPrice) / 100) * float64(p.Leverage)
}
