package domain

// OracleQuote is a point-in-time price reading for a prediction market.
// Quotes are never cached across calls; each fetch is an independent,
// billable request against the upstream data provider.
type OracleQuote struct {
	MarketID  string  `json:"market_id"`
	Question  string  `json:"question"`
	YesPrice  float64 `json:"yes_price"` // 0.0-1.0
	NoPrice   float64 `json:"no_price"`  // 1 - YesPrice
	Volume    float64 `json:"volume"`
	Liquidity float64 `json:"liquidity"`
	// Simulated marks fallback data returned when the upstream feed had no
	// match or was unreachable. Simulated quotes are valid but
	// low-confidence; callers must not treat them as an error.
	Simulated bool `json:"simulated"`
}

// SimulatedQuote returns the defined fallback quote for a market: a neutral
// 50/50 read with zero volume and liquidity.
func SimulatedQuote(marketID string) OracleQuote {
	return OracleQuote{
		MarketID:  "simulated",
		Question:  marketID,
		YesPrice:  0.50,
		NoPrice:   0.50,
		Simulated: true,
	}
}
