package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexFloat unmarshals from JSON number or string so CLOB responses work
// whether numeric fields are sent as numbers or quoted strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIToken is one outcome token of a market as returned by the CLOB API.
// Index 0 is the YES token by convention.
type APIToken struct {
	TokenID string    `json:"token_id"`
	Outcome string    `json:"outcome"`
	Price   flexFloat `json:"price"`
}

// APIMarket represents a market as returned by GET /markets on the CLOB API.
// Only the fields the oracle needs are decoded.
type APIMarket struct {
	ConditionID string     `json:"condition_id"`
	Question    string     `json:"question"`
	Title       string     `json:"title"`
	Tokens      []APIToken `json:"tokens"`
	Volume      flexFloat  `json:"volume"`
	Liquidity   flexFloat  `json:"liquidity"`
}

// Label returns the market's display text, falling back from question to
// title.
func (m APIMarket) Label() string {
	if m.Question != "" {
		return m.Question
	}
	return m.Title
}

// YesPrice returns the current YES token price, defaulting to 0.50 when the
// market carries no token data.
func (m APIMarket) YesPrice() float64 {
	if len(m.Tokens) == 0 {
		return 0.50
	}
	return float64(m.Tokens[0].Price)
}

// marketsResponse accepts both response shapes the CLOB API has used for
// GET /markets: a bare array and an envelope with a "data" array.
type marketsResponse struct {
	markets []APIMarket
}

func (r *marketsResponse) UnmarshalJSON(data []byte) error {
	var direct []APIMarket
	if err := json.Unmarshal(data, &direct); err == nil {
		r.markets = direct
		return nil
	}
	var envelope struct {
		Data []APIMarket `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	r.markets = envelope.Data
	return nil
}
