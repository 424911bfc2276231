// Package polymarket implements the price oracle client against the
// Polymarket CLOB REST API, fronted by per-call x402 micro-payment
// accounting. When live data is unavailable the client degrades to a
// neutral simulated quote instead of failing the caller.
package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/signalvault/vaultagent/internal/domain"
)

// Client is the REST oracle client for the Polymarket CLOB API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	verifier   PaymentVerifier
	logger     *slog.Logger
}

// NewClient creates an oracle client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// verifier is consulted before every fetch; use a FeeMeter in production.
func NewClient(baseURL string, verifier PaymentVerifier, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		verifier: verifier,
		logger:   logger.With(slog.String("component", "oracle")),
	}
}

// Quote fetches the current price reading for marketID. Every call first
// performs the payment/authorization step; on authorization failure the
// call returns domain.ErrUnauthorized and performs no fetch. No-match,
// transport, and parse failures all yield the simulated 50/50 fallback
// quote rather than an error.
func (c *Client) Quote(ctx context.Context, marketID string) (domain.OracleQuote, error) {
	if err := c.verifier.Verify(ctx); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.logger.WarnContext(ctx, "payment verification failed",
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
			return domain.OracleQuote{}, fmt.Errorf("polymarket: quote %s: %w", marketID, err)
		}
		return domain.OracleQuote{}, fmt.Errorf("polymarket: quote %s: verify payment: %w", marketID, err)
	}

	markets, err := c.fetchMarkets(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "market fetch failed, using simulated prices",
			slog.String("market_id", marketID),
			slog.String("error", err.Error()),
		)
		return domain.SimulatedQuote(marketID), nil
	}

	market, ok := matchMarket(markets, marketID)
	if !ok {
		c.logger.InfoContext(ctx, "market not found, using simulated prices",
			slog.String("market_id", marketID),
		)
		return domain.SimulatedQuote(marketID), nil
	}

	yes := market.YesPrice()
	quote := domain.OracleQuote{
		MarketID:  market.ConditionID,
		Question:  market.Label(),
		YesPrice:  yes,
		NoPrice:   1.0 - yes,
		Volume:    float64(market.Volume),
		Liquidity: float64(market.Liquidity),
	}
	if quote.MarketID == "" {
		quote.MarketID = "unknown"
	}

	c.logger.DebugContext(ctx, "quote fetched",
		slog.String("market_id", quote.MarketID),
		slog.Float64("yes_price", quote.YesPrice),
		slog.Float64("volume", quote.Volume),
	)

	return quote, nil
}

// Stats returns the fee accounting snapshot when the verifier is a FeeMeter,
// or a zero snapshot otherwise.
func (c *Client) Stats() FeeStats {
	if m, ok := c.verifier.(*FeeMeter); ok {
		return m.Stats()
	}
	return FeeStats{}
}

func (c *Client) fetchMarkets(ctx context.Context) ([]APIMarket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/markets", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	var parsed marketsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode markets: %w", err)
	}
	return parsed.markets, nil
}

// matchMarket finds the first market whose question or title contains the
// requested identifier, case-insensitively.
func matchMarket(markets []APIMarket, marketID string) (APIMarket, bool) {
	needle := strings.ToLower(marketID)
	for _, m := range markets {
		if strings.Contains(strings.ToLower(m.Label()), needle) {
			return m, true
		}
	}
	return APIMarket{}, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
