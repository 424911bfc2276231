package polymarket_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/polymarket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const marketsBody = `{
  "data": [
    {
      "condition_id": "0xabc123",
      "question": "Will Bitcoin reach $150k by December 31?",
      "tokens": [
        {"token_id": "tok-yes", "outcome": "Yes", "price": "0.72"},
        {"token_id": "tok-no",  "outcome": "No",  "price": "0.28"}
      ],
      "volume": 125000.5,
      "liquidity": "8400"
    },
    {
      "condition_id": "0xdef456",
      "question": "Will it rain in Madrid tomorrow?",
      "tokens": [
        {"token_id": "tok-yes-2", "outcome": "Yes", "price": 0.31}
      ],
      "volume": 900,
      "liquidity": 150
    }
  ]
}`

func newOracle(t *testing.T, handler http.HandlerFunc) (*polymarket.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	meter := polymarket.NewFeeMeter(0.001, 0)
	return polymarket.NewClient(srv.URL, meter, testLogger()), srv
}

func TestQuoteLiveMatch(t *testing.T) {
	client, _ := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(marketsBody))
	})

	quote, err := client.Quote(context.Background(), "bitcoin")
	require.NoError(t, err)

	assert.Equal(t, "0xabc123", quote.MarketID)
	assert.InDelta(t, 0.72, quote.YesPrice, 1e-9)
	assert.InDelta(t, 0.28, quote.NoPrice, 1e-9)
	assert.InDelta(t, 125000.5, quote.Volume, 1e-6)
	assert.InDelta(t, 8400.0, quote.Liquidity, 1e-6)
	assert.False(t, quote.Simulated)
}

func TestQuoteMatchesCaseInsensitively(t *testing.T) {
	client, _ := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketsBody))
	})

	quote, err := client.Quote(context.Background(), "MADRID")
	require.NoError(t, err)
	assert.Equal(t, "0xdef456", quote.MarketID)
	assert.InDelta(t, 0.31, quote.YesPrice, 1e-9)
}

func TestQuoteNoMatchFallsBackToSimulated(t *testing.T) {
	client, _ := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketsBody))
	})

	quote, err := client.Quote(context.Background(), "alien landing")
	require.NoError(t, err, "a missing market is not an error")
	assert.True(t, quote.Simulated)
	assert.InDelta(t, 0.50, quote.YesPrice, 1e-9)
	assert.InDelta(t, 0.50, quote.NoPrice, 1e-9)
}

func TestQuoteServerErrorFallsBackToSimulated(t *testing.T) {
	client, _ := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	quote, err := client.Quote(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.True(t, quote.Simulated)
}

func TestQuoteTransportErrorFallsBackToSimulated(t *testing.T) {
	client, srv := newOracle(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	quote, err := client.Quote(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.True(t, quote.Simulated)
}

func TestQuoteBareArrayResponse(t *testing.T) {
	client, _ := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"condition_id": "0x1", "question": "Bitcoin up?", "tokens": [{"price": 0.6}]}]`))
	})

	quote, err := client.Quote(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Equal(t, "0x1", quote.MarketID)
	assert.InDelta(t, 0.60, quote.YesPrice, 1e-9)
}

func TestQuoteExhaustedBudgetFailsWithoutFetching(t *testing.T) {
	fetches := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_, _ = w.Write([]byte(marketsBody))
	}))
	t.Cleanup(srv.Close)

	// Budget covers exactly two calls at 0.001 each.
	meter := polymarket.NewFeeMeter(0.001, 0.002)
	client := polymarket.NewClient(srv.URL, meter, testLogger())
	ctx := context.Background()

	_, err := client.Quote(ctx, "bitcoin")
	require.NoError(t, err)
	_, err = client.Quote(ctx, "bitcoin")
	require.NoError(t, err)

	_, err = client.Quote(ctx, "bitcoin")
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, 2, fetches, "an unauthorized call must not reach the feed")
}

func TestFeeMeterAccounting(t *testing.T) {
	meter := polymarket.NewFeeMeter(0.001, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, meter.Verify(ctx))
	}

	stats := meter.Stats()
	assert.Equal(t, 5, stats.RequestsServed)
	assert.InDelta(t, 0.005, stats.TotalFees, 1e-9)
}

func TestClientStatsExposesMeter(t *testing.T) {
	client, _ := newOracle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(marketsBody))
	})

	_, err := client.Quote(context.Background(), "bitcoin")
	require.NoError(t, err)

	stats := client.Stats()
	assert.Equal(t, 1, stats.RequestsServed)
	assert.InDelta(t, 0.001, stats.TotalFees, 1e-9)
}
