package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/arc"
	"github.com/signalvault/vaultagent/internal/platform/circle"
	"github.com/signalvault/vaultagent/internal/registry"
	"github.com/signalvault/vaultagent/internal/server/handler"
	"github.com/signalvault/vaultagent/internal/service"
)

// stubStore serves canned journal rows for the history endpoints.
type stubStore struct {
	mu      sync.Mutex
	records []domain.SettlementRecord
}

func (s *stubStore) Insert(ctx context.Context, rec domain.SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *stubStore) ListRecent(ctx context.Context, limit int) ([]domain.SettlementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > 0 && limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

type stubAudit struct {
	events []domain.LiquidationEvent
}

func (s *stubAudit) Insert(ctx context.Context, ev domain.LiquidationEvent) error {
	s.events = append(s.events, ev)
	return nil
}

func (s *stubAudit) ListRecent(ctx context.Context, limit int) ([]domain.LiquidationEvent, error) {
	return s.events, nil
}

func TestStatsAggregatesSections(t *testing.T) {
	reg := registry.New()
	bridge := circle.NewSimulatedBridge(testLogger())
	routerCfg := service.RouterConfig{DestinationDomain: 7, Recipient: "0xr", Asset: "USDC"}
	router := service.NewTradeRouter(reg, bridge, nil, nil, nil, routerCfg, testLogger())

	hedgeCfg := service.HedgeConfig{Threshold: 1000, BridgeAmount: 1000, YesSplit: 0.70, Interval: time.Second}
	hedger := service.NewHedgeService(arc.NewSimulatedVault(10_000), bridge, nil, nil, nil, nil, hedgeCfg, testLogger())

	// One tracked position so the counter is non-zero.
	_, err := router.Route(context.Background(), domain.Notification{
		PositionID: "1", MarketID: "bitcoin-150k", EntryPrice: 65,
		Collateral: 100, Decimals: 0, Leverage: 3,
	})
	require.NoError(t, err)

	h := handler.NewStatsHandler(reg, router, hedger, nil, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	h.Stats(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	assert.EqualValues(t, 1, resp["tracked_positions"])

	routing, ok := resp["routing"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 1, routing["tracked"])

	hedging, ok := resp["hedging"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 0, hedging["bridge_tx_count"])

	// Sections for absent collaborators are omitted entirely.
	_, hasOracle := resp["oracle"]
	assert.False(t, hasOracle)
	_, hasLatest := resp["latest_bridge_tx"]
	assert.False(t, hasLatest)
}

func TestHistoryListSettlements(t *testing.T) {
	store := &stubStore{records: []domain.SettlementRecord{
		{ID: "s1", Kind: "spot", Success: true},
		{ID: "s2", Kind: "hedge", Success: true},
		{ID: "s3", Kind: "liquidation", Success: false},
	}}
	h := handler.NewHistoryHandler(store, &stubAudit{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/settlements?limit=2", nil)
	rr := httptest.NewRecorder()
	h.ListSettlements(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Count       int                       `json:"count"`
		Settlements []domain.SettlementRecord `json:"settlements"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	require.Len(t, resp.Settlements, 2)
	assert.Equal(t, "s1", resp.Settlements[0].ID)
}

func TestHistoryListLiquidations(t *testing.T) {
	audit := &stubAudit{events: []domain.LiquidationEvent{
		{PositionID: "1", PnLFraction: -0.85, Settled: true},
	}}
	h := handler.NewHistoryHandler(&stubStore{}, audit, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/liquidations", nil)
	rr := httptest.NewRecorder()
	h.ListLiquidations(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Count        int                      `json:"count"`
		Liquidations []domain.LiquidationEvent `json:"liquidations"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.InDelta(t, -0.85, resp.Liquidations[0].PnLFraction, 1e-9)
}
