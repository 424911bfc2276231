package service_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/circle"
	"github.com/signalvault/vaultagent/internal/registry"
	"github.com/signalvault/vaultagent/internal/service"
)

func routerFixture(t *testing.T) (*service.TradeRouter, *registry.Registry, *circle.SimulatedBridge, *memRecorder, *memJournal, *memBus) {
	t.Helper()
	reg := registry.New()
	bridge := circle.NewSimulatedBridge(testLogger())
	rec := &memRecorder{}
	journal := &memJournal{}
	bus := newMemBus()
	cfg := service.RouterConfig{DestinationDomain: 7, Recipient: "0xrecipient", Asset: "USDC"}
	router := service.NewTradeRouter(reg, bridge, rec, journal, bus, cfg, testLogger())
	return router, reg, bridge, rec, journal, bus
}

func spotNotification(id string) domain.Notification {
	return domain.Notification{
		PositionID: id,
		Trader:     "0xabc",
		MarketID:   "bitcoin-150k",
		LongYes:    true,
		EntryPrice: 65,
		Collateral: 250_000_000,
		Decimals:   6,
		Leverage:   1,
	}
}

func leveragedNotification(id string) domain.Notification {
	n := spotNotification(id)
	n.Leverage = 3
	return n
}

func TestRouteSpotSettlesWithoutTracking(t *testing.T) {
	router, reg, bridge, rec, journal, bus := routerFixture(t)

	res, err := router.Route(context.Background(), spotNotification("1"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSettled, res.Outcome)
	assert.NotEmpty(t, res.TxRef)

	// Spot positions are bridged, never registered.
	assert.Equal(t, 0, reg.Size())

	transfers := bridge.Transfers()
	require.Len(t, transfers, 1)
	assert.InDelta(t, 250.0, transfers[0].Amount, 1e-9, "collateral must be descaled before bridging")
	assert.Equal(t, uint32(7), transfers[0].DestinationDomain)
	assert.Equal(t, "0xrecipient", transfers[0].Recipient)
	assert.Equal(t, "spot_settlement", transfers[0].Purpose)

	latest, err := rec.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.TxRef, latest.TxRef)

	records, _ := journal.ListRecent(context.Background(), 0)
	require.Len(t, records, 1)
	assert.Equal(t, "spot", records[0].Kind)
	assert.True(t, records[0].Success)
	assert.Equal(t, 1, bus.count("positions"))
}

func TestRouteSpotBridgeFailureDoesNotTrack(t *testing.T) {
	router, reg, bridge, rec, journal, _ := routerFixture(t)
	bridge.FailWith(errors.New("rpc timeout"))

	res, err := router.Route(context.Background(), spotNotification("1"))
	require.Error(t, err)
	assert.Equal(t, domain.OutcomeSettlementFailed, res.Outcome)

	// A failed spot settlement must not fall back to tracking.
	assert.Equal(t, 0, reg.Size())

	_, err = rec.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	records, _ := journal.ListRecent(context.Background(), 0)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Contains(t, records[0].Detail, "rpc timeout")
}

func TestRouteLeveragedTracksWithoutBridging(t *testing.T) {
	router, reg, bridge, _, _, bus := routerFixture(t)

	res, err := router.Route(context.Background(), leveragedNotification("42"))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeTracked, res.Outcome)

	assert.Empty(t, bridge.Transfers())
	require.Equal(t, 1, reg.Size())

	pos, ok := reg.Get("42")
	require.True(t, ok)
	assert.Equal(t, 3, pos.Leverage)
	assert.InDelta(t, 250.0, pos.Collateral, 1e-9)
	assert.Equal(t, 1, bus.count("positions"))
}

func TestRouteInvalidNotificationRejected(t *testing.T) {
	router, reg, bridge, _, _, _ := routerFixture(t)

	n := leveragedNotification("42")
	n.MarketID = ""

	res, err := router.Route(context.Background(), n)
	require.ErrorIs(t, err, domain.ErrInvalidNotification)
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
	assert.NotEmpty(t, res.Reason)

	assert.Equal(t, 0, reg.Size())
	assert.Empty(t, bridge.Transfers())
}

func TestRouteDuplicateRejected(t *testing.T) {
	router, reg, _, _, _, _ := routerFixture(t)

	_, err := router.Route(context.Background(), leveragedNotification("42"))
	require.NoError(t, err)

	res, err := router.Route(context.Background(), leveragedNotification("42"))
	require.ErrorIs(t, err, domain.ErrDuplicateID)
	assert.Equal(t, domain.OutcomeRejected, res.Outcome)
	assert.Equal(t, 1, reg.Size())
}

func TestRouteStatsCountOutcomes(t *testing.T) {
	router, _, bridge, _, _, _ := routerFixture(t)
	ctx := context.Background()

	_, _ = router.Route(ctx, spotNotification("1"))
	_, _ = router.Route(ctx, leveragedNotification("2"))
	_, _ = router.Route(ctx, leveragedNotification("2")) // duplicate

	bridge.FailWith(errors.New("down"))
	_, _ = router.Route(ctx, spotNotification("3"))

	stats := router.Stats()
	assert.Equal(t, int64(1), stats[domain.OutcomeSettled])
	assert.Equal(t, int64(1), stats[domain.OutcomeTracked])
	assert.Equal(t, int64(1), stats[domain.OutcomeRejected])
	assert.Equal(t, int64(1), stats[domain.OutcomeSettlementFailed])
}

func TestRouteLogsPeriodicSummary(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reg := registry.New()
	bridge := circle.NewSimulatedBridge(testLogger())
	cfg := service.RouterConfig{DestinationDomain: 7, Recipient: "0xrecipient", Asset: "USDC"}
	router := service.NewTradeRouter(reg, bridge, nil, nil, nil, cfg, logger)

	ctx := context.Background()
	for i := 0; i < 9; i++ {
		_, err := router.Route(ctx, leveragedNotification(fmt.Sprintf("pos-%d", i)))
		require.NoError(t, err)
	}
	assert.NotContains(t, buf.String(), "routing summary")

	_, err := router.Route(ctx, spotNotification("pos-9"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "routing summary")
	assert.Contains(t, out, "processed=10")
	assert.Contains(t, out, "tracked=9")
	assert.Contains(t, out, "settled=1")
	assert.Contains(t, out, "open_positions=9")
}
