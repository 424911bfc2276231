package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/platform/arc"
	"github.com/signalvault/vaultagent/internal/platform/circle"
	"github.com/signalvault/vaultagent/internal/service"
)

func hedgeFixture(t *testing.T, balance float64) (*service.HedgeService, *fakeAlerter, *circle.SimulatedBridge, *memJournal) {
	t.Helper()
	vault := arc.NewSimulatedVault(balance)
	bridge := circle.NewSimulatedBridge(testLogger())
	journal := &memJournal{}
	alerter := &fakeAlerter{}
	cfg := service.HedgeConfig{
		Threshold:         1000,
		BridgeAmount:      1000,
		YesSplit:          0.70,
		Interval:          30 * time.Second,
		DestinationDomain: 7,
		Recipient:         "0xrecipient",
		Asset:             "USDC",
	}
	svc := service.NewHedgeService(vault, bridge, &memRecorder{}, journal, newMemBus(), alerter, cfg, testLogger())
	return svc, alerter, bridge, journal
}

func TestEstimateSplitsBalance(t *testing.T) {
	svc, _, _, _ := hedgeFixture(t, 10_000)

	snap, err := svc.Estimate(context.Background())
	require.NoError(t, err)

	assert.InDelta(t, 10_000.0, snap.VaultBalance, 1e-9)
	assert.InDelta(t, 7_000.0, snap.YesExposure, 1e-9)
	assert.InDelta(t, 3_000.0, snap.NoExposure, 1e-9)
	assert.InDelta(t, 4_000.0, snap.Imbalance, 1e-9)
	assert.True(t, snap.NeedsHedge)
}

func TestEstimateAtThresholdDoesNotHedge(t *testing.T) {
	// Balance 2500 at a 70/30 split gives an imbalance of exactly 1000,
	// which must not trigger.
	svc, _, bridge, _ := hedgeFixture(t, 2_500)

	snap, err := svc.Estimate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1_000.0, snap.Imbalance, 1e-9)
	assert.False(t, snap.NeedsHedge)

	require.NoError(t, svc.MaybeHedge(context.Background(), snap))
	assert.Empty(t, bridge.Transfers())
}

func TestMaybeHedgeBridgesFixedAmount(t *testing.T) {
	svc, _, bridge, journal := hedgeFixture(t, 10_000)

	snap, err := svc.Estimate(context.Background())
	require.NoError(t, err)
	require.NoError(t, svc.MaybeHedge(context.Background(), snap))

	transfers := bridge.Transfers()
	require.Len(t, transfers, 1)
	assert.InDelta(t, 1_000.0, transfers[0].Amount, 1e-9)
	assert.Equal(t, "hedge", transfers[0].Purpose)
	assert.Equal(t, uint32(7), transfers[0].DestinationDomain)

	records, _ := journal.ListRecent(context.Background(), 0)
	require.Len(t, records, 1)
	assert.Equal(t, "hedge", records[0].Kind)
	assert.True(t, records[0].Success)
}

func TestHedgeFiresOperatorAlert(t *testing.T) {
	svc, alerter, _, _ := hedgeFixture(t, 10_000)
	ctx := context.Background()

	snap, err := svc.Estimate(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.MaybeHedge(ctx, snap))

	require.Equal(t, 1, alerter.count("hedge"))
	assert.Contains(t, alerter.bodies[0], "1000.00 USDC")
}

func TestHedgeFailureDoesNotAlert(t *testing.T) {
	svc, alerter, bridge, _ := hedgeFixture(t, 10_000)
	bridge.FailWith(errors.New("messenger unavailable"))

	snap, err := svc.Estimate(context.Background())
	require.NoError(t, err)
	require.Error(t, svc.MaybeHedge(context.Background(), snap))

	assert.Zero(t, alerter.count("hedge"))
}

func TestMaybeHedgeFailureIsJournaled(t *testing.T) {
	svc, _, bridge, journal := hedgeFixture(t, 10_000)
	bridge.FailWith(errors.New("messenger unavailable"))

	snap, err := svc.Estimate(context.Background())
	require.NoError(t, err)

	err = svc.MaybeHedge(context.Background(), snap)
	require.Error(t, err)

	records, _ := journal.ListRecent(context.Background(), 0)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Contains(t, records[0].Detail, "messenger unavailable")

	total, count := svc.Stats()
	assert.Zero(t, total)
	assert.Zero(t, count)
}

func TestHedgeStatsAccumulate(t *testing.T) {
	svc, _, _, _ := hedgeFixture(t, 10_000)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		snap, err := svc.Estimate(ctx)
		require.NoError(t, err)
		require.NoError(t, svc.MaybeHedge(ctx, snap))
	}

	total, count := svc.Stats()
	assert.InDelta(t, 3_000.0, total, 1e-9)
	assert.Equal(t, int64(3), count)
}
