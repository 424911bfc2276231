package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/arc"
	"github.com/signalvault/vaultagent/internal/registry"
	"github.com/signalvault/vaultagent/internal/service"
)

func liquidationFixture(t *testing.T) (*service.LiquidationService, *registry.Registry, *fakeOracle, *arc.SimulatedVault, *memAudit) {
	t.Helper()
	reg := registry.New()
	oracle := newFakeOracle()
	vault := arc.NewSimulatedVault(10_000)
	audit := &memAudit{}
	cfg := service.LiquidationConfig{Threshold: -0.80, Interval: 10 * time.Second}
	svc := service.NewLiquidationService(reg, oracle, vault, audit, &memJournal{}, newMemBus(), nil, cfg, testLogger())
	return svc, reg, oracle, vault, audit
}

func trackedPosition(id, marketID string, longYes bool, entry float64, lev int) domain.Position {
	return domain.Position{
		ID:         id,
		MarketID:   marketID,
		Trader:     "0xabc",
		LongYes:    longYes,
		EntryPrice: entry,
		Collateral: 250,
		Leverage:   lev,
		OpenedAt:   time.Now().UTC(),
	}
}

func TestEvaluateOnceLiquidatesAtThreshold(t *testing.T) {
	svc, reg, oracle, vault, audit := liquidationFixture(t)

	// Entry 66, YES at 0.50 and 5x leverage: pnl is exactly -0.80.
	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-a", true, 66, 5)))
	oracle.setQuote("mkt-a", 0.50)

	n, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 0, reg.Size())
	assert.Equal(t, []string{"1"}, vault.Settled())

	require.Len(t, audit.events, 1)
	ev := audit.events[0]
	assert.Equal(t, "1", ev.PositionID)
	assert.InDelta(t, -0.80, ev.PnLFraction, 1e-9)
	assert.True(t, ev.Settled)
}

func TestEvaluateOnceSparesAboveThreshold(t *testing.T) {
	svc, reg, oracle, vault, _ := liquidationFixture(t)

	// Entry 65.8, YES at 0.50 and 5x: pnl is -0.79, just above the line.
	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-a", true, 65.8, 5)))
	oracle.setQuote("mkt-a", 0.50)

	n, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, 1, reg.Size())
	assert.Empty(t, vault.Settled())
}

func TestEvaluateOnceUsesNoSidePrice(t *testing.T) {
	svc, reg, oracle, vault, _ := liquidationFixture(t)

	// A long-NO position loses when the NO price falls. YES rising to 0.90
	// means NO at 0.10; entry 50 at 5x gives pnl -2.0.
	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-a", false, 50, 5)))
	oracle.setQuote("mkt-a", 0.90)

	n, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"1"}, vault.Settled())
}

func TestEvaluateOnceSkipsPositionOnOracleFailure(t *testing.T) {
	svc, reg, oracle, vault, _ := liquidationFixture(t)

	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-down", true, 50, 5)))
	require.NoError(t, reg.Insert(trackedPosition("2", "mkt-up", true, 50, 5)))
	oracle.failWith("mkt-down", errors.New("feed unreachable"))
	oracle.setQuote("mkt-up", 0.10)

	n, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// The unquotable position survives the sweep; the other is settled.
	_, ok := reg.Get("1")
	assert.True(t, ok)
	assert.Equal(t, []string{"2"}, vault.Settled())
}

func TestLiquidationRemovesPositionEvenWhenSettlementFails(t *testing.T) {
	reg := registry.New()
	oracle := newFakeOracle()
	vault := &failingVault{err: errors.New("execution reverted")}
	audit := &memAudit{}
	cfg := service.LiquidationConfig{Threshold: -0.80, Interval: 10 * time.Second}
	svc := service.NewLiquidationService(reg, oracle, vault, audit, nil, nil, nil, cfg, testLogger())

	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-a", true, 50, 5)))
	oracle.setQuote("mkt-a", 0.10)

	n, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 0, reg.Size(), "position leaves the registry regardless of the settle outcome")
	require.Len(t, audit.events, 1)
	assert.False(t, audit.events[0].Settled)
}

func TestEvaluateOnceCollapseScenario(t *testing.T) {
	svc, reg, oracle, vault, _ := liquidationFixture(t)

	// Entry 50 at 5x with YES collapsing to 0.10: pnl -2.0, well past the
	// threshold. The second sweep finds nothing left to do.
	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-a", true, 50, 5)))
	oracle.setQuote("mkt-a", 0.10)

	n, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.EvaluateOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, []string{"1"}, vault.Settled(), "settlement happens exactly once")
	assert.Equal(t, 0, reg.Size())
}

func TestLiquidationStats(t *testing.T) {
	svc, reg, oracle, _, _ := liquidationFixture(t)

	require.NoError(t, reg.Insert(trackedPosition("1", "mkt-a", true, 50, 5)))
	oracle.setQuote("mkt-a", 0.10)

	_, err := svc.EvaluateOnce(context.Background())
	require.NoError(t, err)

	sweeps, liquidated := svc.Stats()
	assert.Equal(t, int64(1), sweeps)
	assert.Equal(t, int64(1), liquidated)
}
