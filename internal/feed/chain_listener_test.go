package feed

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/platform/arc"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openedLog(t *testing.T, positionID int64, trader string, marketID string, longYes bool, entry, collateral, leverage int64) types.Log {
	t.Helper()
	event := arc.VaultABI().Events["PositionOpened"]
	data, err := event.Inputs.NonIndexed().Pack(
		marketID,
		longYes,
		big.NewInt(entry),
		big.NewInt(collateral),
		big.NewInt(leverage),
	)
	require.NoError(t, err)

	return types.Log{
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(big.NewInt(positionID)),
			common.BytesToHash(common.HexToAddress(trader).Bytes()),
		},
		Data: data,
	}
}

func TestDecodePositionOpened(t *testing.T) {
	l := &ChainListener{
		cfg:    ListenerConfig{CollateralDecimals: 6},
		logger: testLogger(),
	}

	trader := "0x1111111111111111111111111111111111111111"
	lg := openedLog(t, 42, trader, "bitcoin-150k", true, 65, 250_000_000, 3)

	n, err := l.decode(lg)
	require.NoError(t, err)

	assert.Equal(t, "42", n.PositionID)
	assert.Equal(t, common.HexToAddress(trader).Hex(), n.Trader)
	assert.Equal(t, "bitcoin-150k", n.MarketID)
	assert.True(t, n.LongYes)
	assert.InDelta(t, 65.0, n.EntryPrice, 1e-9)
	assert.InDelta(t, 250_000_000.0, n.Collateral, 1e-9, "collateral stays raw; decimals descale it downstream")
	assert.Equal(t, 6, n.Decimals)
	assert.Equal(t, 3, n.Leverage)
	assert.NoError(t, n.Validate())
}

func TestDecodeShortNoSide(t *testing.T) {
	l := &ChainListener{cfg: ListenerConfig{CollateralDecimals: 6}, logger: testLogger()}

	lg := openedLog(t, 7, "0x2222222222222222222222222222222222222222", "rain-madrid", false, 40, 1_000_000, 1)

	n, err := l.decode(lg)
	require.NoError(t, err)
	assert.False(t, n.LongYes)
	assert.Equal(t, 1, n.Leverage)
}

func TestDecodeRejectsMissingTopics(t *testing.T) {
	l := &ChainListener{cfg: ListenerConfig{CollateralDecimals: 6}, logger: testLogger()}

	lg := openedLog(t, 7, "0x2222222222222222222222222222222222222222", "rain-madrid", false, 40, 1_000_000, 1)
	lg.Topics = lg.Topics[:1]

	_, err := l.decode(lg)
	assert.Error(t, err)
}

func TestDecodeRejectsGarbageData(t *testing.T) {
	l := &ChainListener{cfg: ListenerConfig{CollateralDecimals: 6}, logger: testLogger()}

	lg := openedLog(t, 7, "0x2222222222222222222222222222222222222222", "rain-madrid", false, 40, 1_000_000, 1)
	lg.Data = []byte{0x01, 0x02}

	_, err := l.decode(lg)
	assert.Error(t, err)
}
