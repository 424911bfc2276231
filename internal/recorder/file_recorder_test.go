package recorder_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/recorder"
)

func TestLatestBeforeAnyRecord(t *testing.T) {
	rec := recorder.NewFileRecorder(filepath.Join(t.TempDir(), "latest.json"))

	_, err := rec.Latest(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordThenLatest(t *testing.T) {
	// The parent directory does not exist yet; Record creates it.
	path := filepath.Join(t.TempDir(), "public", "latest_bridge_tx.json")
	rec := recorder.NewFileRecorder(path)
	ctx := context.Background()

	receipt := domain.BridgeReceipt{
		TxRef:     "0xdeadbeef",
		Simulated: false,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, rec.Record(ctx, receipt))

	got, err := rec.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, receipt, got)
}

func TestRecordOverwritesPrevious(t *testing.T) {
	rec := recorder.NewFileRecorder(filepath.Join(t.TempDir(), "latest.json"))
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, domain.BridgeReceipt{TxRef: "first"}))
	require.NoError(t, rec.Record(ctx, domain.BridgeReceipt{TxRef: "second"}))

	got, err := rec.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", got.TxRef)
}
