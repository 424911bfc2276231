package registry_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/registry"
)

func testPosition(id string, openedAt time.Time) domain.Position {
	return domain.Position{
		ID:         id,
		MarketID:   "bitcoin-150k",
		Trader:     "0xabc",
		LongYes:    true,
		EntryPrice: 65,
		Collateral: 250,
		Leverage:   3,
		OpenedAt:   openedAt,
	}
}

func TestInsertAndGet(t *testing.T) {
	reg := registry.New()
	pos := testPosition("1", time.Now())

	require.NoError(t, reg.Insert(pos))

	got, ok := reg.Get("1")
	require.True(t, ok)
	assert.Equal(t, pos, got)
	assert.Equal(t, 1, reg.Size())
}

func TestInsertDuplicateRejected(t *testing.T) {
	reg := registry.New()
	first := testPosition("1", time.Now())
	require.NoError(t, reg.Insert(first))

	replay := first
	replay.Leverage = 10
	err := reg.Insert(replay)
	require.ErrorIs(t, err, domain.ErrDuplicateID)

	// The stored position is untouched by the rejected replay.
	got, ok := reg.Get("1")
	require.True(t, ok)
	assert.Equal(t, 3, got.Leverage)
	assert.Equal(t, 1, reg.Size())
}

func TestRemoveIsIdempotent(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Insert(testPosition("1", time.Now())))

	pos, removed := reg.Remove("1")
	require.True(t, removed)
	assert.Equal(t, "1", pos.ID)

	_, removed = reg.Remove("1")
	assert.False(t, removed)

	_, removed = reg.Remove("never-existed")
	assert.False(t, removed)
	assert.Equal(t, 0, reg.Size())
}

func TestSnapshotOrderedByOpenedAt(t *testing.T) {
	reg := registry.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, reg.Insert(testPosition("c", base.Add(2*time.Minute))))
	require.NoError(t, reg.Insert(testPosition("a", base)))
	require.NoError(t, reg.Insert(testPosition("b", base.Add(time.Minute))))
	// Same opening time as "a"; ties break on identifier.
	require.NoError(t, reg.Insert(testPosition("z", base.Add(2*time.Minute))))

	snap := reg.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, "a", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "c", snap[2].ID)
	assert.Equal(t, "z", snap[3].ID)
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Insert(testPosition("1", time.Now())))

	snap := reg.Snapshot()
	require.Len(t, snap, 1)

	reg.Remove("1")
	assert.Len(t, snap, 1, "snapshot must not observe later mutation")

	snap[0].Leverage = 99
	fresh, _ := reg.Get("1")
	assert.NotEqual(t, 99, fresh.Leverage)
}

func TestConcurrentInsertRemove(t *testing.T) {
	reg := registry.New()
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("pos-%d", i)
			_ = reg.Insert(testPosition(id, time.Now()))
			if i%2 == 0 {
				reg.Remove(id)
			}
		}(i)
	}

	// Readers run alongside the writers.
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = reg.Snapshot()
			_ = reg.Size()
		}()
	}
	wg.Wait()

	assert.Equal(t, n/2, reg.Size())
}
