package service_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/signalvault/vaultagent/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeOracle serves canned quotes keyed by market identifier.
type fakeOracle struct {
	mu     sync.Mutex
	quotes map[string]domain.OracleQuote
	errs   map[string]error
	calls  int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		quotes: make(map[string]domain.OracleQuote),
		errs:   make(map[string]error),
	}
}

func (f *fakeOracle) setQuote(marketID string, yes float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[marketID] = domain.OracleQuote{MarketID: marketID, YesPrice: yes, NoPrice: 1 - yes}
}

func (f *fakeOracle) failWith(marketID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[marketID] = err
}

func (f *fakeOracle) Quote(ctx context.Context, marketID string) (domain.OracleQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[marketID]; ok {
		return domain.OracleQuote{}, err
	}
	if q, ok := f.quotes[marketID]; ok {
		return q, nil
	}
	return domain.SimulatedQuote(marketID), nil
}

// failingVault fails every settlement with the configured error.
type failingVault struct {
	err     error
	balance float64

	mu        sync.Mutex
	attempted []string
}

func (v *failingVault) SettlePosition(ctx context.Context, positionID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.attempted = append(v.attempted, positionID)
	return v.err
}

func (v *failingVault) Balance(ctx context.Context) (float64, error) {
	return v.balance, nil
}

// memJournal is an in-memory settlement journal.
type memJournal struct {
	mu      sync.Mutex
	records []domain.SettlementRecord
}

func (j *memJournal) Insert(ctx context.Context, rec domain.SettlementRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, rec)
	return nil
}

func (j *memJournal) ListRecent(ctx context.Context, limit int) ([]domain.SettlementRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]domain.SettlementRecord, len(j.records))
	copy(out, j.records)
	return out, nil
}

// memAudit is an in-memory liquidation audit trail.
type memAudit struct {
	mu     sync.Mutex
	events []domain.LiquidationEvent
}

func (a *memAudit) Insert(ctx context.Context, ev domain.LiquidationEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

func (a *memAudit) ListRecent(ctx context.Context, limit int) ([]domain.LiquidationEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.LiquidationEvent, len(a.events))
	copy(out, a.events)
	return out, nil
}

// memBus records published events; Subscribe is unused in these tests.
type memBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{published: make(map[string][][]byte)}
}

func (b *memBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *memBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[channel])
}

// fakeAlerter records operator notifications.
type fakeAlerter struct {
	mu     sync.Mutex
	events []string
	bodies []string
}

func (a *fakeAlerter) Notify(ctx context.Context, event, title, message string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	a.bodies = append(a.bodies, message)
	return nil
}

func (a *fakeAlerter) count(event string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, e := range a.events {
		if e == event {
			n++
		}
	}
	return n
}

// memRecorder keeps the most recent bridge receipt.
type memRecorder struct {
	mu     sync.Mutex
	latest *domain.BridgeReceipt
}

func (r *memRecorder) Record(ctx context.Context, receipt domain.BridgeReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = &receipt
	return nil
}

func (r *memRecorder) Latest(ctx context.Context) (domain.BridgeReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return domain.BridgeReceipt{}, domain.ErrNotFound
	}
	return *r.latest, nil
}
