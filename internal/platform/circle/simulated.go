package circle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalvault/vaultagent/internal/domain"
)

// SimulatedBridge records transfers in memory instead of touching a
// network. It serves dry-run mode and tests.
type SimulatedBridge struct {
	mu        sync.Mutex
	transfers []domain.BridgeRequest
	logger    *slog.Logger
	fail      error
}

func NewSimulatedBridge(logger *slog.Logger) *SimulatedBridge {
	return &SimulatedBridge{logger: logger.With(slog.String("component", "bridge_sim"))}
}

// FailWith makes every subsequent Transfer return err.
func (s *SimulatedBridge) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *SimulatedBridge) Transfer(ctx context.Context, req domain.BridgeRequest) (domain.BridgeReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return domain.BridgeReceipt{}, s.fail
	}
	s.transfers = append(s.transfers, req)
	ref := "sim-" + uuid.NewString()
	s.logger.InfoContext(ctx, "simulated bridge transfer",
		slog.Float64("amount", req.Amount),
		slog.String("purpose", req.Purpose),
		slog.String("tx_ref", ref),
	)
	return domain.BridgeReceipt{TxRef: ref, Simulated: true, Timestamp: time.Now().UTC()}, nil
}

// Transfers returns a copy of every recorded request.
func (s *SimulatedBridge) Transfers() []domain.BridgeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BridgeRequest, len(s.transfers))
	copy(out, s.transfers)
	return out
}
