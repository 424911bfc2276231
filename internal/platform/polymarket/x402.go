package polymarket

import (
	"context"
	"fmt"
	"sync"

	"github.com/signalvault/vaultagent/internal/domain"
)

// PaymentVerifier performs the per-call payment/authorization step required
// by the upstream data provider before any market fetch.
type PaymentVerifier interface {
	// Verify debits one call's fee. It returns domain.ErrUnauthorized when
	// the payment cannot be authorized; the caller must not fetch.
	Verify(ctx context.Context) error
}

// FeeStats is a snapshot of the cumulative per-call fee accounting.
type FeeStats struct {
	RequestsServed int     `json:"requests_served"`
	TotalFees      float64 `json:"total_fees"`
}

// FeeMeter is the x402-style micro-payment accounting used in front of every
// oracle fetch. Each Verify debits a fixed fee and counts the call; when a
// non-zero budget is configured, Verify fails once cumulative fees would
// exceed it.
type FeeMeter struct {
	mu         sync.Mutex
	feePerCall float64
	budget     float64 // 0 means unlimited
	totalFees  float64
	calls      int
}

// NewFeeMeter creates a FeeMeter charging feePerCall per request against an
// optional budget (0 disables the cap).
func NewFeeMeter(feePerCall, budget float64) *FeeMeter {
	return &FeeMeter{feePerCall: feePerCall, budget: budget}
}

// Verify implements PaymentVerifier.
func (m *FeeMeter) Verify(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.budget > 0 && m.totalFees+m.feePerCall > m.budget {
		return fmt.Errorf("polymarket/x402: fee budget %.3f exhausted: %w", m.budget, domain.ErrUnauthorized)
	}
	m.totalFees += m.feePerCall
	m.calls++
	return nil
}

// Stats returns the running count of authorized calls and cumulative fees.
func (m *FeeMeter) Stats() FeeStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return FeeStats{RequestsServed: m.calls, TotalFees: m.totalFees}
}
