package arc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// Vault is the on-chain vault contract collaborator. It settles positions
// by identifier and reports the vault's balance in the unit-of-account.
type Vault struct {
	client   *Client
	address  common.Address
	gasLimit uint64
	logger   *slog.Logger
}

// NewVault creates a Vault bound to the contract at address.
func NewVault(client *Client, address string, gasLimit uint64, logger *slog.Logger) *Vault {
	return &Vault{
		client:   client,
		address:  common.HexToAddress(address),
		gasLimit: gasLimit,
		logger:   logger.With(slog.String("component", "vault")),
	}
}

// Address returns the vault contract address.
func (v *Vault) Address() common.Address {
	return v.address
}

// SettlePosition calls settlePosition(positionId) on the vault contract and
// waits for the transaction to be mined. The position identifier must be a
// decimal unsigned integer, matching the contract's uint256 key space.
func (v *Vault) SettlePosition(ctx context.Context, positionID string) error {
	id, ok := new(big.Int).SetString(positionID, 10)
	if !ok {
		return fmt.Errorf("arc: settle position: invalid id %q", positionID)
	}

	data, err := vaultABI.Pack("settlePosition", id)
	if err != nil {
		return fmt.Errorf("arc: pack settlePosition: %w", err)
	}

	receipt, err := v.client.SendAndWait(ctx, v.address, data, v.gasLimit)
	if err != nil {
		return fmt.Errorf("arc: settle position %s: %w", positionID, err)
	}

	v.logger.InfoContext(ctx, "position settled on-chain",
		slog.String("position_id", positionID),
		slog.String("tx_hash", receipt.TxHash.Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
	)
	return nil
}

// Balance reads the vault contract's native balance, converted from wei to
// the unit-of-account.
func (v *Vault) Balance(ctx context.Context) (float64, error) {
	wei, err := v.client.BalanceAt(ctx, v.address)
	if err != nil {
		return 0, err
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	out, _ := f.Float64()
	return out, nil
}

// SimulatedVault is the deterministic test-double vault used in dry-run
// mode. Settlement always succeeds and the balance is fixed.
type SimulatedVault struct {
	mu      sync.Mutex
	balance float64
	settled []string
}

// NewSimulatedVault creates a SimulatedVault reporting the given balance.
func NewSimulatedVault(balance float64) *SimulatedVault {
	return &SimulatedVault{balance: balance}
}

// SettlePosition records the settlement and succeeds.
func (v *SimulatedVault) SettlePosition(ctx context.Context, positionID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.settled = append(v.settled, positionID)
	return nil
}

// Balance returns the configured balance.
func (v *SimulatedVault) Balance(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balance, nil
}

// SetBalance updates the reported balance.
func (v *SimulatedVault) SetBalance(balance float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balance = balance
}

// Settled returns the identifiers settled so far, in order.
func (v *SimulatedVault) Settled() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, len(v.settled))
	copy(out, v.settled)
	return out
}
