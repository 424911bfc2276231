// Package circle implements the cross-network transfer collaborator on top
// of the Circle CCTP TokenMessenger contract: the asset is burned on the
// source network and minted to the recipient on the destination domain by
// the attestation service. A deterministic simulated implementation backs
// dry-run mode and tests.
package circle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/signalvault/vaultagent/internal/domain"
	"github.com/signalvault/vaultagent/internal/platform/arc"
)

// Config holds the CCTP contract parameters.
type Config struct {
	TokenMessenger string
	BurnToken      string // USDC contract on the source network
	AssetDecimals  int    // decimal count of the burn token
	GasLimit       uint64
}

// Bridge performs real CCTP burns through the TokenMessenger contract.
// Each Transfer is a single at-most-once attempt; failures are reported to
// the caller and never retried internally.
type Bridge struct {
	client    *arc.Client
	messenger common.Address
	burnToken common.Address
	decimals  int
	gasLimit  uint64
	logger    *slog.Logger
}

// NewBridge creates a Bridge bound to the given TokenMessenger deployment.
func NewBridge(client *arc.Client, cfg Config, logger *slog.Logger) *Bridge {
	return &Bridge{
		client:    client,
		messenger: common.HexToAddress(cfg.TokenMessenger),
		burnToken: common.HexToAddress(cfg.BurnToken),
		decimals:  cfg.AssetDecimals,
		gasLimit:  cfg.GasLimit,
		logger:    logger.With(slog.String("component", "bridge")),
	}
}

// Transfer burns req.Amount on the source network for minting to
// req.Recipient on req.DestinationDomain. It blocks until the burn
// transaction is mined and returns its hash as the transfer reference.
func (b *Bridge) Transfer(ctx context.Context, req domain.BridgeRequest) (domain.BridgeReceipt, error) {
	if req.Amount <= 0 {
		return domain.BridgeReceipt{}, fmt.Errorf("circle: transfer amount must be positive, got %v", req.Amount)
	}

	// Scale the unit-of-account amount into raw token units.
	raw, _ := new(big.Float).Mul(
		big.NewFloat(req.Amount),
		big.NewFloat(math.Pow10(b.decimals)),
	).Int(nil)

	// CCTP addresses recipients as left-padded bytes32.
	var recipient [32]byte
	copy(recipient[12:], common.HexToAddress(req.Recipient).Bytes())

	data, err := arc.MessengerABI().Pack("depositForBurn",
		raw, req.DestinationDomain, recipient, b.burnToken,
	)
	if err != nil {
		return domain.BridgeReceipt{}, fmt.Errorf("circle: pack depositForBurn: %w", err)
	}

	b.logger.InfoContext(ctx, "bridging",
		slog.Float64("amount", req.Amount),
		slog.Uint64("destination_domain", uint64(req.DestinationDomain)),
		slog.String("recipient", req.Recipient),
		slog.String("purpose", req.Purpose),
	)

	receipt, err := b.client.SendAndWait(ctx, b.messenger, data, b.gasLimit)
	if err != nil {
		return domain.BridgeReceipt{}, fmt.Errorf("circle: depositForBurn: %w: %v", domain.ErrSettlementFailed, err)
	}

	b.logger.InfoContext(ctx, "bridge burn mined",
		slog.String("tx_hash", receipt.TxHash.Hex()),
		slog.Uint64("block", receipt.BlockNumber.Uint64()),
		slog.Uint64("gas_used", receipt.GasUsed),
	)

	return domain.BridgeReceipt{
		TxRef:     receipt.TxHash.Hex(),
		Timestamp: time.Now().UTC(),
	}, nil
}
