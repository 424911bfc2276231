// Package arc wraps the source-network RPC connection: log queries for the
// notification poller, vault balance reads, and signed transaction
// submission for settlement and bridging.
package arc

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/signalvault/vaultagent/internal/crypto"
)

// receiptPollInterval is how often SendAndWait polls for a mined receipt.
const receiptPollInterval = 2 * time.Second

// Client is the agent's connection to the source network.
type Client struct {
	eth    *ethclient.Client
	signer *crypto.TxSigner
	logger *slog.Logger
}

// Dial connects to the RPC endpoint and verifies the chain is reachable.
// signer may be nil for read-only use (dry-run bridging).
func Dial(ctx context.Context, rpcURL string, signer *crypto.TxSigner, logger *slog.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("arc: dial %s: %w", rpcURL, err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("arc: chain id: %w", err)
	}

	c := &Client{
		eth:    eth,
		signer: signer,
		logger: logger.With(slog.String("component", "arc")),
	}
	c.logger.InfoContext(ctx, "connected",
		slog.String("rpc_url", rpcURL),
		slog.String("chain_id", chainID.String()),
	)
	return c, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("arc: block number: %w", err)
	}
	return n, nil
}

// FilterLogs queries logs for the given contract and topics in the
// inclusive block range [from, to].
func (c *Client) FilterLogs(ctx context.Context, contract common.Address, topics [][]common.Hash, from, to uint64) ([]types.Log, error) {
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{contract},
		Topics:    topics,
	}
	logs, err := c.eth.FilterLogs(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("arc: filter logs %d-%d: %w", from, to, err)
	}
	return logs, nil
}

// BalanceAt returns an account's native balance in wei.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	bal, err := c.eth.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("arc: balance of %s: %w", account.Hex(), err)
	}
	return bal, nil
}

// SendAndWait builds, signs, and broadcasts a transaction carrying data to
// the given contract, then blocks until it is mined. It returns the receipt
// or an error when the transaction reverts or the context expires.
func (c *Client) SendAndWait(ctx context.Context, to common.Address, data []byte, gasLimit uint64) (*types.Receipt, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("arc: no signer configured")
	}

	from := c.signer.Address()
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("arc: pending nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("arc: suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.signer.SignTx(tx)
	if err != nil {
		return nil, err
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("arc: send transaction: %w", err)
	}

	c.logger.InfoContext(ctx, "transaction submitted",
		slog.String("tx_hash", signed.Hash().Hex()),
		slog.String("to", to.Hex()),
	)

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("arc: transaction %s reverted", signed.Hash().Hex())
	}
	return receipt, nil
}

// waitMined polls for the transaction receipt until the context expires.
func (c *Client) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("arc: waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
