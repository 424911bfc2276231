package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// TxSigner signs transactions with the agent's secp256k1 key for a fixed
// chain.
type TxSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
}

// NewTxSigner creates a TxSigner from a hex-encoded private key (with or
// without 0x prefix) and the target chain ID.
func NewTxSigner(privateKeyHex string, chainID int64) (*TxSigner, error) {
	key, err := LoadKey(KeyConfig{RawPrivateKey: privateKeyHex})
	if err != nil {
		return nil, err
	}
	pk, err := ethcrypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("crypto/txsigner: invalid private key: %w", err)
	}
	return &TxSigner{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID:    big.NewInt(chainID),
	}, nil
}

// Address returns the agent address derived from the signing key.
func (s *TxSigner) Address() common.Address {
	return s.address
}

// ChainID returns the chain the signer produces signatures for.
func (s *TxSigner) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// SignTx signs a transaction with the chain's canonical signer.
func (s *TxSigner) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/txsigner: sign tx: %w", err)
	}
	return signed, nil
}
