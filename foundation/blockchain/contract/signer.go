package contract

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds the account and the gas settings used for every transaction
// the harness sends.
type Signer struct {
	key       *ecdsa.PrivateKey
	chainID   *big.Int
	gasPrice  *big.Int
	deployGas uint64
}

// SignerConfig represents the settings for a signer.
type SignerConfig struct {
	Key       *ecdsa.PrivateKey
	ChainID   *big.Int
	GasPrice  *big.Int
	DeployGas uint64
}

// NewSigner constructs a signer. A nil gas price leaves the choice to the
// node and a zero deploy gas lets deployments be estimated.
func NewSigner(cfg SignerConfig) *Signer {
	return &Signer{
		key:       cfg.Key,
		chainID:   cfg.ChainID,
		gasPrice:  cfg.GasPrice,
		deployGas: cfg.DeployGas,
	}
}

// From returns the address of the signing account.
func (s *Signer) From() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// transactOpts builds the options for a single transaction. The nonce is
// left for the binding to resolve since every transaction is mined before
// the next one is sent.
func (s *Signer) transactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, err
	}

	opts.Context = ctx
	opts.Value = value
	if s.gasPrice != nil {
		opts.GasPrice = new(big.Int).Set(s.gasPrice)
	}

	return opts, nil
}
