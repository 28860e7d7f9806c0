// Package provision deploys the contracts under comparison and prepares
// them for the experiments.
package provision

import (
	"context"
	"fmt"

	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/blockchain/ethash"
	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// EthashArtifact is the artifact name of the Ethash contract.
const EthashArtifact = "Ethash"

// Source declares the behavior required to read the genesis block.
type Source interface {
	BlockByNumber(ctx context.Context, number uint64) (header.Block, error)
}

// Deployer declares the behavior required to deploy an artifact.
type Deployer interface {
	Deploy(ctx context.Context, art contract.Artifact, args ...any) (common.Address, *types.Receipt, error)
}

// ChainDeployer deploys artifacts to the target chain.
type ChainDeployer struct {
	Backend contract.Backend
	Signer  *contract.Signer
}

// Deploy implements the Deployer interface.
func (cd ChainDeployer) Deploy(ctx context.Context, art contract.Artifact, args ...any) (common.Address, *types.Receipt, error) {
	c, receipt, err := contract.Deploy(ctx, cd.Backend, cd.Signer, art, args...)
	if err != nil {
		return common.Address{}, receipt, err
	}

	return c.Address(), receipt, nil
}

// DeployConfig represents the settings for deploying the contracts.
type DeployConfig struct {
	Log          *zap.SugaredLogger
	Source       Source
	Deployer     Deployer
	ArtifactsDir string
	Genesis      uint64
}

// Deploy deploys the Ethash contract and the three relays. Every relay
// starts from the genesis block read from the source chain.
func Deploy(ctx context.Context, cfg DeployConfig) (*contract.Deployments, error) {
	genesis, err := cfg.Source.BlockByNumber(ctx, cfg.Genesis)
	if err != nil {
		return nil, fmt.Errorf("genesis block: %w", err)
	}
	if genesis.TotalDifficulty == nil {
		return nil, fmt.Errorf("genesis block %d has no total difficulty", cfg.Genesis)
	}

	rlpHeader, err := header.EncodeRLP(genesis)
	if err != nil {
		return nil, fmt.Errorf("encode genesis block: %w", err)
	}

	deployments := contract.NewDeployments()

	art, err := contract.LoadArtifact(cfg.ArtifactsDir, EthashArtifact)
	if err != nil {
		return nil, err
	}

	ethashAddr, receipt, err := cfg.Deployer.Deploy(ctx, art)
	if err != nil {
		return nil, err
	}
	deployments.Set(EthashArtifact, ethashAddr)
	cfg.Log.Infow("deploy", "contract", EthashArtifact, "address", ethashAddr.Hex(), "gas", receipt.GasUsed)

	for _, v := range relay.Variants {
		art, err := contract.LoadArtifact(cfg.ArtifactsDir, v.Artifact())
		if err != nil {
			return nil, err
		}

		addr, receipt, err := cfg.Deployer.Deploy(ctx, art, rlpHeader, genesis.TotalDifficulty, ethashAddr)
		if err != nil {
			return nil, err
		}
		deployments.Set(v.Artifact(), addr)
		cfg.Log.Infow("deploy", "contract", v.Artifact(), "address", addr.Hex(), "gas", receipt.GasUsed)
	}

	return deployments, nil
}

// SetupConfig represents the settings for preparing the contracts.
type SetupConfig struct {
	Log        *zap.SugaredLogger
	Ethash     ethash.Contract
	Optimistic *relay.Relay
	Optimized  *relay.Relay
	EpochDir   string
	Genesis    uint64
	NoOfBlocks uint64
	SkipNodes  uint64
}

// Setup provisions the epochs needed to verify the blocks following the
// genesis block and deposits the stake the optimistic relays require. The
// full relay needs no preparation.
func Setup(ctx context.Context, cfg SetupConfig) error {
	ev := func(v string, args ...any) {
		cfg.Log.Infow("setup", "status", fmt.Sprintf(v, args...))
	}

	first, last := ethash.EpochRange(cfg.Genesis, cfg.NoOfBlocks)
	ev("epochs[%d-%d]", first, last)

	for epoch := first; epoch <= last; epoch++ {
		ed, err := ethash.LoadEpoch(cfg.EpochDir, epoch)
		if err != nil {
			return err
		}

		skip := uint64(0)
		if epoch == first {
			skip = cfg.SkipNodes
		}

		gas, err := ethash.SubmitEpoch(ctx, cfg.Ethash, ed, skip, ev)
		if err != nil {
			return err
		}
		ev("epoch[%d]: provisioned: gas[%d]", epoch, gas)
	}

	for _, r := range []*relay.Relay{cfg.Optimistic, cfg.Optimized} {
		deposited, err := relay.EnsureStake(ctx, r, cfg.NoOfBlocks)
		if err != nil {
			return err
		}
		ev("relay[%s]: stake deposited[%s]", r.Variant(), deposited)
	}

	return nil
}
