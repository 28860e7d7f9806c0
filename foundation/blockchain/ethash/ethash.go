// Package ethash provides support for loading Ethash epoch data and
// provisioning it into the Ethash verification contract.
package ethash

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/validate"
	"github.com/ethereum/go-ethereum/core/types"
)

// Set of protocol values for provisioning epochs.
const (
	EpochLength = 30000
	ChunkSize   = 40
)

// EventHandler receives progress messages while epochs are submitted.
type EventHandler func(v string, args ...any)

// Contract represents the behavior required to send transactions to the
// Ethash contract.
type Contract interface {
	Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Receipt, error)
}

// EpochData represents the merkle tree data of a single Ethash epoch.
type EpochData struct {
	Epoch                   uint64             `json:"epoch"`
	FullSizeIn128Resolution *header.Quantity   `json:"fullSizeIn128Resolution" validate:"required"`
	BranchDepth             *header.Quantity   `json:"branchDepth" validate:"required"`
	MerkleNodes             []*header.Quantity `json:"merkleNodes" validate:"required,min=1,dive,required"`
}

// LoadEpoch reads and validates the epoch file <dir>/<epoch>.json.
func LoadEpoch(dir string, epoch uint64) (EpochData, error) {
	path := filepath.Join(dir, strconv.FormatUint(epoch, 10)+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return EpochData{}, fmt.Errorf("read epoch %d: %w", epoch, err)
	}

	var ed EpochData
	if err := json.Unmarshal(data, &ed); err != nil {
		return EpochData{}, fmt.Errorf("decode epoch %d: %w", epoch, err)
	}

	if err := validate.Check(ed); err != nil {
		return EpochData{}, fmt.Errorf("validate epoch %d: %w", epoch, err)
	}

	if ed.Epoch != epoch {
		return EpochData{}, fmt.Errorf("epoch file %s holds epoch %d", path, ed.Epoch)
	}

	return ed, nil
}

// EpochOf returns the epoch the block number belongs to.
func EpochOf(blockNumber uint64) uint64 {
	return blockNumber / EpochLength
}

// EpochRange returns the first and last epoch needed to verify the blocks
// following the genesis block.
func EpochRange(genesis uint64, noOfBlocks uint64) (first uint64, last uint64) {
	return EpochOf(genesis), EpochOf(genesis + noOfBlocks)
}

// Chunk represents a slice of the merkle nodes sent in one transaction.
type Chunk struct {
	Start uint64
	Nodes []*big.Int
}

// Chunks splits the merkle nodes into the chunks sent to the contract.
func Chunks(nodes []*header.Quantity) []Chunk {
	var chunks []Chunk
	for start := 0; start < len(nodes); start += ChunkSize {
		end := start + ChunkSize
		if end > len(nodes) {
			end = len(nodes)
		}

		values := make([]*big.Int, end-start)
		for i, n := range nodes[start:end] {
			values[i] = n.Big()
		}

		chunks = append(chunks, Chunk{Start: uint64(start), Nodes: values})
	}

	return chunks
}

// SubmitEpoch sends the epoch data to the Ethash contract in chunks. Chunks
// that end at or before skip nodes are considered already provisioned and
// are not sent. The total gas used is returned.
func SubmitEpoch(ctx context.Context, ethash Contract, ed EpochData, skip uint64, ev EventHandler) (uint64, error) {
	if ev == nil {
		ev = func(string, ...any) {}
	}

	chunks := Chunks(ed.MerkleNodes)

	var gasUsed uint64
	for i, chunk := range chunks {
		end := chunk.Start + uint64(len(chunk.Nodes))
		if end <= skip {
			continue
		}

		if err := ctx.Err(); err != nil {
			return gasUsed, err
		}

		receipt, err := ethash.Transact(ctx, nil, "setEpochData",
			ed.Epoch,
			ed.FullSizeIn128Resolution,
			ed.BranchDepth,
			chunk.Nodes,
			chunk.Start,
			len(chunk.Nodes),
		)
		if err != nil {
			return gasUsed, fmt.Errorf("epoch %d chunk %d: %w", ed.Epoch, i, err)
		}
		gasUsed += receipt.GasUsed

		ev("ethash: epoch[%d]: chunk[%d/%d]: nodes[%d-%d]: gas[%d]", ed.Epoch, i+1, len(chunks), chunk.Start, end, receipt.GasUsed)
	}

	return gasUsed, nil
}
