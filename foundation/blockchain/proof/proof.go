// Package proof loads the merkle proofs of transaction inclusion used to
// exercise transaction verification on the relays.
package proof

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ardanlabs/relaybench/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
)

// Proof represents the proof file of a transaction as generated by the
// proof tooling. All values are hex encoded.
type Proof struct {
	BlockHash       string `json:"blockHash" validate:"required,hexadecimal"`
	RLPEncodedTx    string `json:"rlpEncodedTx" validate:"required,hexadecimal"`
	Path            string `json:"path" validate:"required,hexadecimal"`
	RLPEncodedNodes string `json:"rlpEncodedNodes" validate:"required,hexadecimal"`
}

// Load reads and validates the proof of the transaction from
// <dir>/<txhash>.json.
func Load(dir string, txHash common.Hash) (Proof, error) {
	path := filepath.Join(dir, txHash.Hex()+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return Proof{}, fmt.Errorf("read proof: %w", err)
	}

	var p Proof
	if err := json.Unmarshal(data, &p); err != nil {
		return Proof{}, fmt.Errorf("decode proof %s: %w", path, err)
	}

	if err := validate.Check(p); err != nil {
		return Proof{}, fmt.Errorf("validate proof %s: %w", path, err)
	}

	return p, nil
}

// Verification decodes the proof into the values sent to the relays. The
// RLP header is only required by relays that identify blocks by header.
func (p Proof) Verification(rlpHeader []byte) (relay.Verification, error) {
	hash, err := contract.DecodeHex(p.BlockHash)
	if err != nil {
		return relay.Verification{}, fmt.Errorf("block hash: %w", err)
	}
	if len(hash) != common.HashLength {
		return relay.Verification{}, fmt.Errorf("block hash: expected %d bytes, got %d", common.HashLength, len(hash))
	}

	tx, err := contract.DecodeHex(p.RLPEncodedTx)
	if err != nil {
		return relay.Verification{}, fmt.Errorf("rlp encoded tx: %w", err)
	}

	path, err := contract.DecodeHex(p.Path)
	if err != nil {
		return relay.Verification{}, fmt.Errorf("path: %w", err)
	}

	nodes, err := contract.DecodeHex(p.RLPEncodedNodes)
	if err != nil {
		return relay.Verification{}, fmt.Errorf("rlp encoded nodes: %w", err)
	}

	v := relay.Verification{
		BlockHash:       common.BytesToHash(hash),
		RLPHeader:       rlpHeader,
		RLPEncodedTx:    tx,
		Path:            path,
		RLPEncodedNodes: nodes,
	}

	return v, nil
}

// Hash returns the hash of the block the proof refers to.
func (p Proof) Hash() common.Hash {
	return common.HexToHash(p.BlockHash)
}
