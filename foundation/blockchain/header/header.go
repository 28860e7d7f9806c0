// Package header provides the block header model used across the harness and
// its RLP encoding as the relay contracts expect it.
package header

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Block represents a block as it is stored in the header database and
// returned by the source chain. Field names follow the JSON-RPC block object.
type Block struct {
	Hash             common.Hash      `json:"hash"`
	ParentHash       common.Hash      `json:"parentHash"`
	Sha3Uncles       common.Hash      `json:"sha3Uncles"`
	Miner            common.Address   `json:"miner"`
	StateRoot        common.Hash      `json:"stateRoot"`
	TransactionsRoot common.Hash      `json:"transactionsRoot"`
	ReceiptsRoot     common.Hash      `json:"receiptsRoot"`
	LogsBloom        types.Bloom      `json:"logsBloom"`
	Difficulty       *Quantity        `json:"difficulty"`
	Number           *Quantity        `json:"number"`
	GasLimit         *Quantity        `json:"gasLimit"`
	GasUsed          *Quantity        `json:"gasUsed"`
	Timestamp        *Quantity        `json:"timestamp"`
	ExtraData        hexutil.Bytes    `json:"extraData"`
	MixHash          common.Hash      `json:"mixHash"`
	Nonce            types.BlockNonce `json:"nonce"`
	TotalDifficulty  *Quantity        `json:"totalDifficulty,omitempty"`
	Transactions     TxList           `json:"transactions,omitempty"`
}

// Decode parses a block from its JSON representation.
func Decode(data []byte) (Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return Block{}, fmt.Errorf("decoding block: %w", err)
	}
	return b, nil
}

// NumberU64 returns the block number. A block without a number reports 0.
func (b Block) NumberU64() uint64 {
	n, err := b.Number.Uint64()
	if err != nil {
		return 0
	}
	return n
}

// sealFields returns the header fields that make up the seal hash, which is
// everything except the mix hash and the nonce.
func (b Block) sealFields() ([]any, error) {
	quantities := []struct {
		name string
		q    *Quantity
	}{
		{"difficulty", b.Difficulty},
		{"number", b.Number},
		{"gasLimit", b.GasLimit},
		{"gasUsed", b.GasUsed},
		{"timestamp", b.Timestamp},
	}

	values := make([]*big.Int, len(quantities))
	for i, f := range quantities {
		if f.q == nil {
			return nil, fmt.Errorf("block %s: missing %s", b.Hash.Hex(), f.name)
		}
		values[i] = f.q.Big()
	}

	fields := []any{
		b.ParentHash,
		b.Sha3Uncles,
		b.Miner,
		b.StateRoot,
		b.TransactionsRoot,
		b.ReceiptsRoot,
		b.LogsBloom,
		values[0],
		values[1],
		values[2],
		values[3],
		values[4],
		[]byte(b.ExtraData),
	}

	return fields, nil
}

// EncodeRLP returns the RLP encoding of the 15 consensus fields of the
// header. This is the form the relay contracts accept for submission.
func EncodeRLP(b Block) ([]byte, error) {
	fields, err := b.sealFields()
	if err != nil {
		return nil, err
	}

	fields = append(fields, b.MixHash, b.Nonce)

	return rlp.EncodeToBytes(fields)
}

// EncodeRLPWithoutNonce returns the RLP encoding of the header without the
// mix hash and the nonce.
func EncodeRLPWithoutNonce(b Block) ([]byte, error) {
	fields, err := b.sealFields()
	if err != nil {
		return nil, err
	}

	return rlp.EncodeToBytes(fields)
}

// Hash calculates the block hash from the header fields.
func Hash(b Block) (common.Hash, error) {
	enc, err := EncodeRLP(b)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(enc), nil
}

// VerifyHash checks the block's reported hash against the one calculated
// from its fields.
func VerifyHash(b Block) error {
	h, err := Hash(b)
	if err != nil {
		return err
	}

	if h != b.Hash {
		return fmt.Errorf("%w: got %s, exp %s", ErrHashMismatch, h.Hex(), b.Hash.Hex())
	}

	return nil
}

// ErrHashMismatch is returned when a block's fields do not hash to its
// reported hash.
var ErrHashMismatch = errors.New("block hash mismatch")
