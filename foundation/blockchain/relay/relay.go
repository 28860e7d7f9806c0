// Package relay provides access to the three relay contract designs the
// harness compares. Every design accepts block headers and verifies
// transactions against them but differs in how headers are validated.
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Variant identifies a relay design.
type Variant string

// Set of relay designs.
const (
	Full       Variant = "full"
	Optimistic Variant = "optimistic"
	Optimized  Variant = "optimized"
)

// Variants lists the designs in the order results are reported.
var Variants = []Variant{Full, Optimistic, Optimized}

// Artifact returns the artifact name of the contract implementing the design.
func (v Variant) Artifact() string {
	switch v {
	case Full:
		return "TestimoniumFull"
	case Optimistic:
		return "TestimoniumOptimistic"
	case Optimized:
		return "TestimoniumOptimized"
	}
	return ""
}

// ErrUnsupported is returned when a design does not support an operation.
var ErrUnsupported = errors.New("operation not supported by relay")

// VerificationFee is the fee paid for every transaction verification.
var VerificationFee = big.NewInt(100000000000000000)

// Confirmations is the number of confirmations required when verifying.
const Confirmations = 0

// Contract represents the behavior required of a bound relay contract.
type Contract interface {
	Address() common.Address
	Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Receipt, error)
	EstimateGas(ctx context.Context, value *big.Int, method string, args ...any) (uint64, error)
	Call(ctx context.Context, method string, args ...any) (map[string]any, error)
}

// Witness represents the Ethash data needed to validate the proof of work
// of a header.
type Witness struct {
	DatasetLookup    []*big.Int
	WitnessForLookup []*big.Int
}

// Verification represents a transaction inclusion proof.
type Verification struct {
	BlockHash       common.Hash
	RLPHeader       []byte
	RLPEncodedTx    []byte
	Path            []byte
	RLPEncodedNodes []byte
}

// Dispute represents the data needed to dispute a submitted header.
type Dispute struct {
	BlockHash common.Hash
	RLPHeader []byte
	RLPParent []byte
	Witness   Witness
}

// MetaInfo represents what the relay knows about a submitted header.
type MetaInfo struct {
	BranchID string
	Junction string
}

// Relay provides access to a deployed relay contract.
type Relay struct {
	variant  Variant
	contract Contract
}

// New constructs a relay of the specified design.
func New(variant Variant, contract Contract) (*Relay, error) {
	if variant.Artifact() == "" {
		return nil, fmt.Errorf("unknown relay variant %q", variant)
	}

	return &Relay{variant: variant, contract: contract}, nil
}

// Variant returns the design of the relay.
func (r *Relay) Variant() Variant {
	return r.variant
}

// Address returns the address of the relay contract.
func (r *Relay) Address() common.Address {
	return r.contract.Address()
}

// SubmitBlock submits the RLP encoded header and returns the gas used. Only
// the full design validates the proof of work on submission and requires
// the witness.
func (r *Relay) SubmitBlock(ctx context.Context, rlpHeader []byte, w Witness) (uint64, error) {
	var args []any
	switch r.variant {
	case Full:
		args = []any{rlpHeader, w.DatasetLookup, w.WitnessForLookup}
	default:
		args = []any{rlpHeader}
	}

	receipt, err := r.contract.Transact(ctx, nil, "submitBlock", args...)
	if err != nil {
		return 0, fmt.Errorf("%s: submit: %w", r.variant, err)
	}

	return receipt.GasUsed, nil
}

// VerifyTransaction verifies the transaction proof paying the verification
// fee and returns the gas used. The optimized design identifies the block by
// its RLP header instead of its hash.
func (r *Relay) VerifyTransaction(ctx context.Context, v Verification) (uint64, error) {
	var block any = v.BlockHash
	if r.variant == Optimized {
		if len(v.RLPHeader) == 0 {
			return 0, fmt.Errorf("%s: verify: missing rlp header", r.variant)
		}
		block = v.RLPHeader
	}

	receipt, err := r.contract.Transact(ctx, VerificationFee, "verifyTransaction",
		VerificationFee,
		block,
		Confirmations,
		v.RLPEncodedTx,
		v.Path,
		v.RLPEncodedNodes,
	)
	if err != nil {
		return 0, fmt.Errorf("%s: verify: %w", r.variant, err)
	}

	return receipt.GasUsed, nil
}

// Dispute sends a dispute of the header and returns the gas used.
func (r *Relay) Dispute(ctx context.Context, d Dispute) (uint64, error) {
	args, err := r.disputeArgs(d)
	if err != nil {
		return 0, err
	}

	receipt, err := r.contract.Transact(ctx, nil, "disputeBlockHeader", args...)
	if err != nil {
		return 0, fmt.Errorf("%s: dispute: %w", r.variant, err)
	}

	return receipt.GasUsed, nil
}

// EstimateDispute returns the gas a dispute of the header would use without
// sending it, which leaves the header in place for the following runs.
func (r *Relay) EstimateDispute(ctx context.Context, d Dispute) (uint64, error) {
	args, err := r.disputeArgs(d)
	if err != nil {
		return 0, err
	}

	gas, err := r.contract.EstimateGas(ctx, nil, "disputeBlockHeader", args...)
	if err != nil {
		return 0, fmt.Errorf("%s: estimate dispute: %w", r.variant, err)
	}

	return gas, nil
}

func (r *Relay) disputeArgs(d Dispute) ([]any, error) {
	switch r.variant {
	case Optimistic:
		return []any{d.BlockHash, d.Witness.DatasetLookup, d.Witness.WitnessForLookup}, nil
	case Optimized:
		return []any{d.RLPHeader, d.RLPParent, d.Witness.DatasetLookup, d.Witness.WitnessForLookup}, nil
	}
	return nil, fmt.Errorf("%s: dispute: %w", r.variant, ErrUnsupported)
}

// HeaderMetaInfo returns the branch id and junction the relay recorded for
// the header.
func (r *Relay) HeaderMetaInfo(ctx context.Context, blockHash common.Hash) (MetaInfo, error) {
	out, err := r.contract.Call(ctx, "getHeaderMetaInfo", blockHash)
	if err != nil {
		return MetaInfo{}, fmt.Errorf("%s: meta info: %w", r.variant, err)
	}

	branchID, err := output(out, "forkId")
	if err != nil {
		return MetaInfo{}, fmt.Errorf("%s: meta info: %w", r.variant, err)
	}
	junction, err := output(out, "latestFork")
	if err != nil {
		return MetaInfo{}, fmt.Errorf("%s: meta info: %w", r.variant, err)
	}

	return MetaInfo{
		BranchID: format(branchID),
		Junction: format(junction),
	}, nil
}

// MainChainHead returns the hash of the end of the longest chain.
func (r *Relay) MainChainHead(ctx context.Context) (string, error) {
	out, err := r.contract.Call(ctx, "longestChainEndpoint")
	if err != nil {
		return "", fmt.Errorf("%s: main chain head: %w", r.variant, err)
	}

	head, err := output(out, "out0")
	if err != nil {
		return "", fmt.Errorf("%s: main chain head: %w", r.variant, err)
	}

	return format(head), nil
}

// Stake returns the stake deposited by the sending account.
func (r *Relay) Stake(ctx context.Context) (*big.Int, error) {
	return r.callBig(ctx, "getStake")
}

// RequiredStakePerBlock returns the stake required for every submitted block.
func (r *Relay) RequiredStakePerBlock(ctx context.Context) (*big.Int, error) {
	return r.callBig(ctx, "getRequiredStakePerBlock")
}

// DepositStake deposits the amount as stake and returns the gas used.
func (r *Relay) DepositStake(ctx context.Context, amount *big.Int) (uint64, error) {
	receipt, err := r.contract.Transact(ctx, amount, "depositStake", amount)
	if err != nil {
		return 0, fmt.Errorf("%s: deposit stake: %w", r.variant, err)
	}

	return receipt.GasUsed, nil
}

func (r *Relay) callBig(ctx context.Context, method string) (*big.Int, error) {
	out, err := r.contract.Call(ctx, method)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", r.variant, method, err)
	}

	v, ok := out["out0"].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: %s: unexpected output %T", r.variant, method, out["out0"])
	}

	return v, nil
}

// EnsureStake deposits the stake required to submit the number of blocks
// and returns the amount deposited. Nothing is deposited when the current
// stake already covers the requirement.
func EnsureStake(ctx context.Context, r *Relay, noOfBlocks uint64) (*big.Int, error) {
	stake, err := r.Stake(ctx)
	if err != nil {
		return nil, err
	}

	perBlock, err := r.RequiredStakePerBlock(ctx)
	if err != nil {
		return nil, err
	}

	required := new(big.Int).Sub(perBlock, stake)
	required.Mul(required, new(big.Int).SetUint64(noOfBlocks))
	if required.Sign() <= 0 {
		return new(big.Int), nil
	}

	if _, err := r.DepositStake(ctx, required); err != nil {
		return nil, err
	}

	return required, nil
}

// output returns the named output of a call. The relay ABIs must name the
// outputs the results are built from.
func output(out map[string]any, name string) (any, error) {
	v, exists := out[name]
	if !exists || v == nil {
		return nil, fmt.Errorf("output %q missing from abi", name)
	}
	return v, nil
}

// format renders contract outputs the way they are written to results.
func format(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case [32]byte:
		return common.Hash(v).Hex()
	case common.Hash:
		return v.Hex()
	case []byte:
		return fmt.Sprintf("0x%x", v)
	case *big.Int:
		return v.String()
	}
	return fmt.Sprint(v)
}
