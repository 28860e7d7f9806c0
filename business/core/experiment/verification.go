package experiment

import (
	"context"
	"fmt"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/proof"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ethereum/go-ethereum/common"
)

// verification loads the proof of the first transaction of the block after
// the genesis block. The optimized relay needs the RLP header of the proof's
// block, which is read from the source chain.
func (e *Experiment) verification(ctx context.Context, genesis uint64) (relay.Verification, common.Hash, error) {
	txHashes, err := e.source.TransactionHashes(ctx, genesis+1)
	if err != nil {
		return relay.Verification{}, common.Hash{}, fmt.Errorf("verification block: %w", err)
	}

	if len(txHashes) == 0 {
		return relay.Verification{}, common.Hash{}, fmt.Errorf("verification block %d has no transactions", genesis+1)
	}
	txHash := txHashes[0]

	p, err := proof.Load(e.proofDir, txHash)
	if err != nil {
		return relay.Verification{}, common.Hash{}, err
	}

	proofBlock, err := e.source.BlockByHash(ctx, p.Hash())
	if err != nil {
		return relay.Verification{}, common.Hash{}, fmt.Errorf("proof block: %w", err)
	}

	rlpHeader, err := header.EncodeRLP(proofBlock)
	if err != nil {
		return relay.Verification{}, common.Hash{}, fmt.Errorf("encode proof block: %w", err)
	}

	v, err := p.Verification(rlpHeader)
	if err != nil {
		return relay.Verification{}, common.Hash{}, fmt.Errorf("proof %s: %w", txHash.Hex(), err)
	}

	return v, txHash, nil
}
