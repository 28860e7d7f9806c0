package experiment

import (
	"context"
	"fmt"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
)

// DisputeColumns is the header of the dispute results file.
var DisputeColumns = []string{"run", "block_number", "dispute_optimistic", "dispute_optimized"}

// Dispute measures the cost of disputing the block after the genesis block
// as the chains on the optimistic relays grow. Run r extends the chains up
// to height start+r, submitting only heights not submitted by an earlier
// run, and then disputes the block on both relays.
func (e *Experiment) Dispute(ctx context.Context, genesis uint64, start uint64, noOfBlocks uint64) (err error) {
	r, err := e.begin("dispute", fmt.Sprintf("dispute_%d_%d_%d", genesis, start, noOfBlocks), DisputeColumns)
	if err != nil {
		return err
	}
	defer func() { err = r.end(err) }()

	d, err := e.disputeData(ctx, genesis)
	if err != nil {
		return err
	}
	r.event("dispute: block[%s]", d.BlockHash.Hex())

	next := start
	for run := uint64(0); run < noOfBlocks; run++ {
		end := start + run

		for ; next <= end; next++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			n, err := e.submitHeight(ctx, next)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			r.event("run[%d]: height[%d]: submitted[%d]", run, next, n)
		}

		disputeOptimistic, err := e.relays.Optimistic.Dispute(ctx, d)
		if err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
		disputeOptimized, err := e.relays.Optimized.Dispute(ctx, d)
		if err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
		r.event("run[%d]: dispute[%d %d]", run, disputeOptimistic, disputeOptimized)

		if err := r.row(run, end, disputeOptimistic, disputeOptimized); err != nil {
			return err
		}
	}

	return nil
}

// disputeData builds the dispute of the first stored block after the
// genesis block.
func (e *Experiment) disputeData(ctx context.Context, genesis uint64) (relay.Dispute, error) {
	blocks, err := e.store.BlocksOfHeight(ctx, genesis+1)
	if err != nil {
		return relay.Dispute{}, fmt.Errorf("dispute block: %w", err)
	}
	if len(blocks) == 0 {
		return relay.Dispute{}, fmt.Errorf("no stored block at height %d to dispute", genesis+1)
	}

	c, err := e.prepare(ctx, blocks[0])
	if err != nil {
		return relay.Dispute{}, fmt.Errorf("dispute block: %w", err)
	}

	parent, err := e.store.Parent(ctx, blocks[0])
	if err != nil {
		return relay.Dispute{}, fmt.Errorf("dispute block: %w", err)
	}

	rlpParent, err := header.EncodeRLP(parent)
	if err != nil {
		return relay.Dispute{}, fmt.Errorf("encode dispute parent: %w", err)
	}

	d := relay.Dispute{
		BlockHash: c.block.Hash,
		RLPHeader: c.rlpHeader,
		RLPParent: rlpParent,
		Witness:   c.witness,
	}

	return d, nil
}

// submitHeight submits every stored block of the height to the optimistic
// relays and returns the number of blocks submitted.
func (e *Experiment) submitHeight(ctx context.Context, number uint64) (int, error) {
	blocks, err := e.store.BlocksOfHeight(ctx, number)
	if err != nil {
		return 0, err
	}

	for _, b := range blocks {
		rlpHeader, err := header.EncodeRLP(b)
		if err != nil {
			return 0, fmt.Errorf("encode block %s: %w", b.Hash.Hex(), err)
		}

		c := candidate{block: b, rlpHeader: rlpHeader}
		if _, err := submit(ctx, c, e.relays.Optimistic, e.relays.Optimized); err != nil {
			return 0, err
		}
	}

	return len(blocks), nil
}
