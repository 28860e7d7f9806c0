package experiment

import (
	"context"
	"fmt"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
)

// EvaluateColumns is the header of the evaluation results file.
var EvaluateColumns = []string{
	"run", "block_number",
	"submit_full", "submit_optimistic", "submit_optimized",
	"verify_full", "verify_optimistic", "verify_optimized",
	"dispute_optimistic", "dispute_optimized",
}

// Evaluate measures submission, verification and dispute costs for the
// blocks following the genesis block. Every stored block of a height,
// forks included, produces a row. Disputes are estimated so the headers
// stay in place for the following runs.
func (e *Experiment) Evaluate(ctx context.Context, genesis uint64, noOfBlocks uint64) (err error) {
	r, err := e.begin("evaluate", fmt.Sprintf("gas-costs_%d_%d", genesis, noOfBlocks), EvaluateColumns)
	if err != nil {
		return err
	}
	defer func() { err = r.end(err) }()

	v, txHash, err := e.verification(ctx, genesis)
	if err != nil {
		return err
	}
	r.event("verification: tx[%s]", txHash.Hex())

	for run := uint64(1); run <= noOfBlocks; run++ {
		number := genesis + run

		blocks, err := e.store.BlocksOfHeight(ctx, number)
		if err != nil {
			return fmt.Errorf("run %d: %w", run, err)
		}
		r.event("run[%d]: height[%d]: blocks[%d]", run, number, len(blocks))

		for _, b := range blocks {
			if err := ctx.Err(); err != nil {
				return err
			}

			c, err := e.prepare(ctx, b)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}

			parent, err := e.store.Parent(ctx, b)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			rlpParent, err := header.EncodeRLP(parent)
			if err != nil {
				return fmt.Errorf("run %d: encode parent: %w", run, err)
			}

			submitted, err := submit(ctx, c, e.relays.Full, e.relays.Optimistic, e.relays.Optimized)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			r.event("run[%d]: block[%s]: submit%v", run, b.Hash.Hex(), submitted)

			verified, err := e.verify(ctx, v)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			r.event("run[%d]: block[%s]: verify%v", run, b.Hash.Hex(), verified)

			d := relay.Dispute{
				BlockHash: b.Hash,
				RLPHeader: c.rlpHeader,
				RLPParent: rlpParent,
				Witness:   c.witness,
			}

			disputeOptimistic, err := e.relays.Optimistic.EstimateDispute(ctx, d)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			disputeOptimized, err := e.relays.Optimized.EstimateDispute(ctx, d)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			r.event("run[%d]: block[%s]: dispute[%d %d]", run, b.Hash.Hex(), disputeOptimistic, disputeOptimized)

			if err := r.row(
				run, number,
				submitted[0], submitted[1], submitted[2],
				verified[0], verified[1], verified[2],
				disputeOptimistic, disputeOptimized,
			); err != nil {
				return err
			}
		}
	}

	return nil
}
