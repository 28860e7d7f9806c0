package experiment

import (
	"context"
	"fmt"
)

// SubmissionColumns is the header of the submission results file.
var SubmissionColumns = []string{
	"run", "block_number", "block_hash",
	"branch_id_full", "branch_id_optimistic", "branch_id_optimized",
	"junction_full", "junction_optimistic", "junction_optimized",
	"main_chain_head_full", "main_chain_head_optimistic", "main_chain_head_optimized",
	"submit_full", "submit_optimistic", "submit_optimized",
	"verify_full", "verify_optimistic", "verify_optimized",
}

// Submission measures submission and verification costs while the relays
// grow from the start block. After every submission the branch the relay
// placed the header on and its main chain head are recorded.
func (e *Experiment) Submission(ctx context.Context, genesis uint64, start uint64, noOfBlocks uint64) (err error) {
	r, err := e.begin("submission", fmt.Sprintf("gas-costs_%d_%d_%d", genesis, start, noOfBlocks), SubmissionColumns)
	if err != nil {
		return err
	}
	defer func() { err = r.end(err) }()

	v, txHash, err := e.verification(ctx, genesis)
	if err != nil {
		return err
	}
	r.event("verification: tx[%s]", txHash.Hex())

	for run := uint64(0); run < noOfBlocks; run++ {
		number := start + run

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

			var (
				gas       [3]uint64
				branchIDs [3]string
				junctions [3]string
				heads     [3]string
			)

			for i, rl := range e.all() {
				submitted, err := submit(ctx, c, rl)
				if err != nil {
					return fmt.Errorf("run %d: %w", run, err)
				}
				gas[i] = submitted[0]

				info, err := rl.HeaderMetaInfo(ctx, b.Hash)
				if err != nil {
					return fmt.Errorf("run %d: %w", run, err)
				}
				branchIDs[i] = info.BranchID
				junctions[i] = info.Junction

				head, err := rl.MainChainHead(ctx)
				if err != nil {
					return fmt.Errorf("run %d: %w", run, err)
				}
				heads[i] = head
			}
			r.event("run[%d]: block[%s]: submit%v", run, b.Hash.Hex(), gas)

			verified, err := e.verify(ctx, v)
			if err != nil {
				return fmt.Errorf("run %d: %w", run, err)
			}
			r.event("run[%d]: block[%s]: verify%v", run, b.Hash.Hex(), verified)

			if err := r.row(
				run, number, b.Hash.Hex(),
				branchIDs[0], branchIDs[1], branchIDs[2],
				junctions[0], junctions[1], junctions[2],
				heads[0], heads[1], heads[2],
				gas[0], gas[1], gas[2],
				verified[0], verified[1], verified[2],
			); err != nil {
				return err
			}
		}
	}

	return nil
}
