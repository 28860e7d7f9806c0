package ethash_test

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/relaybench/foundation/blockchain/ethash"
	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type call struct {
	method string
	args   []any
}

type fakeEthash struct {
	calls []call
}

func (f *fakeEthash) Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	f.calls = append(f.calls, call{method: method, args: args})
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 100}, nil
}

func epochData(epoch uint64, nodes int) ethash.EpochData {
	ed := ethash.EpochData{
		Epoch:                   epoch,
		FullSizeIn128Resolution: header.NewQuantity(8388593),
		BranchDepth:             header.NewQuantity(23),
	}
	for i := 0; i < nodes; i++ {
		ed.MerkleNodes = append(ed.MerkleNodes, header.NewQuantity(uint64(i)))
	}
	return ed
}

// =============================================================================

func Test_EpochRange(t *testing.T) {
	type table struct {
		name    string
		genesis uint64
		blocks  uint64
		first   uint64
		last    uint64
	}

	tt := []table{
		{name: "single", genesis: 9121452, blocks: 100, first: 304, last: 304},
		{name: "span", genesis: 9119950, blocks: 100, first: 303, last: 304},
		{name: "boundary", genesis: 29999, blocks: 1, first: 0, last: 1},
	}

	t.Log("Given the need to know the epochs a run requires.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				first, last := ethash.EpochRange(tst.genesis, tst.blocks)
				if first != tst.first || last != tst.last {
					t.Logf("\t\tTest %d:\tgot: %d-%d", testID, first, last)
					t.Logf("\t\tTest %d:\texp: %d-%d", testID, tst.first, tst.last)
					t.Fatalf("\t%s\tTest %d:\tShould get the right epoch range.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get the right epoch range.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_SubmitEpoch(t *testing.T) {
	type table struct {
		name   string
		nodes  int
		skip   uint64
		starts []uint64
		last   int
	}

	tt := []table{
		{name: "all", nodes: 100, starts: []uint64{0, 40, 80}, last: 20},
		{name: "exact", nodes: 80, starts: []uint64{0, 40}, last: 40},
		{name: "skip", nodes: 100, skip: 40, starts: []uint64{40, 80}, last: 20},
		{name: "partial", nodes: 100, skip: 50, starts: []uint64{40, 80}, last: 20},
		{name: "done", nodes: 100, skip: 100},
	}

	t.Log("Given the need to provision epoch data in chunks.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				var fake fakeEthash
				gas, err := ethash.SubmitEpoch(context.Background(), &fake, epochData(304, tst.nodes), tst.skip, nil)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to submit the epoch: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould be able to submit the epoch.", success, testID)

				if len(fake.calls) != len(tst.starts) {
					t.Logf("\t\tTest %d:\tgot: %d", testID, len(fake.calls))
					t.Logf("\t\tTest %d:\texp: %d", testID, len(tst.starts))
					t.Fatalf("\t%s\tTest %d:\tShould send the right number of chunks.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould send the right number of chunks.", success, testID)

				if gas != uint64(100*len(tst.starts)) {
					t.Fatalf("\t%s\tTest %d:\tShould sum the gas used: got %d", failed, testID, gas)
				}
				t.Logf("\t%s\tTest %d:\tShould sum the gas used.", success, testID)

				for i, c := range fake.calls {
					if c.method != "setEpochData" || len(c.args) != 6 {
						t.Fatalf("\t%s\tTest %d:\tShould call setEpochData with six arguments.", failed, testID)
					}
					if start := c.args[4].(uint64); start != tst.starts[i] {
						t.Logf("\t\tTest %d:\tgot: %d", testID, start)
						t.Logf("\t\tTest %d:\texp: %d", testID, tst.starts[i])
						t.Fatalf("\t%s\tTest %d:\tShould advance the start by the chunk length.", failed, testID)
					}
				}
				if n := len(fake.calls); n > 0 {
					if got := fake.calls[n-1].args[5].(int); got != tst.last {
						t.Fatalf("\t%s\tTest %d:\tShould send the remaining nodes last: got %d", failed, testID, got)
					}
				}
				t.Logf("\t%s\tTest %d:\tShould send the chunks in order.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_LoadEpoch(t *testing.T) {
	dir := t.TempDir()

	good := map[string]any{
		"epoch":                   304,
		"fullSizeIn128Resolution": 25165813,
		"branchDepth":             "25",
		"merkleNodes":             []string{"0x01", "12345678901234567890123456789"},
	}
	data, _ := json.Marshal(good)
	os.WriteFile(filepath.Join(dir, "304.json"), data, 0644)

	bad := map[string]any{"epoch": 305, "fullSizeIn128Resolution": 1, "branchDepth": 1, "merkleNodes": []string{}}
	data, _ = json.Marshal(bad)
	os.WriteFile(filepath.Join(dir, "305.json"), data, 0644)

	t.Log("Given the need to load epoch files.")
	{
		ed, err := ethash.LoadEpoch(dir, 304)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the epoch: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the epoch.", success)

		if len(ed.MerkleNodes) != 2 || ed.MerkleNodes[1].String() != "12345678901234567890123456789" {
			t.Fatalf("\t%s\tShould decode large merkle nodes.", failed)
		}
		t.Logf("\t%s\tShould decode large merkle nodes.", success)

		if _, err := ethash.LoadEpoch(dir, 305); err == nil {
			t.Fatalf("\t%s\tShould reject an epoch without merkle nodes.", failed)
		}
		t.Logf("\t%s\tShould reject an epoch without merkle nodes.", success)

		if _, err := ethash.LoadEpoch(dir, 306); err == nil {
			t.Fatalf("\t%s\tShould get an error for a missing epoch file.", failed)
		}
		t.Logf("\t%s\tShould get an error for a missing epoch file.", success)
	}
}

func Test_LoadWitness(t *testing.T) {
	dir := t.TempDir()

	hash := common.HexToHash("0x4f3a5d9a1e7c2b1b0d4e7d0a1ce0f3f0d6d5c4b3a29180706050403020100ff0")
	other := common.HexToHash("0x01")

	good := map[string]any{
		"blockHash":        hash.Hex(),
		"datasetLookup":    []string{"0x10", "20"},
		"witnessForLookup": []any{1, "0x02", "340282366920938463463374607431768211456"},
	}
	data, _ := json.Marshal(good)
	os.WriteFile(filepath.Join(dir, hash.Hex()+".json"), data, 0644)

	wrong := map[string]any{
		"blockHash":        hash.Hex(),
		"datasetLookup":    []string{"1"},
		"witnessForLookup": []string{"2"},
	}
	data, _ = json.Marshal(wrong)
	os.WriteFile(filepath.Join(dir, other.Hex()+".json"), data, 0644)

	t.Log("Given the need to load witness files.")
	{
		w, err := ethash.LoadWitness(dir, hash)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to load the witness: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to load the witness.", success)

		if len(w.DatasetLookup) != 2 || w.DatasetLookup[0].Int64() != 16 || w.DatasetLookup[1].Int64() != 20 {
			t.Fatalf("\t%s\tShould decode the dataset lookup : %v", failed, w.DatasetLookup)
		}
		t.Logf("\t%s\tShould decode the dataset lookup.", success)

		want, _ := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
		if len(w.WitnessForLookup) != 3 || w.WitnessForLookup[2].Cmp(want) != 0 {
			t.Fatalf("\t%s\tShould decode the witness for lookup : %v", failed, w.WitnessForLookup)
		}
		t.Logf("\t%s\tShould decode the witness for lookup.", success)

		if _, err := ethash.LoadWitness(dir, other); err == nil {
			t.Fatalf("\t%s\tShould reject a file holding another block.", failed)
		}
		t.Logf("\t%s\tShould reject a file holding another block.", success)

		if _, err := ethash.LoadWitness(dir, common.HexToHash("0x02")); err == nil {
			t.Fatalf("\t%s\tShould get an error for a missing witness file.", failed)
		}
		t.Logf("\t%s\tShould get an error for a missing witness file.", success)
	}
}
