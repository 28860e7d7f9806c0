package ethash

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ardanlabs/relaybench/foundation/validate"
	"github.com/ethereum/go-ethereum/common"
)

// WitnessData represents the dataset lookup of a single block as produced
// by the Ethash proof tooling.
type WitnessData struct {
	BlockHash        string             `json:"blockHash" validate:"required,hexadecimal"`
	DatasetLookup    []*header.Quantity `json:"datasetLookup" validate:"required,min=1,dive,required"`
	WitnessForLookup []*header.Quantity `json:"witnessForLookup" validate:"required,min=1,dive,required"`
}

// LoadWitness reads and validates the witness file <dir>/<blockhash>.json.
func LoadWitness(dir string, blockHash common.Hash) (relay.Witness, error) {
	path := filepath.Join(dir, blockHash.Hex()+".json")

	data, err := os.ReadFile(path)
	if err != nil {
		return relay.Witness{}, fmt.Errorf("read witness %s: %w", blockHash.Hex(), err)
	}

	var wd WitnessData
	if err := json.Unmarshal(data, &wd); err != nil {
		return relay.Witness{}, fmt.Errorf("decode witness %s: %w", blockHash.Hex(), err)
	}

	if err := validate.Check(wd); err != nil {
		return relay.Witness{}, fmt.Errorf("validate witness %s: %w", blockHash.Hex(), err)
	}

	if common.HexToHash(wd.BlockHash) != blockHash {
		return relay.Witness{}, fmt.Errorf("witness file %s holds block %s", path, wd.BlockHash)
	}

	w := relay.Witness{
		DatasetLookup:    bigs(wd.DatasetLookup),
		WitnessForLookup: bigs(wd.WitnessForLookup),
	}

	return w, nil
}

func bigs(qs []*header.Quantity) []*big.Int {
	out := make([]*big.Int, len(qs))
	for i, q := range qs {
		out[i] = q.Big()
	}
	return out
}
