package provision_test

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ardanlabs/relaybench/business/core/provision"
	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const genesis = 9121452

type fakeSource struct{}

func (fakeSource) BlockByNumber(ctx context.Context, number uint64) (header.Block, error) {
	return header.Block{
		Difficulty:      header.NewQuantity(2408192513552213),
		Number:          header.NewQuantity(number),
		GasLimit:        header.NewQuantity(9990236),
		GasUsed:         header.NewQuantity(0),
		Timestamp:       header.NewQuantity(1576611498),
		TotalDifficulty: header.NewQuantity(13225047406567390),
	}, nil
}

type deployment struct {
	name string
	args []any
}

type fakeDeployer struct {
	deployed []deployment
}

func (f *fakeDeployer) Deploy(ctx context.Context, art contract.Artifact, args ...any) (common.Address, *types.Receipt, error) {
	f.deployed = append(f.deployed, deployment{name: art.Name, args: args})
	addr := common.BytesToAddress([]byte{byte(len(f.deployed))})
	return addr, &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 5000000}, nil
}

type fakeContract struct {
	methods []string
	values  []*big.Int
}

func (f *fakeContract) Address() common.Address { return common.Address{} }

func (f *fakeContract) Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	f.methods = append(f.methods, method)
	f.values = append(f.values, value)
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, GasUsed: 1}, nil
}

func (f *fakeContract) EstimateGas(ctx context.Context, value *big.Int, method string, args ...any) (uint64, error) {
	return 0, nil
}

func (f *fakeContract) Call(ctx context.Context, method string, args ...any) (map[string]any, error) {
	switch method {
	case "getStake":
		return map[string]any{"out0": big.NewInt(0)}, nil
	case "getRequiredStakePerBlock":
		return map[string]any{"out0": big.NewInt(10)}, nil
	}
	return nil, nil
}

// =============================================================================

func Test_Deploy(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "abi"), 0755)
	os.MkdirAll(filepath.Join(dir, "bin"), 0755)

	const ctor = `[{"type":"constructor","inputs":[{"name":"_rlpHeader","type":"bytes"},{"name":"totalDifficulty","type":"uint256"},{"name":"_ethashContractAddr","type":"address"}]}]`
	os.WriteFile(filepath.Join(dir, "abi", "Ethash.abi"), []byte("[]"), 0644)
	os.WriteFile(filepath.Join(dir, "bin", "Ethash.bin"), []byte("6080"), 0644)
	for _, v := range relay.Variants {
		os.WriteFile(filepath.Join(dir, "abi", v.Artifact()+".abi"), []byte(ctor), 0644)
		os.WriteFile(filepath.Join(dir, "bin", v.Artifact()+".bin"), []byte("6080"), 0644)
	}

	var deployer fakeDeployer
	cfg := provision.DeployConfig{
		Log:          zap.NewNop().Sugar(),
		Source:       fakeSource{},
		Deployer:     &deployer,
		ArtifactsDir: dir,
		Genesis:      genesis,
	}

	t.Log("Given the need to deploy the contracts under comparison.")
	{
		deployments, err := provision.Deploy(context.Background(), cfg)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to deploy the contracts: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to deploy the contracts.", success)

		if len(deployer.deployed) != 4 || deployer.deployed[0].name != provision.EthashArtifact {
			t.Fatalf("\t%s\tShould deploy Ethash first and then the three relays: got %d", failed, len(deployer.deployed))
		}
		t.Logf("\t%s\tShould deploy Ethash first and then the three relays.", success)

		ethashAddr, err := deployments.Address(provision.EthashArtifact)
		if err != nil {
			t.Fatalf("\t%s\tShould record the Ethash address: %v", failed, err)
		}

		for _, d := range deployer.deployed[1:] {
			if len(d.args) != 3 || d.args[2] != ethashAddr {
				t.Fatalf("\t%s\tShould pass the Ethash address to %s.", failed, d.name)
			}
			if td, ok := d.args[1].(*header.Quantity); !ok || td.String() != "13225047406567390" {
				t.Fatalf("\t%s\tShould pass the genesis total difficulty to %s.", failed, d.name)
			}
		}
		t.Logf("\t%s\tShould pass the genesis header, difficulty and Ethash address.", success)

		if len(deployments.Names()) != 4 {
			t.Fatalf("\t%s\tShould record every deployment: got %v", failed, deployments.Names())
		}
		t.Logf("\t%s\tShould record every deployment.", success)
	}
}

func Test_Setup(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "304.json"), []byte(`{
		"epoch": 304,
		"fullSizeIn128Resolution": 25165813,
		"branchDepth": 25,
		"merkleNodes": ["1", "2", "3"]
	}`), 0644)

	var eth, optimisticC, optimizedC fakeContract
	optimistic, _ := relay.New(relay.Optimistic, &optimisticC)
	optimized, _ := relay.New(relay.Optimized, &optimizedC)

	cfg := provision.SetupConfig{
		Log:        zap.NewNop().Sugar(),
		Ethash:     &eth,
		Optimistic: optimistic,
		Optimized:  optimized,
		EpochDir:   dir,
		Genesis:    genesis,
		NoOfBlocks: 100,
	}

	t.Log("Given the need to prepare the contracts for the experiments.")
	{
		if err := provision.Setup(context.Background(), cfg); err != nil {
			t.Fatalf("\t%s\tShould be able to set up the contracts: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to set up the contracts.", success)

		if len(eth.methods) != 1 || eth.methods[0] != "setEpochData" {
			t.Fatalf("\t%s\tShould provision the epoch: got %v", failed, eth.methods)
		}
		t.Logf("\t%s\tShould provision the epoch.", success)

		for name, c := range map[string]*fakeContract{"optimistic": &optimisticC, "optimized": &optimizedC} {
			if len(c.methods) != 1 || c.methods[0] != "depositStake" || c.values[0].Int64() != 1000 {
				t.Fatalf("\t%s\tShould deposit the stake on the %s relay: got %v", failed, name, c.methods)
			}
		}
		t.Logf("\t%s\tShould deposit the stake on the optimistic relays.", success)
	}
}
