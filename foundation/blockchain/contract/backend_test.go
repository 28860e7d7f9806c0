package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
)

// counterABI describes both test contracts. Their runtimes ignore the
// calldata: the counter returns 7 for every call and the reverter reverts.
const counterABI = `[
	{"type":"function","name":"store","stateMutability":"payable","inputs":[{"name":"v","type":"uint8"}],"outputs":[]},
	{"type":"function","name":"value","stateMutability":"view","inputs":[],"outputs":[{"name":"v","type":"uint256"}]}
]`

// Init code copying the runtime that follows it and returning it.
const (
	counterBin  = "0x600a600c600039600a6000f3" + "600760005260206000f3"
	reverterBin = "0x6005600c60003960056000f3" + "60006000fd"
)

// chain runs a simulated chain that mines a block every 50ms until the
// test ends.
type chain struct {
	backend *simulated.Backend
	client  simulated.Client
	key     *ecdsa.PrivateKey
	chainID *big.Int
}

func newChain(t *testing.T) *chain {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a key: %v", failed, err)
	}

	funds := new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))
	alloc := types.GenesisAlloc{crypto.PubkeyToAddress(key.PublicKey): {Balance: funds}}

	backend := simulated.NewBackend(alloc)
	client := backend.Client()

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read the chain id: %v", failed, err)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				backend.Commit()
			case <-done:
				return
			}
		}
	}()

	t.Cleanup(func() {
		close(done)
		<-stopped
		backend.Close()
	})

	return &chain{backend: backend, client: client, key: key, chainID: chainID}
}

func (c *chain) signer(deployGas uint64) *Signer {
	return NewSigner(SignerConfig{
		Key:       c.key,
		ChainID:   c.chainID,
		DeployGas: deployGas,
	})
}

func writeArtifact(t *testing.T, dir string, name string, bin string) Artifact {
	os.MkdirAll(filepath.Join(dir, "abi"), 0755)
	os.MkdirAll(filepath.Join(dir, "bin"), 0755)
	os.WriteFile(filepath.Join(dir, "abi", name+".abi"), []byte(counterABI), 0644)
	os.WriteFile(filepath.Join(dir, "bin", name+".bin"), []byte(bin+"\n"), 0644)

	art, err := LoadArtifact(dir, name)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to load the %s artifact: %v", failed, name, err)
	}
	return art
}

func Test_ContractOnChain(t *testing.T) {
	c := newChain(t)
	dir := t.TempDir()
	counter := writeArtifact(t, dir, "Counter", counterBin)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Log("Given the need to deploy and use a contract on a chain.")
	{
		cnt, receipt, err := Deploy(ctx, c.client, c.signer(1_000_000), counter)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to deploy the contract: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to deploy the contract.", success)

		if receipt.Status != types.ReceiptStatusSuccessful || receipt.GasUsed == 0 || receipt.ContractAddress != cnt.Address() {
			t.Fatalf("\t%s\tShould receive the deployment receipt : %+v", failed, receipt)
		}
		t.Logf("\t%s\tShould receive the deployment receipt.", success)

		receipt, err = cnt.Transact(ctx, big.NewInt(1), "store", big.NewInt(7))
		if err != nil {
			t.Fatalf("\t%s\tShould be able to send a payable transaction: %v", failed, err)
		}
		if receipt.GasUsed <= params.TxGas {
			t.Fatalf("\t%s\tShould use more than the intrinsic gas : %d", failed, receipt.GasUsed)
		}
		t.Logf("\t%s\tShould be able to send a payable transaction.", success)

		gas, err := cnt.EstimateGas(ctx, big.NewInt(1), "store", 7)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to estimate the gas: %v", failed, err)
		}
		if gas <= params.TxGas {
			t.Fatalf("\t%s\tShould estimate more than the intrinsic gas : %d", failed, gas)
		}
		t.Logf("\t%s\tShould be able to estimate the gas.", success)

		out, err := cnt.Call(ctx, "value")
		if err != nil {
			t.Fatalf("\t%s\tShould be able to call the contract: %v", failed, err)
		}
		v, ok := out["v"].(*big.Int)
		if !ok || v.Int64() != 7 || out["out0"] != out["v"] {
			t.Fatalf("\t%s\tShould receive the named and positional output : %v", failed, out)
		}
		t.Logf("\t%s\tShould receive the named and positional output.", success)

		if _, err := cnt.Transact(ctx, nil, "store", 256); err == nil {
			t.Fatalf("\t%s\tShould reject an argument that overflows uint8.", failed)
		}
		t.Logf("\t%s\tShould reject an argument that overflows uint8.", success)
	}
}

func Test_ContractFailures(t *testing.T) {
	c := newChain(t)
	dir := t.TempDir()
	counter := writeArtifact(t, dir, "Counter", counterBin)
	reverter := writeArtifact(t, dir, "Reverter", reverterBin)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Log("Given the need to detect failed transactions.")
	{

		// The limit covers the intrinsic gas of the creation but not the
		// deposit of the runtime code.
		_, receipt, err := Deploy(ctx, c.client, c.signer(55_000), counter)
		if !errors.Is(err, ErrTxFailed) {
			t.Fatalf("\t%s\tShould fail a deployment out of gas with ErrTxFailed : %v", failed, err)
		}
		if receipt == nil || receipt.GasUsed != 55_000 {
			t.Fatalf("\t%s\tShould receive the failed receipt using the deploy gas : %+v", failed, receipt)
		}
		t.Logf("\t%s\tShould fail a deployment out of gas with ErrTxFailed.", success)

		rev, _, err := Deploy(ctx, c.client, c.signer(1_000_000), reverter)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to deploy the reverting contract: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to deploy the reverting contract.", success)

		if _, err := rev.EstimateGas(ctx, nil, "store", 1); err == nil {
			t.Fatalf("\t%s\tShould fail to estimate a reverting call.", failed)
		}
		t.Logf("\t%s\tShould fail to estimate a reverting call.", success)

		if _, err := rev.Transact(ctx, nil, "store", 1); err == nil {
			t.Fatalf("\t%s\tShould fail to send a reverting transaction.", failed)
		}
		t.Logf("\t%s\tShould fail to send a reverting transaction.", success)

		if _, err := rev.Call(ctx, "value"); err == nil {
			t.Fatalf("\t%s\tShould fail to call a reverting contract.", failed)
		}
		t.Logf("\t%s\tShould fail to call a reverting contract.", success)
	}
}
