package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrTxFailed is returned when a transaction is mined with a failed status.
var ErrTxFailed = errors.New("transaction failed")

// Backend represents the behavior required of the target chain connection.
// The ethclient.Client value implements this interface.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Contract provides access to a deployed contract.
type Contract struct {
	name    string
	address common.Address
	abi     abi.ABI
	backend Backend
	signer  *Signer
	bound   *bind.BoundContract
}

// Bind constructs a contract value for an already deployed contract.
func Bind(art Artifact, address common.Address, backend Backend, signer *Signer) *Contract {
	return &Contract{
		name:    art.Name,
		address: address,
		abi:     art.ABI,
		backend: backend,
		signer:  signer,
		bound:   bind.NewBoundContract(address, art.ABI, backend, backend, backend),
	}
}

// Deploy sends the contract creation transaction for the artifact, waits for
// it to be mined and returns the bound contract with the receipt. A creation
// that is mined but failed returns ErrTxFailed along with the receipt.
func Deploy(ctx context.Context, backend Backend, signer *Signer, art Artifact, args ...any) (*Contract, *types.Receipt, error) {
	if len(art.Bytecode) == 0 {
		return nil, nil, fmt.Errorf("deploy %s: no bytecode", art.Name)
	}

	params, err := coerceArgs(art.ABI.Constructor.Inputs, args)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: %w", art.Name, err)
	}

	opts, err := signer.transactOpts(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: %w", art.Name, err)
	}
	opts.GasLimit = signer.deployGas

	address, tx, bound, err := bind.DeployContract(opts, art.ABI, art.Bytecode, backend, params...)
	if err != nil {
		return nil, nil, fmt.Errorf("deploy %s: %w", art.Name, err)
	}

	receipt, err := waitMined(ctx, backend, tx)
	if err != nil {
		return nil, receipt, fmt.Errorf("deploy %s: %w", art.Name, err)
	}

	c := Contract{
		name:    art.Name,
		address: address,
		abi:     art.ABI,
		backend: backend,
		signer:  signer,
		bound:   bound,
	}

	return &c, receipt, nil
}

// Name returns the artifact name of the contract.
func (c *Contract) Name() string {
	return c.name
}

// Address returns the address of the contract.
func (c *Contract) Address() common.Address {
	return c.address
}

// Transact sends a transaction invoking the method, waits for it to be mined
// and returns the receipt. A transaction that is mined but reverted returns
// ErrTxFailed along with the receipt.
func (c *Contract) Transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Receipt, error) {
	params, err := c.pack(method, args)
	if err != nil {
		return nil, err
	}

	opts, err := c.signer.transactOpts(ctx, value)
	if err != nil {
		return nil, err
	}

	tx, err := c.bound.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}

	receipt, err := waitMined(ctx, c.backend, tx)
	if err != nil {
		return receipt, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}

	return receipt, nil
}

// EstimateGas returns the gas the method invocation would use without
// sending a transaction.
func (c *Contract) EstimateGas(ctx context.Context, value *big.Int, method string, args ...any) (uint64, error) {
	params, err := c.pack(method, args)
	if err != nil {
		return 0, err
	}

	input, err := c.abi.Pack(method, params...)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: pack: %w", c.name, method, err)
	}

	msg := ethereum.CallMsg{
		From:  c.signer.From(),
		To:    &c.address,
		Value: value,
		Data:  input,
	}

	gas, err := c.backend.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("%s.%s: estimate: %w", c.name, method, err)
	}

	return gas, nil
}

// Call invokes a constant method and returns its outputs keyed by name.
// Every output is also available by position as out0, out1, ...
func (c *Contract) Call(ctx context.Context, method string, args ...any) (map[string]any, error) {
	params, err := c.pack(method, args)
	if err != nil {
		return nil, err
	}

	input, err := c.abi.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: pack: %w", c.name, method, err)
	}

	msg := ethereum.CallMsg{
		From: c.signer.From(),
		To:   &c.address,
		Data: input,
	}

	output, err := c.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: call: %w", c.name, method, err)
	}

	return unpackOutputs(c.abi.Methods[method], output)
}

// pack checks the method exists and coerces the arguments to the types the
// method declares.
func (c *Contract) pack(method string, args []any) ([]any, error) {
	m, exists := c.abi.Methods[method]
	if !exists {
		return nil, fmt.Errorf("%s: method %q not in abi", c.name, method)
	}

	params, err := coerceArgs(m.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", c.name, method, err)
	}

	return params, nil
}

// unpackOutputs decodes the output of a call into a map of named and
// positional values.
func unpackOutputs(m abi.Method, output []byte) (map[string]any, error) {
	if len(output) == 0 && len(m.Outputs) > 0 {
		return nil, fmt.Errorf("%s: empty output, is the contract deployed", m.Name)
	}

	values, err := m.Outputs.Unpack(output)
	if err != nil {
		return nil, fmt.Errorf("%s: unpack: %w", m.Name, err)
	}

	result := make(map[string]any, 2*len(values))
	for i, v := range values {
		result[fmt.Sprintf("out%d", i)] = v
		if name := m.Outputs[i].Name; name != "" {
			result[name] = v
		}
	}

	return result, nil
}

// waitMined blocks until the transaction is mined and checks its status.
func waitMined(ctx context.Context, backend bind.DeployBackend, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, backend, tx)
	if err != nil {
		return nil, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s used %d gas", ErrTxFailed, tx.Hash().Hex(), receipt.GasUsed)
	}

	return receipt, nil
}
