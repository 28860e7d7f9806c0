package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotDeployed is returned when a contract has no recorded address.
var ErrNotDeployed = errors.New("contract not deployed")

// Deployments maintains the addresses of the deployed contracts by name and
// provides a reverse lookup from address to name.
type Deployments struct {
	mu        sync.RWMutex
	addresses map[string]common.Address
}

// NewDeployments constructs an empty set of deployments.
func NewDeployments() *Deployments {
	return &Deployments{
		addresses: make(map[string]common.Address),
	}
}

// LoadDeployments reads the deployments file written by a previous deploy.
func LoadDeployments(path string) (*Deployments, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deployments: %w", err)
	}

	var m map[string]common.Address
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode deployments %s: %w", path, err)
	}

	d := NewDeployments()
	for name, addr := range m {
		d.addresses[name] = addr
	}

	return d, nil
}

// Save writes the deployments to the file, creating the directory when
// required.
func (d *Deployments) Save(path string) error {
	d.mu.RLock()
	data, err := json.MarshalIndent(d.addresses, "", "  ")
	d.mu.RUnlock()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create deployments dir: %w", err)
		}
	}

	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write deployments: %w", err)
	}

	return nil
}

// Set records the address of the named contract.
func (d *Deployments) Set(name string, address common.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.addresses[name] = address
}

// Address returns the address of the named contract.
func (d *Deployments) Address(name string) (common.Address, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addr, exists := d.addresses[name]
	if !exists {
		return common.Address{}, fmt.Errorf("%s: %w", name, ErrNotDeployed)
	}

	return addr, nil
}

// Lookup returns the name for the specified address. Unknown addresses are
// returned in hex form.
func (d *Deployments) Lookup(address common.Address) string {
	if name, exists := d.Name(address); exists {
		return name
	}

	return address.Hex()
}

// Name returns the name of the contract deployed at the specified address
// and whether one is recorded.
func (d *Deployments) Name(address common.Address) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for name, addr := range d.addresses {
		if addr == address {
			return name, true
		}
	}

	return "", false
}

// Names returns the names of the deployed contracts in sorted order.
func (d *Deployments) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.addresses))
	for name := range d.addresses {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
