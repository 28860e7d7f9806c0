package commands

import (
	"fmt"

	"github.com/ardanlabs/relaybench/business/core/experiment"
	"github.com/ardanlabs/relaybench/business/core/provision"
	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
)

// loadDeployments reads the deployments file written by the deploy command.
func (env *Env) loadDeployments() (*contract.Deployments, error) {
	d, err := contract.LoadDeployments(env.cfg.DeploymentsFile)
	if err != nil {
		return nil, fmt.Errorf("loading deployments, run deploy first: %w", err)
	}
	env.setDeployments(d)

	for _, name := range d.Names() {
		addr, _ := d.Address(name)
		env.log.Infow("startup", "status", "deployment", "contract", name, "address", addr.Hex())
	}

	return d, nil
}

// bindContract binds the named artifact to its deployed address.
func (env *Env) bindContract(d *contract.Deployments, name string, backend contract.Backend, signer *contract.Signer) (*contract.Contract, error) {
	art, err := contract.LoadArtifact(env.cfg.ArtifactsDir, name)
	if err != nil {
		return nil, err
	}

	addr, err := d.Address(name)
	if err != nil {
		return nil, err
	}

	return contract.Bind(art, addr, backend, signer), nil
}

// bindRelays binds the three relay designs.
func (env *Env) bindRelays(d *contract.Deployments, backend contract.Backend, signer *contract.Signer) (experiment.Relays, error) {
	bound := make(map[relay.Variant]*relay.Relay)
	for _, v := range relay.Variants {
		c, err := env.bindContract(d, v.Artifact(), backend, signer)
		if err != nil {
			return experiment.Relays{}, err
		}

		r, err := relay.New(v, c)
		if err != nil {
			return experiment.Relays{}, err
		}
		bound[v] = r
	}

	relays := experiment.Relays{
		Full:       bound[relay.Full],
		Optimistic: bound[relay.Optimistic],
		Optimized:  bound[relay.Optimized],
	}

	return relays, nil
}

// bindEthash binds the Ethash contract.
func (env *Env) bindEthash(d *contract.Deployments, backend contract.Backend, signer *contract.Signer) (*contract.Contract, error) {
	return env.bindContract(d, provision.EthashArtifact, backend, signer)
}
