package commands

import (
	"fmt"

	"github.com/ardanlabs/relaybench/business/core/provision"
	"github.com/spf13/cobra"
)

func (env *Env) setupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Provision the Ethash epochs and deposit the relay stakes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			d, err := env.loadDeployments()
			if err != nil {
				return err
			}

			client, signer, err := env.dialTarget(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			eth, err := env.bindEthash(d, client, signer)
			if err != nil {
				return err
			}

			relays, err := env.bindRelays(d, client, signer)
			if err != nil {
				return err
			}

			err = provision.Setup(ctx, provision.SetupConfig{
				Log:        env.log,
				Ethash:     eth,
				Optimistic: relays.Optimistic,
				Optimized:  relays.Optimized,
				EpochDir:   env.cfg.EpochsDir,
				Genesis:    env.cfg.Genesis,
				NoOfBlocks: env.cfg.NoOfBlocks,
				SkipNodes:  env.cfg.SkipNodes,
			})
			if err != nil {
				return fmt.Errorf("setup: %w", err)
			}

			env.log.Infow("setup", "status", "contracts prepared")
			return nil
		},
	}
}
