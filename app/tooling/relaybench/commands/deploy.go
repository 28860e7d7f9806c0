package commands

import (
	"fmt"

	"github.com/ardanlabs/relaybench/business/core/provision"
	"github.com/spf13/cobra"
)

func (env *Env) deployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy Ethash and the three relays starting from the genesis block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			src, closeSrc, err := env.dialSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()

			client, signer, err := env.dialTarget(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			d, err := provision.Deploy(ctx, provision.DeployConfig{
				Log:          env.log,
				Source:       src,
				Deployer:     provision.ChainDeployer{Backend: client, Signer: signer},
				ArtifactsDir: env.cfg.ArtifactsDir,
				Genesis:      env.cfg.Genesis,
			})
			if err != nil {
				return fmt.Errorf("deploy: %w", err)
			}
			env.setDeployments(d)

			if err := d.Save(env.cfg.DeploymentsFile); err != nil {
				return fmt.Errorf("saving deployments: %w", err)
			}

			env.log.Infow("deploy", "status", "contracts deployed", "file", env.cfg.DeploymentsFile)
			return nil
		},
	}
}
