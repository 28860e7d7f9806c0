package commands

import (
	"context"
	"fmt"

	"github.com/ardanlabs/relaybench/business/core/experiment"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/spf13/cobra"
)

func (env *Env) startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Submit, verify and dispute the blocks following the genesis block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runExperiment(cmd.Context(), func(ctx context.Context, exp *experiment.Experiment) error {
				return exp.Evaluate(ctx, env.cfg.Genesis, env.cfg.NoOfBlocks)
			})
		},
	}
}

func (env *Env) submissionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submission",
		Short: "Record branch and head changes while submitting from the start block",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runExperiment(cmd.Context(), func(ctx context.Context, exp *experiment.Experiment) error {
				return exp.Submission(ctx, env.cfg.Genesis, env.cfg.Start, env.cfg.NoOfBlocks)
			})
		},
	}
}

func (env *Env) disputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispute",
		Short: "Measure dispute costs as the chain behind the disputed block grows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.runExperiment(cmd.Context(), func(ctx context.Context, exp *experiment.Experiment) error {
				return exp.Dispute(ctx, env.cfg.Genesis, env.cfg.Start, env.cfg.NoOfBlocks)
			})
		},
	}
}

// runExperiment connects every system an experiment needs and executes fn.
func (env *Env) runExperiment(ctx context.Context, fn func(ctx context.Context, exp *experiment.Experiment) error) error {
	d, err := env.loadDeployments()
	if err != nil {
		return err
	}

	store, err := env.openStore()
	if err != nil {
		return err
	}

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

	relays, err := env.bindRelays(d, client, signer)
	if err != nil {
		return err
	}

	exp, err := experiment.New(experiment.Config{
		Log:        env.log,
		Store:      store,
		Source:     src,
		Relays:     relays,
		ProofDir:   env.cfg.ProofsDir,
		ResultsDir: env.cfg.ResultsDir,
		EvHandler: func(e events.Event) {
			env.evts.Send(e)
		},
	})
	if err != nil {
		return fmt.Errorf("constructing experiment: %w", err)
	}
	env.setExperiment(exp)

	return fn(ctx, exp)
}
