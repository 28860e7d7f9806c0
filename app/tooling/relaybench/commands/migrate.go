package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (env *Env) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the header store schema when missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := env.openStore()
			if err != nil {
				return err
			}

			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			env.log.Infow("migrate", "status", "migrations complete")
			return nil
		},
	}
}
