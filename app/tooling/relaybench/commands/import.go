package commands

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ardanlabs/relaybench/foundation/blockchain/ethash"
	"github.com/spf13/cobra"
)

// importCmd copies the headers the experiments replay from the source chain
// into the header store. Witnesses are read from the witness directory when
// one is configured.
func (env *Env) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the headers from genesis to genesis+n from the source chain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := env.openStore()
			if err != nil {
				return err
			}

			src, closeSrc, err := env.dialSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()

			from := env.cfg.Genesis
			to := env.cfg.Genesis + env.cfg.NoOfBlocks

			var witnesses int
			for number := from; number <= to; number++ {
				b, err := src.BlockByNumber(ctx, number)
				if err != nil {
					return fmt.Errorf("import block %d: %w", number, err)
				}

				if err := store.AddBlock(ctx, b); err != nil {
					return fmt.Errorf("import block %d: %w", number, err)
				}

				if env.cfg.WitnessDir != "" && number > from {
					w, err := ethash.LoadWitness(env.cfg.WitnessDir, b.Hash)
					switch {
					case errors.Is(err, fs.ErrNotExist):
						env.log.Infow("import", "status", "no witness", "block", number, "hash", b.Hash.Hex())

					case err != nil:
						return err

					default:
						if err := store.AddWitness(ctx, b.Hash, w); err != nil {
							return fmt.Errorf("import witness %d: %w", number, err)
						}
						witnesses++
					}
				}

				env.log.Infow("import", "block", number, "hash", b.Hash.Hex())
			}

			env.log.Infow("import", "status", "import complete", "blocks", to-from+1, "witnesses", witnesses)
			return nil
		},
	}
}
