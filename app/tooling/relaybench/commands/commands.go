// Package commands binds the relaybench procedures to the command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ardanlabs/relaybench/business/core/experiment"
	"github.com/ardanlabs/relaybench/business/core/headerstore"
	"github.com/ardanlabs/relaybench/business/core/headerstore/db"
	"github.com/ardanlabs/relaybench/business/sys/database"
	"github.com/ardanlabs/relaybench/foundation/blockchain/contract"
	"github.com/ardanlabs/relaybench/foundation/blockchain/source"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Config represents the settings every command draws from.
type Config struct {
	DB database.Config

	Genesis    uint64
	Start      uint64
	NoOfBlocks uint64

	SourceURL     string
	SourceRetries uint64

	TargetURL string
	KeyFile   string
	GasPrice  *big.Int
	DeployGas uint64

	ArtifactsDir    string
	EpochsDir       string
	ProofsDir       string
	WitnessDir      string
	ResultsDir      string
	DeploymentsFile string
	SkipNodes       uint64
}

// Env holds the state shared by the commands and the monitor.
type Env struct {
	log  *zap.SugaredLogger
	cfg  Config
	evts *events.Events

	mu          sync.RWMutex
	db          *sqlx.DB
	exp         *experiment.Experiment
	deployments *contract.Deployments
}

// New constructs the command environment.
func New(log *zap.SugaredLogger, cfg Config, evts *events.Events) *Env {
	return &Env{
		log:  log,
		cfg:  cfg,
		evts: evts,
	}
}

// Root constructs the relaybench command tree. Running it without a
// command prints the usage.
func (env *Env) Root() *cobra.Command {
	root := cobra.Command{
		Use:   "relaybench",
		Short: "Benchmark the gas costs of the full, optimistic and optimized relays",
		Long: `relaybench deploys the relay contracts, provisions them and replays
stored block headers against them, writing the gas used to CSV files.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Usage(); err != nil {
				return err
			}

			if len(args) > 0 {
				return fmt.Errorf("unknown command %q", args[0])
			}

			return nil
		},
	}

	root.AddCommand(
		env.migrateCmd(),
		env.importCmd(),
		env.deployCmd(),
		env.setupCmd(),
		env.startCmd(),
		env.submissionCmd(),
		env.disputeCmd(),
	)

	return &root
}

// Execute runs the command named by args. A command stopped because ctx was
// cancelled is a clean shutdown, not a failure.
func (env *Env) Execute(ctx context.Context, args []string) error {

	// An empty non-nil slice keeps cobra from reading os.Args, which hold
	// the flags conf already consumed.
	root := env.Root()
	root.SetArgs(append([]string{}, args...))

	err := root.ExecuteContext(ctx)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		env.log.Infow("shutdown", "status", "command interrupted", "ERROR", err)
		return nil
	}

	return err
}

// Progress returns the progress of the experiment started by the running
// command. It reports false when no experiment has been started.
func (env *Env) Progress() (experiment.Progress, bool) {
	env.mu.RLock()
	defer env.mu.RUnlock()

	if env.exp == nil {
		return experiment.Progress{}, false
	}

	return env.exp.Progress(), true
}

// Deployments returns the contracts deployed or loaded by the running
// command, nil when there are none yet.
func (env *Env) Deployments() *contract.Deployments {
	env.mu.RLock()
	defer env.mu.RUnlock()

	return env.deployments
}

// StatusCheck reports the health of the header database once a command
// has opened it.
func (env *Env) StatusCheck(ctx context.Context) error {
	env.mu.RLock()
	sdb := env.db
	env.mu.RUnlock()

	if sdb == nil {
		return nil
	}

	return database.StatusCheck(ctx, sdb)
}

// Close releases the database connection.
func (env *Env) Close() error {
	env.mu.Lock()
	defer env.mu.Unlock()

	if env.db == nil {
		return nil
	}

	err := env.db.Close()
	env.db = nil
	return err
}

// =============================================================================

func (env *Env) openStore() (*headerstore.Core, error) {
	env.mu.Lock()
	defer env.mu.Unlock()

	if env.db == nil {
		sdb, err := database.Open(env.cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connecting to db: %w", err)
		}
		env.db = sdb

		env.log.Infow("startup", "status", "database connected", "host", env.cfg.DB.Host, "name", env.cfg.DB.Name)
	}

	return headerstore.NewCore(env.log, db.NewStore(env.log, env.db)), nil
}

func (env *Env) dialSource(ctx context.Context) (*source.Source, func(), error) {
	if env.cfg.SourceURL == "" {
		return nil, nil, fmt.Errorf("source chain url is not configured")
	}

	src, client, err := source.Dial(ctx, env.cfg.SourceURL, source.Config{
		Retries: env.cfg.SourceRetries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dialing source chain: %w", err)
	}

	return src, client.Close, nil
}

func (env *Env) dialTarget(ctx context.Context) (*ethclient.Client, *contract.Signer, error) {
	client, err := ethclient.DialContext(ctx, env.cfg.TargetURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dialing target chain: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("reading chain id: %w", err)
	}

	key, err := crypto.LoadECDSA(env.cfg.KeyFile)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("unable to load private key: %w", err)
	}

	signer := contract.NewSigner(contract.SignerConfig{
		Key:       key,
		ChainID:   chainID,
		GasPrice:  env.cfg.GasPrice,
		DeployGas: env.cfg.DeployGas,
	})

	env.log.Infow("startup", "status", "target chain connected", "url", env.cfg.TargetURL, "chainid", chainID, "account", signer.From().Hex())

	return client, signer, nil
}

func (env *Env) setDeployments(d *contract.Deployments) {
	env.mu.Lock()
	defer env.mu.Unlock()

	env.deployments = d
}

func (env *Env) setExperiment(exp *experiment.Experiment) {
	env.mu.Lock()
	defer env.mu.Unlock()

	env.exp = exp
}
