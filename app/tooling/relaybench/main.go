// This program benchmarks the gas costs of the full, optimistic and
// optimized relay designs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/relaybench/app/tooling/relaybench/commands"
	"github.com/ardanlabs/relaybench/app/tooling/relaybench/handlers"
	"github.com/ardanlabs/relaybench/business/sys/database"
	"github.com/ardanlabs/relaybench/foundation/events"
	"github.com/ardanlabs/relaybench/foundation/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("RELAYBENCH")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// Values from a .env file are applied to the environment first so they
	// are picked up by the configuration below. Existing variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}

	cfg := struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User         string `conf:"default:postgres"`
			Password     string `conf:"default:postgres,mask"`
			Host         string `conf:"default:localhost"`
			Name         string `conf:"default:postgres"`
			MaxIdleConns int    `conf:"default:2"`
			MaxOpenConns int    `conf:"default:0"`
			DisableTLS   bool   `conf:"default:true"`
		}
		Chain struct {
			GenesisBlock uint64 `conf:"default:9121452"`
			StartBlock   uint64 `conf:"default:9121453"`
			NoOfBlocks   uint64 `conf:"default:100"`
		}
		Source struct {
			URL     string `conf:"mask"`
			Retries uint64 `conf:"default:5"`
		}
		Target struct {
			URL       string `conf:"default:http://localhost:8545"`
			KeyFile   string `conf:"default:zblock/accounts/relaybench.ecdsa"`
			GasPrice  int64  `conf:"default:1000000"`
			DeployGas uint64 `conf:"default:6000000"`
		}
		Files struct {
			Artifacts   string `conf:"default:."`
			Epochs      string `conf:"default:epochs"`
			Proofs      string `conf:"default:merkleproofs"`
			Witnesses   string
			Results     string `conf:"default:results"`
			Deployments string `conf:"default:zblock/deployments.json"`
			SkipNodes   uint64 `conf:"default:0"`
		}
		Monitor struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string
			Host            string
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "relay gas cost evaluation",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "RELAY"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting relaybench", "version", build, "command", cfg.Args.Num(0))
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// The events value fans experiment progress out to monitor clients.
	evts := events.New()
	defer evts.Shutdown()

	env := commands.New(log, commands.Config{
		DB: database.Config{
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			Host:         cfg.DB.Host,
			Name:         cfg.DB.Name,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			DisableTLS:   cfg.DB.DisableTLS,
		},
		Genesis:         cfg.Chain.GenesisBlock,
		Start:           cfg.Chain.StartBlock,
		NoOfBlocks:      cfg.Chain.NoOfBlocks,
		SourceURL:       cfg.Source.URL,
		SourceRetries:   cfg.Source.Retries,
		TargetURL:       cfg.Target.URL,
		KeyFile:         cfg.Target.KeyFile,
		GasPrice:        big.NewInt(cfg.Target.GasPrice),
		DeployGas:       cfg.Target.DeployGas,
		ArtifactsDir:    cfg.Files.Artifacts,
		EpochsDir:       cfg.Files.Epochs,
		ProofsDir:       cfg.Files.Proofs,
		WitnessDir:      cfg.Files.Witnesses,
		ResultsDir:      cfg.Files.Results,
		DeploymentsFile: cfg.Files.Deployments,
		SkipNodes:       cfg.Files.SkipNodes,
	}, evts)
	defer env.Close()

	// =========================================================================
	// Start Debug Service

	if cfg.Monitor.DebugHost != "" {
		log.Infow("startup", "status", "debug router started", "host", cfg.Monitor.DebugHost)

		debugMux := handlers.DebugMux(build, log, env.StatusCheck)

		// Not concerned with shutting this down with load shedding.
		go func() {
			if err := http.ListenAndServe(cfg.Monitor.DebugHost, debugMux); err != nil {
				log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Monitor.DebugHost, "ERROR", err)
			}
		}()
	}

	// =========================================================================
	// Command Start/Stop Support

	// The command context is cancelled on an interrupt or terminate signal so
	// the transaction in flight is abandoned and the result file is closed.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case sig := <-shutdown:
			log.Infow("shutdown", "status", "shutdown started", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	// =========================================================================
	// Start Monitor Service

	if cfg.Monitor.Host != "" {
		log.Infow("startup", "status", "initializing V1 monitor API support")

		monitorMux := handlers.MonitorMux(handlers.MuxConfig{
			Shutdown: shutdown,
			Log:      log,
			Tracker:  env,
			Evts:     evts,
		})

		monitor := http.Server{
			Addr:         cfg.Monitor.Host,
			Handler:      monitorMux,
			ReadTimeout:  cfg.Monitor.ReadTimeout,
			WriteTimeout: cfg.Monitor.WriteTimeout,
			IdleTimeout:  cfg.Monitor.IdleTimeout,
			ErrorLog:     zap.NewStdLog(log.Desugar()),
		}

		go func() {
			log.Infow("startup", "status", "monitor api router started", "host", monitor.Addr)
			if err := monitor.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("shutdown", "status", "monitor api router closed", "host", monitor.Addr, "ERROR", err)
			}
		}()

		defer func() {
			// Release any web sockets that are currently active.
			log.Infow("shutdown", "status", "shutdown web socket channels")
			evts.Shutdown()

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Monitor.ShutdownTimeout)
			defer cancel()

			log.Infow("shutdown", "status", "shutdown monitor API started")
			if err := monitor.Shutdown(ctx); err != nil {
				monitor.Close()
			}
		}()
	}

	// =========================================================================
	// Run Command

	return env.Execute(ctx, cfg.Args)
}
