package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/blockminer/app/services/miner/handlers"
	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/database/storage"
	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockminer/foundation/blockchain/state"
	"github.com/ardanlabs/blockminer/foundation/blockchain/validator"
	"github.com/ardanlabs/blockminer/foundation/logger"
	"github.com/ardanlabs/conf/v3"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("MINER")
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

	cfg := struct {
		conf.Version
		Web struct {
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			DebugEnabled    bool          `conf:"default:false"`
			ShutdownTimeout time.Duration `conf:"default:5s"`
		}
		State struct {
			RecordDir      string `conf:"default:mempool"`
			OutputPath     string `conf:"default:output.txt"`
			GenesisPath    string
			ArchivePath    string
			SelectStrategy string `conf:"default:ancestor"`
			Workers        int    `conf:"default:4"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "copyright information here",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "MINER"
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

	runID := uuid.NewString()

	log.Infow("starting service", "version", build, "runid", runID)
	defer log.Infow("shutdown complete", "runid", runID)

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Start Debug Service

	if cfg.Web.DebugEnabled {
		log.Infow("startup", "status", "debug router started", "host", cfg.Web.DebugHost)

		debug := http.Server{
			Addr:     cfg.Web.DebugHost,
			Handler:  handlers.DebugMux(build, runID, log),
			ErrorLog: zap.NewStdLog(log.Desugar()),
		}

		// Not concerned with shutting this down with load shedding.
		go func() {
			if err := debug.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("shutdown", "status", "debug router closed", "host", cfg.Web.DebugHost, "ERROR", err)
			}
		}()

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
			defer cancel()
			debug.Shutdown(ctx)
		}()
	}

	// =========================================================================
	// Blockchain Support

	gen := genesis.Default()
	if cfg.State.GenesisPath != "" {
		if gen, err = genesis.Load(cfg.State.GenesisPath); err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log.
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "runid", runID)
	}

	var archive database.Storage
	if cfg.State.ArchivePath != "" {
		disk, err := storage.NewDisk(cfg.State.ArchivePath)
		if err != nil {
			return fmt.Errorf("opening archive: %w", err)
		}
		archive = disk
	}

	st, err := state.New(state.Config{
		Genesis:        gen,
		SelectStrategy: cfg.State.SelectStrategy,
		Workers:        cfg.State.Workers,
		Storage:        archive,
		EvHandler:      ev,
	})
	if err != nil {
		if archive != nil {
			archive.Close()
		}
		return err
	}
	defer st.Shutdown()

	// =========================================================================
	// Mine

	txs, err := storage.ReadRecords(cfg.State.RecordDir)
	if err != nil {
		return fmt.Errorf("reading records: %w", err)
	}
	log.Infow("records loaded", "runid", runID, "count", len(txs))

	// An interrupt or terminate signal cancels the nonce search.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	block, report, err := st.MineNewBlock(ctx, txs)
	if err != nil {
		return fmt.Errorf("mining block: %w", err)
	}

	for _, rej := range report.Rejected {
		log.Infow("rejected", "runid", runID, "txid", rej.TxID, "reason", validator.Reason(rej.Err), "ERROR", rej.Err)
	}
	for _, txID := range report.Cascaded {
		log.Infow("rejected", "runid", runID, "txid", txID, "reason", "invalid parent")
	}

	if err := storage.WriteBlock(cfg.State.OutputPath, block); err != nil {
		return fmt.Errorf("writing block: %w", err)
	}

	log.Infow("block sealed",
		"runid", runID,
		"hash", block.Hash(),
		"nonce", block.Header.Nonce,
		"candidates", report.Candidates,
		"accepted", report.Accepted,
		"rejected", len(report.Rejected),
		"cascaded", len(report.Cascaded),
		"selected", report.Selected,
		"weight", report.Weight,
		"fees", btcutil.Amount(report.Fees).String(),
		"output", cfg.State.OutputPath,
	)

	return nil
}
