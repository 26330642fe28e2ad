// Package state is the core API for assembling a block and implements the
// pipeline that takes candidate transactions to a sealed block.
package state

import (
	"time"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/blockminer/foundation/blockchain/validator"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// EventHandler defines a function that is called when events
// occur in the processing of a block.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to assemble blocks.
type Config struct {
	Genesis        genesis.Genesis
	SelectStrategy string
	Workers        int
	Storage        database.Storage // Optional archive of sealed blocks.
	Now            func() time.Time
	EvHandler      EventHandler
}

// State manages the assembly of blocks.
type State struct {
	genesis        genesis.Genesis
	selectStrategy string
	workers        int
	storage        database.Storage
	now            func() time.Time
	evHandler      EventHandler

	validator *validator.Validator
	prevHash  chainhash.Hash
	target    [32]byte
	payout    []byte
}

// New constructs a new state for block assembly.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	gen := cfg.Genesis
	if err := gen.Validate(); err != nil {
		return nil, err
	}

	// Make sure the strategy exists before any work is done.
	strategy := cfg.SelectStrategy
	if strategy == "" {
		strategy = selector.StrategyAncestor
	}
	if _, err := selector.Retrieve(strategy); err != nil {
		return nil, err
	}

	v, err := validator.New(validator.Policy{
		MaxTxWeight: gen.MaxTxWeight(),
		MaxMoney:    gen.MaxMoney,
		MinFeerate:  gen.MinFeerate,
		Identity:    gen.IdentityCheck,
	})
	if err != nil {
		return nil, err
	}

	prevHash, err := gen.PrevHash()
	if err != nil {
		return nil, err
	}

	target, err := gen.TargetBytes()
	if err != nil {
		return nil, err
	}

	payout, err := gen.Payout()
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	state := State{
		genesis:        gen,
		selectStrategy: strategy,
		workers:        max(cfg.Workers, 1),
		storage:        cfg.Storage,
		now:            now,
		evHandler:      ev,

		validator: v,
		prevHash:  prevHash,
		target:    target,
		payout:    payout,
	}

	return &state, nil
}

// Shutdown releases the archive when one is configured.
func (s *State) Shutdown() error {
	if s.storage == nil {
		return nil
	}

	return s.storage.Close()
}

// Genesis returns the parameters blocks are assembled under.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}
