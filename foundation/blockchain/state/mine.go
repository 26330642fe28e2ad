package state

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ErrNoTransactions is returned when a block is requested to be created
// and there are no candidate transactions.
var ErrNoTransactions = errors.New("no candidate transactions")

// =============================================================================

// MineNewBlock validates the candidate transactions, selects the best set
// that fits in a block and performs the work to seal it. Rejected
// candidates are reported, never returned as an error.
func (s *State) MineNewBlock(ctx context.Context, txs []database.Tx) (database.Block, Report, error) {
	s.evHandler("state: MineNewBlock: MINING: started: candidates[%d]", len(txs))
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	if len(txs) == 0 {
		return database.Block{}, Report{}, ErrNoTransactions
	}

	report := Report{Candidates: len(txs)}

	mp, err := s.validate(txs, &report)
	if err != nil {
		return database.Block{}, Report{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: assign parents and packages: pool[%d]", mp.Count())

	mp.AssignParents()
	mp.ComputePackages()

	coinbaseSigOps, err := s.coinbaseSigOps()
	if err != nil {
		return database.Block{}, Report{}, err
	}

	limits := mempool.Limits{
		Weight: s.genesis.MaxTxWeight(),
		SigOps: s.genesis.MaxBlockSigOps - min(coinbaseSigOps, s.genesis.MaxBlockSigOps),
	}
	selected := mp.PickBest(limits)

	wtxIDs := make([]chainhash.Hash, len(selected))
	for i, tx := range selected {
		report.Weight += tx.Meta.Weight
		report.SigOps += tx.Meta.SigOpCost
		report.Fees += tx.Meta.Fee
		wtxIDs[i] = tx.Meta.WTxID
	}
	report.Selected = len(selected)

	s.evHandler("state: MineNewBlock: MINING: selected: txs[%d]: weight[%d]: fees[%s]", report.Selected, report.Weight, btcutil.Amount(report.Fees))

	coinbase, err := database.NewCoinbase(s.genesis.Height, report.Fees, s.payout, wtxIDs)
	if err != nil {
		return database.Block{}, Report{}, err
	}

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	started := time.Now()
	block, err := database.POW(ctx, database.POWArgs{
		Version:       s.genesis.Version,
		PrevBlockHash: s.prevHash,
		Bits:          s.genesis.Bits,
		Target:        s.target,
		TimeStamp:     uint32(s.now().Unix()),
		Coinbase:      coinbase,
		Trans:         selected,
		Workers:       s.workers,
		EvHandler:     s.evHandler,
	})
	observeSeal(err, started)
	if err != nil {
		return database.Block{}, Report{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, Report{}, ctx.Err()
	}

	if s.storage != nil {
		s.evHandler("state: MineNewBlock: MINING: archive: blk[%s]", block.Hash())

		if _, err := database.Archive(s.storage, block, s.genesis.Height); err != nil {
			return database.Block{}, Report{}, err
		}
	}

	observeReport(report)

	return block, report, nil
}

// =============================================================================

// validate runs every candidate through the validator and returns a pool
// holding the valid ones. Transactions spending an output of a rejected
// transaction are removed from the pool as well.
func (s *State) validate(txs []database.Tx, report *Report) (*mempool.Mempool, error) {
	mp, err := mempool.NewWithStrategy(s.selectStrategy)
	if err != nil {
		return nil, err
	}

	invalid := make(map[chainhash.Hash]error)
	for _, tx := range txs {
		if err := s.validator.Validate(&tx); err != nil {
			s.evHandler("state: validate: REJECTED: tx[%s]: %s", tx.Meta.TxID, err)

			invalid[tx.Meta.TxID] = err
			report.Rejected = append(report.Rejected, Rejection{TxID: tx.Meta.TxID, Err: err})
			continue
		}

		if _, err := mp.Upsert(tx); err != nil {
			return nil, err
		}
	}

	report.Cascaded = mp.RemoveInvalid(invalid)
	for _, txID := range report.Cascaded {
		s.evHandler("state: validate: CASCADED: tx[%s]", txID)
	}

	report.Accepted = mp.Count()

	return mp, nil
}

// coinbaseSigOps returns the sig-op cost of the coinbase, which only
// depends on the payout script.
func (s *State) coinbaseSigOps() (uint64, error) {
	coinbase, err := database.NewCoinbase(s.genesis.Height, 0, s.payout, nil)
	if err != nil {
		return 0, err
	}

	return coinbase.SigOpCost(), nil
}
