// Package mempool maintains the candidate pool of transactions for the
// block being assembled.
package mempool

import (
	"errors"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool/selector"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Mempool represents the candidate transactions of one run keyed by
// transaction id. Insertion order is kept so every walk over the pool is
// deterministic. The pool is owned by one pipeline stage at a time and is
// not safe for concurrent use.
type Mempool struct {
	pool     map[chainhash.Hash]database.Tx
	order    []chainhash.Hash
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyAncestor)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[chainhash.Hash]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	return len(mp.pool)
}

// Upsert adds or replaces a transaction in the mempool. The transaction
// id must already be derived.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	if tx.Meta.TxID == (chainhash.Hash{}) {
		return 0, errors.New("transaction id not derived")
	}

	if _, exists := mp.pool[tx.Meta.TxID]; !exists {
		mp.order = append(mp.order, tx.Meta.TxID)
	}
	mp.pool[tx.Meta.TxID] = tx

	return len(mp.pool), nil
}

// Get returns the transaction for the specified id.
func (mp *Mempool) Get(txID chainhash.Hash) (database.Tx, bool) {
	tx, exists := mp.pool[txID]
	return tx, exists
}

// Delete removes the transactions from the mempool.
func (mp *Mempool) Delete(txIDs ...chainhash.Hash) {
	for _, txID := range txIDs {
		delete(mp.pool, txID)
	}

	order := mp.order[:0]
	for _, txID := range mp.order {
		if _, exists := mp.pool[txID]; exists {
			order = append(order, txID)
		}
	}
	mp.order = order
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.pool = make(map[chainhash.Hash]database.Tx)
	mp.order = nil
}

// Values returns the transactions in insertion order.
func (mp *Mempool) Values() []database.Tx {
	txs := make([]database.Tx, 0, len(mp.order))
	for _, txID := range mp.order {
		txs = append(txs, mp.pool[txID])
	}

	return txs
}

// PickBest uses the configured sort strategy to order the pool and returns
// the prefix of that order that fits the limits.
func (mp *Mempool) PickBest(limits Limits) []database.Tx {
	return Cut(mp.selectFn(mp.Values()), limits)
}
