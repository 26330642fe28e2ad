package mempool

import "github.com/ardanlabs/blockminer/foundation/blockchain/database"

// Limits is the capacity left in the block for pool transactions.
type Limits struct {
	Weight uint64
	SigOps uint64
}

// Cut walks the ordered transactions and accepts each one while its weight
// and sig-op cost fit the remaining budget. The first transaction that does
// not fit ends the walk.
func Cut(txs []database.Tx, limits Limits) []database.Tx {
	weight := limits.Weight
	sigOps := limits.SigOps

	for i, tx := range txs {
		if tx.Meta.Weight > weight || tx.Meta.SigOpCost > sigOps {
			return txs[:i]
		}

		weight -= tx.Meta.Weight
		sigOps -= tx.Meta.SigOpCost
	}

	return txs
}
