package selector

import (
	"sort"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// feerateSelect orders transactions by their own feerate, ignoring what
// their ancestors pay, then fixes up the order so parents come first.
var feerateSelect = func(txs []database.Tx) []database.Tx {
	final := make([]database.Tx, len(txs))
	copy(final, txs)

	sort.Stable(byFeerate(final))

	return putParentsFirst(final)
}
