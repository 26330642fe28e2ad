package selector

import (
	"sort"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// ancestorSelect orders transactions by the feerate of their package, the
// transaction plus all its in-pool ancestors, then fixes up the order so
// parents come first. Ties keep pool order.
var ancestorSelect = func(txs []database.Tx) []database.Tx {
	final := make([]database.Tx, len(txs))
	copy(final, txs)

	sort.Stable(byPackageFeerate(final))

	return putParentsFirst(final)
}
