// Package selector provides different transaction ordering algorithms.
package selector

import (
	"fmt"
	"math/bits"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// List of different select strategies.
const (
	StrategyAncestor = "ancestor"
	StrategyFeerate  = "feerate"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyAncestor: ancestorSelect,
	StrategyFeerate:  feerateSelect,
}

// Func defines a function that takes the candidate transactions in pool
// order and returns them in the order they should be mined. All selector
// functions MUST place every in-pool parent before its children.
type Func func(transactions []database.Tx) []database.Tx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// putParentsFirst scans the list and, whenever a transaction's parent shows
// up later than the transaction, moves the parent to just before it and
// starts the scan over. It stops once a full scan moves nothing.
func putParentsFirst(txs []database.Tx) []database.Tx {
	for {
		index := make(map[chainhash.Hash]int, len(txs))
		for i, tx := range txs {
			index[tx.Meta.TxID] = i
		}

		if !moveParent(txs, index) {
			return txs
		}
	}
}

// moveParent performs the first relocation the scan finds.
func moveParent(txs []database.Tx, index map[chainhash.Hash]int) bool {
	for i, tx := range txs {
		for _, parentID := range tx.Meta.Parents {
			j, exists := index[parentID]
			if !exists || j < i {
				continue
			}

			parent := txs[j]
			copy(txs[i+1:j+1], txs[i:j])
			txs[i] = parent
			return true
		}
	}

	return false
}

// greater reports whether feeA/weightA is strictly greater than
// feeB/weightB, comparing the 128 bit cross products.
func greater(feeA, weightA, feeB, weightB uint64) bool {
	hiA, loA := bits.Mul64(feeA, weightB)
	hiB, loB := bits.Mul64(feeB, weightA)

	if hiA != hiB {
		return hiA > hiB
	}
	return loA > loB
}

// =============================================================================

// byPackageFeerate provides sorting support by the package feerate.
type byPackageFeerate []database.Tx

// Len returns the number of transactions in the list.
func (bp byPackageFeerate) Len() int {
	return len(bp)
}

// Less helps to sort the list by package feerate in descending order so
// children paying for their parents are picked early.
func (bp byPackageFeerate) Less(i, j int) bool {
	return greater(bp[i].Meta.PackageFee, bp[i].Meta.PackageWeight, bp[j].Meta.PackageFee, bp[j].Meta.PackageWeight)
}

// Swap moves transactions in the order of the package feerate.
func (bp byPackageFeerate) Swap(i, j int) {
	bp[i], bp[j] = bp[j], bp[i]
}

// =============================================================================

// byFeerate provides sorting support by the transaction's own feerate.
type byFeerate []database.Tx

// Len returns the number of transactions in the list.
func (bf byFeerate) Len() int {
	return len(bf)
}

// Less helps to sort the list by feerate in descending order.
func (bf byFeerate) Less(i, j int) bool {
	return greater(bf[i].Meta.Fee, bf[i].Meta.Weight, bf[j].Meta.Fee, bf[j].Meta.Weight)
}

// Swap moves transactions in the order of the feerate.
func (bf byFeerate) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}
