package mempool

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// AssignParents records, for every transaction, the ids of the in-pool
// transactions its inputs spend.
func (mp *Mempool) AssignParents() {
	for _, txID := range mp.order {
		tx := mp.pool[txID]

		tx.Meta.Parents = nil
		seen := make(map[chainhash.Hash]bool)
		for _, in := range tx.Inputs {
			if _, exists := mp.pool[in.PrevTxID]; !exists || seen[in.PrevTxID] {
				continue
			}
			seen[in.PrevTxID] = true
			tx.Meta.Parents = append(tx.Meta.Parents, in.PrevTxID)
		}

		mp.pool[txID] = tx
	}
}

// RemoveInvalid deletes the invalid transactions and every transaction that
// spends, directly or transitively, an invalid one. The ids removed because
// of an invalid ancestor are returned in pool order.
func (mp *Mempool) RemoveInvalid(invalid map[chainhash.Hash]error) []chainhash.Hash {
	excluded := make(map[chainhash.Hash]bool, len(invalid))
	for txID := range invalid {
		excluded[txID] = true
	}

	var cascaded []chainhash.Hash
	for changed := true; changed; {
		changed = false

		for _, txID := range mp.order {
			if excluded[txID] {
				continue
			}

			for _, in := range mp.pool[txID].Inputs {
				if excluded[in.PrevTxID] {
					excluded[txID] = true
					cascaded = append(cascaded, txID)
					changed = true
					break
				}
			}
		}
	}

	isCascaded := make(map[chainhash.Hash]bool, len(cascaded))
	for _, txID := range cascaded {
		isCascaded[txID] = true
	}

	ordered := make([]chainhash.Hash, 0, len(cascaded))
	for _, txID := range mp.order {
		if isCascaded[txID] {
			ordered = append(ordered, txID)
		}
	}

	removed := make([]chainhash.Hash, 0, len(excluded))
	for txID := range excluded {
		removed = append(removed, txID)
	}
	mp.Delete(removed...)

	return ordered
}

// ComputePackages sets the package fee, weight and feerate of every
// transaction. A package is the transaction plus the packages of its
// parents, so an ancestor reached through two parents counts twice. The
// parents must be assigned first.
func (mp *Mempool) ComputePackages() {
	type pkg struct {
		fee    uint64
		weight uint64
	}

	memo := make(map[chainhash.Hash]pkg)
	visiting := make(map[chainhash.Hash]bool)

	var visit func(txID chainhash.Hash) pkg
	visit = func(txID chainhash.Hash) pkg {
		if p, exists := memo[txID]; exists {
			return p
		}

		tx := mp.pool[txID]
		p := pkg{fee: tx.Meta.Fee, weight: tx.Meta.Weight}

		visiting[txID] = true
		for _, parentID := range tx.Meta.Parents {
			if visiting[parentID] {
				continue
			}
			pp := visit(parentID)
			p.fee += pp.fee
			p.weight += pp.weight
		}
		visiting[txID] = false

		memo[txID] = p
		return p
	}

	for _, txID := range mp.order {
		p := visit(txID)

		tx := mp.pool[txID]
		tx.Meta.PackageFee = p.fee
		tx.Meta.PackageWeight = p.weight
		if p.weight > 0 {
			tx.Meta.PackageFeerate = p.fee / p.weight
		}
		mp.pool[txID] = tx
	}
}
