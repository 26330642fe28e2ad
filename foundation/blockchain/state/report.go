package state

import (
	"github.com/ardanlabs/blockminer/foundation/blockchain/validator"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Rejection is a candidate transaction that failed validation.
type Rejection struct {
	TxID chainhash.Hash
	Err  error
}

// Report summarizes what happened to the candidates of one block.
type Report struct {
	Candidates int
	Accepted   int
	Rejected   []Rejection      // In candidate order.
	Cascaded   []chainhash.Hash // Spent an output of a rejected transaction.
	Selected   int
	Weight     uint64
	SigOps     uint64
	Fees       uint64
}

// RejectedByReason counts the rejections per reason.
func (r Report) RejectedByReason() map[string]int {
	counts := make(map[string]int)
	for _, rej := range r.Rejected {
		counts[validator.Reason(rej.Err)]++
	}

	return counts
}
