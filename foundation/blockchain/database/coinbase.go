package database

import (
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/merkle"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
)

// witnessCommitmentHeader prefixes the witness commitment output script:
// OP_RETURN, a 36 byte push and the commitment magic.
var witnessCommitmentHeader = []byte{txscript.OP_RETURN, 0x24, 0xaa, 0x21, 0xa9, 0xed}

// The null previous output spent by a coinbase and its final sequence.
const (
	coinbaseIndex    = 0xffffffff
	coinbaseSequence = 0xffffffff
)

// NewCoinbase constructs the coinbase transaction for a block at the given
// height paying the collected fees to the payout script. The wtxids are
// those of the block's other transactions in block order and are committed
// to through an OP_RETURN output.
func NewCoinbase(height int64, fees uint64, payout []byte, wtxIDs []chainhash.Hash) (Tx, error) {
	scriptSig, err := txscript.NewScriptBuilder().AddInt64(height).Script()
	if err != nil {
		return Tx{}, fmt.Errorf("coinbase script: %w", err)
	}

	var reserved chainhash.Hash

	commitment, err := WitnessCommitment(wtxIDs, reserved)
	if err != nil {
		return Tx{}, err
	}

	tx := Tx{
		Version: 1,
		Inputs: []Input{
			{
				Vout:       coinbaseIndex,
				ScriptSig:  scriptSig,
				Witness:    [][]byte{reserved[:]},
				IsCoinbase: true,
				Sequence:   coinbaseSequence,
			},
		},
		Outputs: []Output{
			{
				Value:        fees,
				ScriptPubKey: payout,
			},
			{
				Value:        0,
				ScriptPubKey: append(append([]byte{}, witnessCommitmentHeader...), commitment[:]...),
			},
		},
	}

	tx.Meta.TxID, tx.Meta.WTxID = tx.ComputeIDs()
	tx.Meta.Weight = tx.Weight()

	return tx, nil
}

// WitnessCommitment returns double sha256 of the witness merkle root and the
// reserved value. The witness root is built over the coinbase wtxid, taken
// as zero, followed by the given wtxids.
func WitnessCommitment(wtxIDs []chainhash.Hash, reserved chainhash.Hash) (chainhash.Hash, error) {
	leaves := make([]witnessLeaf, 0, len(wtxIDs)+1)
	leaves = append(leaves, witnessLeaf{})
	for _, id := range wtxIDs {
		leaves = append(leaves, witnessLeaf(id))
	}

	tree, err := merkle.NewTree(leaves)
	if err != nil {
		return chainhash.Hash{}, err
	}

	preimage := make([]byte, 0, 2*chainhash.HashSize)
	preimage = append(preimage, tree.MerkleRoot...)
	preimage = append(preimage, reserved[:]...)

	return chainhash.DoubleHashH(preimage), nil
}

// witnessLeaf is a wtxid placed in the witness merkle tree.
type witnessLeaf chainhash.Hash

func (l witnessLeaf) Hash() ([]byte, error) {
	return l[:], nil
}

func (l witnessLeaf) Equals(other witnessLeaf) bool {
	return l == other
}
