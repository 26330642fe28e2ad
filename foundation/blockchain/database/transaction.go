package database

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// InputKind is the closed set of locking script types an input can spend.
type InputKind int

// Set of input kinds derived from the declared previous output script type.
const (
	KindUnknown InputKind = iota
	KindP2PKH
	KindP2WPKH
	KindP2WSH
	KindP2SH
	KindP2TR
)

var kindNames = map[string]InputKind{
	"p2pkh":     KindP2PKH,
	"v0_p2wpkh": KindP2WPKH,
	"v0_p2wsh":  KindP2WSH,
	"p2sh":      KindP2SH,
	"v1_p2tr":   KindP2TR,
}

// InputType is the tag computed once at load time from the declared script
// type string. Declared keeps the original string so unknown types can be
// reported verbatim.
type InputType struct {
	Kind     InputKind
	Declared string
}

// ParseInputType maps a declared script type onto an input type.
func ParseInputType(declared string) InputType {
	return InputType{
		Kind:     kindNames[declared],
		Declared: declared,
	}
}

// String implements the fmt.Stringer interface.
func (it InputType) String() string {
	if it.Kind == KindUnknown {
		return fmt.Sprintf("unknown(%s)", it.Declared)
	}

	return it.Declared
}

// =============================================================================

// PrevOut is the claimed previous output an input spends. It is trusted as
// supplied by the record.
type PrevOut struct {
	Value        uint64
	ScriptPubKey []byte
	ScriptType   string
}

// Input references a previous output and carries the data to unlock it.
type Input struct {
	PrevTxID   chainhash.Hash // Natural byte order.
	Vout       uint32
	ScriptSig  []byte
	Witness    [][]byte
	IsCoinbase bool
	Sequence   uint32
	PrevOut    PrevOut
	Type       InputType
}

// Output is a value locked by a script.
type Output struct {
	Value        uint64
	ScriptPubKey []byte
}

// Meta holds the facts the pipeline derives about a transaction. A field is
// undefined until the stage responsible for it has run.
type Meta struct {
	Fee            uint64
	Weight         uint64
	SigOpCost      uint64
	TxID           chainhash.Hash
	WTxID          chainhash.Hash
	Parents        []chainhash.Hash
	PackageFee     uint64
	PackageWeight  uint64
	PackageFeerate uint64
}

// Tx is a candidate transaction.
type Tx struct {
	Version    int32
	LockTime   uint32
	Inputs     []Input
	Outputs    []Output
	DeclaredID string
	Meta       Meta
}

// InputSum returns the sum of the claimed previous output values.
func (tx Tx) InputSum() uint64 {
	var sum uint64
	for _, in := range tx.Inputs {
		sum += in.PrevOut.Value
	}

	return sum
}

// OutputSum returns the sum of the output values.
func (tx Tx) OutputSum() uint64 {
	var sum uint64
	for _, out := range tx.Outputs {
		sum += out.Value
	}

	return sum
}

// VSize returns the virtual size of the transaction, weight divided by four
// using floor division.
func (tx Tx) VSize() uint64 {
	return tx.Meta.Weight / 4
}

// Feerate returns the fee paid per virtual byte using floor division.
func (tx Tx) Feerate() uint64 {
	vsize := tx.VSize()
	if vsize == 0 {
		return 0
	}

	return tx.Meta.Fee / vsize
}

// Hash implements the merkle Hashable interface for providing the hash a
// block commits to, the transaction id in natural byte order.
func (tx Tx) Hash() ([]byte, error) {
	h := tx.Meta.TxID
	return h[:], nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	return tx.Meta.TxID == otherTx.Meta.TxID
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:fee[%s]:weight[%d]", tx.Meta.TxID, btcutil.Amount(tx.Meta.Fee), tx.Meta.Weight)
}
