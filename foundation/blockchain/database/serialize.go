package database

import (
	"bytes"
	"encoding/binary"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Witness serialization marker and flag bytes written after the version.
const (
	witnessMarker = 0x00
	witnessFlag   = 0x01
)

// VarInt returns the CompactSize encoding of n.
func VarInt(n uint64) []byte {
	var buf bytes.Buffer
	writeVarInt(&buf, n)
	return buf.Bytes()
}

// Outpoint returns the wire form of a previous output reference: the
// natural order txid bytes followed by the little endian output index.
func Outpoint(txID chainhash.Hash, vout uint32) []byte {
	b := make([]byte, chainhash.HashSize+4)
	copy(b, txID[:])
	binary.LittleEndian.PutUint32(b[chainhash.HashSize:], vout)
	return b
}

// Outpoint returns the wire form of the previous output this input spends.
func (in Input) Outpoint() []byte {
	return Outpoint(in.PrevTxID, in.Vout)
}

// SerializeOutput returns the value followed by the length prefixed script.
func SerializeOutput(out Output) []byte {
	var buf bytes.Buffer
	writeOutput(&buf, out)
	return buf.Bytes()
}

// =============================================================================

// HasWitness reports whether any input carries a witness stack.
func (tx Tx) HasWitness() bool {
	for _, in := range tx.Inputs {
		if len(in.Witness) > 0 {
			return true
		}
	}

	return false
}

// SerializeLegacy returns the serialization without marker, flag or
// witness data. This is the transaction id preimage.
func (tx Tx) SerializeLegacy() []byte {
	var buf bytes.Buffer
	tx.serialize(&buf, false)
	return buf.Bytes()
}

// Serialize returns the full serialization, including witness data when any
// input carries a witness.
func (tx Tx) Serialize() []byte {
	var buf bytes.Buffer
	tx.serialize(&buf, tx.HasWitness())
	return buf.Bytes()
}

// ComputeIDs returns the transaction id and the witness transaction id, both
// in natural byte order.
func (tx Tx) ComputeIDs() (txID chainhash.Hash, wtxID chainhash.Hash) {
	txID = chainhash.DoubleHashH(tx.SerializeLegacy())
	wtxID = chainhash.DoubleHashH(tx.Serialize())
	return txID, wtxID
}

// Weight returns the weight of the transaction: four units per non-witness
// byte plus one unit per witness byte, marker and flag included.
func (tx Tx) Weight() uint64 {
	legacy := uint64(len(tx.SerializeLegacy()))
	full := uint64(len(tx.Serialize()))
	return legacy*4 + (full - legacy)
}

// WitnessItems returns the witness stack of every input in the shape the
// wire package expects.
func (in Input) WitnessItems() wire.TxWitness {
	return wire.TxWitness(in.Witness)
}

// SigOpCost returns the signature operation cost of the transaction. Legacy
// sig-ops found in input and output scripts, plus those of a P2SH redeem
// script, count four times. Witness sig-ops count once.
func (tx Tx) SigOpCost() uint64 {
	const scale = 4

	var cost int
	for _, in := range tx.Inputs {
		cost += txscript.GetSigOpCount(in.ScriptSig) * scale
	}
	for _, out := range tx.Outputs {
		cost += txscript.GetSigOpCount(out.ScriptPubKey) * scale
	}

	for _, in := range tx.Inputs {
		if in.IsCoinbase {
			continue
		}

		if txscript.IsPayToScriptHash(in.PrevOut.ScriptPubKey) {
			if redeem := lastPush(in.ScriptSig); len(redeem) > 0 {
				cost += txscript.GetSigOpCount(redeem) * scale
			}
		}

		cost += txscript.GetWitnessSigOpCount(in.ScriptSig, in.PrevOut.ScriptPubKey, in.WitnessItems())
	}

	return uint64(cost)
}

// =============================================================================

func (tx Tx) serialize(buf *bytes.Buffer, witness bool) {
	writeUint32(buf, uint32(tx.Version))

	if witness {
		buf.WriteByte(witnessMarker)
		buf.WriteByte(witnessFlag)
	}

	writeVarInt(buf, uint64(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf.Write(in.Outpoint())
		writeVarBytes(buf, in.ScriptSig)
		writeUint32(buf, in.Sequence)
	}

	writeVarInt(buf, uint64(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		writeOutput(buf, out)
	}

	if witness {
		for _, in := range tx.Inputs {
			writeVarInt(buf, uint64(len(in.Witness)))
			for _, item := range in.Witness {
				writeVarBytes(buf, item)
			}
		}
	}

	writeUint32(buf, tx.LockTime)
}

func writeOutput(buf *bytes.Buffer, out Output) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], out.Value)
	buf.Write(b[:])
	writeVarBytes(buf, out.ScriptPubKey)
}

// Writes to a bytes.Buffer only fail by panicking when out of memory, so the
// wire errors below are always nil.

func writeVarInt(buf *bytes.Buffer, n uint64) {
	_ = wire.WriteVarInt(buf, 0, n)
}

func writeVarBytes(buf *bytes.Buffer, b []byte) {
	_ = wire.WriteVarBytes(buf, 0, b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

// lastPush returns the data of the final push in the script, nil if the
// script fails to parse or does not end in a push.
func lastPush(script []byte) []byte {
	var data []byte

	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		data = tokenizer.Data()
	}

	if tokenizer.Err() != nil {
		return nil
	}

	return data
}
