package validator

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/btcsuite/btcd/txscript"
)

// SigHashAll is the only sighash type signatures are checked under.
const SigHashAll = uint32(txscript.SigHashAll)

// LegacySigHash returns the digest a legacy signature for input idx commits
// to. The signing input carries its previous output locking script, every
// other input an empty script.
func LegacySigHash(tx database.Tx, idx int, hashType uint32) []byte {
	var buf bytes.Buffer

	writeUint32(&buf, uint32(tx.Version))

	buf.Write(database.VarInt(uint64(len(tx.Inputs))))
	for i, in := range tx.Inputs {
		buf.Write(in.Outpoint())

		switch i {
		case idx:
			buf.Write(database.VarInt(uint64(len(in.PrevOut.ScriptPubKey))))
			buf.Write(in.PrevOut.ScriptPubKey)
		default:
			buf.Write(database.VarInt(0))
		}

		writeUint32(&buf, in.Sequence)
	}

	buf.Write(database.VarInt(uint64(len(tx.Outputs))))
	for _, out := range tx.Outputs {
		buf.Write(database.SerializeOutput(out))
	}

	writeUint32(&buf, tx.LockTime)
	writeUint32(&buf, hashType)

	return signature.DoubleHash(buf.Bytes())
}

// WitnessV0SigHash returns the BIP143 digest a version 0 witness signature
// for input idx commits to, using the supplied script code.
func WitnessV0SigHash(tx database.Tx, idx int, scriptCode []byte, hashType uint32) []byte {
	var prevouts, sequences, outputs bytes.Buffer
	for _, in := range tx.Inputs {
		prevouts.Write(in.Outpoint())
		writeUint32(&sequences, in.Sequence)
	}
	for _, out := range tx.Outputs {
		outputs.Write(database.SerializeOutput(out))
	}

	in := tx.Inputs[idx]

	var buf bytes.Buffer
	writeUint32(&buf, uint32(tx.Version))
	buf.Write(signature.DoubleHash(prevouts.Bytes()))
	buf.Write(signature.DoubleHash(sequences.Bytes()))
	buf.Write(in.Outpoint())
	buf.Write(database.VarInt(uint64(len(scriptCode))))
	buf.Write(scriptCode)
	writeUint64(&buf, in.PrevOut.Value)
	writeUint32(&buf, in.Sequence)
	buf.Write(signature.DoubleHash(outputs.Bytes()))
	writeUint32(&buf, tx.LockTime)
	writeUint32(&buf, hashType)

	return signature.DoubleHash(buf.Bytes())
}

// P2WPKHScriptCode returns the script code a P2WPKH input signs:
// DUP HASH160 <pubKeyHash> EQUALVERIFY CHECKSIG.
func P2WPKHScriptCode(pubKeyHash []byte) ([]byte, error) {
	scriptCode, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return nil, fmt.Errorf("script code: %w", err)
	}

	return scriptCode, nil
}

// =============================================================================

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}
