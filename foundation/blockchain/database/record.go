package database

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Record is the serialized form of a candidate transaction as supplied by
// the external loader.
type Record struct {
	Version  int32       `json:"version"`
	LockTime uint32      `json:"locktime"`
	Vin      []RecordIn  `json:"vin" validate:"dive"`
	Vout     []RecordOut `json:"vout" validate:"dive"`
}

// RecordIn is the serialized form of an input.
type RecordIn struct {
	TxID       string     `json:"txid" validate:"required,hexadecimal,len=64"`
	Vout       uint32     `json:"vout"`
	ScriptSig  string     `json:"scriptsig" validate:"omitempty,hexadecimal"`
	Witness    []string   `json:"witness" validate:"dive,omitempty,hexadecimal"`
	IsCoinbase bool       `json:"is_coinbase"`
	Sequence   uint32     `json:"sequence"`
	PrevOut    RecordPrev `json:"prevout"`
}

// RecordPrev is the serialized form of the claimed previous output.
type RecordPrev struct {
	ScriptPubKey     string `json:"scriptpubkey" validate:"omitempty,hexadecimal"`
	ScriptPubKeyType string `json:"scriptpubkey_type" validate:"required"`
	Value            uint64 `json:"value"`
}

// RecordOut is the serialized form of an output.
type RecordOut struct {
	ScriptPubKey     string `json:"scriptpubkey" validate:"omitempty,hexadecimal"`
	ScriptPubKeyType string `json:"scriptpubkey_type"`
	Value            uint64 `json:"value"`
}

// NewTx converts a record into a transaction. Only version, locktime, inputs
// and outputs are populated, the metadata is left for the validator. Any
// decoding failure is a structural error.
func NewTx(rec Record, declaredID string) (Tx, error) {
	tx := Tx{
		Version:    rec.Version,
		LockTime:   rec.LockTime,
		Inputs:     make([]Input, 0, len(rec.Vin)),
		Outputs:    make([]Output, 0, len(rec.Vout)),
		DeclaredID: declaredID,
	}

	for i, ri := range rec.Vin {
		prevTxID, err := chainhash.NewHashFromStr(ri.TxID)
		if err != nil {
			return Tx{}, fmt.Errorf("vin[%d]: txid: %w", i, err)
		}

		scriptSig, err := hex.DecodeString(ri.ScriptSig)
		if err != nil {
			return Tx{}, fmt.Errorf("vin[%d]: scriptsig: %w", i, err)
		}

		var witness [][]byte
		for j, item := range ri.Witness {
			b, err := hex.DecodeString(item)
			if err != nil {
				return Tx{}, fmt.Errorf("vin[%d]: witness[%d]: %w", i, j, err)
			}
			witness = append(witness, b)
		}

		scriptPubKey, err := hex.DecodeString(ri.PrevOut.ScriptPubKey)
		if err != nil {
			return Tx{}, fmt.Errorf("vin[%d]: prevout scriptpubkey: %w", i, err)
		}

		tx.Inputs = append(tx.Inputs, Input{
			PrevTxID:   *prevTxID,
			Vout:       ri.Vout,
			ScriptSig:  scriptSig,
			Witness:    witness,
			IsCoinbase: ri.IsCoinbase,
			Sequence:   ri.Sequence,
			PrevOut: PrevOut{
				Value:        ri.PrevOut.Value,
				ScriptPubKey: scriptPubKey,
				ScriptType:   ri.PrevOut.ScriptPubKeyType,
			},
			Type: ParseInputType(ri.PrevOut.ScriptPubKeyType),
		})
	}

	for i, ro := range rec.Vout {
		scriptPubKey, err := hex.DecodeString(ro.ScriptPubKey)
		if err != nil {
			return Tx{}, fmt.Errorf("vout[%d]: scriptpubkey: %w", i, err)
		}

		tx.Outputs = append(tx.Outputs, Output{
			Value:        ro.Value,
			ScriptPubKey: scriptPubKey,
		})
	}

	return tx, nil
}
