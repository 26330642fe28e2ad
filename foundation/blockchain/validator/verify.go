package validator

import (
	"bytes"
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/script"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/btcsuite/btcd/txscript"
)

// Witness program shapes: version 0 followed by a 20 or 32 byte push.
const (
	p2wpkhScriptLen = 22
	p2wshScriptLen  = 34
)

// VerifyInputs checks every input of the transaction, stopping at the
// first failure.
func (v *Validator) VerifyInputs(tx database.Tx) error {
	for idx := range tx.Inputs {
		if err := VerifyInput(tx, idx); err != nil {
			return invalid(StageSignature, idx, err)
		}
	}

	return nil
}

// VerifyInput checks input idx according to its input type. Input types
// without a verifier are rejected.
func VerifyInput(tx database.Tx, idx int) error {
	in := tx.Inputs[idx]

	switch in.Type.Kind {
	case database.KindP2PKH:
		return verifyP2PKH(tx, idx)

	case database.KindP2WPKH:
		return verifyP2WPKH(tx, idx)

	case database.KindP2WSH:
		return verifyP2WSH(tx, idx)

	case database.KindP2SH, database.KindP2TR, database.KindUnknown:
		return fmt.Errorf("%w: %s", ErrUnsupportedInputType, in.Type)
	}

	return fmt.Errorf("%w: %s", ErrUnsupportedInputType, in.Type)
}

// verifyP2PKH runs the unlocking script followed by the claimed locking
// script through the interpreter.
func verifyP2PKH(tx database.Tx, idx int) error {
	in := tx.Inputs[idx]

	full := make([]byte, 0, len(in.ScriptSig)+len(in.PrevOut.ScriptPubKey))
	full = append(full, in.ScriptSig...)
	full = append(full, in.PrevOut.ScriptPubKey...)

	txCtx := script.TxContext{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Sequence: in.Sequence,
	}

	if err := script.Execute(full, txCtx, LegacySigChecker(tx, idx)); err != nil {
		return fmt.Errorf("%w: %w", ErrScriptFailed, err)
	}

	return nil
}

// LegacySigChecker returns the CHECKSIG implementation for a legacy input.
// Signatures under any sighash type other than ALL are treated as invalid.
func LegacySigChecker(tx database.Tx, idx int) script.SigChecker {
	return func(sig []byte, pubKey []byte) bool {
		der, hashType, err := signature.SplitSigHashType(sig)
		if err != nil || hashType != SigHashAll {
			return false
		}

		digest := LegacySigHash(tx, idx, hashType)
		return signature.Verify(digest, pubKey, der) == nil
	}
}

// verifyP2WPKH checks the witness public key hashes to the program of the
// claimed locking script before verifying the signature over the BIP143
// digest.
func verifyP2WPKH(tx database.Tx, idx int) error {
	in := tx.Inputs[idx]

	program := in.PrevOut.ScriptPubKey
	if len(program) != p2wpkhScriptLen || program[0] != txscript.OP_0 || program[1] != txscript.OP_DATA_20 {
		return fmt.Errorf("%w: %x", ErrScriptMalformed, program)
	}

	if len(in.Witness) != 2 {
		return fmt.Errorf("%w: expected 2 items, got %d", ErrWitnessMalformed, len(in.Witness))
	}
	sig, pubKey := in.Witness[0], in.Witness[1]

	pubKeyHash := program[2:]
	if !bytes.Equal(signature.Hash160(pubKey), pubKeyHash) {
		return fmt.Errorf("%w: witness %x, script %x", ErrPubKeyMismatch, signature.Hash160(pubKey), pubKeyHash)
	}

	der, hashType, err := signature.SplitSigHashType(sig)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	if hashType != SigHashAll {
		return fmt.Errorf("%w: 0x%02x", ErrUnsupportedSigHash, hashType)
	}

	scriptCode, err := P2WPKHScriptCode(pubKeyHash)
	if err != nil {
		return err
	}

	digest := WitnessV0SigHash(tx, idx, scriptCode, hashType)
	if err := signature.Verify(digest, pubKey, der); err != nil {
		return fmt.Errorf("%w: %w", ErrSignatureInvalid, err)
	}

	return nil
}

// verifyP2WSH checks the witness script hashes to the program of the
// claimed locking script. Evaluating the witness script is not supported,
// so a matching input is still rejected.
func verifyP2WSH(tx database.Tx, idx int) error {
	in := tx.Inputs[idx]

	program := in.PrevOut.ScriptPubKey
	if len(program) != p2wshScriptLen || program[0] != txscript.OP_0 || program[1] != txscript.OP_DATA_32 {
		return fmt.Errorf("%w: %x", ErrScriptMalformed, program)
	}

	if len(in.Witness) == 0 {
		return fmt.Errorf("%w: empty witness", ErrWitnessMalformed)
	}

	witnessScript := in.Witness[len(in.Witness)-1]
	if !bytes.Equal(signature.Sha256(witnessScript), program[2:]) {
		return fmt.Errorf("%w: witness %x, script %x", ErrWitnessScriptMismatch, signature.Sha256(witnessScript), program[2:])
	}

	return fmt.Errorf("%w: %s witness script evaluation", ErrUnsupportedInputType, in.Type)
}
