package validator

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
)

// SanityState is the progress of a transaction through the sanity checks.
type SanityState int

// Set of sanity states. A transaction moves forward one state per check and
// stops at Invalid on the first failure.
const (
	Unchecked SanityState = iota
	ValuesOk
	WeightOk
	FeerateOk
	Sane
	Invalid
)

// CheckSanity derives the identity of the transaction and then checks value
// conservation, weight, feerate and identity in that order. Fee, weight and
// sig-op cost are recorded on the transaction as each check passes.
func (v *Validator) CheckSanity(tx *database.Tx) (SanityState, error) {
	tx.Meta.TxID, tx.Meta.WTxID = tx.ComputeIDs()

	checks := []func(tx *database.Tx) error{
		v.checkValues,
		v.checkWeight,
		v.checkFeerate,
		v.checkIdentity,
	}

	state := Unchecked
	for _, check := range checks {
		if err := check(tx); err != nil {
			return Invalid, err
		}
		state++
	}

	return state, nil
}

func (v *Validator) checkValues(tx *database.Tx) error {
	if len(tx.Inputs) == 0 {
		return invalid(StageValues, -1, ErrNoInputs)
	}

	if len(tx.Outputs) == 0 {
		return invalid(StageValues, -1, ErrNoOutputs)
	}

	var in, out uint64
	for i, input := range tx.Inputs {
		if input.IsCoinbase {
			return invalid(StageValues, i, ErrUnexpectedCoinbase)
		}

		if !addMoney(&in, input.PrevOut.Value, v.policy.MaxMoney) {
			return invalid(StageValues, -1, fmt.Errorf("%w: inputs", ErrMoneyRange))
		}
	}

	for _, output := range tx.Outputs {
		if !addMoney(&out, output.Value, v.policy.MaxMoney) {
			return invalid(StageValues, -1, fmt.Errorf("%w: outputs", ErrMoneyRange))
		}
	}

	if in < out {
		return invalid(StageValues, -1, fmt.Errorf("%w: in %d, out %d", ErrValuesDontAddUp, in, out))
	}

	tx.Meta.Fee = in - out

	return nil
}

func (v *Validator) checkWeight(tx *database.Tx) error {
	weight := tx.Weight()
	if weight > v.policy.MaxTxWeight {
		return invalid(StageWeight, -1, fmt.Errorf("%w: %d, max %d", ErrWeightTooHigh, weight, v.policy.MaxTxWeight))
	}

	tx.Meta.Weight = weight
	tx.Meta.SigOpCost = tx.SigOpCost()

	return nil
}

func (v *Validator) checkFeerate(tx *database.Tx) error {
	feerate := tx.Feerate()
	if feerate < v.policy.MinFeerate {
		return invalid(StageFeerate, -1, fmt.Errorf("%w: %d, min %d", ErrFeerateTooLow, feerate, v.policy.MinFeerate))
	}

	return nil
}

// checkIdentity compares the recomputed transaction id with the identifier
// the record was declared under. Records without a declared identifier have
// nothing to compare against.
func (v *Validator) checkIdentity(tx *database.Tx) error {
	if tx.DeclaredID == "" {
		return nil
	}

	var exp string
	switch v.policy.Identity {
	case IdentitySHA256TxID:
		exp = hex.EncodeToString(signature.Sha256(tx.Meta.TxID[:]))
	default:
		exp = tx.Meta.TxID.String()
	}

	if !strings.EqualFold(tx.DeclaredID, exp) {
		return invalid(StageIdentity, -1, fmt.Errorf("%w: declared %s, computed %s", ErrIdentityMismatch, tx.DeclaredID, exp))
	}

	return nil
}

// addMoney adds v to sum when both the value and the new total stay within
// the limit.
func addMoney(sum *uint64, v uint64, limit uint64) bool {
	if v > limit || *sum > limit-v {
		return false
	}

	*sum += v
	return true
}
