// Package validator proves candidate transactions economically and
// cryptographically valid. A rejected transaction carries an InvalidError
// naming the stage and, for signature failures, the input that failed.
package validator

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// Set of reasons a transaction is rejected for.
var (
	ErrNoInputs              = errors.New("no inputs")
	ErrNoOutputs             = errors.New("no outputs")
	ErrMoneyRange            = errors.New("value out of money range")
	ErrValuesDontAddUp       = errors.New("values don't add up")
	ErrWeightTooHigh         = errors.New("weight too high")
	ErrFeerateTooLow         = errors.New("feerate too low")
	ErrIdentityMismatch      = errors.New("identity mismatch")
	ErrUnexpectedCoinbase    = errors.New("unexpected coinbase input")
	ErrUnsupportedInputType  = errors.New("unsupported input type")
	ErrUnsupportedSigHash    = errors.New("unsupported sighash type")
	ErrScriptMalformed       = errors.New("claimed locking script malformed")
	ErrWitnessMalformed      = errors.New("witness malformed")
	ErrPubKeyMismatch        = errors.New("pubkeys unequal")
	ErrWitnessScriptMismatch = errors.New("witness script hash unequal")
	ErrSignatureInvalid      = errors.New("signature invalid")
	ErrScriptFailed          = errors.New("script failed")
)

// Stage names the validation step a transaction failed at.
type Stage int

// Set of validation stages in the order they run.
const (
	StageValues Stage = iota
	StageWeight
	StageFeerate
	StageIdentity
	StageSignature
)

var stageNames = [...]string{"values", "weight", "feerate", "identity", "signature"}

// String implements the fmt.Stringer interface.
func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// InvalidError is the reason a transaction was rejected.
type InvalidError struct {
	Stage Stage
	Input int // -1 when the failure is not tied to an input.
	Err   error
}

// Error implements the error interface.
func (ie *InvalidError) Error() string {
	if ie.Input < 0 {
		return fmt.Sprintf("%s: %s", ie.Stage, ie.Err)
	}
	return fmt.Sprintf("%s: input[%d]: %s", ie.Stage, ie.Input, ie.Err)
}

// Unwrap returns the underlying reason.
func (ie *InvalidError) Unwrap() error {
	return ie.Err
}

func invalid(stage Stage, input int, err error) error {
	return &InvalidError{Stage: stage, Input: input, Err: err}
}

// =============================================================================

// Identity policies naming how a record's declared identifier relates to the
// recomputed transaction id.
const (
	IdentityTxID       = "txid"
	IdentitySHA256TxID = "sha256-txid"
)

// Policy holds the limits a transaction is checked against.
type Policy struct {
	MaxTxWeight uint64
	MaxMoney    uint64
	MinFeerate  uint64
	Identity    string
}

// Validator checks candidate transactions against a policy.
type Validator struct {
	policy Policy
}

// New constructs a validator for the specified policy.
func New(policy Policy) (*Validator, error) {
	switch policy.Identity {
	case "":
		policy.Identity = IdentityTxID
	case IdentityTxID, IdentitySHA256TxID:
	default:
		return nil, fmt.Errorf("identity policy %q does not exist", policy.Identity)
	}

	return &Validator{policy: policy}, nil
}

// Validate derives the identity, fee, weight and sig-op cost of the
// transaction and runs the sanity and signature checks. The returned error
// is an *InvalidError when the transaction is rejected.
func (v *Validator) Validate(tx *database.Tx) error {
	if _, err := v.CheckSanity(tx); err != nil {
		return err
	}

	return v.VerifyInputs(*tx)
}

// reasons lists the rejection reasons in the order Reason matches them.
var reasons = []error{
	ErrNoInputs, ErrNoOutputs, ErrMoneyRange, ErrValuesDontAddUp,
	ErrWeightTooHigh, ErrFeerateTooLow, ErrIdentityMismatch,
	ErrUnexpectedCoinbase, ErrUnsupportedInputType, ErrUnsupportedSigHash,
	ErrScriptMalformed, ErrWitnessMalformed, ErrPubKeyMismatch,
	ErrWitnessScriptMismatch, ErrSignatureInvalid, ErrScriptFailed,
}

// Reason returns a short label for a rejection suitable for grouping
// rejections in reports and metrics.
func Reason(err error) string {
	for _, reason := range reasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}

	return "other"
}
