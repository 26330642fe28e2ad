// Package script implements the stack machine that evaluates the
// concatenation of an unlocking script and a locking script.
package script

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/btcsuite/btcd/txscript"
)

// Set of errors a script evaluation can halt with.
var (
	ErrStackUnderflow    = errors.New("stack underflow")
	ErrUnsupportedOpcode = errors.New("unsupported opcode")
	ErrVerifyFailed      = errors.New("verify failed")
	ErrLockTime          = errors.New("locktime requirement not satisfied")
	ErrSequence          = errors.New("sequence requirement not satisfied")
	ErrEvalFalse         = errors.New("script evaluated to false")
	ErrMalformed         = errors.New("malformed script")
)

// Lock time constants.
const (
	lockTimeThreshold       = 500_000_000
	maxSequence             = 0xffffffff
	sequenceDisableFlag     = 1 << 31
	sequenceTypeFlag        = 1 << 22
	sequenceLockTimeMask    = 0x0000ffff
	maxLockTimeNumberLength = 5
)

// SigChecker reports whether the signature, sighash byte included, is valid
// for the public key and the transaction being evaluated.
type SigChecker func(sig []byte, pubKey []byte) bool

// TxContext carries the fields of the spending transaction that the lock
// time opcodes inspect.
type TxContext struct {
	Version  int32
	LockTime uint32
	Sequence uint32
}

// State represents the state of the machine.
type State int

// Set of machine states.
const (
	Running State = iota
	HaltedValid
	HaltedInvalid
)

// =============================================================================

// VM is a stack machine over byte strings.
type VM struct {
	stack    [][]byte
	tx       TxContext
	checkSig SigChecker
	state    State
	err      error
}

// New constructs a machine with an empty stack.
func New(tx TxContext, checkSig SigChecker) *VM {
	return &VM{
		tx:       tx,
		checkSig: checkSig,
		state:    Running,
	}
}

// Execute evaluates the script on a new machine and returns nil only if it
// halts valid.
func Execute(script []byte, tx TxContext, checkSig SigChecker) error {
	return New(tx, checkSig).Run(script)
}

// State returns the current state of the machine.
func (vm *VM) State() State {
	return vm.state
}

// Stack returns a copy of the current stack, bottom first.
func (vm *VM) Stack() [][]byte {
	stack := make([][]byte, len(vm.stack))
	copy(stack, vm.stack)
	return stack
}

// Run consumes the script one opcode at a time. The machine must end with a
// truthy element on top of the stack to halt valid.
func (vm *VM) Run(script []byte) error {
	if vm.state != Running {
		return fmt.Errorf("machine halted: %w", vm.err)
	}

	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		if err := vm.step(tokenizer.Opcode(), tokenizer.Data()); err != nil {
			return vm.halt(err)
		}
	}

	if err := tokenizer.Err(); err != nil {
		return vm.halt(fmt.Errorf("%w: %s", ErrMalformed, err))
	}

	if len(vm.stack) == 0 || !castToBool(vm.stack[len(vm.stack)-1]) {
		return vm.halt(ErrEvalFalse)
	}

	vm.state = HaltedValid
	return nil
}

func (vm *VM) halt(err error) error {
	vm.state = HaltedInvalid
	vm.err = err
	return err
}

// step executes a single opcode.
func (vm *VM) step(op byte, data []byte) error {
	switch {
	case op <= txscript.OP_PUSHDATA4:
		vm.push(append([]byte{}, data...))
		return nil

	case op == txscript.OP_1NEGATE:
		vm.push([]byte{0x81})
		return nil

	case op >= txscript.OP_1 && op <= txscript.OP_16:
		vm.push([]byte{op - txscript.OP_1 + 1})
		return nil
	}

	name := opcodeName(op)

	if err := vm.require(op); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	switch op {
	case txscript.OP_DUP:
		vm.push(vm.peek(0))

	case txscript.OP_DROP:
		vm.pop()

	case txscript.OP_SWAP:
		n := len(vm.stack)
		vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

	case txscript.OP_ROT:
		n := len(vm.stack)
		x1 := vm.stack[n-3]
		vm.stack[n-3] = vm.stack[n-2]
		vm.stack[n-2] = vm.stack[n-1]
		vm.stack[n-1] = x1

	case txscript.OP_OVER:
		vm.push(vm.peek(1))

	case txscript.OP_IFDUP:
		if castToBool(vm.peek(0)) {
			vm.push(vm.peek(0))
		}

	case txscript.OP_SIZE:
		vm.push(encodeNum(int64(len(vm.peek(0)))))

	case txscript.OP_EQUAL, txscript.OP_EQUALVERIFY:
		b, a := vm.pop(), vm.pop()
		equal := bytes.Equal(normalize(a), normalize(b))
		if op == txscript.OP_EQUALVERIFY {
			if !equal {
				return fmt.Errorf("%s: %w", name, ErrVerifyFailed)
			}
			break
		}
		vm.push(fromBool(equal))

	case txscript.OP_GREATERTHAN:
		b, a := vm.pop(), vm.pop()
		vm.push(fromBool(toBig(a).Cmp(toBig(b)) > 0))

	case txscript.OP_VERIFY:
		if !castToBool(vm.pop()) {
			return fmt.Errorf("%s: %w", name, ErrVerifyFailed)
		}

	case txscript.OP_SHA256:
		vm.push(signature.Sha256(vm.pop()))

	case txscript.OP_HASH160:
		vm.push(signature.Hash160(vm.pop()))

	case txscript.OP_CHECKLOCKTIMEVERIFY:
		if err := vm.checkLockTime(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

	case txscript.OP_CHECKSEQUENCEVERIFY:
		if err := vm.checkSequence(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}

	case txscript.OP_CHECKSIG, txscript.OP_CHECKSIGVERIFY:
		pubKey, sig := vm.pop(), vm.pop()
		valid := vm.checkSig != nil && vm.checkSig(sig, pubKey)
		if op == txscript.OP_CHECKSIGVERIFY {
			if !valid {
				return fmt.Errorf("%s: %w", name, ErrVerifyFailed)
			}
			break
		}
		vm.push(fromBool(valid))

	default:
		return fmt.Errorf("%s: %w", name, ErrUnsupportedOpcode)
	}

	return nil
}

// require checks the minimum stack depth an opcode needs.
func (vm *VM) require(op byte) error {
	depth, ok := minDepth[op]
	if !ok {
		return nil
	}

	if len(vm.stack) < depth {
		return fmt.Errorf("%w: need %d, have %d", ErrStackUnderflow, depth, len(vm.stack))
	}

	return nil
}

// checkLockTime implements BIP65. The stack element is inspected, not
// removed.
func (vm *VM) checkLockTime() error {
	lockTime, err := decodeNum(vm.peek(0), maxLockTimeNumberLength)
	if err != nil {
		return err
	}

	if lockTime < 0 {
		return fmt.Errorf("%w: negative locktime %d", ErrLockTime, lockTime)
	}

	txLockTime := int64(vm.tx.LockTime)
	if (txLockTime < lockTimeThreshold) != (lockTime < lockTimeThreshold) {
		return fmt.Errorf("%w: mismatched locktime types, tx %d, stack %d", ErrLockTime, txLockTime, lockTime)
	}

	if lockTime > txLockTime {
		return fmt.Errorf("%w: locktime %d not reached by tx locktime %d", ErrLockTime, lockTime, txLockTime)
	}

	if vm.tx.Sequence == maxSequence {
		return fmt.Errorf("%w: input sequence is final", ErrLockTime)
	}

	return nil
}

// checkSequence implements BIP112. The stack element is inspected, not
// removed.
func (vm *VM) checkSequence() error {
	stackSequence, err := decodeNum(vm.peek(0), maxLockTimeNumberLength)
	if err != nil {
		return err
	}

	if stackSequence < 0 {
		return fmt.Errorf("%w: negative sequence %d", ErrSequence, stackSequence)
	}

	if stackSequence&sequenceDisableFlag != 0 {
		return nil
	}

	if vm.tx.Version < 2 {
		return fmt.Errorf("%w: tx version %d below 2", ErrSequence, vm.tx.Version)
	}

	txSequence := int64(vm.tx.Sequence)
	if txSequence&sequenceDisableFlag != 0 {
		return fmt.Errorf("%w: input sequence has the disable flag set", ErrSequence)
	}

	if stackSequence&sequenceTypeFlag != txSequence&sequenceTypeFlag {
		return fmt.Errorf("%w: mismatched relative locktime types", ErrSequence)
	}

	if stackSequence&sequenceLockTimeMask > txSequence&sequenceLockTimeMask {
		return fmt.Errorf("%w: relative locktime %d not reached by sequence %d", ErrSequence, stackSequence&sequenceLockTimeMask, txSequence&sequenceLockTimeMask)
	}

	return nil
}

// =============================================================================

func (vm *VM) push(b []byte) {
	vm.stack = append(vm.stack, b)
}

func (vm *VM) pop() []byte {
	n := len(vm.stack)
	b := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return b
}

func (vm *VM) peek(depth int) []byte {
	return vm.stack[len(vm.stack)-1-depth]
}

// minDepth is the stack depth each supported opcode needs.
var minDepth = map[byte]int{
	txscript.OP_DUP:                 1,
	txscript.OP_DROP:                1,
	txscript.OP_SWAP:                2,
	txscript.OP_ROT:                 3,
	txscript.OP_OVER:                2,
	txscript.OP_IFDUP:               1,
	txscript.OP_SIZE:                1,
	txscript.OP_EQUAL:               2,
	txscript.OP_EQUALVERIFY:         2,
	txscript.OP_GREATERTHAN:         2,
	txscript.OP_VERIFY:              1,
	txscript.OP_SHA256:              1,
	txscript.OP_HASH160:             1,
	txscript.OP_CHECKLOCKTIMEVERIFY: 1,
	txscript.OP_CHECKSEQUENCEVERIFY: 1,
	txscript.OP_CHECKSIG:            2,
	txscript.OP_CHECKSIGVERIFY:      2,
}

// opcodeNames maps opcodes onto their names. Aliases resolve to the
// lexically smallest name, OP_CHECKLOCKTIMEVERIFY rather than OP_NOP2.
var opcodeNames = func() map[byte]string {
	names := make(map[byte]string)
	for name, op := range txscript.OpcodeByName {
		if cur, ok := names[op]; !ok || name < cur {
			names[op] = name
		}
	}
	return names
}()

func opcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}

	return fmt.Sprintf("OP_UNKNOWN(0x%02x)", op)
}
