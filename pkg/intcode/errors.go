package intcode

import (
	"errors"
	"fmt"

	"github.com/psilLang/intcode/pkg/types"
)

var (
	// ErrNegativeAddress is returned when a position or relative operand, or
	// a jump target, resolves to a negative address.
	ErrNegativeAddress = errors.New("cannot address negative address")
	// ErrNegativeInstruction is returned when pc points at a negative word.
	ErrNegativeInstruction = errors.New("cannot execute negative instruction")

	ErrInputExhausted = errors.New("no more input in the input buffer")
	ErrHeadless       = errors.New("intcode cannot perform I/O in headless mode")
	ErrClosed         = errors.New("channel closed")
	ErrStepLimit      = errors.New("step limit exceeded")
)

// OpcodeError reports an instruction word with an undefined opcode.
type OpcodeError struct {
	Opcode types.Opcode
}

func (err *OpcodeError) Error() string {
	return fmt.Sprintf("unknown opcode %d", int(err.Opcode))
}

// ModeError reports an undefined addressing-mode digit.
type ModeError struct {
	Mode    types.Mode
	Operand int
}

func (err *ModeError) Error() string {
	return fmt.Sprintf("unknown addressing mode %d for operand %d", int(err.Mode), err.Operand+1)
}

// DecodeError wraps any failure to decode the instruction at PC.
type DecodeError struct {
	PC  types.Addr
	Err error
}

func (err *DecodeError) Error() string {
	return fmt.Sprintf("decode at %d: %v", err.PC, err.Err)
}

func (err *DecodeError) Unwrap() error { return err.Err }

// InputError wraps a failure of the Input supplied to Step.
type InputError struct {
	Err error
}

func (err *InputError) Error() string {
	return fmt.Sprintf("could not read input: %v", err.Err)
}

func (err *InputError) Unwrap() error { return err.Err }

// OutputError wraps a failure of the Output supplied to Step.
type OutputError struct {
	Err error
}

func (err *OutputError) Error() string {
	return fmt.Sprintf("could not write output: %v", err.Err)
}

func (err *OutputError) Unwrap() error { return err.Err }
