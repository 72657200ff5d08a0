// Package types defines the core value types for Intcode.
// Every cell of a program is a Word; instruction words split into an
// Opcode and one Mode digit per operand.
package types

import (
	"fmt"
	"strconv"
)

// Word is a single Intcode memory cell. Programs multiply values well past
// 32 bits, so cells are always 64-bit.
type Word int64

func (w Word) String() string { return strconv.FormatInt(int64(w), 10) }

// Addr is a resolved, non-negative memory address.
type Addr uint64

// ToAddr converts a word used as an address. Negative words have no address.
func (w Word) ToAddr() (Addr, bool) {
	if w < 0 {
		return 0, false
	}
	return Addr(w), true
}

// Opcode is the two low decimal digits of an instruction word.
type Opcode int

const (
	OpAdd  Opcode = 1  // c = a + b
	OpMul  Opcode = 2  // c = a * b
	OpIn   Opcode = 3  // a = input
	OpOut  Opcode = 4  // output a
	OpJnz  Opcode = 5  // if a != 0 { pc = b }
	OpJz   Opcode = 6  // if a == 0 { pc = b }
	OpLt   Opcode = 7  // c = a < b
	OpEq   Opcode = 8  // c = a == b
	OpArb  Opcode = 9  // base += a
	OpHalt Opcode = 99 // stop
)

// MaxArity is the largest operand count of any opcode.
const MaxArity = 3

const modeShift = 100

type opInfo struct {
	name  string
	arity int
}

var opcodes = map[Opcode]opInfo{
	OpAdd:  {"add", 3},
	OpMul:  {"mul", 3},
	OpIn:   {"in", 1},
	OpOut:  {"out", 1},
	OpJnz:  {"jnz", 2},
	OpJz:   {"jz", 2},
	OpLt:   {"lt", 3},
	OpEq:   {"eq", 3},
	OpArb:  {"arb", 1},
	OpHalt: {"hlt", 0},
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodes[op]
	return ok
}

// Arity returns the number of operand cells that follow the instruction word.
func (op Opcode) Arity() int {
	return opcodes[op].arity
}

// Name returns the assembler mnemonic for op.
func (op Opcode) Name() string {
	if info, ok := opcodes[op]; ok {
		return info.name
	}
	return fmt.Sprintf("op%d", int(op))
}

func (op Opcode) String() string { return op.Name() }

// Writes reports whether the last operand of op is a destination.
func (op Opcode) Writes() bool {
	switch op {
	case OpAdd, OpMul, OpIn, OpLt, OpEq:
		return true
	}
	return false
}

// LookupOpcode finds the opcode for an assembler mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	for op, info := range opcodes {
		if info.name == name {
			return op, true
		}
	}
	return 0, false
}

// Mode selects how an operand cell turns into an address or value.
type Mode int

const (
	ModePosition  Mode = 0 // the cell holds an address
	ModeImmediate Mode = 1 // the cell is the value
	ModeRelative  Mode = 2 // the cell plus the relocation base is an address
)

// Valid reports whether m is a known addressing mode.
func (m Mode) Valid() bool {
	return m == ModePosition || m == ModeImmediate || m == ModeRelative
}

// Prefix is the assembler operand prefix for m.
func (m Mode) Prefix() string {
	switch m {
	case ModeImmediate:
		return "#"
	case ModeRelative:
		return "@"
	}
	return ""
}

func (m Mode) String() string {
	switch m {
	case ModePosition:
		return "position"
	case ModeImmediate:
		return "immediate"
	case ModeRelative:
		return "relative"
	}
	return fmt.Sprintf("mode%d", int(m))
}

// Split separates a non-negative instruction word into its opcode and the
// mode digits of its first MaxArity operands. Modes are not validated.
func Split(word Word) (Opcode, [MaxArity]Mode) {
	var modes [MaxArity]Mode
	op := Opcode(word % modeShift)
	digits := word / modeShift
	for i := range modes {
		modes[i] = Mode(digits % 10)
		digits /= 10
	}
	return op, modes
}

// Join builds an instruction word from an opcode and operand modes.
func Join(op Opcode, modes ...Mode) Word {
	w := Word(op)
	scale := Word(modeShift)
	for _, m := range modes {
		w += Word(m) * scale
		scale *= 10
	}
	return w
}
