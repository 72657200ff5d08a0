// Package intcode implements the Intcode virtual machine.
//
// A Machine owns its memory, program counter and relocation base. Step
// decodes and executes exactly one instruction, reading and writing through
// the Input and Output it is handed; every runner in this package is a loop
// around Step with a different pair of them.
package intcode

import (
	"fmt"
	"io"

	"github.com/psilLang/intcode/pkg/parser"
	"github.com/psilLang/intcode/pkg/types"
)

// Machine is a single Intcode interpreter. It is not safe for concurrent use.
type Machine struct {
	mem    *Memory
	pc     types.Addr
	base   types.Word
	halted bool

	// Step budget for the runners (0 = unlimited)
	MaxSteps int
	steps    int

	// Trace, if set, receives one line per decoded instruction, written in
	// a single call. It is not synchronised.
	Trace io.Writer
}

// New parses comma-separated program text into a new machine.
func New(text string) (*Machine, error) {
	words, err := parser.ParseProgram("", text)
	if err != nil {
		return nil, err
	}
	return NewFromWords(words), nil
}

// NewFromWords creates a machine whose initial image is a copy of words.
func NewFromWords(words []types.Word) *Machine {
	return &Machine{mem: NewMemory(words)}
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mem.Reset()
	m.pc = 0
	m.base = 0
	m.halted = false
	m.steps = 0
}

// Clone returns an independent copy, memory included. The copy shares
// m's Trace writer; replace it before running the copy on another
// goroutine.
func (m *Machine) Clone() *Machine {
	c := *m
	c.mem = m.mem.Clone()
	return &c
}

// Memory exposes the machine's memory.
func (m *Machine) Memory() *Memory { return m.mem }

// Peek reads the word at addr.
func (m *Machine) Peek(addr types.Addr) types.Word { return m.mem.Read(addr) }

// Poke writes val to addr, typically to patch a program before running it.
func (m *Machine) Poke(addr types.Addr, val types.Word) { m.mem.Write(addr, val) }

// PC returns the address of the next instruction.
func (m *Machine) PC() types.Addr { return m.pc }

// Base returns the relocation base.
func (m *Machine) Base() types.Word { return m.base }

// Halted reports whether the machine has executed a halt instruction.
func (m *Machine) Halted() bool { return m.halted }

// Steps returns the number of instructions executed by runners since the
// last Reset.
func (m *Machine) Steps() int { return m.steps }

// Step executes one instruction and reports whether the machine can
// continue. A halted machine stays halted until Reset.
//
// in and out are each used at most once; their failures are returned as
// *InputError and *OutputError. On any error pc and memory are left as
// they were, so the same instruction is retried by the next Step.
func (m *Machine) Step(in Input, out Output) (bool, error) {
	if m.halted {
		return false, nil
	}

	ins, err := Decode(m.pc, m.mem, m.base)
	if err != nil {
		return false, err
	}
	if m.Trace != nil {
		fmt.Fprintf(m.Trace, "%04d: %-28s base=%d\n", m.pc, ins, m.base)
	}
	next := m.pc + types.Addr(ins.Width)

	a, b := ins.Values[0], ins.Values[1]
	switch ins.Op {
	case types.OpAdd:
		m.mem.Write(ins.Target, a+b)
	case types.OpMul:
		m.mem.Write(ins.Target, a*b)
	case types.OpIn:
		v, err := in.ReadWord()
		if err != nil {
			return false, &InputError{Err: err}
		}
		m.mem.Write(ins.Target, v)
	case types.OpOut:
		if err := out.WriteWord(a); err != nil {
			return false, &OutputError{Err: err}
		}
	case types.OpJnz:
		if a != 0 {
			next = ins.Target
		}
	case types.OpJz:
		if a == 0 {
			next = ins.Target
		}
	case types.OpLt:
		m.mem.Write(ins.Target, boolWord(a < b))
	case types.OpEq:
		m.mem.Write(ins.Target, boolWord(a == b))
	case types.OpArb:
		m.base += a
	case types.OpHalt:
		m.halted = true
	}

	m.pc = next
	return !m.halted, nil
}

func boolWord(b bool) types.Word {
	if b {
		return 1
	}
	return 0
}
