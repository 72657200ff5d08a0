package intcode

import (
	"fmt"
	"strings"

	"github.com/psilLang/intcode/pkg/types"
)

// Instruction is one decoded instruction with its operands resolved.
//
//	add, mul, lt, eq   Values[0], Values[1] -> Target
//	in                 input -> Target
//	out                Values[0]
//	jnz, jz            if Values[0] ... pc = Target
//	arb                base += Values[0]
type Instruction struct {
	Op     types.Opcode
	Values [2]types.Word
	Target types.Addr
	Width  int
}

func (ins Instruction) String() string {
	switch ins.Op {
	case types.OpAdd, types.OpMul, types.OpLt, types.OpEq:
		return fmt.Sprintf("%s %d, %d -> [%d]", ins.Op, ins.Values[0], ins.Values[1], ins.Target)
	case types.OpIn:
		return fmt.Sprintf("in -> [%d]", ins.Target)
	case types.OpOut, types.OpArb:
		return fmt.Sprintf("%s %d", ins.Op, ins.Values[0])
	case types.OpJnz, types.OpJz:
		return fmt.Sprintf("%s %d, %d", ins.Op, ins.Values[0], ins.Target)
	}
	return ins.Op.Name()
}

// decoder walks the operand cells of one instruction.
type decoder struct {
	mem   *Memory
	pc    types.Addr
	base  types.Word
	modes [types.MaxArity]types.Mode
	n     int // operands consumed so far
}

// addr resolves the next operand to the address of the cell it designates.
func (d *decoder) addr() (types.Addr, error) {
	i := d.n
	cell := d.pc + 1 + types.Addr(i)
	d.n++

	switch d.modes[i] {
	case types.ModePosition:
		if a, ok := d.mem.Read(cell).ToAddr(); ok {
			return a, nil
		}
		return 0, ErrNegativeAddress
	case types.ModeImmediate:
		return cell, nil
	case types.ModeRelative:
		if a, ok := (d.mem.Read(cell) + d.base).ToAddr(); ok {
			return a, nil
		}
		return 0, ErrNegativeAddress
	}
	return 0, &ModeError{Mode: d.modes[i], Operand: i}
}

// value resolves the next operand and reads it.
func (d *decoder) value() (types.Word, error) {
	a, err := d.addr()
	if err != nil {
		return 0, err
	}
	return d.mem.Read(a), nil
}

// target reads the next operand as a jump destination.
func (d *decoder) target() (types.Addr, error) {
	v, err := d.value()
	if err != nil {
		return 0, err
	}
	a, ok := v.ToAddr()
	if !ok {
		return 0, ErrNegativeAddress
	}
	return a, nil
}

// Decode decodes the instruction at pc without modifying any state.
// base is the current relocation base.
func Decode(pc types.Addr, mem *Memory, base types.Word) (Instruction, error) {
	ins, err := decode(pc, mem, base)
	if err != nil {
		return Instruction{}, &DecodeError{PC: pc, Err: err}
	}
	return ins, nil
}

func decode(pc types.Addr, mem *Memory, base types.Word) (Instruction, error) {
	word := mem.Read(pc)
	if word < 0 {
		return Instruction{}, ErrNegativeInstruction
	}
	op, modes := types.Split(word)
	if !op.Valid() {
		return Instruction{}, &OpcodeError{Opcode: op}
	}

	d := &decoder{mem: mem, pc: pc, base: base, modes: modes}
	ins := Instruction{Op: op, Width: 1 + op.Arity()}
	var err error

	switch op {
	case types.OpAdd, types.OpMul, types.OpLt, types.OpEq:
		if ins.Values[0], err = d.value(); err != nil {
			return Instruction{}, err
		}
		if ins.Values[1], err = d.value(); err != nil {
			return Instruction{}, err
		}
		ins.Target, err = d.addr()
	case types.OpIn:
		ins.Target, err = d.addr()
	case types.OpOut, types.OpArb:
		ins.Values[0], err = d.value()
	case types.OpJnz, types.OpJz:
		if ins.Values[0], err = d.value(); err != nil {
			return Instruction{}, err
		}
		ins.Target, err = d.target()
	case types.OpHalt:
	}
	if err != nil {
		return Instruction{}, err
	}
	return ins, nil
}

// Disassemble renders memory from start, one instruction per line, until
// end. Cells that do not decode as instructions are shown as data.
func Disassemble(mem *Memory, start, end types.Addr) string {
	var sb strings.Builder
	pc := start

	for pc < end {
		word := mem.Read(pc)
		sb.WriteString(fmt.Sprintf("%04d: ", pc))

		op, modes := types.Split(word)
		width := types.Addr(1 + op.Arity())
		if word < 0 || !op.Valid() || pc+width > end || !modesValid(op, modes) {
			sb.WriteString(fmt.Sprintf("data %d\n", word))
			pc++
			continue
		}

		sb.WriteString(op.Name())
		for i := 0; i < op.Arity(); i++ {
			if i == 0 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(", ")
			}
			sb.WriteString(modes[i].Prefix())
			sb.WriteString(mem.Read(pc + 1 + types.Addr(i)).String())
		}
		sb.WriteString("\n")
		pc += width
	}

	return sb.String()
}

func modesValid(op types.Opcode, modes [types.MaxArity]types.Mode) bool {
	for i := 0; i < op.Arity(); i++ {
		if !modes[i].Valid() {
			return false
		}
	}
	return true
}
