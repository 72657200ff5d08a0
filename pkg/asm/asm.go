// Package asm assembles a small Intcode assembly language into program
// words and renders programs back to text.
//
//	; comments run to the end of the line
//	loop:   in  x             ; position operand (a label is its address)
//	        add x, #1, @0     ; # immediate, @ relative to the base
//	        jnz #1, #loop     ; a jump target is an operand value
//	x:      data 0, 0         ; raw words
//	        hlt
package asm

import (
	"fmt"
	"strings"

	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/parser"
	"github.com/psilLang/intcode/pkg/types"
)

// Assembler converts assembly source to program words.
type Assembler struct {
	code   []types.Word
	labels map[string]types.Addr
	fixups []fixup
}

// fixup is an operand cell whose value is known only after every label
// has been seen.
type fixup struct {
	pos     int
	operand *parser.Operand
}

// NewAssembler creates a new assembler.
func NewAssembler() *Assembler {
	return &Assembler{
		code:   make([]types.Word, 0, 256),
		labels: make(map[string]types.Addr),
	}
}

// Assemble converts assembly source to program words. filename is only
// used in error positions.
func (a *Assembler) Assemble(filename, source string) ([]types.Word, error) {
	a.code = a.code[:0]
	a.labels = make(map[string]types.Addr)
	a.fixups = nil

	prog, err := parser.ParseAssembly(filename, source)
	if err != nil {
		return nil, err
	}

	for _, line := range prog.Lines {
		if name := line.LabelName(); name != "" {
			if _, dup := a.labels[name]; dup {
				return nil, &parser.ParseError{Pos: line.Pos, Msg: fmt.Sprintf("duplicate label %q", name)}
			}
			a.labels[name] = types.Addr(len(a.code))
		}
		if line.Stmt == nil {
			continue
		}
		if err := a.statement(line.Stmt); err != nil {
			return nil, err
		}
	}

	// Apply fixups
	for _, f := range a.fixups {
		v, err := f.operand.Literal(a.lookup)
		if err != nil {
			return nil, err
		}
		a.code[f.pos] = v
	}

	out := make([]types.Word, len(a.code))
	copy(out, a.code)
	return out, nil
}

func (a *Assembler) lookup(label string) (types.Word, bool) {
	addr, ok := a.labels[label]
	return types.Word(addr), ok
}

func (a *Assembler) statement(s *parser.Statement) error {
	if s.Mnemonic == "data" {
		if len(s.Operands) == 0 {
			return &parser.ParseError{Pos: s.Pos, Msg: "data needs at least one value"}
		}
		for _, o := range s.Operands {
			if o.Prefix != "" {
				return &parser.ParseError{Pos: o.Pos, Msg: "data values take no mode prefix"}
			}
			a.emit(o)
		}
		return nil
	}

	op, ok := types.LookupOpcode(s.Mnemonic)
	if !ok {
		return &parser.ParseError{Pos: s.Pos, Msg: fmt.Sprintf("unknown mnemonic %q", s.Mnemonic)}
	}
	if len(s.Operands) != op.Arity() {
		return &parser.ParseError{
			Pos: s.Pos,
			Msg: fmt.Sprintf("%s takes %d operands, got %d", op.Name(), op.Arity(), len(s.Operands)),
		}
	}

	modes := make([]types.Mode, len(s.Operands))
	for i, o := range s.Operands {
		modes[i] = o.Mode()
	}
	a.code = append(a.code, types.Join(op, modes...))
	for _, o := range s.Operands {
		a.emit(o)
	}
	return nil
}

func (a *Assembler) emit(o *parser.Operand) {
	a.fixups = append(a.fixups, fixup{pos: len(a.code), operand: o})
	a.code = append(a.code, 0)
}

// Assemble is a convenience wrapper around a fresh Assembler.
func Assemble(filename, source string) ([]types.Word, error) {
	return NewAssembler().Assemble(filename, source)
}

// Format renders words as comma-separated program text.
func Format(words []types.Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.String()
	}
	return strings.Join(parts, ",")
}

// Disassemble renders a whole program as an address-prefixed listing.
func Disassemble(words []types.Word) string {
	return intcode.Disassemble(intcode.NewMemory(words), 0, types.Addr(len(words)))
}
