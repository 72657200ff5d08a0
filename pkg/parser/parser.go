// Package parser provides Intcode parsing using Participle v2.
// Two grammars live here: the comma-separated program text that forms a
// machine's initial memory image, and the line-oriented assembly language
// consumed by package asm.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/psilLang/intcode/pkg/types"
)

// ParseError reports malformed source. No partial result accompanies it.
type ParseError struct {
	Pos lexer.Position
	Msg string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

func wrapError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return &ParseError{Pos: perr.Position(), Msg: perr.Message(), Err: err}
	}
	return &ParseError{Msg: err.Error(), Err: err}
}

// === Program text ===

// Program is the AST of comma-separated program text.
type Program struct {
	Cells []*Cell `@@ ( "," @@ )*`
}

// Cell is one signed base-10 integer.
type Cell struct {
	Pos   lexer.Position
	Value string `@Int`
}

var programLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Int", Pattern: `[-+]?[0-9]+`},
	{Name: "Comma", Pattern: `,`},
})

var programParser = participle.MustBuild[Program](
	participle.Lexer(programLexer),
	participle.Elide("Whitespace"),
)

// ParseProgram parses comma-separated program text into a memory image.
// Any malformed token fails the whole parse.
func ParseProgram(filename, text string) ([]types.Word, error) {
	prog, err := programParser.ParseString(filename, text)
	if err != nil {
		return nil, wrapError(err)
	}
	return prog.Words()
}

// Words converts the parsed cells to machine words.
func (p *Program) Words() ([]types.Word, error) {
	words := make([]types.Word, len(p.Cells))
	for i, c := range p.Cells {
		v, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			return nil, &ParseError{Pos: c.Pos, Msg: fmt.Sprintf("invalid integer %q", c.Value), Err: err}
		}
		words[i] = types.Word(v)
	}
	return words, nil
}

// === Assembly ===

// Assembly is the top-level AST of an assembly source.
type Assembly struct {
	Lines []*Line `@@*`
}

// Line is an optional label followed by an optional statement.
type Line struct {
	Pos   lexer.Position
	Label string     `@Label?`
	Stmt  *Statement `@@? EOL`
}

// Statement is a mnemonic (or the data directive) with its operands.
type Statement struct {
	Pos      lexer.Position
	Mnemonic string     `@Ident`
	Operands []*Operand `( @@ ( "," @@ )* )?`
}

// Operand: [#|@] (number | label) [+offset]
type Operand struct {
	Pos    lexer.Position
	Prefix string `@( "#" | "@" )?`
	Value  *Value `@@`
	Offset string `( "+"? @Int )?`
}

// Value is a literal number or a label reference.
type Value struct {
	Number *string `  @Int`
	Label  *string `| @Ident`
}

var asmLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Int", Pattern: `-?[0-9]+`},
	{Name: "Label", Pattern: `[a-zA-Z_.][a-zA-Z0-9_.]*:`},
	{Name: "Ident", Pattern: `[a-zA-Z_.][a-zA-Z0-9_.]*`},
	{Name: "Punct", Pattern: `[,#@+]`},
})

var asmParser = participle.MustBuild[Assembly](
	participle.Lexer(asmLexer),
	participle.Elide("Whitespace", "Comment"),
)

// ParseAssembly parses assembly source into its AST.
func ParseAssembly(filename, source string) (*Assembly, error) {
	// every line, including the last, must end in EOL
	asm, err := asmParser.ParseString(filename, source+"\n")
	if err != nil {
		return nil, wrapError(err)
	}
	return asm, nil
}

// LabelName returns the label defined on the line, without its colon.
func (l *Line) LabelName() string {
	if l.Label == "" {
		return ""
	}
	return l.Label[:len(l.Label)-1]
}

// Mode returns the addressing mode selected by the operand prefix.
func (o *Operand) Mode() types.Mode {
	switch o.Prefix {
	case "#":
		return types.ModeImmediate
	case "@":
		return types.ModeRelative
	}
	return types.ModePosition
}

// Literal resolves the operand's numeric part, looking labels up with
// resolve. The offset, if any, is added.
func (o *Operand) Literal(resolve func(label string) (types.Word, bool)) (types.Word, error) {
	var v types.Word
	switch {
	case o.Value.Number != nil:
		n, err := strconv.ParseInt(*o.Value.Number, 10, 64)
		if err != nil {
			return 0, &ParseError{Pos: o.Pos, Msg: fmt.Sprintf("invalid integer %q", *o.Value.Number), Err: err}
		}
		v = types.Word(n)
	case o.Value.Label != nil:
		addr, ok := resolve(*o.Value.Label)
		if !ok {
			return 0, &ParseError{Pos: o.Pos, Msg: fmt.Sprintf("undefined label %q", *o.Value.Label)}
		}
		v = addr
	}
	if o.Offset != "" {
		n, err := strconv.ParseInt(o.Offset, 10, 64)
		if err != nil {
			return 0, &ParseError{Pos: o.Pos, Msg: fmt.Sprintf("invalid offset %q", o.Offset), Err: err}
		}
		v += types.Word(n)
	}
	return v, nil
}
