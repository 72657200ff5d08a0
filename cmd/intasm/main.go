// intasm assembles Intcode assembly into program text, or disassembles
// program text with -d.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/psilLang/intcode/pkg/asm"
	"github.com/psilLang/intcode/pkg/parser"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	flagDisasm  = flag.Bool("d", false, "Disassemble program text instead of assembling")
	flagOutput  = flag.String("o", "", "Write output to file instead of stdout")
	flagVerbose = flag.Int("v", 0, "Log verbosity")
)

var log = commonlog.GetLogger("intasm")

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: intasm [-d] [-o out] <file|->")
		flag.PrintDefaults()
	}
	flag.Parse()
	commonlog.Configure(*flagVerbose, nil)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(filename string) error {
	var (
		data []byte
		err  error
	)
	if filename == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(filename)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	var text string
	if *flagDisasm {
		words, err := parser.ParseProgram(filename, string(data))
		if err != nil {
			return fmt.Errorf("parse error in %s: %w", filename, err)
		}
		text = asm.Disassemble(words)
	} else {
		words, err := asm.Assemble(filename, string(data))
		if err != nil {
			return fmt.Errorf("assembly error in %s: %w", filename, err)
		}
		log.Infof("assembled %s: %d words", filename, len(words))
		text = asm.Format(words) + "\n"
	}

	if *flagOutput == "" {
		_, err = io.WriteString(os.Stdout, text)
		return err
	}
	return os.WriteFile(*flagOutput, []byte(text), 0644)
}
