package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/psilLang/intcode/pkg/config"
	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/types"
)

// debugger is a line-oriented front end for stepping a machine. Input is
// queued ahead of time with :input; a program that needs more simply stops
// and can be continued once more input is queued.
type debugger struct {
	m      *intcode.Machine
	in     *intcode.Queue
	out    []types.Word
	breaks map[types.Addr]bool

	r *bufio.Reader
	w io.Writer
}

func newDebugger(m *intcode.Machine, r io.Reader, w io.Writer) *debugger {
	return &debugger{
		m:      m,
		in:     intcode.NewQueue(),
		breaks: make(map[types.Addr]bool),
		r:      bufio.NewReader(r),
		w:      w,
	}
}

// Loop reads commands until :quit or end of input.
func (d *debugger) Loop() error {
	fmt.Fprintln(d.w, "Intcode debugger. Type :help for commands.")
	for {
		fmt.Fprintf(d.w, "%04d> ", d.m.PC())
		line, err := d.r.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(d.w)
			return nil
		}
		if quit := d.handleCommand(strings.TrimSpace(line)); quit {
			return nil
		}
	}
}

func (d *debugger) handleCommand(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	args := parts[1:]

	switch parts[0] {
	case ":help", ":h", ":?":
		d.printHelp()

	case ":quit", ":q":
		return true

	case ":step", ":s":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				fmt.Fprintln(d.w, "Usage: :step [n]")
				return false
			}
			n = v
		}
		for i := 0; i < n; i++ {
			running, err := d.step()
			if err != nil || !running {
				break
			}
		}
		d.printRegs()

	case ":run", ":r", ":c":
		d.cont()
		d.printRegs()

	case ":regs":
		d.printRegs()

	case ":dis", ":d":
		start, count := d.m.PC(), types.Addr(10)
		if len(args) > 0 {
			v, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				fmt.Fprintln(d.w, "Usage: :dis [addr [cells]]")
				return false
			}
			start = types.Addr(v)
		}
		if len(args) > 1 {
			v, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				fmt.Fprintln(d.w, "Usage: :dis [addr [cells]]")
				return false
			}
			count = types.Addr(v)
		}
		fmt.Fprint(d.w, intcode.Disassemble(d.m.Memory(), start, start+count))

	case ":peek", ":p":
		if len(args) == 0 {
			fmt.Fprintln(d.w, "Usage: :peek addr")
			return false
		}
		addr, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Fprintln(d.w, "Usage: :peek addr")
			return false
		}
		fmt.Fprintf(d.w, "[%d] = %d\n", addr, d.m.Peek(types.Addr(addr)))

	case ":poke":
		p, err := config.ParsePoke(strings.Join(args, ""))
		if err != nil {
			fmt.Fprintln(d.w, "Usage: :poke addr=value")
			return false
		}
		d.m.Poke(p.Addr, p.Value)

	case ":input", ":i":
		words, err := config.ParseWords(strings.Join(args, ""))
		if err != nil {
			fmt.Fprintf(d.w, "Error: %v\n", err)
			return false
		}
		d.in.Push(words...)
		fmt.Fprintf(d.w, "%d value(s) queued\n", d.in.Len())

	case ":out", ":o":
		fmt.Fprintln(d.w, d.out)

	case ":break", ":b":
		if len(args) == 0 {
			fmt.Fprintf(d.w, "Breakpoints: %v\n", d.breakList())
			return false
		}
		addr, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Fprintln(d.w, "Usage: :break [addr]")
			return false
		}
		a := types.Addr(addr)
		d.breaks[a] = !d.breaks[a]
		if !d.breaks[a] {
			delete(d.breaks, a)
		}
		fmt.Fprintf(d.w, "Breakpoints: %v\n", d.breakList())

	case ":reset":
		d.m.Reset()
		d.in.Clear()
		d.out = nil
		fmt.Fprintln(d.w, "Machine reset.")

	case ":save":
		if len(args) == 0 {
			fmt.Fprintln(d.w, "Usage: :save file")
			return false
		}
		if err := saveSnapshot(d.m, args[0]); err != nil {
			fmt.Fprintf(d.w, "Error: %v\n", err)
		}

	default:
		fmt.Fprintf(d.w, "Unknown command %q (try :help)\n", parts[0])
	}
	return false
}

// step executes one instruction, reporting outputs and errors.
func (d *debugger) step() (bool, error) {
	if d.m.Halted() {
		fmt.Fprintln(d.w, "Machine halted.")
		return false, nil
	}
	out := intcode.OutputFunc(func(w types.Word) error {
		d.out = append(d.out, w)
		fmt.Fprintf(d.w, "out: %d\n", w)
		return nil
	})
	running, err := d.m.Step(d.in, out)
	switch {
	case errors.Is(err, intcode.ErrInputExhausted):
		fmt.Fprintln(d.w, "Waiting for input (queue values with :input).")
	case err != nil:
		fmt.Fprintf(d.w, "Error: %v\n", err)
	case !running:
		fmt.Fprintln(d.w, "Machine halted.")
	}
	return running, err
}

// cont runs until halt, error or a breakpoint other than the current pc.
func (d *debugger) cont() {
	for {
		running, err := d.step()
		if err != nil || !running {
			return
		}
		if d.breaks[d.m.PC()] {
			fmt.Fprintf(d.w, "Breakpoint at %d.\n", d.m.PC())
			return
		}
	}
}

func (d *debugger) breakList() []types.Addr {
	var list []types.Addr
	for a := range d.breaks {
		list = append(list, a)
	}
	slices.Sort(list)
	return list
}

func (d *debugger) printRegs() {
	fmt.Fprintf(d.w, "pc=%d base=%d halted=%v queued=%d\n",
		d.m.PC(), d.m.Base(), d.m.Halted(), d.in.Len())
}

func (d *debugger) printHelp() {
	fmt.Fprint(d.w, `
Debugger Commands:
  :help, :h, :?        Show this help
  :quit, :q            Exit
  :step, :s [n]        Execute n instructions (default 1)
  :run, :r, :c         Run until halt, breakpoint or missing input
  :regs                Show pc, base and queued input
  :dis, :d [a [n]]     Disassemble n cells from a (default: pc, 10)
  :peek, :p <addr>     Show a memory cell
  :poke <addr>=<val>   Patch a memory cell
  :input, :i <v,...>   Queue input values
  :out, :o             Show all outputs so far
  :break, :b [addr]    Toggle a breakpoint / list breakpoints
  :reset               Reset machine, input and output
  :save <file>         Write a snapshot (resume with -resume)
`)
}
