package main

import (
	"strings"
	"testing"

	"github.com/psilLang/intcode/pkg/intcode"
)

func runDebugger(t *testing.T, prog, script string) (*intcode.Machine, string) {
	t.Helper()
	m, err := intcode.New(prog)
	if err != nil {
		t.Fatal(err)
	}
	var out strings.Builder
	if err := newDebugger(m, strings.NewReader(script), &out).Loop(); err != nil {
		t.Fatalf("Loop: %v", err)
	}
	return m, out.String()
}

func TestDebuggerSuspendsForInput(t *testing.T) {
	m, out := runDebugger(t, "3,0,4,0,99", ":run\n:input 42\n:run\n:out\n:quit\n")

	for _, want := range []string{
		"Waiting for input",
		"1 value(s) queued",
		"out: 42",
		"Machine halted.",
		"[42]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if !m.Halted() {
		t.Error("machine should be halted")
	}
}

func TestDebuggerBreakAndPoke(t *testing.T) {
	m, out := runDebugger(t, "1101,1,1,20,1101,2,2,21,99",
		":break 4\n:run\n:peek 20\n:poke 21=9\n:step\n:peek 21\n:reset\n:peek 20\n")

	for _, want := range []string{
		"Breakpoints: [4]",
		"Breakpoint at 4.",
		"[20] = 2",
		"[21] = 4",
		"Machine reset.",
		"[20] = 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if m.PC() != 0 {
		t.Errorf("pc = %d after reset", m.PC())
	}
}

func TestDebuggerDisassembleAndErrors(t *testing.T) {
	_, out := runDebugger(t, "1002,4,2,4,21", ":dis 0 4\n:bogus\n:step x\n:step\n:step\n")
	for _, want := range []string{
		"0000: mul 4, #2, 4",
		`Unknown command ":bogus"`,
		"Usage: :step [n]",
		"Error: decode at 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
