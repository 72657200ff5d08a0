package intcode

import (
	"io"

	"github.com/psilLang/intcode/pkg/types"
)

// Run steps the machine until it halts or an error occurs.
func (m *Machine) Run(in Input, out Output) error {
	for {
		running, err := m.tick(in, out)
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
}

// tick is Step plus the MaxSteps budget.
func (m *Machine) tick(in Input, out Output) (bool, error) {
	if m.MaxSteps > 0 && m.steps >= m.MaxSteps && !m.halted {
		return false, ErrStepLimit
	}
	running, err := m.Step(in, out)
	if err == nil {
		m.steps++
	}
	return running, err
}

// RunHeadless runs the machine without any I/O. An in or out instruction
// fails the run.
func (m *Machine) RunHeadless() error {
	return m.Run(headless, headless)
}

// RunToCompletion runs the machine until it halts, feeding it inputs in
// order and collecting every output. Running out of input is an error,
// never a wait.
func (m *Machine) RunToCompletion(inputs []types.Word) ([]types.Word, error) {
	in := NewQueue(inputs...)
	out := NewQueue()
	if err := m.Run(in, out); err != nil {
		return nil, err
	}
	return out.Words(), nil
}

// RunUntilOutput runs the machine until it produces one output word, which
// is returned with true. If the machine halts first, it returns false.
// Input is taken from the front of in.
func (m *Machine) RunUntilOutput(in *Queue) (types.Word, bool, error) {
	var (
		output types.Word
		done   bool
	)
	out := OutputFunc(func(w types.Word) error {
		output, done = w, true
		return nil
	})

	for {
		running, err := m.tick(in, out)
		if err != nil {
			return 0, false, err
		}
		if done {
			return output, true, nil
		}
		if !running {
			return 0, false, nil
		}
	}
}

// RunInteractive runs the machine against a console: one integer is read
// per line from r for each in instruction, and each output is printed to w.
func (m *Machine) RunInteractive(r io.Reader, w io.Writer) error {
	c := NewConsole(r, w)
	c.Prompt = "> "
	return m.Run(c, c)
}
