// Package amp chains Intcode machines into amplifier pipelines.
//
// An amplifier is a machine seeded with a phase setting. In a series each
// amplifier reads its phase and the previous amplifier's signal, produces
// one output and halts; in a feedback loop the last amplifier's output is
// fed back to the first until every amplifier halts. Both topologies are
// available cooperatively on a single goroutine (RunSeries, RunFeedback)
// and as a goroutine-per-amplifier Ring.
package amp

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/types"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("intcode.amp")

var (
	// ErrUnusedInput is returned when an amplifier halts with input still
	// queued for it.
	ErrUnusedInput = errors.New("amp didn't consume all its input")
	// ErrOutputCount is returned when a series amplifier does not produce
	// exactly one output.
	ErrOutputCount = errors.New("amp must produce exactly one output")
	// ErrNoPhases is returned for an empty phase list.
	ErrNoPhases = errors.New("no phase settings")
)

// AmpError attributes a failure to one amplifier of a chain.
type AmpError struct {
	Amp int
	Err error
}

func (err *AmpError) Error() string {
	return fmt.Sprintf("amp %d: %v", err.Amp, err.Err)
}

func (err *AmpError) Unwrap() error { return err.Err }

// SearchError reports the phase ordering, and the id of the run trying
// it, that failed a MaxSignal search.
type SearchError struct {
	Run    uuid.UUID
	Phases []types.Word
	Err    error
}

func (err *SearchError) Error() string {
	return fmt.Sprintf("phases %v: %v", err.Phases, err.Err)
}

func (err *SearchError) Unwrap() error { return err.Err }

// RunSeries passes signal through one amplifier per phase, in order, and
// returns the last amplifier's output. Every amplifier is a fresh reset of
// a private copy of m; m itself is not modified.
func RunSeries(m *intcode.Machine, phases []types.Word, signal types.Word) (types.Word, error) {
	if len(phases) == 0 {
		return 0, ErrNoPhases
	}

	amp := m.Clone()
	for i, phase := range phases {
		amp.Reset()
		in := intcode.NewQueue(phase, signal)
		out := intcode.NewQueue()
		if err := amp.Run(in, out); err != nil {
			return 0, &AmpError{Amp: i, Err: err}
		}
		if in.Len() != 0 {
			return 0, &AmpError{Amp: i, Err: ErrUnusedInput}
		}
		if out.Len() != 1 {
			return 0, &AmpError{Amp: i, Err: fmt.Errorf("%w, got %d", ErrOutputCount, out.Len())}
		}
		signal, _ = out.Pop()
	}
	return signal, nil
}

// RunFeedback runs one amplifier per phase in a loop: each output becomes
// the next amplifier's input and the last feeds the first. Amplifiers are
// stepped round-robin on the calling goroutine, each running until it
// produces an output or halts. The result is the last signal produced once
// every amplifier has halted.
func RunFeedback(m *intcode.Machine, phases []types.Word, signal types.Word) (types.Word, error) {
	if len(phases) == 0 {
		return 0, ErrNoPhases
	}

	amps := make([]*intcode.Machine, len(phases))
	queues := make([]*intcode.Queue, len(phases))
	for i, phase := range phases {
		amps[i] = m.Clone()
		amps[i].Reset()
		queues[i] = intcode.NewQueue(phase)
	}

	running := len(amps)
	for running > 0 {
		for i, amp := range amps {
			if amp.Halted() {
				continue
			}
			queues[i].Push(signal)
			out, ok, err := amp.RunUntilOutput(queues[i])
			if err != nil {
				return 0, &AmpError{Amp: i, Err: err}
			}
			if ok {
				signal = out
				continue
			}
			// halted without needing the signal it was just given
			queues[i].DropLast()
			running--
		}
	}

	for i, q := range queues {
		if q.Len() != 0 {
			return 0, &AmpError{Amp: i, Err: ErrUnusedInput}
		}
	}
	return signal, nil
}

// Runner is one of the chain strategies above.
type Runner func(m *intcode.Machine, phases []types.Word, signal types.Word) (types.Word, error)

// Result is the best phase ordering found by a search. Run identifies the
// chain run that produced it, matching the id in the debug log.
type Result struct {
	Signal types.Word
	Phases []types.Word
	Run    uuid.UUID
}

// MaxSignal tries every ordering of phases with run, starting each chain
// from signal 0, and returns the ordering that produces the largest final
// signal. Any failing ordering fails the search with a *SearchError.
func MaxSignal(m *intcode.Machine, phases []types.Word, run Runner) (Result, error) {
	if len(phases) == 0 {
		return Result{}, ErrNoPhases
	}

	var best Result
	found := false
	err := Permutations(phases, func(p []types.Word) error {
		id := uuid.New()
		log.Debugf("run %s: phases %v", id, p)
		signal, err := run(m, p, 0)
		if err != nil {
			return &SearchError{Run: id, Phases: append([]types.Word(nil), p...), Err: err}
		}
		if !found || signal > best.Signal {
			best = Result{Signal: signal, Phases: append([]types.Word(nil), p...), Run: id}
			found = true
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Infof("run %s: best signal %d with phases %v", best.Run, best.Signal, best.Phases)
	return best, nil
}
