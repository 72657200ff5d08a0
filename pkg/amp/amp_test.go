package amp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/types"
)

const (
	series1 = "3,15,3,16,1002,16,10,16,1,16,15,15,4,15,99,0,0"
	series2 = "3,23,3,24,1002,24,10,24,1002,23,-1,23,101,5,23,23,1,24,23,23,4,23,99,0,0"
	series3 = "3,31,3,32,1002,32,10,32,1001,31,-2,31,1007,31,0,33,1002,33,7,33,1,33,31,31,1,32,31,31,4,31,99,0,0,0"

	feedback1 = "3,26,1001,26,-4,26,3,27,1002,27,2,27,1,27,26,27,4,27,1001,28,-1,28,1005,28,6,99,0,0,5"
	feedback2 = "3,52,1001,52,-5,52,3,53,1,52,56,54,1007,54,5,55,1005,55,26,1001,54,-5,54," +
		"1105,1,12,1,53,54,53,1008,54,0,55,1001,55,1,55,2,53,55,53,4,53,1001,56,-1,56,1005,56,6,99,0,0,0,0,10"
)

var (
	seriesPhases   = []types.Word{0, 1, 2, 3, 4}
	feedbackPhases = []types.Word{5, 6, 7, 8, 9}
)

func mustNew(t *testing.T, text string) *intcode.Machine {
	t.Helper()
	m, err := intcode.New(text)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func mustRing(t *testing.T, ctx context.Context, m *intcode.Machine, n, buffer int) *Ring {
	t.Helper()
	r, err := NewRing(ctx, m, n, buffer)
	if err != nil {
		t.Fatalf("NewRing: %v", err)
	}
	return r
}

func samePhases(a, b []types.Word) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type searchCase struct {
	name   string
	prog   string
	phases []types.Word
	signal types.Word
	best   []types.Word
}

var seriesCases = []searchCase{
	{"example 1", series1, seriesPhases, 43210, []types.Word{4, 3, 2, 1, 0}},
	{"example 2", series2, seriesPhases, 54321, []types.Word{0, 1, 2, 3, 4}},
	{"example 3", series3, seriesPhases, 65210, []types.Word{1, 0, 4, 3, 2}},
}

var feedbackCases = []searchCase{
	{"example 1", feedback1, feedbackPhases, 139629729, []types.Word{9, 8, 7, 6, 5}},
	{"example 2", feedback2, feedbackPhases, 18216, []types.Word{9, 7, 8, 5, 6}},
}

func TestRunSeries(t *testing.T) {
	for _, tt := range seriesCases {
		t.Run(tt.name, func(t *testing.T) {
			m := mustNew(t, tt.prog)
			got, err := RunSeries(m, tt.best, 0)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.signal {
				t.Errorf("signal = %d, want %d", got, tt.signal)
			}
			if m.PC() != 0 || m.Halted() {
				t.Error("RunSeries modified the caller's machine")
			}
		})
	}
}

func TestMaxSignalSeries(t *testing.T) {
	for _, tt := range seriesCases {
		t.Run(tt.name, func(t *testing.T) {
			res, err := MaxSignal(mustNew(t, tt.prog), tt.phases, RunSeries)
			if err != nil {
				t.Fatal(err)
			}
			if res.Signal != tt.signal || !samePhases(res.Phases, tt.best) {
				t.Errorf("got %d %v, want %d %v", res.Signal, res.Phases, tt.signal, tt.best)
			}
		})
	}
}

func TestMaxSignalFeedback(t *testing.T) {
	for _, tt := range feedbackCases {
		t.Run(tt.name, func(t *testing.T) {
			res, err := MaxSignal(mustNew(t, tt.prog), tt.phases, RunFeedback)
			if err != nil {
				t.Fatal(err)
			}
			if res.Signal != tt.signal || !samePhases(res.Phases, tt.best) {
				t.Errorf("got %d %v, want %d %v", res.Signal, res.Phases, tt.signal, tt.best)
			}
		})
	}
}

func TestMaxSignalThreaded(t *testing.T) {
	for _, tt := range feedbackCases {
		t.Run(tt.name, func(t *testing.T) {
			res, err := MaxSignalThreaded(context.Background(), mustNew(t, tt.prog), tt.phases, 0)
			if err != nil {
				t.Fatal(err)
			}
			if res.Signal != tt.signal || !samePhases(res.Phases, tt.best) {
				t.Errorf("got %d %v, want %d %v", res.Signal, res.Phases, tt.signal, tt.best)
			}
		})
	}
}

func TestRingMatchesCooperative(t *testing.T) {
	m := mustNew(t, feedback2)
	r := mustRing(t, context.Background(), m, 5, 1)
	defer r.Close()

	// a series program also works on a ring; the last amp's output is the
	// one word the halted first amp may leave unread
	series := mustRing(t, context.Background(), mustNew(t, series1), 5, 0)
	defer series.Close()

	err := Permutations(feedbackPhases, func(p []types.Word) error {
		want, err := RunFeedback(m, p, 0)
		if err != nil {
			return err
		}
		got, err := r.Run(p, 0)
		if err != nil {
			return err
		}
		if got != want {
			t.Errorf("phases %v: ring %d, cooperative %d", p, got, want)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := series.Run([]types.Word{4, 3, 2, 1, 0}, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got != 43210 {
			t.Errorf("series on ring = %d, want 43210", got)
		}
	}
}

func TestRunRing(t *testing.T) {
	got, err := RunRing(mustNew(t, feedback1), []types.Word{9, 8, 7, 6, 5}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 139629729 {
		t.Errorf("signal = %d", got)
	}
}

func TestRingErrors(t *testing.T) {
	r := mustRing(t, context.Background(), mustNew(t, "3,0,42"), 3, 0)
	_, err := r.Run([]types.Word{1, 2, 3}, 0)
	var ae *AmpError
	if !errors.As(err, &ae) {
		t.Fatalf("expected *AmpError, got %v", err)
	}
	var oe *intcode.OpcodeError
	if !errors.As(err, &oe) {
		t.Errorf("expected OpcodeError, got %v", err)
	}
	if _, err := r.Run([]types.Word{1, 2, 3}, 0); !errors.Is(err, ErrRingClosed) {
		t.Errorf("run after failure: %v", err)
	}

	r = mustRing(t, context.Background(), mustNew(t, "99"), 2, 0)
	if _, err := r.Run([]types.Word{1}, 0); err == nil {
		t.Error("expected phase count error")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if _, err := r.Run([]types.Word{1, 2}, 0); !errors.Is(err, ErrRingClosed) {
		t.Errorf("run after Close: %v", err)
	}
}

func TestRingCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// every amp wants a third input that never comes
	r := mustRing(t, ctx, mustNew(t, "3,0,3,0,3,0,99"), 2, 0)
	_, err := r.Run([]types.Word{1, 2}, 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestRingNoAmps(t *testing.T) {
	for _, n := range []int{0, -1} {
		if r, err := NewRing(context.Background(), mustNew(t, "99"), n, 0); !errors.Is(err, ErrNoPhases) || r != nil {
			t.Errorf("NewRing(%d) = %v, %v", n, r, err)
		}
	}
	if _, err := RunRing(mustNew(t, "99"), nil, 0); !errors.Is(err, ErrNoPhases) {
		t.Errorf("RunRing without phases: %v", err)
	}
	if _, err := MaxSignalThreaded(context.Background(), mustNew(t, "99"), nil, 0); !errors.Is(err, ErrNoPhases) {
		t.Errorf("MaxSignalThreaded without phases: %v", err)
	}
}

func TestRingUnusedInput(t *testing.T) {
	tests := []struct {
		name   string
		prog   string
		phases []types.Word
		buffer int
	}{
		// amp 0 emits twice after amp 1 has stopped reading; with a
		// one-word link it would block if nobody drained it
		{"overflowing halted amp", "3,20,3,21,4,21,4,21,99", []types.Word{0, 1}, 1},
		{"ignored loop signal", "3,0,104,1,99", []types.Word{5, 6}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			m := mustNew(t, tt.prog)
			_, coopErr := RunFeedback(m, tt.phases, 0)

			r := mustRing(t, ctx, m, len(tt.phases), tt.buffer)
			defer r.Close()
			_, err := r.Run(tt.phases, 0)
			if !errors.Is(err, ErrUnusedInput) {
				t.Fatalf("expected ErrUnusedInput, got %v", err)
			}
			var ae, coop *AmpError
			if !errors.As(err, &ae) || !errors.As(coopErr, &coop) || ae.Amp != coop.Amp {
				t.Errorf("ring %v, cooperative %v", err, coopErr)
			}

			// the ring survives and the next run starts clean
			if _, err := r.Run(tt.phases, 0); !errors.Is(err, ErrUnusedInput) {
				t.Errorf("second run: %v", err)
			}
		})
	}
}

func TestRingTrace(t *testing.T) {
	var trace bytes.Buffer
	m := mustNew(t, feedback1)
	m.Trace = &trace

	got, err := RunRing(m, []types.Word{9, 8, 7, 6, 5}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != 139629729 {
		t.Errorf("signal = %d", got)
	}

	lines := strings.Split(strings.TrimSuffix(trace.String(), "\n"), "\n")
	seen := make(map[string]bool)
	for _, line := range lines {
		prefix, rest, ok := strings.Cut(line, ": ")
		if !ok || !strings.HasPrefix(prefix, "amp ") || !strings.Contains(rest, "base=") {
			t.Fatalf("malformed trace line %q", line)
		}
		seen[prefix] = true
	}
	if len(seen) != 5 {
		t.Errorf("trace lines from %d amps, want 5", len(seen))
	}
}

func TestSearchRunIDs(t *testing.T) {
	coop, err := MaxSignal(mustNew(t, series1), seriesPhases, RunSeries)
	if err != nil {
		t.Fatal(err)
	}
	threaded, err := MaxSignalThreaded(context.Background(), mustNew(t, feedback1), feedbackPhases, 0)
	if err != nil {
		t.Fatal(err)
	}
	if coop.Run == uuid.Nil || threaded.Run == uuid.Nil || coop.Run == threaded.Run {
		t.Errorf("run ids %s, %s", coop.Run, threaded.Run)
	}

	_, err = MaxSignal(mustNew(t, "3,0,42"), seriesPhases, RunSeries)
	var se *SearchError
	if !errors.As(err, &se) || se.Run == uuid.Nil || len(se.Phases) != len(seriesPhases) {
		t.Fatalf("expected *SearchError with a run id, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "phases [") {
		t.Errorf("error = %q", err)
	}
}

func TestSeriesErrors(t *testing.T) {
	tests := []struct {
		name string
		prog string
		want error
	}{
		{"unused input", "3,0,104,1,99", ErrUnusedInput},
		{"no output", "3,0,3,0,99", ErrOutputCount},
		{"two outputs", "3,0,3,0,104,1,104,2,99", ErrOutputCount},
		{"starved", "3,0,3,0,3,0,99", intcode.ErrInputExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RunSeries(mustNew(t, tt.prog), []types.Word{0, 1}, 0)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			var ae *AmpError
			if !errors.As(err, &ae) || ae.Amp != 0 {
				t.Errorf("expected failure attributed to amp 0, got %v", err)
			}
		})
	}

	if _, err := RunSeries(mustNew(t, "99"), nil, 0); !errors.Is(err, ErrNoPhases) {
		t.Errorf("empty phases: %v", err)
	}
}

func TestFeedbackUnusedInput(t *testing.T) {
	// reads only its phase, emits once, halts; the loop signal is left over
	_, err := RunFeedback(mustNew(t, "3,0,104,1,99"), []types.Word{5, 6}, 0)
	if !errors.Is(err, ErrUnusedInput) {
		t.Errorf("expected ErrUnusedInput, got %v", err)
	}
}

func TestPermutations(t *testing.T) {
	seen := make(map[[4]types.Word]bool)
	err := Permutations([]types.Word{1, 2, 3, 4}, func(p []types.Word) error {
		var k [4]types.Word
		copy(k[:], p)
		seen[k] = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 24 {
		t.Errorf("got %d distinct orderings, want 24", len(seen))
	}

	stop := errors.New("stop")
	calls := 0
	err = Permutations([]types.Word{1, 2, 3}, func([]types.Word) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || calls != 2 {
		t.Errorf("early stop: err=%v calls=%d", err, calls)
	}
}
