package amp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/psilLang/intcode/pkg/intcode"
	"github.com/psilLang/intcode/pkg/types"
	"golang.org/x/sync/errgroup"
)

// DefaultBuffer is the capacity of each link between ring amplifiers.
const DefaultBuffer = 64

// ErrRingClosed is returned by Run after Close or after a worker failed.
var ErrRingClosed = errors.New("ring is closed")

type commandKind int

const (
	cmdReset commandKind = iota
	cmdRun
	// cmdReport asks a halted amplifier how many words it received and
	// never read.
	cmdReport
)

type command struct {
	kind  commandKind
	phase types.Word
}

// Ring runs each amplifier of a feedback loop on its own goroutine,
// connected by buffered channels: amplifier i reads links[i] and writes
// links[i+1], the last one writing back to the first.
//
// The goroutines outlive a single run. Each Run reseeds every amplifier
// with its phase, waits at a barrier until all of them are ready, then
// starts them and injects the signal. A halted amplifier keeps draining
// its input link so that the amplifier feeding it never blocks on a full
// link. A worker error or cancellation of the ring's context ends the ring.
type Ring struct {
	n         int
	links     []chan types.Word
	cmds      []chan command
	results   []chan types.Word
	leftovers []chan int
	ready     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	closeOnce sync.Once
	closed    bool
	err       error
}

// NewRing starts n amplifier goroutines, each running its own copy of m.
// buffer is the capacity of every link; values below 1 use DefaultBuffer.
// The ring stops when ctx is cancelled or Close is called. If m has a
// Trace writer, every amplifier writes to it under a shared lock, each
// line prefixed with the amplifier's index.
func NewRing(ctx context.Context, m *intcode.Machine, n, buffer int) (*Ring, error) {
	if n < 1 {
		return nil, ErrNoPhases
	}
	if buffer < 1 {
		buffer = DefaultBuffer
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	r := &Ring{
		n:         n,
		links:     make([]chan types.Word, n),
		cmds:      make([]chan command, n),
		results:   make([]chan types.Word, n),
		leftovers: make([]chan int, n),
		ctx:       gctx,
		cancel:    cancel,
		group:     group,
	}
	for i := 0; i < n; i++ {
		r.links[i] = make(chan types.Word, buffer)
		r.cmds[i] = make(chan command, 1)
		r.results[i] = make(chan types.Word, 1)
		r.leftovers[i] = make(chan int, 1)
	}

	var traceMu sync.Mutex
	for i := 0; i < n; i++ {
		id, amp := i, m.Clone()
		if m.Trace != nil {
			amp.Trace = &traceWriter{mu: &traceMu, w: m.Trace, prefix: fmt.Sprintf("amp %d: ", id)}
		}
		group.Go(func() error {
			if err := r.worker(id, amp); err != nil {
				return &AmpError{Amp: id, Err: err}
			}
			return nil
		})
	}
	return r, nil
}

// traceWriter serialises the trace lines of several amplifiers onto one
// writer. Machine.Step writes each trace line in a single call.
type traceWriter struct {
	mu     *sync.Mutex
	w      io.Writer
	prefix string
}

func (tw *traceWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if _, err := io.WriteString(tw.w, tw.prefix); err != nil {
		return 0, err
	}
	return tw.w.Write(p)
}

// Len returns the number of amplifiers in the ring.
func (r *Ring) Len() int { return r.n }

func (r *Ring) worker(id int, m *intcode.Machine) error {
	in := r.links[id]
	out := intcode.ChanOutput{Ctx: r.ctx, C: r.links[(id+1)%r.n]}

	for cmd := range r.cmds[id] {
		switch cmd.kind {
		case cmdReset:
			err := r.reseed(m, in, cmd.phase)
			r.ready.Done()
			if err != nil {
				return err
			}
		case cmdRun:
			var last types.Word
			err := m.Run(intcode.ChanInput{Ctx: r.ctx, C: in}, intcode.OutputFunc(func(w types.Word) error {
				last = w
				return out.WriteWord(w)
			}))
			if err != nil {
				return err
			}
			r.results[id] <- last

			unread, more, err := r.drain(id, in)
			if err != nil || !more {
				return err
			}
			r.leftovers[id] <- unread
		}
	}
	return nil
}

// drain counts and discards the words arriving on in after the amplifier
// halted, until the controller asks for the count. more is false when the
// ring was closed instead.
func (r *Ring) drain(id int, in chan types.Word) (unread int, more bool, err error) {
	for {
		select {
		case <-in:
			unread++
		case _, ok := <-r.cmds[id]:
			if !ok {
				return unread, false, nil
			}
			// every sender has halted; take what is still buffered
			for {
				select {
				case <-in:
					unread++
				default:
					return unread, true, nil
				}
			}
		case <-r.ctx.Done():
			return unread, false, r.ctx.Err()
		}
	}
}

// reseed drops input left over from the previous run, resets the machine
// and queues its phase on its own input link.
func (r *Ring) reseed(m *intcode.Machine, in chan types.Word, phase types.Word) error {
	for drained := false; !drained; {
		select {
		case <-in:
		default:
			drained = true
		}
	}
	m.Reset()

	select {
	case in <- phase:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}

// Run seeds amplifier i with phases[i], sends signal to the first
// amplifier and waits for all of them to halt. It returns the last output
// of the final amplifier. That output is the only word the first amplifier
// may leave unread; any other unread input fails the run with
// ErrUnusedInput. Run must not be called concurrently.
func (r *Ring) Run(phases []types.Word, signal types.Word) (types.Word, error) {
	final, _, err := r.run(phases, signal)
	return final, err
}

func (r *Ring) run(phases []types.Word, signal types.Word) (types.Word, uuid.UUID, error) {
	if r.closed {
		return 0, uuid.Nil, ErrRingClosed
	}
	if len(phases) != r.n {
		return 0, uuid.Nil, fmt.Errorf("ring has %d amps, got %d phases", r.n, len(phases))
	}

	id := uuid.New()
	log.Debugf("ring run %s: phases %v, signal %d", id, phases, signal)

	r.ready.Add(r.n)
	for i, phase := range phases {
		r.cmds[i] <- command{kind: cmdReset, phase: phase}
	}
	r.ready.Wait()
	if r.ctx.Err() != nil {
		return 0, id, r.fail()
	}

	for i := range r.cmds {
		r.cmds[i] <- command{kind: cmdRun}
	}
	select {
	case r.links[0] <- signal:
	case <-r.ctx.Done():
		return 0, id, r.fail()
	}

	var final types.Word
	for i := range r.results {
		select {
		case final = <-r.results[i]:
		case <-r.ctx.Done():
			return 0, id, r.fail()
		}
	}

	var unused error
	for i := range r.cmds {
		r.cmds[i] <- command{kind: cmdReport}
	}
	for i := range r.leftovers {
		select {
		case unread := <-r.leftovers[i]:
			allowed := 0
			if i == 0 {
				allowed = 1
			}
			if unread > allowed && unused == nil {
				unused = &AmpError{Amp: i, Err: ErrUnusedInput}
			}
		case <-r.ctx.Done():
			return 0, id, r.fail()
		}
	}
	if unused != nil {
		log.Debugf("ring run %s: %v", id, unused)
		return 0, id, unused
	}

	log.Debugf("ring run %s: signal %d", id, final)
	return final, id, nil
}

// fail shuts the ring down after a worker error or cancellation and
// reports the cause.
func (r *Ring) fail() error {
	r.cancel()
	if err := r.shutdown(); err != nil {
		return err
	}
	return ErrRingClosed
}

// Close stops the amplifier goroutines and waits for them to exit. It
// returns the first worker error, if any.
func (r *Ring) Close() error {
	return r.shutdown()
}

func (r *Ring) shutdown() error {
	r.closeOnce.Do(func() {
		r.closed = true
		for _, c := range r.cmds {
			close(c)
		}
		r.err = r.group.Wait()
		r.cancel()
	})
	return r.err
}

// RunRing is a Runner that builds a Ring for a single feedback run.
func RunRing(m *intcode.Machine, phases []types.Word, signal types.Word) (types.Word, error) {
	r, err := NewRing(context.Background(), m, len(phases), DefaultBuffer)
	if err != nil {
		return 0, err
	}
	out, err := r.Run(phases, signal)
	if cerr := r.Close(); err == nil {
		err = cerr
	}
	return out, err
}

// MaxSignalThreaded is MaxSignal over one long-lived Ring, reseeded for
// every ordering of phases. The result carries the id of the ring run that
// produced the best signal.
func MaxSignalThreaded(ctx context.Context, m *intcode.Machine, phases []types.Word, buffer int) (Result, error) {
	r, err := NewRing(ctx, m, len(phases), buffer)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	log.Debugf("ring search: %d amps, buffer %d", len(phases), buffer)

	var best Result
	found := false
	err = Permutations(phases, func(p []types.Word) error {
		signal, run, err := r.run(p, 0)
		if err != nil {
			return &SearchError{Run: run, Phases: append([]types.Word(nil), p...), Err: err}
		}
		if !found || signal > best.Signal {
			best = Result{Signal: signal, Phases: append([]types.Word(nil), p...), Run: run}
			found = true
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	log.Infof("run %s: best signal %d with phases %v", best.Run, best.Signal, best.Phases)
	return best, r.Close()
}
