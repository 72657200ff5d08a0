package intcode

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/psilLang/intcode/pkg/types"
)

// Input produces one word per call. Step calls it once per in instruction.
type Input interface {
	ReadWord() (types.Word, error)
}

// Output consumes one word per call. Step calls it once per out instruction.
type Output interface {
	WriteWord(types.Word) error
}

// InputFunc adapts a function to Input.
type InputFunc func() (types.Word, error)

func (f InputFunc) ReadWord() (types.Word, error) { return f() }

// OutputFunc adapts a function to Output.
type OutputFunc func(types.Word) error

func (f OutputFunc) WriteWord(w types.Word) error { return f(w) }

// headless rejects all I/O.
var headless = struct {
	InputFunc
	OutputFunc
}{
	InputFunc(func() (types.Word, error) { return 0, ErrHeadless }),
	OutputFunc(func(types.Word) error { return ErrHeadless }),
}

// === Queue ===

// Queue is a FIFO of words. Reading an empty queue fails with
// ErrInputExhausted rather than blocking.
type Queue struct {
	items []types.Word
	head  int
}

// NewQueue creates a queue holding words in order.
func NewQueue(words ...types.Word) *Queue {
	q := &Queue{}
	q.Push(words...)
	return q
}

// Push appends words to the back of the queue.
func (q *Queue) Push(words ...types.Word) {
	if q.head > 0 && len(q.items)+len(words) > cap(q.items) {
		// slide the live words down before append grows the array
		n := copy(q.items, q.items[q.head:])
		q.items = q.items[:n]
		q.head = 0
	}
	q.items = append(q.items, words...)
}

// Pop removes the front word.
func (q *Queue) Pop() (types.Word, bool) {
	if q.Len() == 0 {
		return 0, false
	}
	w := q.items[q.head]
	q.head++
	if q.head == len(q.items) {
		q.Clear()
	}
	return w, true
}

// DropLast removes the most recently pushed word, if any.
func (q *Queue) DropLast() (types.Word, bool) {
	if q.Len() == 0 {
		return 0, false
	}
	w := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	if q.head == len(q.items) {
		q.Clear()
	}
	return w, true
}

// Len returns the number of queued words.
func (q *Queue) Len() int { return len(q.items) - q.head }

// Words returns a copy of the queued words, front first.
func (q *Queue) Words() []types.Word {
	out := make([]types.Word, q.Len())
	copy(out, q.items[q.head:])
	return out
}

// Clear empties the queue, keeping its storage.
func (q *Queue) Clear() {
	q.items = q.items[:0]
	q.head = 0
}

func (q *Queue) ReadWord() (types.Word, error) {
	if w, ok := q.Pop(); ok {
		return w, nil
	}
	return 0, ErrInputExhausted
}

func (q *Queue) WriteWord(w types.Word) error {
	q.Push(w)
	return nil
}

// === Channels ===

// ChanInput blocks on a channel receive until a word arrives, the channel
// is closed (ErrClosed) or Ctx is done. A nil Ctx never expires.
type ChanInput struct {
	Ctx context.Context
	C   <-chan types.Word
}

func (in ChanInput) ReadWord() (types.Word, error) {
	ctx := orBackground(in.Ctx)
	select {
	case w, ok := <-in.C:
		if !ok {
			return 0, ErrClosed
		}
		return w, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// ChanOutput blocks on a channel send until it is accepted or Ctx is done.
// Sending on a closed channel panics, so the owner must not close C while a
// machine is still running.
type ChanOutput struct {
	Ctx context.Context
	C   chan<- types.Word
}

func (out ChanOutput) WriteWord(w types.Word) error {
	ctx := orBackground(out.Ctx)
	select {
	case out.C <- w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// === Console ===

// Console reads one integer per line from R and writes each output word on
// its own line to W. Prompt, if set, is written before every read.
type Console struct {
	Prompt string

	r *bufio.Reader
	w io.Writer
}

// NewConsole creates a console over r and w.
func NewConsole(r io.Reader, w io.Writer) *Console {
	return &Console{r: bufio.NewReader(r), w: w}
}

func (c *Console) ReadWord() (types.Word, error) {
	if c.Prompt != "" {
		if _, err := io.WriteString(c.w, c.Prompt); err != nil {
			return 0, err
		}
	}
	line, err := c.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return 0, err
	}
	line = strings.TrimSpace(line)
	v, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid input %q: %w", line, err)
	}
	return types.Word(v), nil
}

func (c *Console) WriteWord(w types.Word) error {
	_, err := fmt.Fprintln(c.w, w)
	return err
}
