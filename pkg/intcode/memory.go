package intcode

import (
	"maps"

	"github.com/psilLang/intcode/pkg/types"
)

// Memory is logically unbounded Intcode memory.
//
// The program image lives in a dense slice ("low memory"); cells past its
// end spill into a map ("high memory"), so one far-away address costs one
// map entry rather than a huge allocation.
type Memory struct {
	image []types.Word
	low   []types.Word
	high  map[types.Addr]types.Word
}

// NewMemory creates memory whose initial image is a copy of words.
func NewMemory(words []types.Word) *Memory {
	image := make([]types.Word, len(words))
	copy(image, words)
	low := make([]types.Word, len(words))
	copy(low, words)
	return &Memory{
		image: image,
		low:   low,
		high:  make(map[types.Addr]types.Word),
	}
}

// Read returns the word at addr. Unwritten cells read as zero.
func (m *Memory) Read(addr types.Addr) types.Word {
	if addr < types.Addr(len(m.low)) {
		return m.low[addr]
	}
	return m.high[addr]
}

// Write stores val at addr, growing memory as needed.
func (m *Memory) Write(addr types.Addr, val types.Word) {
	if addr < types.Addr(len(m.low)) {
		m.low[addr] = val
		return
	}
	if val == 0 {
		delete(m.high, addr)
		return
	}
	m.high[addr] = val
}

// Reset restores every cell to the initial image and drops all growth.
func (m *Memory) Reset() {
	copy(m.low, m.image)
	clear(m.high)
}

// BaseLen returns the length of the initial program image.
func (m *Memory) BaseLen() int {
	return len(m.image)
}

// Len returns the number of cells currently backed by storage.
func (m *Memory) Len() int {
	return len(m.low) + len(m.high)
}

// Clone returns an independent deep copy.
func (m *Memory) Clone() *Memory {
	low := make([]types.Word, len(m.low))
	copy(low, m.low)
	return &Memory{
		image: m.image, // never written after construction
		low:   low,
		high:  maps.Clone(m.high),
	}
}

// Words returns a copy of the dense prefix of memory.
func (m *Memory) Words() []types.Word {
	out := make([]types.Word, len(m.low))
	copy(out, m.low)
	return out
}
