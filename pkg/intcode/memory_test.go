package intcode

import (
	"testing"

	"github.com/psilLang/intcode/pkg/types"
)

func TestMemoryReadUnwritten(t *testing.T) {
	m := NewMemory([]types.Word{1, 2, 3})
	for _, addr := range []types.Addr{3, 4, 100, 1 << 40} {
		if v := m.Read(addr); v != 0 {
			t.Errorf("Read(%d) = %d, want 0", addr, v)
		}
	}
	if m.Len() != 3 {
		t.Errorf("reads must not grow memory, Len = %d", m.Len())
	}
}

func TestMemoryWriteRead(t *testing.T) {
	m := NewMemory([]types.Word{1, 2, 3})
	tests := []struct {
		addr types.Addr
		val  types.Word
	}{
		{0, -7},
		{2, 42},
		{3, 5},
		{1000, 6},
		{1 << 50, 1 << 60},
	}
	for _, tt := range tests {
		m.Write(tt.addr, tt.val)
		if got := m.Read(tt.addr); got != tt.val {
			t.Errorf("Read(%d) = %d, want %d", tt.addr, got, tt.val)
		}
	}
	if m.Len() != 6 {
		t.Errorf("Len = %d, want 6", m.Len())
	}

	// zero in high memory frees the cell
	m.Write(1000, 0)
	if m.Read(1000) != 0 || m.Len() != 5 {
		t.Errorf("after zero write: Read = %d, Len = %d", m.Read(1000), m.Len())
	}
}

func TestMemoryReset(t *testing.T) {
	m := NewMemory([]types.Word{1, 2, 3})
	m.Write(0, 10)
	m.Write(77, 11)
	m.Reset()

	for i, want := range []types.Word{1, 2, 3} {
		if got := m.Read(types.Addr(i)); got != want {
			t.Errorf("cell %d: got %d want %d", i, got, want)
		}
	}
	if m.Read(77) != 0 {
		t.Errorf("high memory survived reset: %d", m.Read(77))
	}
	if m.Len() != 3 || m.BaseLen() != 3 {
		t.Errorf("Len = %d, BaseLen = %d", m.Len(), m.BaseLen())
	}
}

func TestMemoryCopiesImage(t *testing.T) {
	words := []types.Word{1, 2, 3}
	m := NewMemory(words)
	words[0] = 99
	if m.Read(0) != 1 {
		t.Error("memory aliases the caller's slice")
	}
	m.Write(1, 50)
	m.Reset()
	if m.Read(1) != 2 {
		t.Error("reset did not restore the original image")
	}
}

func TestMemoryClone(t *testing.T) {
	m := NewMemory([]types.Word{1, 2, 3})
	m.Write(500, 9)
	c := m.Clone()

	c.Write(0, 100)
	c.Write(500, 200)
	c.Write(600, 300)

	if m.Read(0) != 1 || m.Read(500) != 9 || m.Read(600) != 0 {
		t.Errorf("clone writes leaked into original: %d %d %d", m.Read(0), m.Read(500), m.Read(600))
	}

	c.Reset()
	if c.Read(0) != 1 || c.Read(500) != 0 {
		t.Errorf("clone reset: %d %d", c.Read(0), c.Read(500))
	}
}
