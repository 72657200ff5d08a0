package intcode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/psilLang/intcode/pkg/types"
)

// Snapshot is the serialized state of a Machine.
type Snapshot struct {
	Image  []types.Word              `cbor:"1,keyasint"`
	Low    []types.Word              `cbor:"2,keyasint"`
	High   map[types.Addr]types.Word `cbor:"3,keyasint,omitempty"`
	PC     types.Addr                `cbor:"4,keyasint"`
	Base   types.Word                `cbor:"5,keyasint"`
	Halted bool                      `cbor:"6,keyasint"`
	Steps  int                       `cbor:"7,keyasint"`
}

// Canonical mode keeps snapshots of equal machines byte-identical.
var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("intcode: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot captures the machine's complete state.
func (m *Machine) Snapshot() *Snapshot {
	high := make(map[types.Addr]types.Word, len(m.mem.high))
	for a, v := range m.mem.high {
		high[a] = v
	}
	return &Snapshot{
		Image:  append([]types.Word(nil), m.mem.image...),
		Low:    m.mem.Words(),
		High:   high,
		PC:     m.pc,
		Base:   m.base,
		Halted: m.halted,
		Steps:  m.steps,
	}
}

// MarshalSnapshot serializes the machine's state to CBOR bytes.
func (m *Machine) MarshalSnapshot() ([]byte, error) {
	return snapshotEncMode.Marshal(m.Snapshot())
}

// Restore builds a machine from a snapshot. Reset on the result returns it
// to the snapshot's initial image, not to the snapshot itself.
func Restore(s *Snapshot) (*Machine, error) {
	if len(s.Low) != len(s.Image) {
		return nil, fmt.Errorf("intcode: snapshot memory has %d cells, image has %d", len(s.Low), len(s.Image))
	}
	mem := NewMemory(s.Image)
	copy(mem.low, s.Low)
	for a, v := range s.High {
		mem.Write(a, v)
	}
	return &Machine{
		mem:    mem,
		pc:     s.PC,
		base:   s.Base,
		halted: s.Halted,
		steps:  s.Steps,
	}, nil
}

// UnmarshalSnapshot deserializes CBOR bytes produced by MarshalSnapshot.
func UnmarshalSnapshot(data []byte) (*Machine, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("intcode: unmarshal snapshot: %w", err)
	}
	return Restore(&s)
}
