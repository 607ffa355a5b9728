// Package fault implements the fault model: pure (pre-value, descriptor) ->
// post-value mappings plus their inverses, and the fault descriptor types
// that the hook engine keys its fault table and live-fault queue on.
package fault

import (
	"fmt"
	"math/big"
)

// Type identifies what a fault targets.
type Type int

const (
	TypeData Type = iota
	TypeInstruction
	TypeRegister
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "data"
	case TypeInstruction:
		return "instruction"
	case TypeRegister:
		return "register"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps the wire enum (spec.md §6.2) to a Type.
func ParseType(id int) (Type, error) {
	switch id {
	case 0:
		return TypeData, nil
	case 1:
		return TypeInstruction, nil
	case 2:
		return TypeRegister, nil
	default:
		return 0, fmt.Errorf("unknown fault type id %d", id)
	}
}

// Model identifies how a fault mutates a value.
type Model int

const (
	ModelSet0 Model = iota
	ModelSet1
	ModelToggle
	ModelOverwrite
)

func (m Model) String() string {
	switch m {
	case ModelSet0:
		return "set0"
	case ModelSet1:
		return "set1"
	case ModelToggle:
		return "toggle"
	case ModelOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// ParseModel maps the wire enum (spec.md §6.2) to a Model.
func ParseModel(id int) (Model, error) {
	switch id {
	case 0:
		return ModelSet0, nil
	case 1:
		return ModelSet1, nil
	case 2:
		return ModelToggle, nil
	case 3:
		return ModelOverwrite, nil
	default:
		return 0, fmt.Errorf("unknown fault model id %d", id)
	}
}

// Trigger is the arming condition copied into each Fault.
type Trigger struct {
	Address    uint64
	HitCounter uint32
}

// Fault is an immutable fault descriptor, as supplied by the host
// orchestrator's campaign. Only Trigger.HitCounter is ever mutated, by the
// hook engine's fault code-hook, as it counts down to the firing edge.
type Fault struct {
	Trigger  Trigger
	Address  uint64 // target address, or architectural register id for TypeRegister
	Kind     Type
	Model    Model
	Mask     big.Int // up to 128 bits, little-endian at the wire boundary
	Lifespan uint32  // 0 = persistent, never undone
	NumBytes uint32  // only meaningful for ModelOverwrite
}

// Persistent reports whether the fault, once fired, is never undone.
func (f *Fault) Persistent() bool {
	return f.Lifespan == 0
}

// Size returns fault_size(fault) in bytes per spec.md §4.1.
func (f *Fault) Size() (uint32, error) {
	if f.Model == ModelOverwrite {
		if f.NumBytes == 0 {
			return 0, fmt.Errorf("overwrite fault with num_bytes=0 at trigger 0x%x", f.Trigger.Address)
		}
		return f.NumBytes, nil
	}
	if f.Mask.Sign() == 0 {
		return 0, fmt.Errorf("fault_size undefined for zero mask at trigger 0x%x", f.Trigger.Address)
	}
	// floor(log2(mask)/8) + 1 == number of bytes needed to hold mask.BitLen() bits.
	bits := f.Mask.BitLen()
	return uint32((bits-1)/8) + 1, nil
}

// Apply computes the post-fault value from a pre-fault value, per spec.md
// §4.1's four models. data is interpreted as an unsigned little-endian
// integer of whatever width it was read at.
func Apply(data *big.Int, f *Fault) *big.Int {
	result := new(big.Int)
	switch f.Model {
	case ModelSet0:
		// v AND (NOT mask), restricted to data's own bit width so the
		// mask never sign-extends into bits data doesn't have.
		notMask := new(big.Int).Not(&f.Mask)
		result.And(data, notMask)
	case ModelSet1:
		result.Or(data, &f.Mask)
	case ModelToggle:
		bits := data.BitLen()
		allOnes := new(big.Int).Lsh(big.NewInt(1), uint(bits))
		allOnes.Sub(allOnes, big.NewInt(1))
		result.Xor(data, allOnes)
	case ModelOverwrite:
		result.Set(&f.Mask)
	}
	return result
}

// Undo is the inverse of Apply: given prefault_data and the fault that was
// applied, it returns the value to restore. All models are restorable
// because the hook engine always retains prefault_data verbatim rather than
// attempting to invert Apply analytically.
func Undo(prefaultData *big.Int, f *Fault) *big.Int {
	return new(big.Int).Set(prefaultData)
}

// ToLittleEndianBytes renders v as exactly n little-endian bytes,
// left-padding (i.e. truncating/zero-extending the high end) to fit.
func ToLittleEndianBytes(v *big.Int, n uint32) []byte {
	be := v.Bytes() // big-endian, minimal length
	out := make([]byte, n)
	for i := 0; i < len(be) && i < int(n); i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// FromLittleEndianBytes parses n little-endian bytes into a big.Int.
func FromLittleEndianBytes(b []byte) *big.Int {
	be := make([]byte, len(b))
	for i, c := range b {
		be[len(b)-1-i] = c
	}
	return new(big.Int).SetBytes(be)
}
