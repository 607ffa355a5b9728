package fault

import (
	"math/big"
	"testing"
)

func TestApplySet1OnWord(t *testing.T) {
	// Scenario 1: Set1 on a 32-bit memory word.
	f := &Fault{
		Kind:     TypeData,
		Model:    ModelSet1,
		Mask:     *big.NewInt(0xFF),
		NumBytes: 4,
		Lifespan: 0,
		Trigger:  Trigger{Address: 0x1000, HitCounter: 1},
	}
	data := big.NewInt(0)
	got := Apply(data, f)
	if got.Uint64() != 0xFF {
		t.Fatalf("Set1: got 0x%x, want 0xff", got.Uint64())
	}
}

func TestApplySet0WithLifespan(t *testing.T) {
	// Scenario 2: Set0 with lifespan 3.
	f := &Fault{
		Kind:     TypeData,
		Model:    ModelSet0,
		Mask:     *big.NewInt(0x0F),
		NumBytes: 4,
		Lifespan: 3,
	}
	data := big.NewInt(0xFFFFFFFF)
	got := Apply(data, f)
	if got.Uint64() != 0xFFFFFFF0 {
		t.Fatalf("Set0: got 0x%x, want 0xfffffff0", got.Uint64())
	}
	restored := Undo(big.NewInt(0xFFFFFFFF), f)
	if restored.Uint64() != 0xFFFFFFFF {
		t.Fatalf("Undo: got 0x%x, want 0xffffffff", restored.Uint64())
	}
}

func TestApplyToggleRegister(t *testing.T) {
	// Scenario 3: Register toggle on ARM r0, 8-bit value.
	f := &Fault{Kind: TypeRegister, Model: ModelToggle}
	data := big.NewInt(0xA5)
	got := Apply(data, f)
	if got.Uint64() != 0x5A {
		t.Fatalf("Toggle: got 0x%x, want 0x5a", got.Uint64())
	}
}

func TestApplyOverwriteWiderThan64Bits(t *testing.T) {
	// Scenario 4: Overwrite wider than 64 bits.
	mask, ok := new(big.Int).SetString("112233445566778899AABBCCDDEEFF00", 16)
	if !ok {
		t.Fatal("bad test mask literal")
	}
	f := &Fault{Kind: TypeData, Model: ModelOverwrite, Mask: *mask, NumBytes: 16}
	got := Apply(big.NewInt(0), f)
	bytes16 := ToLittleEndianBytes(got, 16)
	want := []byte{
		0x00, 0xff, 0xee, 0xdd, 0xcc, 0xbb, 0xaa, 0x99,
		0x88, 0x77, 0x66, 0x55, 0x44, 0x33, 0x22, 0x11,
	}
	if len(bytes16) != 16 {
		t.Fatalf("expected 16 bytes, got %d", len(bytes16))
	}
	for i := range want {
		if bytes16[i] != want[i] {
			t.Fatalf("byte %d: got 0x%x want 0x%x", i, bytes16[i], want[i])
		}
	}
}

func TestSizeOverwriteRejectsZeroNumBytes(t *testing.T) {
	f := &Fault{Model: ModelOverwrite, NumBytes: 0}
	if _, err := f.Size(); err == nil {
		t.Fatal("expected error for overwrite with num_bytes=0")
	}
}

func TestSizeRejectsZeroMask(t *testing.T) {
	f := &Fault{Model: ModelSet1, Mask: *big.NewInt(0)}
	if _, err := f.Size(); err == nil {
		t.Fatal("expected error for zero mask")
	}
}

func TestSizeMinimalByteCount(t *testing.T) {
	f := &Fault{Model: ModelSet1, Mask: *big.NewInt(0x0000_00FF)}
	sz, err := f.Size()
	if err != nil {
		t.Fatal(err)
	}
	if sz != 1 {
		t.Fatalf("got %d, want 1", sz)
	}
}

func TestApplyUndoRoundTrip(t *testing.T) {
	// Fault-model purity: apply then undo restores the prefault value.
	cases := []*Fault{
		{Model: ModelSet0, Mask: *big.NewInt(0xF0)},
		{Model: ModelSet1, Mask: *big.NewInt(0x0F)},
		{Model: ModelToggle},
		{Model: ModelOverwrite, Mask: *big.NewInt(0xAB), NumBytes: 1},
	}
	prefault := big.NewInt(0x5A)
	for _, f := range cases {
		applied := Apply(prefault, f)
		restored := Undo(prefault, f)
		if restored.Cmp(prefault) != 0 {
			t.Fatalf("%v: Undo(%v) = %v, want %v", f.Model, prefault, restored, prefault)
		}
		_ = applied
	}
}

func TestParseTypeAndModel(t *testing.T) {
	if ty, err := ParseType(2); err != nil || ty != TypeRegister {
		t.Fatalf("ParseType(2) = %v, %v", ty, err)
	}
	if _, err := ParseType(9); err == nil {
		t.Fatal("expected error for unknown type id")
	}
	if m, err := ParseModel(3); err != nil || m != ModelOverwrite {
		t.Fatalf("ParseModel(3) = %v, %v", m, err)
	}
	if _, err := ParseModel(9); err == nil {
		t.Fatal("expected error for unknown model id")
	}
}
