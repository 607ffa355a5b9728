package driver

import (
	"math/big"
	"testing"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/ioschema"
	"github.com/Fraunhofer-AISEC/archie/internal/log"
)

func noopLogger(t *testing.T) *log.Logger {
	t.Helper()
	return log.NewNop()
}

func TestBuildFaultsRejectsUnknownType(t *testing.T) {
	mask := ioschema.BigIntWire{Int: *big.NewInt(1)}
	descs := []ioschema.FaultDescriptor{
		{Trigger: ioschema.FaultTrigger{Address: 0x100, HitCounter: 1}, Address: 0x200, Type: 9, Model: 0, Mask: mask},
	}
	if _, err := buildFaults(descs); err == nil {
		t.Fatalf("expected error for unknown fault type id")
	}
}

func TestBuildFaultsRejectsZeroMask(t *testing.T) {
	mask := ioschema.BigIntWire{Int: *big.NewInt(0)}
	descs := []ioschema.FaultDescriptor{
		{Trigger: ioschema.FaultTrigger{Address: 0x100, HitCounter: 1}, Address: 0x200, Type: 0, Model: 0, Mask: mask},
	}
	if _, err := buildFaults(descs); err == nil {
		t.Fatalf("expected error for zero mask (fault_size undefined)")
	}
}

func TestBuildFaultsAccepts128BitMask(t *testing.T) {
	wide := new(big.Int).Lsh(big.NewInt(1), 100)
	mask := ioschema.BigIntWire{Int: *wide}
	descs := []ioschema.FaultDescriptor{
		{Trigger: ioschema.FaultTrigger{Address: 0x100, HitCounter: 1}, Address: 0x200, Type: 0, Model: 1, Mask: mask},
	}
	faults, err := buildFaults(descs)
	if err != nil {
		t.Fatalf("buildFaults: %v", err)
	}
	size, err := faults[0].Size()
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if size != 13 {
		t.Errorf("Size() = %d, want 13 for a mask with bit 100 set", size)
	}
}

func TestMapMemoryRoundsToPageBoundary(t *testing.T) {
	mu, err := uc.NewUnicorn(uc.ARCH_ARM, uc.MODE_THUMB)
	if err != nil {
		t.Fatalf("NewUnicorn: %v", err)
	}
	defer mu.Close()

	regions := []ioschema.MemRegion{{Address: 0x1010, Size: 0x10}}
	if err := mapMemory(mu, regions, noopLogger(t)); err != nil {
		t.Fatalf("mapMemory: %v", err)
	}

	// The region should have been rounded down to 0x1000 and expanded to a
	// full page; a write at 0x1000 should now succeed.
	if err := mu.MemWrite(0x1000, []byte{1, 2, 3, 4}); err != nil {
		t.Errorf("expected 0x1000 to be mapped after rounding, got: %v", err)
	}
}
