package engine

import (
	"math/big"
	"testing"

	"github.com/Fraunhofer-AISEC/archie/internal/disasm"
	"github.com/Fraunhofer-AISEC/archie/internal/fault"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

func newTestEngine(t *testing.T, faults []*fault.Fault, endpoints []EndpointSpec) *Engine {
	t.Helper()
	logs := worklog.New(disasm.NewThumb())
	e, err := New(nil, logs, faults, endpoints, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewRejectsDuplicateTriggerAddress(t *testing.T) {
	faults := []*fault.Fault{
		{Trigger: fault.Trigger{Address: 0x100, HitCounter: 1}},
		{Trigger: fault.Trigger{Address: 0x100, HitCounter: 2}},
	}
	endpoints := []EndpointSpec{{Address: 0x8000, HitCounter: 1}}

	logs := worklog.New(disasm.NewThumb())
	if _, err := New(nil, logs, faults, endpoints, nil, nil); err == nil {
		t.Fatalf("expected error for duplicate trigger address, got nil")
	}
}

func TestNewRequiresAtLeastOneEndpoint(t *testing.T) {
	logs := worklog.New(disasm.NewThumb())
	if _, err := New(nil, logs, nil, nil, nil, nil); err == nil {
		t.Fatalf("expected error for empty endpoint list, got nil")
	}
}

func TestNewTracksFirstEndpoint(t *testing.T) {
	endpoints := []EndpointSpec{
		{Address: 0x8000, HitCounter: 1},
		{Address: 0x9000, HitCounter: 1},
	}
	e := newTestEngine(t, nil, endpoints)
	if e.firstEndpoint != 0x8000 {
		t.Errorf("firstEndpoint = 0x%x, want 0x8000", e.firstEndpoint)
	}
}

func TestNeedsSingleStepOnlyForArmedTimeBoundedFaults(t *testing.T) {
	faults := []*fault.Fault{
		{Trigger: fault.Trigger{Address: 0x1000, HitCounter: 1}, Lifespan: 5},  // armed, time-bounded, in range
		{Trigger: fault.Trigger{Address: 0x1004, HitCounter: 3}, Lifespan: 5},  // not yet armed (hitcounter != 1)
		{Trigger: fault.Trigger{Address: 0x2000, HitCounter: 1}, Lifespan: 0},  // persistent, never needs single-step
	}
	e := newTestEngine(t, faults, []EndpointSpec{{Address: 0x8000, HitCounter: 1}})

	if !e.needsSingleStep(0x1000, 8) {
		t.Errorf("expected single-step required for block [0x1000,0x1008)")
	}
	if e.needsSingleStep(0x2000, 8) {
		t.Errorf("persistent fault should never require single-step")
	}
	if e.needsSingleStep(0x3000, 8) {
		t.Errorf("block with no armed faults should not require single-step")
	}
}

func TestInstructionCountAndTbCounterStartAtZero(t *testing.T) {
	e := newTestEngine(t, nil, []EndpointSpec{{Address: 0x8000, HitCounter: 1}})
	if got := e.InstructionCount(); got != 0 {
		t.Errorf("InstructionCount() = %d, want 0", got)
	}
	if got := e.TbCounter(); got != 0 {
		t.Errorf("TbCounter() = %d, want 0", got)
	}
	if _, _, terminated := e.Terminated(); terminated {
		t.Errorf("Terminated() = true before any endpoint fired")
	}
}

func TestPopDueFaultRespectsDueInstruction(t *testing.T) {
	e := newTestEngine(t, nil, []EndpointSpec{{Address: 0x8000, HitCounter: 1}})
	e.live.Push(0x100, big.NewInt(0xff), 10)

	if entry := e.popDueFault(5); entry != nil {
		t.Errorf("expected no fault due at instruction 5, got %+v", entry)
	}
	if e.live.Len() != 1 {
		t.Errorf("not-due check must not remove the entry; Len() = %d", e.live.Len())
	}

	entry := e.popDueFault(10)
	if entry == nil || entry.triggerAddress != 0x100 {
		t.Fatalf("expected fault 0x100 due at instruction 10, got %+v", entry)
	}
	if e.live.Len() != 0 {
		t.Errorf("due entry should have been popped; Len() = %d", e.live.Len())
	}
}
