// Package engine is the hook engine: it owns every piece of run state a
// Unicorn Engine callback can touch, and the callbacks themselves. It is
// the direct translation of spec.md §4.4's block/fault/single-step/
// memory-access/endpoint hook algorithms and §5's locking discipline.
package engine

import (
	"fmt"
	"math/big"
	"sync"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/arch"
	"github.com/Fraunhofer-AISEC/archie/internal/fault"
	"github.com/Fraunhofer-AISEC/archie/internal/log"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

// EndpointSpec is one configured endpoint: the address a run may terminate
// at, and how many times it must be hit before it fires.
type EndpointSpec struct {
	Address    uint64
	HitCounter uint32
}

// MemDumpSpec is one region the endpoint hook dumps a final time when a run
// terminates at an endpoint.
type MemDumpSpec struct {
	Address uint64
	Length  uint64
}

// EndpointResult is the single endpoint record a terminated run returns.
type EndpointResult struct {
	ReachedFirst bool
	Address      uint64
	Hits         uint32
}

// Engine holds every field a Unicorn hook callback reads or mutates. Field
// groups are guarded independently, one lock per group (the groups of
// spec.md §5); a callback takes each lock only for the field it touches and
// releases it before taking the next, so no two are ever held at once:
//
//  1. tbMu (last_tbid, tbcounter)
//  2. stepMu (single_step_hook_handle)
//  3. faultsMu (faults)
//  4. liveMu (live_faults)
//  5. instrMu (instruction_count)
//  6. logs.* (owns its own finer-grained locks)
//
// The mutexes are not a formality: a live progress view (internal/ui/progress)
// reads tbcounter and instruction_count from a second goroutine while the
// emulator runs.
type Engine struct {
	adapter arch.Adapter
	logs    *worklog.Logs
	logger  *log.Logger

	memDumps []MemDumpSpec

	tbMu      sync.Mutex
	lastTbid  uint64
	tbcounter uint64

	stepMu        sync.Mutex
	stepHook      uc.Hook
	stepInstalled bool

	faultsMu sync.RWMutex
	faults   map[uint64]*fault.Fault // keyed by trigger address

	liveMu sync.Mutex
	live   *liveFaultQueue

	instrMu          sync.Mutex
	instructionCount uint64

	endpointsMu   sync.Mutex
	endpoints     map[uint64]uint32 // address -> remaining hit count
	firstEndpoint uint64
	terminated    bool
	result        EndpointResult
	endReason     string
}

// New builds an Engine. faults must have no two entries sharing a trigger
// address (spec.md §3's invariant). endpoints is kept as an address-keyed
// table (a repeated address keeps its last hit count), and its first
// element is the "first configured endpoint" the result field refers to. logger may be nil, in which case engine events are discarded.
func New(adapter arch.Adapter, logs *worklog.Logs, faults []*fault.Fault, endpoints []EndpointSpec, memDumps []MemDumpSpec, logger *log.Logger) (*Engine, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	faultTable := make(map[uint64]*fault.Fault, len(faults))
	for _, f := range faults {
		if _, dup := faultTable[f.Trigger.Address]; dup {
			return nil, fmt.Errorf("duplicate fault trigger address 0x%x", f.Trigger.Address)
		}
		faultTable[f.Trigger.Address] = f
	}

	endpointTable := make(map[uint64]uint32, len(endpoints))
	for _, e := range endpoints {
		endpointTable[e.Address] = e.HitCounter
	}

	return &Engine{
		adapter:       adapter,
		logs:          logs,
		logger:        logger,
		memDumps:      memDumps,
		faults:        faultTable,
		live:          newLiveFaultQueue(),
		endpoints:     endpointTable,
		firstEndpoint: endpoints[0].Address,
	}, nil
}

// InstallHooks installs the memory-access hook, the block hook, one
// endpoint code-hook per endpoint, and one fault code-hook per fault
// trigger, in that order (spec.md §4.4/§5): hooks installed earlier run
// earlier when addresses collide, so an endpoint hook always gets first
// look at an address a fault trigger also happens to sit on. The
// single-step hook is installed and removed dynamically by the block
// hook, not here.
func (e *Engine) InstallHooks(mu uc.Unicorn) error {
	if _, err := mu.HookAdd(uc.HOOK_MEM_READ|uc.HOOK_MEM_WRITE, e.memHook, 1, 0); err != nil {
		return fmt.Errorf("install memory-access hook: %w", err)
	}

	if _, err := mu.HookAdd(uc.HOOK_BLOCK, e.blockHook, 1, 0); err != nil {
		return fmt.Errorf("install block hook: %w", err)
	}

	for addr := range e.endpoints {
		addr := addr
		if _, err := mu.HookAdd(uc.HOOK_CODE, e.endpointHookFor(addr), addr, addr); err != nil {
			return fmt.Errorf("install endpoint hook at 0x%x: %w", addr, err)
		}
	}

	e.faultsMu.RLock()
	triggers := make([]uint64, 0, len(e.faults))
	for addr := range e.faults {
		triggers = append(triggers, addr)
	}
	e.faultsMu.RUnlock()

	for _, addr := range triggers {
		if _, err := mu.HookAdd(uc.HOOK_CODE, e.faultHook, addr, addr); err != nil {
			return fmt.Errorf("install fault hook at 0x%x: %w", addr, err)
		}
	}

	return nil
}

// InstructionCount returns the current instruction_count. Safe to call from
// another goroutine while the emulator runs.
func (e *Engine) InstructionCount() uint64 {
	e.instrMu.Lock()
	defer e.instrMu.Unlock()
	return e.instructionCount
}

// TbCounter returns the current tbcounter. Safe to call concurrently.
func (e *Engine) TbCounter() uint64 {
	e.tbMu.Lock()
	defer e.tbMu.Unlock()
	return e.tbcounter
}

// Terminated reports whether an endpoint has fired, and if so the result
// and end_reason to report.
func (e *Engine) Terminated() (EndpointResult, string, bool) {
	e.endpointsMu.Lock()
	defer e.endpointsMu.Unlock()
	return e.result, e.endReason, e.terminated
}

func bigIntFromBytes(b []byte) *big.Int {
	return fault.FromLittleEndianBytes(b)
}
