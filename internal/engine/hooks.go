package engine

import (
	"math/big"
	"strconv"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/fault"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

// blockHook is spec.md §4.4's block hook. It tracks last_tbid/tbcounter,
// installs or removes the single-step hook as live faults demand, and
// otherwise logs the block.
func (e *Engine) blockHook(mu uc.Unicorn, address uint64, size uint32) {
	e.tbMu.Lock()
	e.lastTbid = address
	e.tbcounter++
	e.tbMu.Unlock()

	e.liveMu.Lock()
	liveEmpty := e.live.Len() == 0
	e.liveMu.Unlock()

	e.stepMu.Lock()
	if liveEmpty && e.stepInstalled {
		_ = mu.HookDel(e.stepHook)
		e.stepInstalled = false
	}
	alreadyInstalled := e.stepInstalled
	e.stepMu.Unlock()

	if alreadyInstalled {
		return
	}

	if e.needsSingleStep(address, size) {
		e.stepMu.Lock()
		// Full range, like the block and memory-access hooks: once the
		// firing instruction's own block ends, execution may land anywhere,
		// and the single-step hook must still run every instruction until
		// every live fault it owns has been undone (spec.md §4.4 step 4).
		hook, err := mu.HookAdd(uc.HOOK_CODE, e.singleStepHook, 1, 0)
		if err == nil {
			e.stepHook = hook
			e.stepInstalled = true
		}
		e.stepMu.Unlock()
		return
	}

	_ = e.logs.LogTbInfo(mu, address, size)
	e.logs.LogTbExec(address)
}

// needsSingleStep reports whether any fault with lifespan>0 is about to
// fire (trigger.hitcounter==1) from within [address, address+size).
func (e *Engine) needsSingleStep(address uint64, size uint32) bool {
	e.faultsMu.RLock()
	defer e.faultsMu.RUnlock()
	for _, f := range e.faults {
		if f.Lifespan == 0 {
			continue
		}
		if f.Trigger.HitCounter == 1 && f.Trigger.Address >= address && f.Trigger.Address < address+uint64(size) {
			return true
		}
	}
	return false
}

// faultHook is spec.md §4.4's fault code-hook, installed once per trigger
// address. It fires on the 1->0 hitcounter transition.
func (e *Engine) faultHook(mu uc.Unicorn, address uint64, size uint32) {
	e.faultsMu.Lock()
	f, ok := e.faults[address]
	if !ok {
		e.faultsMu.Unlock()
		return
	}
	if f.Trigger.HitCounter == 0 {
		e.faultsMu.Unlock()
		return
	}
	f.Trigger.HitCounter--
	fire := f.Trigger.HitCounter == 0
	e.faultsMu.Unlock()
	if !fire {
		return
	}

	e.fire(mu, f)
}

func (e *Engine) fire(mu uc.Unicorn, f *fault.Fault) {
	var prefault *big.Int

	switch f.Kind {
	case fault.TypeRegister:
		val, err := mu.RegRead(int(f.Address))
		if err != nil {
			return
		}
		pre := new(big.Int).SetUint64(val)
		post := fault.Apply(pre, f)
		_ = mu.RegWrite(int(f.Address), post.Uint64())
		prefault = pre
	default: // Data, Instruction
		size, err := f.Size()
		if err != nil {
			return
		}
		pre, err := mu.MemRead(f.Address, uint64(size))
		if err != nil {
			return
		}
		_ = e.logs.DumpMemory(mu, f.Address, uint64(size))

		preVal := bigIntFromBytes(pre)
		post := fault.Apply(preVal, f)
		_ = mu.MemWrite(f.Address, fault.ToLittleEndianBytes(post, size))

		_ = e.logs.DumpMemory(mu, f.Address, uint64(size))
		prefault = preVal
	}

	if !f.Persistent() {
		e.instrMu.Lock()
		now := e.instructionCount
		e.instrMu.Unlock()

		e.liveMu.Lock()
		e.live.Push(f.Trigger.Address, prefault, now+uint64(f.Lifespan))
		e.liveMu.Unlock()
	}

	e.tbMu.Lock()
	tbc := e.tbcounter
	e.tbMu.Unlock()
	_ = e.adapter.DumpRegisters(mu, e.logs, tbc)

	e.logger.FaultFired(f.Trigger.Address, f.Address, f.Kind.String(), f.Model.String())
}

// memHook is spec.md §4.4's memory-access hook: it records every read and
// write at any address and always allows the access.
func (e *Engine) memHook(mu uc.Unicorn, access int, address uint64, size int, value int64) bool {
	direction := worklog.DirectionRead
	if access == uc.MEM_WRITE {
		direction = worklog.DirectionWrite
	}

	pc, err := mu.RegRead(uc.ARM_REG_PC)
	if err != nil {
		pc = address
	}

	e.tbMu.Lock()
	tbid := e.lastTbid
	e.tbMu.Unlock()

	e.logs.RecordMemInfo(address, pc, direction, uint64(size), tbid)
	return true
}

// singleStepHook is spec.md §4.4's single-step hook: it undoes any live
// fault that is due, logs the current instruction as a one-instruction
// block, and advances instruction_count.
func (e *Engine) singleStepHook(mu uc.Unicorn, address uint64, size uint32) {
	e.instrMu.Lock()
	current := e.instructionCount
	e.instrMu.Unlock()

	undone := e.undoDueFaults(mu, current)

	if undone != nil && undone.Kind != fault.TypeRegister {
		faultSize, err := undone.Size()
		if err == nil {
			_ = e.logs.DumpMemory(mu, address, uint64(faultSize))
		}
		e.tbMu.Lock()
		tbc := e.tbcounter
		e.tbMu.Unlock()
		_ = e.adapter.DumpRegisters(mu, e.logs, tbc)
	}

	e.instrMu.Lock()
	e.instructionCount++
	e.instrMu.Unlock()

	_ = e.logs.LogTbInfo(mu, address, size)
	e.logs.LogTbExec(address)
}

// popDueFault pops and returns the earliest-due live fault entry if it is
// due by instructionCount, else leaves the queue untouched and returns nil.
// Split out from undoDueFaults so the due/not-due decision is testable
// without a Unicorn instance.
func (e *Engine) popDueFault(instructionCount uint64) *liveFaultEntry {
	e.liveMu.Lock()
	defer e.liveMu.Unlock()
	entry := e.live.Peek()
	if entry == nil || entry.due > instructionCount {
		return nil
	}
	return e.live.Pop()
}

// undoDueFaults pops and restores the earliest-due live fault if it is due
// by instructionCount, per spec.md §4.1/§4.4.
func (e *Engine) undoDueFaults(mu uc.Unicorn, instructionCount uint64) *fault.Fault {
	entry := e.popDueFault(instructionCount)
	if entry == nil {
		return nil
	}

	e.faultsMu.RLock()
	f, ok := e.faults[entry.triggerAddress]
	e.faultsMu.RUnlock()
	if !ok {
		return nil
	}

	restored := fault.Undo(entry.prefault, f)
	switch f.Kind {
	case fault.TypeRegister:
		_ = mu.RegWrite(int(f.Address), restored.Uint64())
	default:
		size, err := f.Size()
		if err != nil {
			return f
		}
		_ = mu.MemWrite(f.Address, fault.ToLittleEndianBytes(restored, size))
	}

	e.logger.FaultUndone(entry.triggerAddress, entry.due)
	return f
}

// endpointHookFor returns the code-hook closure for one configured
// endpoint address, per spec.md §4.4's endpoint hook.
func (e *Engine) endpointHookFor(address uint64) func(mu uc.Unicorn, addr uint64, size uint32) {
	return func(mu uc.Unicorn, addr uint64, size uint32) {
		e.endpointsMu.Lock()
		counter := e.endpoints[address]
		if counter > 1 {
			e.endpoints[address] = counter - 1
			e.endpointsMu.Unlock()
			e.logger.EndpointHit(address, counter-1, false)
			return
		}
		if e.terminated {
			e.endpointsMu.Unlock()
			return
		}
		e.terminated = true
		e.result = EndpointResult{
			ReachedFirst: address == e.firstEndpoint,
			Address:      address,
			Hits:         1,
		}
		e.endReason = formatEndReason(address)
		e.endpointsMu.Unlock()

		e.logger.EndpointHit(address, 0, true)

		e.stepMu.Lock()
		stepInstalled := e.stepInstalled
		stepHook := e.stepHook
		e.stepMu.Unlock()
		if stepInstalled {
			e.singleStepHook(mu, address, size)
			_ = mu.HookDel(stepHook)
			e.stepMu.Lock()
			e.stepInstalled = false
			e.stepMu.Unlock()
		}

		for _, d := range e.memDumps {
			_ = e.logs.DumpMemory(mu, d.Address, d.Length)
		}

		_ = mu.Stop()
	}
}

func formatEndReason(address uint64) string {
	return strconv.FormatUint(address, 10) + "/1"
}
