// Package driver orchestrates one emulation run: it validates the input
// bundle, initializes the emulator and memory map, wires the hook engine,
// drives emu_start, and assembles the result, per spec.md §4.5.
package driver

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/arch"
	"github.com/Fraunhofer-AISEC/archie/internal/engine"
	"github.com/Fraunhofer-AISEC/archie/internal/fault"
	"github.com/Fraunhofer-AISEC/archie/internal/ioschema"
	"github.com/Fraunhofer-AISEC/archie/internal/log"
	"github.com/Fraunhofer-AISEC/archie/internal/runerr"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

const pageSize = 0x1000

// Progress is a snapshot of the engine's counters, sent without blocking
// every 50ms while a run executes, for an optional live view
// (internal/ui/progress). Mirrors
// the non-blocking channel-write pattern cmd/galago/main.go's outputWriter
// uses for its own output stream.
type Progress struct {
	InstructionCount uint64
	TbCounter        uint64
}

// Run executes one campaign described by b and returns the trace the host
// orchestrator expects, per spec.md §6.2. progressCh, if non-nil, receives
// best-effort Progress snapshots; sends never block the run.
func Run(b *ioschema.Bundle, logger *log.Logger, progressCh chan<- Progress) (*ioschema.Result, error) {
	archName, err := arch.Parse(b.PreGoldenrun.Architecture)
	if err != nil {
		return nil, runerr.NewInputShapeError("architecture", err)
	}
	if len(b.Config.End) == 0 {
		return nil, runerr.NewInputShapeError("config.end", errors.New("at least one endpoint is required"))
	}
	if b.Config.MaxInstructionCount == 0 {
		return nil, runerr.NewInputShapeError("config.max_instruction_count", errors.New("must be nonzero"))
	}

	adapter, err := arch.New(archName)
	if err != nil {
		return nil, runerr.NewInputShapeError("architecture", err)
	}

	mu, err := adapter.InitializeUnicorn()
	if err != nil {
		return nil, fmt.Errorf("initialize emulator: %w", err)
	}
	defer mu.Close()

	logs := worklog.New(adapter.InitializeDisassembler())

	if err := mapMemory(mu, b.PreGoldenrun.Memmaplist, logger); err != nil {
		return nil, err
	}

	if err := writeInitialMemory(mu, b.PreGoldenrun.Memdumplist); err != nil {
		return nil, err
	}

	registers, err := b.PreGoldenrun.Registers()
	if err != nil {
		return nil, runerr.NewInputShapeError("registers", err)
	}

	startAddress := b.Config.Start.Address
	if err := adapter.InitializeRegisters(mu, registers, &startAddress); err != nil {
		return nil, fmt.Errorf("initialize registers: %w", err)
	}

	faults, err := buildFaults(b.Faults)
	if err != nil {
		return nil, runerr.NewInputShapeError("faults", err)
	}

	endpoints := make([]engine.EndpointSpec, 0, len(b.Config.End))
	for _, ep := range b.Config.End {
		endpoints = append(endpoints, engine.EndpointSpec{Address: ep.Address, HitCounter: ep.Counter})
	}

	memDumpSpecs := make([]engine.MemDumpSpec, 0, len(b.Config.Memorydump))
	for _, d := range b.Config.Memorydump {
		memDumpSpecs = append(memDumpSpecs, engine.MemDumpSpec{Address: d.Address, Length: d.Length})
	}

	eng, err := engine.New(adapter, logs, faults, endpoints, memDumpSpecs, logger)
	if err != nil {
		return nil, runerr.NewInputShapeError("faults/endpoints", err)
	}

	if err := eng.InstallHooks(mu); err != nil {
		return nil, runerr.NewHookInstallError("engine", err)
	}

	if err := adapter.DumpRegisters(mu, logs, 0); err != nil {
		logger.RunError(fmt.Errorf("initial register snapshot: %w", err))
	}

	stopProgress := reportProgress(eng, progressCh)
	defer stopProgress()

	runErr := mu.StartWithOptions(startAddress, 0, &uc.UcOptions{Timeout: 0, Count: b.Config.MaxInstructionCount})
	if runErr != nil {
		logger.RunError(runErr)
	}

	if err := adapter.DumpRegisters(mu, logs, eng.TbCounter()); err != nil {
		logger.RunError(fmt.Errorf("final register snapshot: %w", err))
	}

	result, reportedEndReason, terminated := eng.Terminated()
	endpointFlag := 0
	endReason := "max tb"
	if terminated {
		endReason = reportedEndReason
		if result.ReachedFirst {
			endpointFlag = 1
		}
	}

	return &ioschema.Result{
		MemInfo:      logs.MemInfoList(),
		TbInfo:       logs.TbInfoList(),
		TbExec:       logs.FinalizeTbExec(),
		Endpoint:     endpointFlag,
		EndReason:    endReason,
		RegisterList: logs.RegisterList(),
		MemDumps:     logs.MemDumpList(),
	}, nil
}

// mapMemory maps each region, rounding the base down to the page boundary
// and expanding length to at least one page. ERR_MAP/ERR_NOMEM are logged
// as warnings and tolerated; any other mapping error is fatal, per
// spec.md §4.5/§7.
func mapMemory(mu uc.Unicorn, regions []ioschema.MemRegion, logger *log.Logger) error {
	for _, r := range regions {
		base := r.Address &^ (pageSize - 1)
		size := r.Size
		if size < pageSize {
			size = pageSize
		}
		if err := mu.MemMap(base, size); err != nil {
			mapErr := runerr.NewMappingError(base, size, err).(*runerr.MappingError)
			if mapErr.Tolerable() {
				logger.MappingWarning(base, size, err)
				continue
			}
			return mapErr
		}
	}
	return nil
}

func writeInitialMemory(mu uc.Unicorn, dumps []ioschema.MemDumpRegion) error {
	for _, d := range dumps {
		if len(d.Dumps) == 0 {
			continue
		}
		if err := mu.MemWrite(d.Address, d.Dumps[0]); err != nil {
			return fmt.Errorf("write initial memory at 0x%x: %w", d.Address, err)
		}
	}
	return nil
}

func buildFaults(descs []ioschema.FaultDescriptor) ([]*fault.Fault, error) {
	out := make([]*fault.Fault, 0, len(descs))
	for i, d := range descs {
		kind, err := fault.ParseType(d.Type)
		if err != nil {
			return nil, fmt.Errorf("fault %d: %w", i, err)
		}
		model, err := fault.ParseModel(d.Model)
		if err != nil {
			return nil, fmt.Errorf("fault %d: %w", i, err)
		}
		f := &fault.Fault{
			Trigger: fault.Trigger{
				Address:    d.Trigger.Address,
				HitCounter: d.Trigger.HitCounter,
			},
			Address:  d.Address,
			Kind:     kind,
			Model:    model,
			Mask:     *new(big.Int).Set(&d.Mask.Int),
			Lifespan: d.Lifespan,
			NumBytes: d.NumBytes,
		}
		if _, err := f.Size(); err != nil {
			return nil, fmt.Errorf("fault %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// reportProgress starts a goroutine that polls the engine's counters and
// forwards best-effort snapshots to progressCh. Returns a func that stops
// the goroutine; safe to call even if progressCh is nil.
func reportProgress(eng *engine.Engine, progressCh chan<- Progress) func() {
	if progressCh == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case progressCh <- Progress{InstructionCount: eng.InstructionCount(), TbCounter: eng.TbCounter()}:
				default:
				}
			}
		}
	}()
	return func() { close(done) }
}
