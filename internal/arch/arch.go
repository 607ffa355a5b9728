// Package arch is the architecture adapter: it translates a named register
// dump into emulator register writes and back, and owns the one piece of
// architecture-specific start-address handling the driver needs (the ARM
// Thumb start-bit). It encapsulates every unicorn_engine register constant
// so the rest of the module never imports the Unicorn register enums
// directly.
package arch

import (
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/disasm"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

// Name identifies a supported target architecture.
type Name string

const (
	ARM     Name = "arm"
	Riscv64 Name = "riscv64"
)

// Parse validates an architecture tag from the input bundle (spec.md §6.1).
func Parse(tag string) (Name, error) {
	switch Name(tag) {
	case ARM:
		return ARM, nil
	case Riscv64:
		return Riscv64, nil
	default:
		return "", fmt.Errorf("unknown architecture %q", tag)
	}
}

// Unicorn is the subset of unicorn.Unicorn the adapter needs to read and
// write registers.
type Unicorn interface {
	RegRead(reg int) (uint64, error)
	RegWrite(reg int, value uint64) error
}

// Adapter encapsulates everything architecture-specific: the register
// table, the Unicorn arch/mode pair, the start-address fixup, and which
// disassembler renders this architecture's blocks.
type Adapter interface {
	// InitializeUnicorn creates a fresh Unicorn instance for this architecture.
	InitializeUnicorn() (uc.Unicorn, error)

	// InitializeRegisters writes every named register from dump into mu,
	// and applies any architecture-specific adjustment to startAddress
	// (e.g. ARM's Thumb T-bit).
	InitializeRegisters(mu Unicorn, dump map[string]uint64, startAddress *uint64) error

	// DumpRegisters reads every named register from mu and appends a
	// snapshot (tagged with tbcounter) to logs.
	DumpRegisters(mu Unicorn, logs *worklog.Logs, tbcounter uint64) error

	// InitializeDisassembler returns the disassembler for this architecture's
	// instruction encoding.
	InitializeDisassembler() disasm.Disassembler
}

// New returns the Adapter for the given architecture name.
func New(name Name) (Adapter, error) {
	switch name {
	case ARM:
		return &armAdapter{}, nil
	case Riscv64:
		return &riscvAdapter{}, nil
	default:
		return nil, fmt.Errorf("unknown architecture %q", name)
	}
}

// writeRegisters is the shared "look up each name, extract it from dump,
// reg-write it" loop both adapters use.
func writeRegisters(mu Unicorn, dump map[string]uint64, table []namedReg) error {
	for _, nr := range table {
		val, ok := dump[nr.name]
		if !ok {
			return fmt.Errorf("register dump missing %q", nr.name)
		}
		if err := mu.RegWrite(nr.reg, val); err != nil {
			return fmt.Errorf("write register %s: %w", nr.name, err)
		}
	}
	return nil
}

func dumpRegisters(mu Unicorn, table []namedReg, logs *worklog.Logs, tbcounter uint64) error {
	snap := make(worklog.RegisterSnapshot, len(table)+1)
	for _, nr := range table {
		val, err := mu.RegRead(nr.reg)
		if err != nil {
			return fmt.Errorf("read register %s: %w", nr.name, err)
		}
		snap[nr.name] = val
	}
	snap["tbcounter"] = tbcounter
	logs.AppendRegisterSnapshot(snap)
	return nil
}

type namedReg struct {
	name string
	reg  int
}
