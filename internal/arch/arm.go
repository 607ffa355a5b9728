package arch

import (
	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/disasm"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

// armRegisters is pc, r0..r15, xpsr, matching spec.md §4.3 exactly.
var armRegisters = []namedReg{
	{"pc", uc.ARM_REG_PC},
	{"r0", uc.ARM_REG_R0},
	{"r1", uc.ARM_REG_R1},
	{"r2", uc.ARM_REG_R2},
	{"r3", uc.ARM_REG_R3},
	{"r4", uc.ARM_REG_R4},
	{"r5", uc.ARM_REG_R5},
	{"r6", uc.ARM_REG_R6},
	{"r7", uc.ARM_REG_R7},
	{"r8", uc.ARM_REG_R8},
	{"r9", uc.ARM_REG_R9},
	{"r10", uc.ARM_REG_R10},
	{"r11", uc.ARM_REG_R11},
	{"r12", uc.ARM_REG_R12},
	{"r13", uc.ARM_REG_R13},
	{"r14", uc.ARM_REG_R14},
	{"r15", uc.ARM_REG_R15},
	{"xpsr", uc.ARM_REG_XPSR},
}

type armAdapter struct{}

func (armAdapter) InitializeUnicorn() (uc.Unicorn, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_ARM, uc.MODE_THUMB)
	if err != nil {
		return nil, err
	}
	return mu, nil
}

// InitializeRegisters writes the ARM register table and, per spec.md §4.3,
// ORs the Thumb T-bit (xpsr bit 24) into the low bit of startAddress so
// Unicorn enters Thumb-mode execution at the right offset.
func (armAdapter) InitializeRegisters(mu Unicorn, dump map[string]uint64, startAddress *uint64) error {
	xpsr, ok := dump["xpsr"]
	if !ok {
		return errMissingRegister("xpsr")
	}
	*startAddress |= (xpsr >> 24) & 1

	return writeRegisters(mu, dump, armRegisters)
}

func (armAdapter) DumpRegisters(mu Unicorn, logs *worklog.Logs, tbcounter uint64) error {
	return dumpRegisters(mu, armRegisters, logs, tbcounter)
}

func (armAdapter) InitializeDisassembler() disasm.Disassembler {
	return disasm.NewThumb()
}

func errMissingRegister(name string) error {
	return &missingRegisterError{name}
}

type missingRegisterError struct{ name string }

func (e *missingRegisterError) Error() string {
	return "register dump missing \"" + e.name + "\""
}
