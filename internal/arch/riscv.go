package arch

import (
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"

	"github.com/Fraunhofer-AISEC/archie/internal/disasm"
	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

// riscvRegisters is pc, x0..x31, matching spec.md §4.3 exactly.
var riscvRegisters = buildRiscvRegisters()

func buildRiscvRegisters() []namedReg {
	regs := make([]namedReg, 0, 33)
	regs = append(regs, namedReg{"pc", uc.RISCV_REG_PC})
	xregs := []int{
		uc.RISCV_REG_X0, uc.RISCV_REG_X1, uc.RISCV_REG_X2, uc.RISCV_REG_X3,
		uc.RISCV_REG_X4, uc.RISCV_REG_X5, uc.RISCV_REG_X6, uc.RISCV_REG_X7,
		uc.RISCV_REG_X8, uc.RISCV_REG_X9, uc.RISCV_REG_X10, uc.RISCV_REG_X11,
		uc.RISCV_REG_X12, uc.RISCV_REG_X13, uc.RISCV_REG_X14, uc.RISCV_REG_X15,
		uc.RISCV_REG_X16, uc.RISCV_REG_X17, uc.RISCV_REG_X18, uc.RISCV_REG_X19,
		uc.RISCV_REG_X20, uc.RISCV_REG_X21, uc.RISCV_REG_X22, uc.RISCV_REG_X23,
		uc.RISCV_REG_X24, uc.RISCV_REG_X25, uc.RISCV_REG_X26, uc.RISCV_REG_X27,
		uc.RISCV_REG_X28, uc.RISCV_REG_X29, uc.RISCV_REG_X30, uc.RISCV_REG_X31,
	}
	for i, reg := range xregs {
		regs = append(regs, namedReg{fmt.Sprintf("x%d", i), reg})
	}
	return regs
}

type riscvAdapter struct{}

func (riscvAdapter) InitializeUnicorn() (uc.Unicorn, error) {
	mu, err := uc.NewUnicorn(uc.ARCH_RISCV, uc.MODE_RISCV64)
	if err != nil {
		return nil, err
	}
	return mu, nil
}

// InitializeRegisters writes the RISC-V 64 register table. Unlike ARM,
// RISC-V has no start-address bit adjustment (spec.md §4.3).
func (riscvAdapter) InitializeRegisters(mu Unicorn, dump map[string]uint64, startAddress *uint64) error {
	return writeRegisters(mu, dump, riscvRegisters)
}

func (riscvAdapter) DumpRegisters(mu Unicorn, logs *worklog.Logs, tbcounter uint64) error {
	return dumpRegisters(mu, riscvRegisters, logs, tbcounter)
}

func (riscvAdapter) InitializeDisassembler() disasm.Disassembler {
	return disasm.NewRiscv64()
}
