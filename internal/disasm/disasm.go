// Package disasm wraps the disassembler external collaborator named in
// spec.md §1: something that renders a block's machine code as the
// load-bearing text format spec.md §4.2/§9 describes:
//
//	" [  <hex> ]: <mnemonic> <ops> \n"
//
// per instruction, plus a trailing " \n" sentinel line. Consumers of
// TbInfoBlock.AssemblerText parse newline counts to derive ins_count, so
// the exact formatting here is preserved rather than "cleaned up".
package disasm

import (
	"fmt"
	"strings"
)

// Disassembler renders the instructions in code (located at address) as
// block assembly text in the format spec.md §9 requires.
type Disassembler interface {
	Disassemble(code []byte, address uint64) (string, error)
}

// formatLine renders one decoded instruction as " [  <hex> ]: <mnemonic>
// <ops> \n", where <hex> is the instruction's address.
func formatLine(addr uint64, mnemonic, ops string) string {
	insn := mnemonic
	if ops != "" {
		insn = mnemonic + " " + ops
	}
	return fmt.Sprintf(" [  %x ]: %s \n", addr, insn)
}

// assemble joins per-instruction lines and appends the trailing sentinel
// line every TbInfoBlock.AssemblerText carries.
func assemble(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
	}
	b.WriteString(" \n")
	return b.String()
}
