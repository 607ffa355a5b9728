package disasm

import (
	"fmt"

	"golang.org/x/arch/arm/armasm"
)

// Thumb disassembles ARM Thumb (16/32-bit Thumb-2) instruction streams
// using golang.org/x/arch/arm/armasm, the 32-bit sibling of the
// arm64asm package the teacher's own CLI uses for its AArch64 trace.
type Thumb struct{}

// NewThumb returns an ARM-Thumb disassembler.
func NewThumb() *Thumb { return &Thumb{} }

// Disassemble decodes every Thumb instruction in code starting at address,
// up to the end of the buffer. An undecodable byte is emitted as a raw byte
// line and decoding resumes at the next byte, rather than aborting the whole
// block, since unicorn-discovered block boundaries don't always land on
// clean Thumb instruction lengths once code deliberately runs off the end
// of a mapped region).
func (Thumb) Disassemble(code []byte, address uint64) (string, error) {
	var lines []string
	off := 0
	for off < len(code) {
		inst, err := armasm.Decode(code[off:], armasm.ModeThumb)
		if err != nil || inst.Len == 0 {
			lines = append(lines, formatLine(address+uint64(off), fmt.Sprintf(".byte 0x%02x", code[off]), ""))
			off++
			continue
		}
		lines = append(lines, formatLine(address+uint64(off), inst.String(), ""))
		off += inst.Len
	}
	return assemble(lines), nil
}
