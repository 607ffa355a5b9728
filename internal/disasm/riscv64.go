package disasm

import (
	"encoding/binary"
	"fmt"
)

// Riscv64 disassembles the RV64I base integer instruction set. It does not
// decode the compressed (C), floating-point (F/D), or atomic (A) extensions;
// any instruction word it cannot classify is rendered as a raw ".word"
// line rather than aborting the block, the same fallback
// golang.org/x/arch/arm64asm's callers use for unknown encodings (see
// zboralski-galago/cmd/galago/main.go's disasm helper).
type Riscv64 struct{}

// NewRiscv64 returns an RV64I disassembler.
func NewRiscv64() *Riscv64 { return &Riscv64{} }

var regNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

func reg(n uint32) string { return regNames[n&0x1f] }

func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

// Disassemble decodes every 4-byte RV64I word in code starting at address.
func (Riscv64) Disassemble(code []byte, address uint64) (string, error) {
	var lines []string
	off := 0
	for off+4 <= len(code) {
		word := binary.LittleEndian.Uint32(code[off:])
		mnemonic, ops := decodeRV64I(word)
		lines = append(lines, formatLine(address+uint64(off), mnemonic, ops))
		off += 4
	}
	if rem := len(code) - off; rem > 0 {
		lines = append(lines, formatLine(address+uint64(off), fmt.Sprintf(".byte 0x%02x", code[off]), ""))
	}
	return assemble(lines), nil
}

func decodeRV64I(word uint32) (mnemonic, ops string) {
	opcode := word & 0x7f
	rd := (word >> 7) & 0x1f
	funct3 := (word >> 12) & 0x7
	rs1 := (word >> 15) & 0x1f
	rs2 := (word >> 20) & 0x1f
	funct7 := (word >> 25) & 0x7f

	switch opcode {
	case 0x37: // LUI
		imm := word & 0xfffff000
		return "lui", fmt.Sprintf("%s, 0x%x", reg(rd), imm>>12)
	case 0x17: // AUIPC
		imm := word & 0xfffff000
		return "auipc", fmt.Sprintf("%s, 0x%x", reg(rd), imm>>12)
	case 0x6f: // JAL
		imm := jImm(word)
		return "jal", fmt.Sprintf("%s, %d", reg(rd), imm)
	case 0x67: // JALR
		imm := signExtend(word>>20, 12)
		return "jalr", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
	case 0x63: // branches
		imm := bImm(word)
		names := map[uint32]string{0: "beq", 1: "bne", 4: "blt", 5: "bge", 6: "bltu", 7: "bgeu"}
		name, ok := names[funct3]
		if !ok {
			return rawWord(word)
		}
		return name, fmt.Sprintf("%s, %s, %d", reg(rs1), reg(rs2), imm)
	case 0x03: // loads
		imm := signExtend(word>>20, 12)
		names := map[uint32]string{0: "lb", 1: "lh", 2: "lw", 3: "ld", 4: "lbu", 5: "lhu", 6: "lwu"}
		name, ok := names[funct3]
		if !ok {
			return rawWord(word)
		}
		return name, fmt.Sprintf("%s, %d(%s)", reg(rd), imm, reg(rs1))
	case 0x23: // stores
		imm := sImm(word)
		names := map[uint32]string{0: "sb", 1: "sh", 2: "sw", 3: "sd"}
		name, ok := names[funct3]
		if !ok {
			return rawWord(word)
		}
		return name, fmt.Sprintf("%s, %d(%s)", reg(rs2), imm, reg(rs1))
	case 0x13: // OP-IMM
		imm := signExtend(word>>20, 12)
		switch funct3 {
		case 0:
			return "addi", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		case 1:
			return "slli", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), rs2)
		case 2:
			return "slti", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		case 3:
			return "sltiu", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		case 4:
			return "xori", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		case 5:
			if funct7 == 0x20 {
				return "srai", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), rs2)
			}
			return "srli", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), rs2)
		case 6:
			return "ori", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		case 7:
			return "andi", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		}
		return rawWord(word)
	case 0x33: // OP
		base := map[uint32]string{0: "add", 1: "sll", 2: "slt", 3: "sltu", 4: "xor", 5: "srl", 6: "or", 7: "and"}
		name := base[funct3]
		if funct7 == 0x20 {
			if funct3 == 0 {
				name = "sub"
			} else if funct3 == 5 {
				name = "sra"
			}
		} else if funct7 == 0x01 {
			mulDiv := map[uint32]string{0: "mul", 1: "mulh", 2: "mulhsu", 3: "mulhu", 4: "div", 5: "divu", 6: "rem", 7: "remu"}
			name = mulDiv[funct3]
		}
		if name == "" {
			return rawWord(word)
		}
		return name, fmt.Sprintf("%s, %s, %s", reg(rd), reg(rs1), reg(rs2))
	case 0x1b: // OP-IMM-32 (addiw/slliw/srliw/sraiw)
		imm := signExtend(word>>20, 12)
		switch funct3 {
		case 0:
			return "addiw", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), imm)
		case 1:
			return "slliw", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), rs2)
		case 5:
			if funct7 == 0x20 {
				return "sraiw", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), rs2)
			}
			return "srliw", fmt.Sprintf("%s, %s, %d", reg(rd), reg(rs1), rs2)
		}
		return rawWord(word)
	case 0x3b: // OP-32 (addw/subw/sllw/srlw/sraw)
		switch funct3 {
		case 0:
			if funct7 == 0x20 {
				return "subw", fmt.Sprintf("%s, %s, %s", reg(rd), reg(rs1), reg(rs2))
			}
			return "addw", fmt.Sprintf("%s, %s, %s", reg(rd), reg(rs1), reg(rs2))
		case 1:
			return "sllw", fmt.Sprintf("%s, %s, %s", reg(rd), reg(rs1), reg(rs2))
		case 5:
			if funct7 == 0x20 {
				return "sraw", fmt.Sprintf("%s, %s, %s", reg(rd), reg(rs1), reg(rs2))
			}
			return "srlw", fmt.Sprintf("%s, %s, %s", reg(rd), reg(rs1), reg(rs2))
		}
		return rawWord(word)
	case 0x73: // SYSTEM
		if word == 0x00000073 {
			return "ecall", ""
		}
		if word == 0x00100073 {
			return "ebreak", ""
		}
		return rawWord(word)
	case 0x0f:
		return "fence", ""
	}
	return rawWord(word)
}

func rawWord(word uint32) (string, string) {
	return fmt.Sprintf(".word 0x%08x", word), ""
}

func jImm(word uint32) int64 {
	imm20 := (word >> 31) & 0x1
	imm10_1 := (word >> 21) & 0x3ff
	imm11 := (word >> 20) & 0x1
	imm19_12 := (word >> 12) & 0xff
	raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)
	return signExtend(raw, 21)
}

func bImm(word uint32) int64 {
	imm12 := (word >> 31) & 0x1
	imm10_5 := (word >> 25) & 0x3f
	imm4_1 := (word >> 8) & 0xf
	imm11 := (word >> 7) & 0x1
	raw := (imm12 << 12) | (imm11 << 11) | (imm10_5 << 5) | (imm4_1 << 1)
	return signExtend(raw, 13)
}

func sImm(word uint32) int64 {
	imm11_5 := (word >> 25) & 0x7f
	imm4_0 := (word >> 7) & 0x1f
	raw := (imm11_5 << 5) | imm4_0
	return signExtend(raw, 12)
}
