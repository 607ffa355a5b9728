// Package ioschema defines the wire shapes of the input bundle a host
// orchestrator supplies and the result this worker returns, per spec.md
// §6.1/§6.2. Both JSON and YAML are accepted on input, selected by file
// extension. Decode failures are returned as plain wrapped errors, not as
// internal/runerr input-shape errors.
package ioschema

import (
	"encoding/json"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// MemRegion is one {address, size} memory-map entry.
type MemRegion struct {
	Address uint64 `json:"address" yaml:"address"`
	Size    uint64 `json:"size" yaml:"size"`
}

// MemDumpRegion is one {address, dumps} entry; element 0 of Dumps is the
// initial memory image written at Address before emulation starts.
type MemDumpRegion struct {
	Address uint64   `json:"address" yaml:"address"`
	Dumps   [][]byte `json:"dumps" yaml:"dumps"`
}

// PreGoldenrun is the "pre-goldenrun data" bundle: target architecture,
// initial register dump, memory layout, and initial memory contents.
type PreGoldenrun struct {
	Architecture string `json:"architecture" yaml:"architecture"`
	// Armregisters/Riscv64registers: exactly one of these is populated,
	// selected by Architecture. Element 0 is the register-name -> value map.
	Armregisters     []map[string]uint64 `json:"armregisters,omitempty" yaml:"armregisters,omitempty"`
	Riscv64registers  []map[string]uint64 `json:"riscv64registers,omitempty" yaml:"riscv64registers,omitempty"`
	Memmaplist        []MemRegion         `json:"memmaplist" yaml:"memmaplist"`
	Memdumplist       []MemDumpRegion     `json:"memdumplist" yaml:"memdumplist"`
}

// Registers returns the element-0 register map for whichever architecture
// is configured, per spec.md §6.1.
func (p *PreGoldenrun) Registers() (map[string]uint64, error) {
	switch p.Architecture {
	case "arm":
		if len(p.Armregisters) == 0 {
			return nil, fmt.Errorf("architecture %q requires armregisters[0]", p.Architecture)
		}
		return p.Armregisters[0], nil
	case "riscv64":
		if len(p.Riscv64registers) == 0 {
			return nil, fmt.Errorf("architecture %q requires riscv64registers[0]", p.Architecture)
		}
		return p.Riscv64registers[0], nil
	default:
		return nil, fmt.Errorf("unknown architecture %q", p.Architecture)
	}
}

// FaultTrigger is the wire shape of a fault's arming condition.
type FaultTrigger struct {
	Address    uint64 `json:"address" yaml:"address"`
	HitCounter uint32 `json:"hitcounter" yaml:"hitcounter"`
}

// FaultDescriptor is the wire shape of one campaign fault, per spec.md
// §6.1. Mask is accepted as either a JSON number or a decimal/hex string so
// masks wider than 64 bits round-trip without precision loss.
type FaultDescriptor struct {
	Trigger  FaultTrigger  `json:"trigger" yaml:"trigger"`
	Address  uint64        `json:"address" yaml:"address"`
	Type     int           `json:"type" yaml:"type"`
	Model    int           `json:"model" yaml:"model"`
	Mask     BigIntWire    `json:"mask" yaml:"mask"`
	Lifespan uint32        `json:"lifespan" yaml:"lifespan"`
	NumBytes uint32        `json:"num_bytes" yaml:"num_bytes"`
}

// BigIntWire decodes a mask that may be up to 128 bits wide from either a
// JSON number, a decimal string, or a "0x"-prefixed hex string.
type BigIntWire struct {
	big.Int
}

func (b *BigIntWire) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	return b.setFromString(s)
}

func (b *BigIntWire) UnmarshalYAML(value *yaml.Node) error {
	return b.setFromString(value.Value)
}

func (b *BigIntWire) setFromString(s string) error {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	if _, ok := b.Int.SetString(s, base); !ok {
		return fmt.Errorf("invalid mask %q", s)
	}
	return nil
}

// EndpointDescriptor is one {address, counter} endpoint entry.
type EndpointDescriptor struct {
	Address uint64 `json:"address" yaml:"address"`
	Counter uint32 `json:"counter" yaml:"counter"`
}

// MemDumpSpec is one {address, length} final-dump region.
type MemDumpSpec struct {
	Address uint64 `json:"address" yaml:"address"`
	Length  uint64 `json:"length" yaml:"length"`
}

// StartAddress is the {address} start descriptor.
type StartAddress struct {
	Address uint64 `json:"address" yaml:"address"`
}

// Config is the configuration bundle: entry point, endpoints, instruction
// budget, and optional final memory dumps.
type Config struct {
	Start               StartAddress    `json:"start" yaml:"start"`
	End                 []EndpointDescriptor `json:"end" yaml:"end"`
	MaxInstructionCount  uint64          `json:"max_instruction_count" yaml:"max_instruction_count"`
	Memorydump           []MemDumpSpec   `json:"memorydump,omitempty" yaml:"memorydump,omitempty"`
}

// RunParams names the debug log file and whether to enable it.
type RunParams struct {
	Index uint64 `json:"index" yaml:"index"`
	Debug bool   `json:"debug" yaml:"debug"`
}

// Bundle is the complete input: pre-goldenrun data, the fault campaign,
// the run configuration, and run parameters.
type Bundle struct {
	PreGoldenrun PreGoldenrun      `json:"pregoldenrun" yaml:"pregoldenrun"`
	Faults       []FaultDescriptor `json:"faults" yaml:"faults"`
	Config       Config            `json:"config" yaml:"config"`
	RunParams    RunParams         `json:"run" yaml:"run"`
}

// Decode parses a Bundle from data, choosing JSON or YAML by the file
// extension of name (".yaml"/".yml" -> YAML, everything else -> JSON).
func Decode(name string, data []byte) (*Bundle, error) {
	var b Bundle
	ext := strings.ToLower(filepath.Ext(name))
	var err error
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &b)
	default:
		err = json.Unmarshal(data, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &b, nil
}
