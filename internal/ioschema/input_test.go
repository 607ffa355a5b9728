package ioschema

import (
	"testing"
)

func TestDecodeJSONBundle(t *testing.T) {
	data := []byte(`{
		"pregoldenrun": {
			"architecture": "arm",
			"armregisters": [{"pc": 4096, "xpsr": 16777216}],
			"memmaplist": [{"address": 0, "size": 4096}],
			"memdumplist": [{"address": 0, "dumps": []}]
		},
		"faults": [
			{"trigger": {"address": 4096, "hitcounter": 1}, "address": 8192, "type": 0, "model": 1, "mask": "0xff", "lifespan": 0, "num_bytes": 0}
		],
		"config": {
			"start": {"address": 4096},
			"end": [{"address": 32768, "counter": 1}],
			"max_instruction_count": 1000
		},
		"run": {"index": 1, "debug": false}
	}`)

	b, err := Decode("input.json", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b.PreGoldenrun.Architecture != "arm" {
		t.Errorf("architecture = %q, want arm", b.PreGoldenrun.Architecture)
	}
	regs, err := b.PreGoldenrun.Registers()
	if err != nil {
		t.Fatalf("Registers: %v", err)
	}
	if regs["pc"] != 4096 {
		t.Errorf("pc = %d, want 4096", regs["pc"])
	}
	if len(b.Faults) != 1 {
		t.Fatalf("got %d faults, want 1", len(b.Faults))
	}
	if b.Faults[0].Mask.Int64() != 0xff {
		t.Errorf("mask = %v, want 0xff", b.Faults[0].Mask.Int64())
	}
	if len(b.Config.End) != 1 || b.Config.End[0].Address != 32768 {
		t.Fatalf("end = %+v", b.Config.End)
	}
}

func TestDecodeRejectsUnknownArchitectureAtRegisterLookup(t *testing.T) {
	p := PreGoldenrun{Architecture: "mips"}
	if _, err := p.Registers(); err == nil {
		t.Errorf("expected error for unknown architecture")
	}
}

func TestBigIntWireAcceptsDecimalAndHex(t *testing.T) {
	var a, b BigIntWire
	if err := a.setFromString("255"); err != nil {
		t.Fatalf("decimal: %v", err)
	}
	if err := b.setFromString("0xff"); err != nil {
		t.Fatalf("hex: %v", err)
	}
	if a.Int.Cmp(&b.Int) != 0 {
		t.Errorf("decimal and hex forms disagree: %v vs %v", &a.Int, &b.Int)
	}
}
