// Package worklog implements the append-only/upsert log aggregators that
// accumulate the trace a run returns: block-info, block-exec stream,
// memory-access info, memory dumps, and register snapshots.
//
// Each aggregator is guarded by its own mutex (matching the per-field
// RwLock discipline spec.md §5 describes), so hook callbacks only ever
// hold the one lock they need.
package worklog

import (
	"sync"

	"github.com/Fraunhofer-AISEC/archie/internal/disasm"
)


// MemInfo records one (access_address, pc) memory-access footprint.
type MemInfo struct {
	Ins     uint64 `json:"ins"`     // the faulting/accessing instruction's address (pc)
	Counter uint32 `json:"counter"` // number of accesses recorded at this (address, pc)
	// Direction: 0 = read, 1 = write.
	Direction uint8  `json:"direction"`
	Address   uint64 `json:"address"` // the accessed memory address
	Tbid      uint64 `json:"tbid"`    // address of the block the access occurred in
	Size      uint64 `json:"size"`
}

type memKey struct {
	accessAddress uint64
	pc            uint64
}

// TbInfoBlock is the disassembly+execution-count record for one block
// footprint (block_address, block_size).
type TbInfoBlock struct {
	ID            uint64 `json:"id"` // block address
	Size          uint32 `json:"size"`
	InsCount      uint32 `json:"ins_count"`
	NumExec       uint32 `json:"num_exec"`
	AssemblerText string `json:"assembler"`
}

type tbKey struct {
	address uint64
	size    uint32
}

// TbExecEntry is one entry of the dense, ordered block-execution stream.
type TbExecEntry struct {
	Pos int64  `json:"pos"`
	Tb  uint64 `json:"tb"`
}

// MemDump accumulates the byte sequences dumped at a given address across
// a run (e.g. pre-fault and post-fault snapshots around a faulted region).
type MemDump struct {
	Address uint64   `json:"address"`
	Len     uint64   `json:"len"`
	Dumps   [][]byte `json:"dumps"`
}

// RegisterSnapshot is a named-register dump with the tbcounter value it was
// taken at.
type RegisterSnapshot map[string]uint64

// MemReader is the minimal emulator surface the log aggregators need: raw
// byte access for disassembly and memory dumps. The CPU emulator
// (Unicorn Engine, via internal/engine) is the concrete implementation;
// this interface is what keeps worklog free of any emulator dependency.
type MemReader interface {
	MemRead(addr, size uint64) ([]byte, error)
}

// Logs is the append-only/upsert store threaded through every hook
// callback. Every field is guarded by its own mutex so that, per spec.md
// §5, a callback never holds more lock than the one field it touches.
type Logs struct {
	disasm disasm.Disassembler

	tbInfoMu sync.Mutex
	tbInfo   map[tbKey]*TbInfoBlock

	tbExecMu sync.Mutex
	tbExec   []TbExecEntry

	memInfoMu sync.Mutex
	memInfo   map[memKey]*MemInfo

	memDumpMu sync.Mutex
	memDumps  map[uint64]*MemDump

	registersMu  sync.Mutex
	registerList []RegisterSnapshot
}

// New creates an empty Logs store using the given disassembler to render
// block assembly text on first sight of a block footprint.
func New(d disasm.Disassembler) *Logs {
	return &Logs{
		disasm:   d,
		tbInfo:   make(map[tbKey]*TbInfoBlock),
		memInfo:  make(map[memKey]*MemInfo),
		memDumps: make(map[uint64]*MemDump),
	}
}

// LogTbInfo upserts the block-info record for (address, size): disassembles
// and inserts on first sight, else increments num_exec. Per spec.md §4.2 the
// assembler text format is " [  <hex> ]: <mnemonic> <ops> \n" per
// instruction with a trailing " \n" sentinel, and ins_count is derived from
// the newline count minus one (the trailing sentinel).
func (l *Logs) LogTbInfo(mem MemReader, address uint64, size uint32) error {
	key := tbKey{address, size}

	l.tbInfoMu.Lock()
	defer l.tbInfoMu.Unlock()

	if existing, ok := l.tbInfo[key]; ok {
		existing.NumExec++
		return nil
	}

	code, err := mem.MemRead(address, uint64(size))
	if err != nil {
		return err
	}
	text, err := l.disasm.Disassemble(code, address)
	if err != nil {
		return err
	}

	l.tbInfo[key] = &TbInfoBlock{
		ID:            address,
		Size:          size,
		InsCount:      uint32(countNewlines(text)) - 1,
		NumExec:       1,
		AssemblerText: text,
	}
	return nil
}

func countNewlines(s string) int {
	n := 0
	for _, c := range s {
		if c == '\n' {
			n++
		}
	}
	return n
}

// LogTbExec appends a block-execution entry. pos = current_length-1 per
// spec.md §4.2: the resulting stream carries a leading sentinel entry that
// the driver strips before returning the trace (see FinalizeTbExec).
func (l *Logs) LogTbExec(address uint64) {
	l.tbExecMu.Lock()
	defer l.tbExecMu.Unlock()
	l.tbExec = append(l.tbExec, TbExecEntry{
		Pos: int64(len(l.tbExec)) - 1,
		Tb:  address,
	})
}

// FinalizeTbExec removes the sentinel first entry and renumbers the
// remainder densely from 0, per spec.md §3's invariant on TbExecEntry.
func (l *Logs) FinalizeTbExec() []TbExecEntry {
	l.tbExecMu.Lock()
	defer l.tbExecMu.Unlock()
	if len(l.tbExec) == 0 {
		return nil
	}
	out := make([]TbExecEntry, 0, len(l.tbExec)-1)
	for i, e := range l.tbExec[1:] {
		out = append(out, TbExecEntry{Pos: int64(i), Tb: e.Tb})
	}
	return out
}

// Direction constants for RecordMemInfo.
const (
	DirectionRead  uint8 = 0
	DirectionWrite uint8 = 1
)

// RecordMemInfo upserts the MemInfo entry keyed by (accessAddress, pc): the
// canonical field mapping per spec.md §9 is ins=pc (the faulting
// instruction) and address=accessAddress.
func (l *Logs) RecordMemInfo(accessAddress, pc uint64, direction uint8, size uint64, tbid uint64) {
	key := memKey{accessAddress, pc}

	l.memInfoMu.Lock()
	defer l.memInfoMu.Unlock()

	if existing, ok := l.memInfo[key]; ok {
		existing.Counter++
		return
	}
	l.memInfo[key] = &MemInfo{
		Ins:       pc,
		Counter:   1,
		Direction: direction,
		Address:   accessAddress,
		Tbid:      tbid,
		Size:      size,
	}
}

// DumpMemory reads size bytes at address and appends them to the memdump
// entry at that address, creating it if absent.
func (l *Logs) DumpMemory(mem MemReader, address, size uint64) error {
	data, err := mem.MemRead(address, size)
	if err != nil {
		return err
	}

	l.memDumpMu.Lock()
	defer l.memDumpMu.Unlock()

	entry, ok := l.memDumps[address]
	if !ok {
		entry = &MemDump{Address: address, Len: size}
		l.memDumps[address] = entry
	}
	entry.Dumps = append(entry.Dumps, data)
	return nil
}

// AppendRegisterSnapshot appends a pre-built register snapshot (produced by
// the architecture adapter, which owns the per-architecture register
// table) to the register list.
func (l *Logs) AppendRegisterSnapshot(snap RegisterSnapshot) {
	l.registersMu.Lock()
	defer l.registersMu.Unlock()
	l.registerList = append(l.registerList, snap)
}

// MemInfoList returns a snapshot of all recorded MemInfo entries.
func (l *Logs) MemInfoList() []MemInfo {
	l.memInfoMu.Lock()
	defer l.memInfoMu.Unlock()
	out := make([]MemInfo, 0, len(l.memInfo))
	for _, v := range l.memInfo {
		out = append(out, *v)
	}
	return out
}

// TbInfoList returns a snapshot of all recorded TbInfoBlock entries.
func (l *Logs) TbInfoList() []TbInfoBlock {
	l.tbInfoMu.Lock()
	defer l.tbInfoMu.Unlock()
	out := make([]TbInfoBlock, 0, len(l.tbInfo))
	for _, v := range l.tbInfo {
		out = append(out, *v)
	}
	return out
}

// MemDumpList returns a snapshot of all recorded MemDump entries.
func (l *Logs) MemDumpList() []MemDump {
	l.memDumpMu.Lock()
	defer l.memDumpMu.Unlock()
	out := make([]MemDump, 0, len(l.memDumps))
	for _, v := range l.memDumps {
		out = append(out, *v)
	}
	return out
}

// RegisterList returns a snapshot of every register dump taken over the run.
func (l *Logs) RegisterList() []RegisterSnapshot {
	l.registersMu.Lock()
	defer l.registersMu.Unlock()
	return append([]RegisterSnapshot{}, l.registerList...)
}
