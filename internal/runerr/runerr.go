// Package runerr classifies the error kinds spec.md §7 distinguishes, so
// the driver and CLI can decide what is fatal to a run versus what is
// logged and tolerated.
package runerr

import (
	"errors"
	"fmt"

	uc "github.com/unicorn-engine/unicorn/bindings/go/unicorn"
)

// InputShapeError wraps a missing-field, wrong-type, or unknown-enum
// problem in the input bundle. Always fatal; emulation never starts.
type InputShapeError struct {
	Field string
	Err   error
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("input shape: %s: %v", e.Field, e.Err)
}

func (e *InputShapeError) Unwrap() error { return e.Err }

func NewInputShapeError(field string, err error) error {
	return &InputShapeError{Field: field, Err: err}
}

// MappingError wraps a memory-mapping failure. Per spec.md §7,
// ERR_MAP ("already mapped") and ERR_NOMEM ("out of memory") are warnings
// the driver logs and continues past; every other Unicorn mapping error is
// fatal.
type MappingError struct {
	Address uint64
	Size    uint64
	Err     error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map [0x%x, 0x%x): %v", e.Address, e.Address+e.Size, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

func NewMappingError(address, size uint64, err error) error {
	return &MappingError{Address: address, Size: size, Err: err}
}

// Tolerable reports whether a mapping error is one spec.md §7 says to
// log and continue past (already-mapped or out-of-memory) rather than
// abort on.
func (e *MappingError) Tolerable() bool {
	return errors.Is(e.Err, uc.ERR_MAP) || errors.Is(e.Err, uc.ERR_NOMEM)
}

// RunError wraps an error the emulator raised during emu_start itself.
// Per spec.md §7, emulator errors are logged and do not abort result
// delivery: the driver still snapshots registers and returns whatever
// trace was collected.
type RunError struct {
	Err error
}

func (e *RunError) Error() string { return fmt.Sprintf("run: %v", e.Err) }
func (e *RunError) Unwrap() error { return e.Err }

func NewRunError(err error) error {
	if err == nil {
		return nil
	}
	return &RunError{Err: err}
}

// HookInstallError wraps a hook-installation failure. Always fatal: a
// missing hook silently changes the trace's semantics rather than failing
// loudly, so the driver refuses to run at all.
type HookInstallError struct {
	Hook string
	Err  error
}

func (e *HookInstallError) Error() string {
	return fmt.Sprintf("install %s hook: %v", e.Hook, e.Err)
}

func (e *HookInstallError) Unwrap() error { return e.Err }

func NewHookInstallError(hook string, err error) error {
	return &HookInstallError{Hook: hook, Err: err}
}
