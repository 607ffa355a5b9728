package log

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHexFormatsLowercaseWithPrefix(t *testing.T) {
	if got := Hex(0xdeadbeef); got != "0xdeadbeef" {
		t.Errorf("Hex(0xdeadbeef) = %q, want 0xdeadbeef", got)
	}
	if got := Hex(0); got != "0x0" {
		t.Errorf("Hex(0) = %q, want 0x0", got)
	}
}

func TestNewRunLoggerWritesDebugFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewRunLogger(dir, 7, true)
	if err != nil {
		t.Fatalf("NewRunLogger: %v", err)
	}
	l.Info("hello")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(dir, "log_7.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}
	if len(data) == 0 {
		t.Errorf("expected non-empty debug log")
	}
}

func TestNewRunLoggerSkipsFileWhenNotDebug(t *testing.T) {
	l, err := NewRunLogger(t.TempDir(), 1, false)
	if err != nil {
		t.Fatalf("NewRunLogger: %v", err)
	}
	if l.file != nil {
		t.Errorf("expected no debug file when debug=false")
	}
}
