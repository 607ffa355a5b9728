// Package log provides structured logging for the fault-injection worker
// using zap, plus the per-run debug log file spec.md §6.2 names
// (log_<index>.txt).
package log

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with worker-specific helpers.
type Logger struct {
	*zap.Logger
	file *os.File
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance that writes to stderr.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewRunLogger builds a Logger for one run. When debug is true it also
// tees output to log_<index>.txt in dir, per spec.md §6.2's debug log file
// naming convention.
func NewRunLogger(dir string, index uint64, debug bool) (*Logger, error) {
	if !debug {
		return New(false), nil
	}

	path := fmt.Sprintf("%s/log_%d.txt", dir, index)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create debug log %s: %w", path, err)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05,000")
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(f), zap.DebugLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stderr), zap.WarnLevel),
	)
	return &Logger{Logger: zap.New(core, zap.AddCallerSkip(1)), file: f}, nil
}

// Close flushes and releases the per-run debug log file, if one is open.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// MappingWarning logs a tolerated memory-mapping error (ERR_MAP/ERR_NOMEM,
// spec.md §7): the run continues past it.
func (l *Logger) MappingWarning(address, size uint64, err error) {
	l.Warn("memory map warning", Addr(address), Size(size), zap.Error(err))
}

// FaultFired logs a fault transitioning from armed to applied.
func (l *Logger) FaultFired(triggerAddress, targetAddress uint64, kind, model string) {
	l.Info("fault fired",
		zap.String("trigger", Hex(triggerAddress)),
		Addr(targetAddress),
		zap.String("kind", kind),
		zap.String("model", model),
	)
}

// FaultUndone logs a live fault being reverted by the single-step hook.
func (l *Logger) FaultUndone(triggerAddress uint64, dueAt uint64) {
	l.Info("fault undone", zap.String("trigger", Hex(triggerAddress)), zap.Uint64("due", dueAt))
}

// EndpointHit logs an endpoint code-hook firing, whether or not it
// terminates the run.
func (l *Logger) EndpointHit(address uint64, remaining uint32, terminal bool) {
	l.Info("endpoint hit", Addr(address), zap.Uint32("remaining", remaining), zap.Bool("terminal", terminal))
}

// RunError logs an emulator error that does not abort result delivery
// (spec.md §7).
func (l *Logger) RunError(err error) {
	l.Error("emulator run error", zap.Error(err))
}

// WithCategory returns a logger with the category field preset.
func (l *Logger) WithCategory(category string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("cat", category)), file: l.file}
}

// Hex formats a uint64 as a hex string for logging.
func Hex(addr uint64) string {
	return "0x" + hexString(addr)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// Field helpers for common patterns.

// Addr creates an address field.
func Addr(addr uint64) zap.Field {
	return zap.String("addr", Hex(addr))
}

// Size creates a size field.
func Size(size uint64) zap.Field {
	return zap.Uint64("size", size)
}

// Ptr creates a pointer field.
func Ptr(name string, ptr uint64) zap.Field {
	return zap.String(name, Hex(ptr))
}

// Fn creates a function name field.
func Fn(name string) zap.Field {
	return zap.String("fn", name)
}
