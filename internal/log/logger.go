// Package log provides structured logging to a file, with errors echoed to
// the console.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file created inside the log directory.
const FileName = "spellbook.log"

var (
	mu      sync.RWMutex
	global  = zap.NewNop()
	file    *os.File
	restore func()
)

// New builds a logger that writes JSON lines at level and above to
// dir/spellbook.log, and errors to stderr in console format. The returned
// file must be closed by the caller.
func New(dir, level string) (*zap.Logger, *os.File, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.TimeKey = ""
	consoleEnc.CallerKey = ""

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), lvl),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), zapcore.ErrorLevel),
	)
	return zap.New(core, zap.AddCaller()), f, nil
}

// Init replaces the global logger. Output of the standard library log
// package is redirected to it as well.
func Init(dir, level string) error {
	logger, f, err := New(dir, level)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	global = logger
	file = f
	restore = zap.RedirectStdLog(logger)
	return nil
}

// L returns the global logger. It is a no-op logger until Init succeeds.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// S returns the global sugared logger.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// Named returns a child of the global logger for a subsystem.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

// Close flushes the global logger and closes the log file.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	return closeLocked()
}

func closeLocked() error {
	_ = global.Sync()
	if restore != nil {
		restore()
		restore = nil
	}
	global = zap.NewNop()
	if file != nil {
		err := file.Close()
		file = nil
		return err
	}
	return nil
}
