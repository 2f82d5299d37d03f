// Package logger holds the process wide logger of the command line tools.
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init replaces the global logger. level is one of debug, info, warn or error,
// format is either "text" for human readable console output or "json".
// Logs are written to stderr so that they never mix with extracted data on stdout.
func Init(level, format string) error {
	l, err := New(level, format, zapcore.Lock(os.Stderr))
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	_ = global.Sync()
	global = l
	zap.ReplaceGlobals(l)
	return nil
}

// New creates a logger writing to out.
func New(level, format string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch format {
	case "", "text":
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, fmt.Errorf("invalid log format %q (supported: text, json)", format)
	}

	return zap.New(zapcore.NewCore(encoder, out, lvl)), nil
}

// Logger returns the global logger for printf style logging.
func Logger() *zap.SugaredLogger {
	return Base().Sugar()
}

// Base returns the global structured logger, for example to hand it to gocfb.WithLogger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Base().Sync()
}
