package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Verbose bool
}

func level(verbose bool) zapcore.Level {
	if verbose {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return enc
}

// New builds the console logger.
func New(opts Options) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.EncoderConfig = encoderConfig()
	config.DisableStacktrace = true
	config.Sampling = nil
	config.Level = zap.NewAtomicLevelAt(level(opts.Verbose))

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func FileName(t time.Time) string {
	return fmt.Sprintf("MitCircLog_%s_%s.txt", t.Format("15-04-05"), t.Format("02-01-2006"))
}

// RunLog is the plain-text log file written next to a run's output.
type RunLog struct {
	Path string
	file *os.File
	core zapcore.Core
}

// OpenRunLog creates dir if needed and opens a log file named for now.
func OpenRunLog(dir string, verbose bool, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(f), level(verbose))
	return &RunLog{Path: path, file: f, core: core}, nil
}

// Tee returns logger with every entry also written to the log file.
func (l *RunLog) Tee(logger *zap.Logger) *zap.Logger {
	return OrNop(logger).WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, l.core)
	}))
}

func (l *RunLog) Close() error {
	_ = l.core.Sync()
	return l.file.Close()
}

// OrNop substitutes a no-op logger for nil.
func OrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
