// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aidanlsb/nounverb/internal/config"
)

// Options selects where and how much to log.
type Options struct {
	Level   string
	Verbose bool // forces debug

	// File, when set, receives JSON logs rotated by size; otherwise logs go to Stderr.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	Stderr io.Writer
}

// FromConfig derives Options from the [log] section, resolving the file
// against the config directory.
func FromConfig(cfg *config.Config, verbose bool) Options {
	return Options{
		Level:      cfg.Log.Level,
		Verbose:    verbose,
		File:       cfg.Resolve(cfg.Log.File),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}
}

// New builds a logger. The returned close function syncs and releases the
// log file; callers defer it.
func New(opts Options) (*zap.Logger, func(), error) {
	level := zapcore.WarnLevel
	if opts.Level != "" {
		l, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	var (
		core   zapcore.Core
		closer io.Closer
	)
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB, // megabytes
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays, // days
			Compress:   opts.Compress,
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core = zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(rotator), level)
		closer = rotator
	} else {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		core = zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), level)
	}

	logger := zap.New(core, zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	return logger, func() {
		_ = logger.Sync()
		if closer != nil {
			_ = closer.Close()
		}
	}, nil
}
