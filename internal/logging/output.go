package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
)

// newCore tees the enabled sinks. The returned closer releases the log file.
func newCore(cfg *Config) (zapcore.Core, io.Closer, error) {
	encoder := newEncoder(cfg.Format)
	cores := make([]zapcore.Core, 0, 2)
	var closer io.Closer = nopCloser{}

	if cfg.Output.Stderr {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), cfg.Level))
	}

	if cfg.Output.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output.File), 0o700); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output.File, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(f), cfg.Level))
		closer = f
	}

	if len(cores) == 0 {
		return nil, nil, fmt.Errorf("at least one output must be enabled")
	}
	if len(cores) == 1 {
		return cores[0], closer, nil
	}
	return zapcore.NewTee(cores...), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
