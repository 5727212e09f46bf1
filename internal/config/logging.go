package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// logStampFormat sorts lexically in chronological order.
const logStampFormat = "20060102-150405"

// LogOutput returns where the process logger writes. Without LogDir that is
// stdout alone; otherwise stdout is teed into a new <LogPrefix>-<stamp>.log
// file and older files beyond LogMaxFiles are pruned. The close func is never nil.
func LogOutput(cfg *Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.LogDir == "" {
		return stdout, func() error { return nil }, nil
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}

	path := filepath.Join(cfg.LogDir, logFileName(cfg.LogPrefix, time.Now()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	if err := pruneLogs(cfg.LogDir, cfg.LogPrefix, cfg.LogMaxFiles); err != nil {
		// The new file is open, only pruning failed
		fmt.Fprintf(os.Stderr, "warning: prune old logs: %v\n", err)
	}

	return io.MultiWriter(stdout, f), f.Close, nil
}

// NewLogger builds the process logger: JSON to w, debug level in dev.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func logFileName(prefix string, t time.Time) string {
	return prefix + "-" + t.Format(logStampFormat) + ".log"
}

// pruneLogs keeps the newest keep files named <prefix>-*.log in dir. Files
// with other names are never touched.
func pruneLogs(dir, prefix string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".log") {
			names = append(names, name)
		}
	}
	if len(names) <= keep {
		return nil
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names[:len(names)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
