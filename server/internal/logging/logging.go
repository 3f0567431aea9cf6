// Package logging builds accd's slog logger: JSON to stdout and, when
// enabled, a size-rotated file under the logs directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aicommandcenter/aicc/server/internal/config"
)

// FileName is the daemon log file inside the logs directory.
const FileName = "accd.log"

// Setup returns a JSON logger writing to stdout and, if cfg.File is set, to
// logDir/accd.log with rotation. The returned LevelVar can be changed at
// runtime; the returned io.Closer releases the log file.
func Setup(cfg config.LoggingConfig, logDir string) (*slog.Logger, *slog.LevelVar, io.Closer, error) {
	level := new(slog.LevelVar)
	if err := SetLevel(level, cfg.Level); err != nil {
		return nil, nil, nil, err
	}

	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("logging: create %q: %w", logDir, err)
		}
		lj := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, FileName),
			MaxSize:    cfg.MaxSizeMB, // MB
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
			Compress:   cfg.Compress,
		}
		w = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, level, closer, nil
}

// SetLevel parses name (debug|info|warn|error) into v.
func SetLevel(v *slog.LevelVar, name string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return fmt.Errorf("logging: level %q: %w", name, err)
	}
	v.Set(l)
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
