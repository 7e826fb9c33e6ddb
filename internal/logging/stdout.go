// =============================================================================
// FILE: internal/logging/stdout.go
// PURPOSE: Stdout log handler with optional coloured output using the tint
//          library for slog. Renders human-friendly log lines to the terminal.
//          Ports Python utils/logs/stdout.py.
// =============================================================================

package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/lmittmann/tint"
)

// ---------------------------------------------------------------------------
// Stdout handler
// ---------------------------------------------------------------------------

// newStdoutHandler creates a slog.Handler that writes human-readable,
// optionally coloured log lines to the given writer (typically os.Stdout).
//
// Parameters:
//   - w: The output writer.
//   - level: Minimum log level to emit.
//   - color: Whether to enable ANSI colour codes.
//
// Returns:
//   - A configured slog.Handler.
func newStdoutHandler(w io.Writer, level slog.Level, color bool) slog.Handler {
	// NO_COLOR (https://no-color.org) overrides the configured preference
	// regardless of what opts.Color says.
	if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
		color = false
	}

	// When colour is enabled, use tint for pretty terminal output.
	if color && isTerminal(w) {
		return tint.NewHandler(w, &tint.Options{
			AddSource:   level <= slog.LevelDebug,
			Level:       level,
			TimeFormat:  time.DateTime,
			NoColor:     false,
			ReplaceAttr: shortSource,
		})
	}

	// Fallback to plain text handler.
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   level <= slog.LevelDebug,
		Level:       level,
		ReplaceAttr: shortSource,
	})
}

// shortSource trims slog's default source attribute down to "file.go:line"
// so a runner's indexer/downloader log lines stay readable on an 80-column
// terminal instead of carrying the full GOPATH-rooted path.
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	src, ok := a.Value.Any().(*slog.Source)
	if !ok || src == nil {
		return a
	}
	a.Value = slog.StringValue(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
	return a
}

// isTerminal checks if the writer is connected to a terminal (for colour
// support detection). Only os.Stdout and os.Stderr are considered terminals.
//
// Parameters:
//   - w: The writer to check.
//
// Returns:
//   - true if the writer is a known terminal file descriptor.
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		fi, err := f.Stat()
		if err != nil {
			return false
		}
		// Character device = terminal on most platforms.
		return (fi.Mode() & os.ModeCharDevice) != 0
	}
	return false
}
