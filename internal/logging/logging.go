// SPDX-License-Identifier: MPL-2.0

// Package logging configures the process-wide slog handler.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// level is the shared level for the terminal handler; SetVerbose flips it
// after flag parsing without rebuilding the handler.
var level = new(slog.LevelVar)

// NewTerminalHandler builds a colorized slog handler for w. Colors are
// disabled automatically when w is not a terminal (pipes, CI logs).
func NewTerminalHandler(w *os.File) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	})
}

// Setup installs the terminal handler as the default slog logger.
// Diagnostics go to stderr so command output on stdout stays clean.
func Setup() {
	level.Set(slog.LevelInfo)
	slog.SetDefault(slog.New(NewTerminalHandler(os.Stderr)))
}

// SetVerbose lowers the log level to Debug when enabled.
func SetVerbose(enabled bool) {
	if enabled {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}
