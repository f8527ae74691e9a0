// Package config handles application configuration and setup
package config

import (
	"os"

	"github.com/retroenv/gpuchain/internal/options"
	"github.com/retroenv/retrogolib/log"
	"golang.org/x/term"
)

// CreateLogger creates a logger with the level selected by the program options.
func CreateLogger(opts options.Program) *log.Logger {
	cfg := log.DefaultConfig()
	switch {
	case opts.Debug:
		cfg.Level = log.DebugLevel
	case opts.Quiet, listingToPipe(opts):
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// listingToPipe returns whether the listing is written to a redirected stdout,
// informational output is suppressed in that case.
func listingToPipe(opts options.Program) bool {
	if opts.Output != "" || opts.Batch != "" {
		return false
	}
	return !IsTerminal(os.Stdout)
}

// IsTerminal returns whether the file is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
