// Package detector handles RAM layout detection.
package detector

import (
	"errors"
	"fmt"

	"github.com/retroenv/gpuchain/internal/options"
	"github.com/retroenv/gpuchain/internal/ram"
	"github.com/retroenv/retrogolib/log"
)

var errDumpTooLarge = errors.New("dump is larger than any supported RAM layout")

// Detector handles RAM layout detection from options and dump sizes.
type Detector struct {
	logger *log.Logger
}

// New creates a new layout detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the RAM layout from options or the dump size.
// A layout set in the options is used as is, otherwise the smallest layout
// that can hold the whole dump is selected.
func (d *Detector) Detect(opts options.Chain, dumpSize int64) (ram.Layout, error) {
	if opts.Layout.Size != 0 {
		return opts.Layout, nil
	}

	layout, err := d.detectFromSize(dumpSize)
	if err != nil {
		return ram.Layout{}, err
	}
	d.logger.Debug("Auto-detected RAM layout",
		log.Stringer("layout", layout),
		log.Int("dump_size", int(dumpSize)))
	return layout, nil
}

// detectFromSize determines the RAM layout based on the dump size.
func (d *Detector) detectFromSize(size int64) (ram.Layout, error) {
	switch {
	case size <= ram.ConsoleSize:
		return ram.Console, nil
	case size <= ram.ArcadeSize:
		return ram.Arcade, nil
	default:
		return ram.Layout{}, fmt.Errorf("%w: %d bytes", errDumpTooLarge, size)
	}
}
