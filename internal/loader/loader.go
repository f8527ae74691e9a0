// Package loader handles RAM dump loading operations.
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/retroenv/gpuchain/internal/ram"
)

var errDumpExceedsLayout = errors.New("dump exceeds RAM layout")

// LayoutFunc returns the RAM layout to use for a dump of the given size.
type LayoutFunc func(dumpSize int64) (ram.Layout, error)

// Loader handles loading RAM dump files from disk.
type Loader struct{}

// New creates a new RAM dump loader.
func New() *Loader {
	return &Loader{}
}

// Load reads a RAM dump file into a region of the layout returned by
// layoutFor. Dumps shorter than the layout are zero padded, larger dumps are
// rejected.
func (l *Loader) Load(input string, layoutFor LayoutFunc) (*ram.Region, error) {
	file, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("opening file %s: %w", input, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading file info of %s: %w", input, err)
	}

	layout, err := layoutFor(info.Size())
	if err != nil {
		return nil, fmt.Errorf("selecting RAM layout: %w", err)
	}
	if info.Size() > int64(layout.Size) {
		return nil, fmt.Errorf("%w: %d bytes for %s RAM of %d bytes",
			errDumpExceedsLayout, info.Size(), layout, layout.Size)
	}

	region, err := ram.New(layout)
	if err != nil {
		return nil, fmt.Errorf("creating RAM region: %w", err)
	}
	if _, err := region.ReadFrom(file); err != nil {
		return nil, fmt.Errorf("loading RAM dump: %w", err)
	}
	return region, nil
}

// LoadFromBytes loads a RAM dump from an in-memory buffer.
// This is useful for testing and programmatic usage where the dump is already in memory.
func (l *Loader) LoadFromBytes(data []byte, layout ram.Layout) (*ram.Region, error) {
	region, err := ram.NewFromBytes(layout, data)
	if err != nil {
		return nil, fmt.Errorf("loading RAM dump: %w", err)
	}
	return region, nil
}
