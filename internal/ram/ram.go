// Package ram implements the emulated main RAM that GPU DMA chains are read from.
package ram

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// ConsoleSize is the main RAM size of a retail console.
	ConsoleSize = 0x200000
	// ArcadeSize is the main RAM size of the arcade board variant.
	ArcadeSize = 0x800000
	// ReservedSize is the BIOS/kernel area at the start of RAM. It can be
	// addressed but does not count towards the chain iteration ceiling.
	ReservedSize = 0x10000
)

var (
	// Console is the retail console RAM layout.
	Console = Layout{Name: "console", Size: ConsoleSize, ReservedSize: ReservedSize}
	// Arcade is the arcade board RAM layout.
	Arcade = Layout{Name: "arcade", Size: ArcadeSize, ReservedSize: ReservedSize}
)

var (
	errSizeNotPowerOfTwo = errors.New("size is not a power of two")
	errSizeTooSmall      = errors.New("size is too small")
	errReservedTooLarge  = errors.New("reserved size does not leave any addressable words")
)

// Layout describes the capacity of a RAM region. All address arithmetic of the
// chain reader is derived from it.
type Layout struct {
	Name         string
	Size         uint32
	ReservedSize uint32
}

// Validate checks that the layout can be used for word aligned masking.
func (l Layout) Validate() error {
	switch {
	case l.Size < 8:
		return fmt.Errorf("layout %q: %w: 0x%X", l.Name, errSizeTooSmall, l.Size)
	case l.Size&(l.Size-1) != 0:
		return fmt.Errorf("layout %q: %w: 0x%X", l.Name, errSizeNotPowerOfTwo, l.Size)
	case l.ReservedSize >= l.Size:
		return fmt.Errorf("layout %q: %w: 0x%X >= 0x%X", l.Name, errReservedTooLarge, l.ReservedSize, l.Size)
	}
	return nil
}

// AddressMask returns the mask that limits an address to [0, Size-4] and
// aligns it to a word boundary.
func (l Layout) AddressMask() uint32 {
	return l.Size - 4
}

// IterationCeiling returns the maximum number of nodes a single chain traversal
// may visit.
func (l Layout) IterationCeiling() int {
	return int((l.Size-l.ReservedSize)/4) + 1
}

// String returns the layout name.
func (l Layout) String() string {
	return l.Name
}

// Region is a fixed capacity block of emulated RAM. The backing buffer is never
// resized after creation.
type Region struct {
	layout Layout
	data   []byte
}

// New returns a zeroed region for the given layout.
func New(layout Layout) (*Region, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Region{
		layout: layout,
		data:   make([]byte, layout.Size),
	}, nil
}

// NewFromBytes returns a region that is initialized with a copy of data.
// Data shorter than the layout size is zero padded.
func NewFromBytes(layout Layout, data []byte) (*Region, error) {
	r, err := New(layout)
	if err != nil {
		return nil, err
	}
	if len(data) > len(r.data) {
		return nil, fmt.Errorf("data size 0x%X exceeds %s RAM size 0x%X", len(data), layout.Name, layout.Size)
	}
	copy(r.data, data)
	return r, nil
}

// Layout returns the layout of the region.
func (r *Region) Layout() Layout {
	return r.layout
}

// Load32 returns the little endian word at addr. The address is masked to the
// region and aligned, so this never reads out of bounds.
func (r *Region) Load32(addr uint32) uint32 {
	addr &= r.layout.AddressMask()
	return binary.LittleEndian.Uint32(r.data[addr:])
}

// Store32 writes a little endian word to the masked and aligned address.
func (r *Region) Store32(addr, value uint32) {
	addr &= r.layout.AddressMask()
	binary.LittleEndian.PutUint32(r.data[addr:], value)
}

// Words returns a copy of count words starting at addr. Every word address is
// masked individually, a block crossing the end of RAM wraps to the start.
func (r *Region) Words(addr uint32, count int) []uint32 {
	if count <= 0 {
		return nil
	}
	words := make([]uint32, count)
	for i := range words {
		words[i] = r.Load32(addr + uint32(i)*4)
	}
	return words
}

// ReadFrom fills the region from the reader, starting at address 0. Reading
// stops at the end of the region or at EOF.
func (r *Region) ReadFrom(reader io.Reader) (int64, error) {
	n, err := io.ReadFull(reader, r.data)
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		err = nil
	}
	if err != nil {
		return int64(n), fmt.Errorf("reading RAM data: %w", err)
	}
	return int64(n), nil
}
