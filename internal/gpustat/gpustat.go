// Package gpustat implements the GPU status register (GPUSTAT).
package gpustat

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// ResetValue is the register content after a GPU reset: display disabled,
// interlace field set and ready to receive commands and DMA blocks.
const ResetValue uint32 = 0x14802000

// Field is a named bit range of the status register.
type Field struct {
	Name  string
	Shift uint8
	Width uint8
}

// Mask returns the mask of the field bits in the register.
func (f Field) Mask() uint32 {
	return (1<<f.Width - 1) << f.Shift
}

// IsFlag returns whether the field is a single bit.
func (f Field) IsFlag() bool {
	return f.Width == 1
}

func (f Field) String() string {
	if f.IsFlag() {
		return fmt.Sprintf("%s (bit %d)", f.Name, f.Shift)
	}
	return fmt.Sprintf("%s (bits %d-%d)", f.Name, f.Shift, f.Shift+f.Width-1)
}

// Status register fields.
var (
	TexturePageXBase      = Field{Name: "texture page x base", Shift: 0, Width: 4}
	TexturePageYBase      = Field{Name: "texture page y base", Shift: 4, Width: 1}
	SemiTransparency      = Field{Name: "semi transparency", Shift: 5, Width: 2}
	TexturePageColors     = Field{Name: "texture page colors", Shift: 7, Width: 2}
	Dither                = Field{Name: "dither", Shift: 9, Width: 1}
	DrawToDisplayArea     = Field{Name: "draw to display area", Shift: 10, Width: 1}
	SetMaskBit            = Field{Name: "set mask bit", Shift: 11, Width: 1}
	DrawUnmaskedOnly      = Field{Name: "draw unmasked pixels only", Shift: 12, Width: 1}
	InterlaceField        = Field{Name: "interlace field", Shift: 13, Width: 1}
	ReverseFlag           = Field{Name: "reverse flag", Shift: 14, Width: 1}
	TextureDisable        = Field{Name: "texture disable", Shift: 15, Width: 1}
	HorizontalResolution2 = Field{Name: "horizontal resolution 2", Shift: 16, Width: 1}
	HorizontalResolution1 = Field{Name: "horizontal resolution 1", Shift: 17, Width: 2}
	VerticalResolution    = Field{Name: "vertical resolution", Shift: 19, Width: 1}
	VideoModePAL          = Field{Name: "video mode pal", Shift: 20, Width: 1}
	DisplayColorDepth24   = Field{Name: "display color depth 24", Shift: 21, Width: 1}
	VerticalInterlace     = Field{Name: "vertical interlace", Shift: 22, Width: 1}
	DisplayDisabled       = Field{Name: "display disabled", Shift: 23, Width: 1}
	InterruptRequest      = Field{Name: "interrupt request", Shift: 24, Width: 1}
	DMARequest            = Field{Name: "dma request", Shift: 25, Width: 1}
	ReadyForCommand       = Field{Name: "ready for command", Shift: 26, Width: 1}
	ReadyForVRAMToCPU     = Field{Name: "ready for vram to cpu", Shift: 27, Width: 1}
	ReadyForDMABlock      = Field{Name: "ready for dma block", Shift: 28, Width: 1}
	DMADirection          = Field{Name: "dma direction", Shift: 29, Width: 2}
	DrawingOddLines       = Field{Name: "drawing odd lines", Shift: 31, Width: 1}
)

// Fields lists all fields from the lowest to the highest bit.
var Fields = []Field{
	TexturePageXBase, TexturePageYBase, SemiTransparency, TexturePageColors,
	Dither, DrawToDisplayArea, SetMaskBit, DrawUnmaskedOnly, InterlaceField,
	ReverseFlag, TextureDisable, HorizontalResolution2, HorizontalResolution1,
	VerticalResolution, VideoModePAL, DisplayColorDepth24, VerticalInterlace,
	DisplayDisabled, InterruptRequest, DMARequest, ReadyForCommand,
	ReadyForVRAMToCPU, ReadyForDMABlock, DMADirection, DrawingOddLines,
}

// Register is the GPU status register. It is owned by a single emulation
// session and not safe for concurrent use.
type Register struct {
	value uint32
}

// New returns a register with the reset value.
func New() *Register {
	return &Register{value: ResetValue}
}

// Reset sets the register to its reset value.
func (r *Register) Reset() {
	r.value = ResetValue
}

// Value returns the raw register content.
func (r *Register) Value() uint32 {
	return r.value
}

// Load replaces the raw register content.
func (r *Register) Load(value uint32) {
	r.value = value
}

// Flag returns whether the lowest bit of the field is set.
func (r *Register) Flag(f Field) bool {
	return r.value&(1<<f.Shift) != 0
}

// SetFlag sets or clears the lowest bit of the field.
func (r *Register) SetFlag(f Field, set bool) {
	if set {
		r.value |= 1 << f.Shift
	} else {
		r.value &^= 1 << f.Shift
	}
}

// Get returns the decoded field value.
func (r *Register) Get(f Field) uint32 {
	return (r.value & f.Mask()) >> f.Shift
}

// Put writes the field value, bits of value that do not fit the field are
// dropped. All other fields are left untouched.
func (r *Register) Put(f Field, value uint32) {
	mask := f.Mask()
	r.value = r.value&^mask | value<<f.Shift&mask
}

// String renders the flags as abbreviations, upper case for set bits,
// followed by the multi bit fields.
func (r *Register) String() string {
	var flags, values []string
	for _, f := range Fields {
		if !f.IsFlag() {
			values = append(values, fmt.Sprintf("%s=%d", f.Name, r.Get(f)))
			continue
		}
		abbreviation := flagAbbreviation(f)
		if r.Flag(f) {
			abbreviation = strings.ToUpper(abbreviation)
		}
		flags = append(flags, abbreviation)
	}
	return fmt.Sprintf("%08X %s %s", r.value, strings.Join(flags, " "), strings.Join(values, " "))
}

// flagAbbreviation returns the first letter of every word of the flag name.
func flagAbbreviation(f Field) string {
	var b strings.Builder
	for _, word := range strings.Fields(f.Name) {
		b.WriteByte(word[0])
	}
	return b.String()
}

// Read returns the field value converted to T.
func Read[T constraints.Unsigned](r *Register, f Field) T {
	return T(r.Get(f))
}

// Write sets the field to value, truncated to the field width.
func Write[T constraints.Integer](r *Register, f Field, value T) {
	r.Put(f, uint32(value))
}
