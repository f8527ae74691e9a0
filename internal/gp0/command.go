// Package gp0 decodes GPU GP0 command packets and feeds them from DMA chains.
package gp0

import "fmt"

// Kind groups GP0 commands by their packet layout.
type Kind uint8

// Command kinds.
const (
	Misc Kind = iota
	FillRectangle
	Polygon
	Line
	PolyLine
	Rectangle
	CopyVRAMToVRAM
	CopyCPUToVRAM
	CopyVRAMToCPU
	Environment
	Interrupt
)

var kindNames = map[Kind]string{
	Misc:           "misc",
	FillRectangle:  "fill rectangle",
	Polygon:        "polygon",
	Line:           "line",
	PolyLine:       "polyline",
	Rectangle:      "rectangle",
	CopyVRAMToVRAM: "vram to vram",
	CopyCPUToVRAM:  "cpu to vram",
	CopyVRAMToCPU:  "vram to cpu",
	Environment:    "environment",
	Interrupt:      "interrupt",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

const (
	// polyLineTerminatorMask and polyLineTerminator identify the word that ends
	// a polyline.
	polyLineTerminatorMask = 0xF000F000
	polyLineTerminator     = 0x50005000

	// the longest fixed size packet is a shaded textured quad
	maxPacketWords = 12
)

// Packet layout bits of the opcode.
const (
	polygonGouraud  = 0x10
	polygonQuad     = 0x08
	polygonTextured = 0x04

	lineGouraud = 0x10
	linePoly    = 0x08

	rectangleSize     = 0x18
	rectangleTextured = 0x04
)

// Command is a complete GP0 packet.
type Command struct {
	Opcode byte
	Kind   Kind
	Words  []uint32 // command word followed by all parameter words
}

func (c Command) String() string {
	return fmt.Sprintf("%02X %s (%d words)", c.Opcode, c.Kind, len(c.Words))
}

// layout returns the kind and the fixed packet length in words of a command.
// For polylines the returned length is the minimum length, for CPU to VRAM
// copies it is the header length without the pixel data.
func layout(opcode byte) (Kind, int) {
	switch {
	case opcode == 0x02:
		return FillRectangle, 3
	case opcode == 0x1F:
		return Interrupt, 1
	case opcode >= 0x20 && opcode < 0x40:
		return Polygon, polygonLength(opcode)
	case opcode >= 0x40 && opcode < 0x60:
		return lineLayout(opcode)
	case opcode >= 0x60 && opcode < 0x80:
		return Rectangle, rectangleLength(opcode)
	case opcode >= 0x80 && opcode < 0xA0:
		return CopyVRAMToVRAM, 4
	case opcode >= 0xA0 && opcode < 0xC0:
		return CopyCPUToVRAM, 3
	case opcode >= 0xC0 && opcode < 0xE0:
		return CopyVRAMToCPU, 3
	case opcode >= 0xE1 && opcode <= 0xE6:
		return Environment, 1
	default:
		return Misc, 1
	}
}

func polygonLength(opcode byte) int {
	vertices := 3
	if opcode&polygonQuad != 0 {
		vertices = 4
	}
	perVertex := 1
	if opcode&polygonTextured != 0 {
		perVertex++
	}
	length := 1 + vertices*perVertex
	if opcode&polygonGouraud != 0 {
		// the first color is part of the command word
		length += vertices - 1
	}
	return length
}

func lineLayout(opcode byte) (Kind, int) {
	length := 3
	if opcode&lineGouraud != 0 {
		length++
	}
	if opcode&linePoly != 0 {
		return PolyLine, length
	}
	return Line, length
}

func rectangleLength(opcode byte) int {
	length := 2
	if opcode&rectangleSize == 0 {
		// variable size, width and height follow
		length++
	}
	if opcode&rectangleTextured != 0 {
		length++
	}
	return length
}

// imageDataWords returns the number of data words that follow a CPU to VRAM
// copy with the given size word. Sizes of 0 wrap to the maximum.
func imageDataWords(size uint32) int {
	width := ((size&0xFFFF)-1)&0x3FF + 1
	height := ((size>>16)-1)&0x1FF + 1
	return int((width*height + 1) / 2)
}
