// Package writer implements the DMA chain listing output.
package writer

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/gpuchain/internal/dmachain"
	"github.com/retroenv/gpuchain/internal/gp0"
	"github.com/retroenv/gpuchain/internal/ram"
	"github.com/sigurn/crc8"
)

const dataWordsPerLine = 4

var payloadCRC8 = crc8.MakeTable(crc8.CRC8)

type lineWriterFunc func(line string, wordCount int) error

// Writer writes a listing of the blocks of a DMA chain.
type Writer struct {
	options Options
	writer  io.Writer
}

// Options of the writer.
type Options struct {
	AddressMask uint32 // mask of the RAM layout that payload addresses wrap at
	Payload     bool   // list the payload words of every block
}

// New creates a new listing writer.
func New(writer io.Writer, options Options) *Writer {
	return &Writer{
		options: options,
		writer:  writer,
	}
}

// WriteCommentHeader writes the dump name, RAM layout and chain start as comments.
func (w Writer) WriteCommentHeader(input string, layout ram.Layout, start uint32) error {
	if _, err := fmt.Fprintf(w.writer, "; RAM dump: %s\n", input); err != nil {
		return fmt.Errorf("writing dump name: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; RAM layout: %s, size $%06X, iteration ceiling %d\n",
		layout, layout.Size, layout.IterationCeiling()); err != nil {
		return fmt.Errorf("writing layout: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "; Chain start: $%06X\n\n", start); err != nil {
		return fmt.Errorf("writing chain start: %w", err)
	}
	return nil
}

// WriteBlock writes the node line of a block followed by its payload words if enabled.
func (w Writer) WriteBlock(block dmachain.Block, payload []uint32) error {
	next := fmt.Sprintf("$%06X", block.Next)
	if block.Next == dmachain.EndOfChain {
		next = "end"
	}

	if _, err := fmt.Fprintf(w.writer, "$%06X  size %3d  next %-7s  crc8 %02X\n",
		block.Node, block.Size, next, Checksum(payload)); err != nil {
		return fmt.Errorf("writing block line: %w", err)
	}

	if !w.options.Payload || len(payload) == 0 {
		return nil
	}

	address := block.Pointer
	lineWriter := func(line string, wordCount int) error {
		if _, err := fmt.Fprintf(w.writer, "    $%06X: %s\n", address&w.addressMask(), line); err != nil {
			return fmt.Errorf("writing payload line: %w", err)
		}
		address += uint32(wordCount) * 4
		return nil
	}
	return w.BundleDataWrites(payload, lineWriter)
}

// WriteCommand writes a decoded GP0 command.
func (w Writer) WriteCommand(cmd gp0.Command) error {
	if _, err := fmt.Fprintf(w.writer, "    > %s\n", cmd); err != nil {
		return fmt.Errorf("writing command: %w", err)
	}
	return nil
}

// WriteSummary writes the totals of the listed chain as comment.
func (w Writer) WriteSummary(stats gp0.Stats) error {
	if _, err := fmt.Fprintf(w.writer, "\n; %d blocks (%d empty), %d payload words, %d commands, %d steps, %s\n",
		stats.Blocks, stats.EmptyBlocks, stats.Words, stats.Commands, stats.Steps, stats.Stop); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// BundleDataWrites bundles writes of payload words to print dataWordsPerLine words per line.
func (w Writer) BundleDataWrites(data []uint32, lineWriter lineWriterFunc) error {
	remaining := len(data)
	for i := 0; remaining > 0; {
		toWrite := min(remaining, dataWordsPerLine)

		buf := &strings.Builder{}
		for j := range toWrite {
			if _, err := fmt.Fprintf(buf, "%08X ", data[i+j]); err != nil {
				return fmt.Errorf("writing data word: %w", err)
			}
		}

		line := strings.TrimRight(buf.String(), " ")

		if lineWriter != nil {
			if err := lineWriter(line, toWrite); err != nil {
				return fmt.Errorf("writing data line using custom writer: %w", err)
			}
		} else {
			if _, err := fmt.Fprintf(w.writer, "%s\n", line); err != nil {
				return fmt.Errorf("writing data line: %w", err)
			}
		}

		i += toWrite
		remaining -= toWrite
	}

	return nil
}

func (w Writer) addressMask() uint32 {
	if w.options.AddressMask == 0 {
		return ^uint32(0)
	}
	return w.options.AddressMask
}

// Checksum returns the CRC-8 of the payload words in RAM byte order.
func Checksum(payload []uint32) uint8 {
	var buf [4]byte
	crc := crc8.Init(payloadCRC8)
	for _, word := range payload {
		binary.LittleEndian.PutUint32(buf[:], word)
		crc = crc8.Update(crc, buf[:], payloadCRC8)
	}
	return crc8.Complete(crc, payloadCRC8)
}
