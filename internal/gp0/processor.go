package gp0

import (
	"fmt"

	"github.com/retroenv/gpuchain/internal/dmachain"
	"github.com/retroenv/gpuchain/internal/gpustat"
	"github.com/retroenv/retrogolib/log"
)

// Sink receives decoded commands, usually a renderer.
type Sink interface {
	Command(cmd Command) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(cmd Command) error

// Command calls f(cmd).
func (f SinkFunc) Command(cmd Command) error {
	return f(cmd)
}

// Stats summarizes a processed DMA chain.
type Stats struct {
	Blocks      int
	EmptyBlocks int
	Words       int
	Commands    int
	Steps       int
	Stop        dmachain.StopReason
}

// Processor feeds GP0 data into a decoder and passes the decoded commands to
// a sink. While data is consumed the matching status register flags are
// cleared.
type Processor struct {
	logger  *log.Logger
	status  *gpustat.Register
	decoder *Decoder
	sink    Sink

	buf []uint32
}

// NewProcessor returns a processor that reports its busy state in status.
func NewProcessor(logger *log.Logger, status *gpustat.Register, sink Sink) *Processor {
	return &Processor{
		logger:  logger,
		status:  status,
		decoder: NewDecoder(),
		sink:    sink,
	}
}

// Status returns the status register of the processor.
func (p *Processor) Status() *gpustat.Register {
	return p.status
}

// Reset resets the status register and drops any partially received
// command, like a GP1(0x00) reset.
func (p *Processor) Reset() {
	p.status.Reset()
	p.decoder.Reset()
}

// Pending returns whether a partially received command is buffered.
func (p *Processor) Pending() bool {
	return p.decoder.Pending()
}

// ResetCommandBuffer drops a partially received command, like GP1(0x01).
func (p *Processor) ResetCommandBuffer() {
	p.decoder.Reset()
}

// WriteData writes GP0 words while the GPU reports itself as busy. It returns
// the number of completed commands. Processing stops at the first sink error.
func (p *Processor) WriteData(words []uint32) (int, error) {
	var commands int
	err := gpustat.WithGPUBusy(p.status, func() error {
		for _, word := range words {
			cmd, ok := p.decoder.Push(word)
			if !ok {
				continue
			}
			commands++
			if err := p.sink.Command(cmd); err != nil {
				return fmt.Errorf("processing command %s: %w", cmd, err)
			}
		}
		return nil
	})
	return commands, err
}

// ProcessChain writes all blocks of the DMA chain that starts at the given
// address. The GPU reports itself as not ready for DMA blocks until the chain
// is processed or an error occurred.
func (p *Processor) ProcessChain(mem dmachain.Memory, start uint32) (Stats, error) {
	lock := gpustat.LockCommandStream(p.status)
	defer lock.Release()

	var stats Stats
	reader := dmachain.New(mem, start)

	for block := range reader.Blocks() {
		stats.Blocks++
		if block.Size == 0 {
			stats.EmptyBlocks++
			continue
		}

		p.buf = p.buf[:0]
		for i := range block.Size {
			p.buf = append(p.buf, mem.Load32(block.Pointer+uint32(i)*4))
		}

		commands, err := p.WriteData(p.buf)
		stats.Words += block.Size
		stats.Commands += commands
		if err != nil {
			stats.Steps = reader.Steps()
			return stats, fmt.Errorf("processing block at 0x%06X: %w", block.Node, err)
		}
	}

	stats.Steps = reader.Steps()
	stats.Stop = reader.Reason()
	if stats.Stop != dmachain.EndReached {
		p.logger.Warn("DMA chain aborted",
			log.Hex("start", start),
			log.String("reason", stats.Stop.String()),
			log.Int("blocks", stats.Blocks))
	}
	return stats, nil
}
