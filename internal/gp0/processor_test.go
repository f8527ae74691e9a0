package gp0

import (
	"errors"
	"testing"

	"github.com/retroenv/gpuchain/internal/dmachain"
	"github.com/retroenv/gpuchain/internal/gpustat"
	"github.com/retroenv/gpuchain/internal/ram"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

var errRenderer = errors.New("renderer failed")

// storeBlock writes a chain node with its payload.
func storeBlock(region *ram.Region, addr, next uint32, payload ...uint32) {
	region.Store32(addr, uint32(len(payload))<<24|next)
	for i, word := range payload {
		region.Store32(addr+4+uint32(i)*4, word)
	}
}

func newTestRegion(t *testing.T) *ram.Region {
	t.Helper()

	region, err := ram.New(ram.Console)
	assert.NoError(t, err)

	storeBlock(region, 0x20000, 0x30000, 0xE1000000, 0x28FF0000, 0x00000000, 0x00000010)
	storeBlock(region, 0x30000, 0x38000)
	storeBlock(region, 0x38000, dmachain.EndOfChain, 0x00100000, 0x00100010)
	return region
}

type recordingSink struct {
	t        *testing.T
	status   *gpustat.Register
	commands []Command
	err      error
	panicMsg string
}

func (s *recordingSink) Command(cmd Command) error {
	assert.False(s.t, s.status.Flag(gpustat.ReadyForCommand), "gpu must report busy while consuming commands")
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.commands = append(s.commands, cmd)
	return s.err
}

func newTestProcessor(t *testing.T) (*Processor, *recordingSink) {
	t.Helper()

	status := gpustat.New()
	sink := &recordingSink{t: t, status: status}
	return NewProcessor(log.NewTestLogger(t), status, sink), sink
}

func TestProcessChain(t *testing.T) {
	region := newTestRegion(t)
	p, sink := newTestProcessor(t)

	var streamBusy bool
	p.sink = SinkFunc(func(cmd Command) error {
		streamBusy = !p.Status().Flag(gpustat.ReadyForDMABlock)
		return sink.Command(cmd)
	})

	stats, err := p.ProcessChain(region, 0x20000)
	assert.NoError(t, err)

	assert.Equal(t, 3, stats.Blocks)
	assert.Equal(t, 1, stats.EmptyBlocks)
	assert.Equal(t, 6, stats.Words)
	assert.Equal(t, 2, stats.Commands)
	assert.Equal(t, dmachain.EndReached, stats.Stop)
	assert.True(t, streamBusy)

	assert.Len(t, sink.commands, 2)
	assert.Equal(t, Environment, sink.commands[0].Kind)
	assert.Equal(t, []uint32{0x28FF0000, 0, 0x10, 0x00100000, 0x00100010}, sink.commands[1].Words)

	assert.Equal(t, gpustat.ResetValue, p.Status().Value())
}

func TestProcessChainLoop(t *testing.T) {
	region, err := ram.New(ram.Console)
	assert.NoError(t, err)

	storeBlock(region, 0x20000, 0x20100, 0x00000000)
	storeBlock(region, 0x20100, 0x20000, 0x00000000)

	p, sink := newTestProcessor(t)
	stats, err := p.ProcessChain(region, 0x20000)
	assert.NoError(t, err)

	assert.Equal(t, dmachain.LoopDetected, stats.Stop)
	assert.Equal(t, 2, stats.Blocks)
	assert.Len(t, sink.commands, 2)
	assert.Equal(t, gpustat.ResetValue, p.Status().Value())
}

func TestProcessChainSinkError(t *testing.T) {
	region := newTestRegion(t)
	p, sink := newTestProcessor(t)
	sink.err = errRenderer

	stats, err := p.ProcessChain(region, 0x20000)
	assert.True(t, errors.Is(err, errRenderer))
	assert.ErrorContains(t, err, "processing block at 0x020000")
	assert.Equal(t, 1, stats.Blocks)
	assert.Equal(t, 1, stats.Commands)

	assert.True(t, p.Status().Flag(gpustat.ReadyForCommand))
	assert.True(t, p.Status().Flag(gpustat.ReadyForDMABlock))
}

func TestProcessChainSinkPanic(t *testing.T) {
	region := newTestRegion(t)
	p, sink := newTestProcessor(t)
	sink.panicMsg = "renderer crashed"

	recovered := func() (v any) {
		defer func() { v = recover() }()
		_, _ = p.ProcessChain(region, 0x20000)
		return nil
	}()

	assert.Equal(t, "renderer crashed", recovered)
	assert.Equal(t, gpustat.ResetValue, p.Status().Value())
}

func TestProcessChainWithoutMemory(t *testing.T) {
	p, sink := newTestProcessor(t)

	stats, err := p.ProcessChain(nil, 0x20000)
	assert.NoError(t, err)
	assert.Equal(t, dmachain.NoMemory, stats.Stop)
	assert.Len(t, sink.commands, 0)
}

func TestWriteData(t *testing.T) {
	p, sink := newTestProcessor(t)

	n, err := p.WriteData([]uint32{0x02000000, 0, 0x00100010, 0x30000000})
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, sink.commands, 1)
	assert.Equal(t, FillRectangle, sink.commands[0].Kind)
	assert.True(t, p.decoder.Pending())
	assert.True(t, p.Status().Flag(gpustat.ReadyForCommand))

	p.ResetCommandBuffer()
	assert.False(t, p.decoder.Pending())
}

func TestReset(t *testing.T) {
	p, _ := newTestProcessor(t)

	_, err := p.WriteData([]uint32{0x38000000})
	assert.NoError(t, err)
	p.Status().SetFlag(gpustat.InterruptRequest, true)

	p.Reset()
	assert.False(t, p.decoder.Pending())
	assert.Equal(t, gpustat.ResetValue, p.Status().Value())
}
