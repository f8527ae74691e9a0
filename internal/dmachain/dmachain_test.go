package dmachain

import (
	"testing"

	"github.com/retroenv/gpuchain/internal/ram"
	"github.com/retroenv/retrogolib/assert"
)

var testLayout = ram.Layout{Name: "test", Size: 0x1000, ReservedSize: 0x100}

// buildChain links the nodes at the given addresses in order. The last node
// points to last, which is EndOfChain for a terminated chain.
func buildChain(t *testing.T, layout ram.Layout, addresses []uint32, last uint32) *ram.Region {
	t.Helper()

	region, err := ram.New(layout)
	assert.NoError(t, err)

	for i, addr := range addresses {
		next := last
		if i+1 < len(addresses) {
			next = addresses[i+1]
		}
		region.Store32(addr, next)
	}
	return region
}

func collect(r *Reader) []Block {
	var blocks []Block
	for b := range r.Blocks() {
		blocks = append(blocks, b)
	}
	return blocks
}

func assertEnded(t *testing.T, r *Reader, reason StopReason) {
	t.Helper()

	assert.True(t, r.Ended())
	assert.Equal(t, reason, r.Reason())
	for range 3 {
		_, _, ok := r.Advance()
		assert.False(t, ok)
	}
}

func TestLinearChain(t *testing.T) {
	addresses := []uint32{0x200, 0x800, 0x400, 0x10, 0xFF0}
	region := buildChain(t, testLayout, addresses, EndOfChain)

	r := New(region, addresses[0])
	blocks := collect(r)

	assert.Len(t, blocks, len(addresses))
	for i, b := range blocks {
		assert.Equal(t, addresses[i], b.Node)
		assert.Equal(t, addresses[i]+4, b.Pointer)
		assert.Equal(t, 0, b.Size)
	}
	assert.Equal(t, uint32(EndOfChain), blocks[len(blocks)-1].Next)
	assertEnded(t, r, EndReached)
}

func TestSingleBlockConsoleChain(t *testing.T) {
	region, err := ram.New(ram.Console)
	assert.NoError(t, err)

	region.Store32(0x20000, 4<<24|EndOfChain)
	for i := range uint32(4) {
		region.Store32(0x20004+i*4, 0xA0+i)
	}

	r := New(region, 0x20000)
	ptr, size, ok := r.Advance()
	assert.True(t, ok)
	assert.Equal(t, uint32(0x20004), ptr)
	assert.Equal(t, 4, size)
	assert.Equal(t, []uint32{0xA0, 0xA1, 0xA2, 0xA3}, region.Words(ptr, size))

	_, _, ok = r.Advance()
	assert.False(t, ok)
	assertEnded(t, r, EndReached)
}

func TestBlockSizeDecoding(t *testing.T) {
	region, err := ram.New(testLayout)
	assert.NoError(t, err)

	region.Store32(0x100, 0xFF<<24|0x200)
	region.Store32(0x200, EndOfChain)

	r := New(region, 0x100)
	_, size, ok := r.Advance()
	assert.True(t, ok)
	assert.Equal(t, 255, size)

	ptr, size, ok := r.Advance()
	assert.True(t, ok)
	assert.Equal(t, uint32(0x204), ptr)
	assert.Equal(t, 0, size)
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name      string
		addresses []uint32
		loopTo    uint32
		wantCount int
	}{
		{"self loop", []uint32{0x100}, 0x100, 1},
		{"two node loop", []uint32{0x100, 0x200}, 0x100, 2},
		{"loop into middle of ascending chain", []uint32{0x10, 0x20, 0x30, 0x40, 0x50}, 0x30, 5},
		// the zigzag order is only caught by the slow cursor
		{"zigzag loop", []uint32{0x100, 0x900, 0x200, 0x800, 0x300, 0x700}, 0x100, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region := buildChain(t, testLayout, tt.addresses, tt.loopTo)

			r := New(region, tt.addresses[0])
			blocks := collect(r)

			assert.Len(t, blocks, tt.wantCount)
			assert.Equal(t, tt.wantCount+1, r.Steps())
			assertEnded(t, r, LoopDetected)
		})
	}
}

func TestCeilingStopsAcyclicChain(t *testing.T) {
	// every word of the region is a node pointing to the following word
	addresses := make([]uint32, testLayout.Size/4)
	for i := range addresses {
		addresses[i] = uint32(i) * 4
	}
	region := buildChain(t, testLayout, addresses, EndOfChain)

	r := New(region, 0)
	blocks := collect(r)

	ceiling := testLayout.IterationCeiling()
	assert.Equal(t, 961, ceiling)
	assert.Len(t, blocks, ceiling)
	assert.Equal(t, ceiling+1, r.Steps())
	assertEnded(t, r, CeilingExceeded)
}

func TestAddressMasking(t *testing.T) {
	region, err := ram.New(testLayout)
	assert.NoError(t, err)

	// next pointer outside of the region and misaligned
	region.Store32(0x100, 1<<24|0x3FF3)
	region.Store32(0xFF0, EndOfChain)

	r := New(region, 0x100)
	_, _, ok := r.Advance()
	assert.True(t, ok)

	b, ok := r.Next()
	assert.True(t, ok)
	assert.Equal(t, uint32(0xFF0), b.Node)
}

func TestEndOfChainIgnoresHighByte(t *testing.T) {
	region, err := ram.New(testLayout)
	assert.NoError(t, err)

	r := New(region, 0x12FFFFFF)
	_, _, ok := r.Advance()
	assert.False(t, ok)
	assert.Equal(t, 0, r.Steps())
	assertEnded(t, r, EndReached)
}

func TestNilMemory(t *testing.T) {
	r := New(nil, 0x100)
	assertEnded(t, r, NoMemory)

	var region *ram.Region
	r = New(region, 0x100)
	assertEnded(t, r, NoMemory)
}

func TestBlocksStopsOnBreak(t *testing.T) {
	addresses := []uint32{0x100, 0x200, 0x300}
	region := buildChain(t, testLayout, addresses, EndOfChain)

	r := New(region, 0x100)
	for b := range r.Blocks() {
		assert.Equal(t, uint32(0x100), b.Node)
		break
	}

	assert.False(t, r.Ended())
	b, ok := r.Next()
	assert.True(t, ok)
	assert.Equal(t, uint32(0x200), b.Node)
}

func TestStopReasonString(t *testing.T) {
	assert.Equal(t, "loop detected", LoopDetected.String())
	assert.Equal(t, "StopReason(42)", StopReason(42).String())
}
