package writer

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/retroenv/gpuchain/internal/dmachain"
	"github.com/retroenv/gpuchain/internal/gp0"
	"github.com/retroenv/gpuchain/internal/ram"
	"github.com/retroenv/retrogolib/assert"
	"github.com/sigurn/crc8"
)

func TestChecksum(t *testing.T) {
	assert.Equal(t, uint8(0), Checksum(nil))

	// words are checksummed in little endian RAM byte order
	words := []uint32{0x34333231, 0x38373635}
	assert.Equal(t, crc8.Checksum([]byte("12345678"), payloadCRC8), Checksum(words))
	assert.True(t, Checksum(words) != Checksum([]uint32{0x31323334, 0x35363738}))
}

func TestWriteBlock(t *testing.T) {
	payload := []uint32{1, 2, 3, 4, 5}
	block := dmachain.Block{Node: 0x20000, Pointer: 0x20004, Size: len(payload), Next: 0x30000}

	t.Run("without payload", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, Options{AddressMask: ram.Console.AddressMask()})

		assert.NoError(t, w.WriteBlock(block, payload))
		expected := fmt.Sprintf("$020000  size   5  next $030000  crc8 %02X\n", Checksum(payload))
		assert.Equal(t, expected, buf.String())
	})

	t.Run("with payload", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, Options{AddressMask: ram.Console.AddressMask(), Payload: true})

		assert.NoError(t, w.WriteBlock(block, payload))
		expected := fmt.Sprintf("$020000  size   5  next $030000  crc8 %02X\n", Checksum(payload)) +
			"    $020004: 00000001 00000002 00000003 00000004\n" +
			"    $020014: 00000005\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("payload wraps at end of RAM", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, Options{AddressMask: ram.Console.AddressMask(), Payload: true})

		wrapping := dmachain.Block{Node: 0x1FFFF8, Pointer: 0x1FFFFC, Size: len(payload), Next: dmachain.EndOfChain}
		assert.NoError(t, w.WriteBlock(wrapping, payload))
		expected := fmt.Sprintf("$1FFFF8  size   5  next end      crc8 %02X\n", Checksum(payload)) +
			"    $1FFFFC: 00000001 00000002 00000003 00000004\n" +
			"    $00000C: 00000005\n"
		assert.Equal(t, expected, buf.String())
	})

	t.Run("empty block", func(t *testing.T) {
		var buf bytes.Buffer
		w := New(&buf, Options{Payload: true})

		empty := dmachain.Block{Node: 0x30000, Pointer: 0x30004, Next: 0x38000}
		assert.NoError(t, w.WriteBlock(empty, nil))
		assert.Equal(t, "$030000  size   0  next $038000  crc8 00\n", buf.String())
	})
}

func TestWriteCommentHeader(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})

	assert.NoError(t, w.WriteCommentHeader("game.ram", ram.Console, 0x20000))
	expected := "; RAM dump: game.ram\n" +
		"; RAM layout: console, size $200000, iteration ceiling 507905\n" +
		"; Chain start: $020000\n\n"
	assert.Equal(t, expected, buf.String())
}

func TestWriteCommandAndSummary(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})

	cmd := gp0.Command{Opcode: 0x02, Kind: gp0.FillRectangle, Words: make([]uint32, 3)}
	assert.NoError(t, w.WriteCommand(cmd))
	assert.NoError(t, w.WriteSummary(gp0.Stats{
		Blocks:      3,
		EmptyBlocks: 1,
		Words:       6,
		Commands:    2,
		Steps:       3,
		Stop:        dmachain.EndReached,
	}))

	expected := "    > 02 fill rectangle (3 words)\n" +
		"\n; 3 blocks (1 empty), 6 payload words, 2 commands, 3 steps, end of chain\n"
	assert.Equal(t, expected, buf.String())
}

func TestBundleDataWrites(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Options{})

	assert.NoError(t, w.BundleDataWrites([]uint32{0xDEADBEEF, 1, 2, 3, 4, 5}, nil))
	assert.Equal(t, "DEADBEEF 00000001 00000002 00000003\n00000004 00000005\n", buf.String())
}
