// Package verification verifies the loop detection of a chain traversal by
// walking the chain again with an exact set of visited nodes.
package verification

import (
	"errors"
	"fmt"

	"github.com/retroenv/gpuchain/internal/dmachain"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

var (
	errUnconfirmedLoop = errors.New("reported loop could not be reproduced")
	errStopMismatch    = errors.New("traversal stop mismatch")
)

// Result is the outcome of an exact chain walk.
type Result struct {
	Stop     dmachain.StopReason
	Blocks   int    // blocks returned before the walk stopped
	LoopNode uint32 // first node that was visited twice, only set for loops
}

// Walk follows the chain the same way as dmachain.Reader but remembers every
// visited node, so it stops at the first revisit.
func Walk(mem dmachain.Memory, start uint32) Result {
	if dmachain.New(mem, start).Reason() == dmachain.NoMemory {
		return Result{Stop: dmachain.NoMemory}
	}

	layout := mem.Layout()
	mask := layout.AddressMask()
	ceiling := layout.IterationCeiling()
	visited := set.New[uint32]()

	cursor := start
	for steps := 1; ; steps++ {
		if cursor&dmachain.EndOfChain == dmachain.EndOfChain {
			return Result{Stop: dmachain.EndReached, Blocks: len(visited)}
		}
		addr := cursor & mask
		if steps > ceiling {
			return Result{Stop: dmachain.CeilingExceeded, Blocks: len(visited)}
		}
		if visited.Contains(addr) {
			return Result{Stop: dmachain.LoopDetected, Blocks: len(visited), LoopNode: addr}
		}
		visited.Add(addr)
		cursor = mem.Load32(addr) & dmachain.EndOfChain
	}
}

// VerifyChain compares the stop reason and block count of a finished
// traversal with an exact walk. Loops that the traversal did not detect are
// reported as warning, a loop that does not exist or any other difference is
// returned as error.
func VerifyChain(logger *log.Logger, mem dmachain.Memory, start uint32,
	stop dmachain.StopReason, blocks int) (Result, error) {

	exact := Walk(mem, start)

	switch {
	case stop == exact.Stop && blocks == exact.Blocks:
		return exact, nil

	case stop == dmachain.LoopDetected && exact.Stop != dmachain.LoopDetected:
		return exact, fmt.Errorf("%w: exact walk ended with %s after %d blocks",
			errUnconfirmedLoop, exact.Stop, exact.Blocks)

	case stop == dmachain.LoopDetected:
		logger.Debug("Loop detected late",
			log.Hex("loop_node", exact.LoopNode),
			log.Int("blocks", blocks),
			log.Int("exact_blocks", exact.Blocks))
		return exact, nil

	case stop == dmachain.CeilingExceeded && exact.Stop == dmachain.LoopDetected:
		logger.Warn("Loop not detected before iteration ceiling",
			log.Hex("start", start),
			log.Hex("loop_node", exact.LoopNode),
			log.Int("blocks", blocks),
			log.Int("exact_blocks", exact.Blocks))
		return exact, nil

	default:
		return exact, fmt.Errorf("%w: %s after %d blocks, exact walk %s after %d blocks",
			errStopMismatch, stop, blocks, exact.Stop, exact.Blocks)
	}
}
