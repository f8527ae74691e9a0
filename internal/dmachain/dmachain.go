// Package dmachain walks GPU DMA linked lists stored in emulated RAM.
//
// Every node is a single word: the top byte holds the number of payload words
// that directly follow the node, the low 24 bits hold the address of the next
// node or EndOfChain. The list content is guest controlled, so traversal masks
// every address into the region and stops on cycles or when the number of
// visited nodes exceeds the iteration ceiling of the RAM layout.
package dmachain

import (
	"fmt"
	"iter"

	"github.com/retroenv/gpuchain/internal/ram"
)

const (
	// EndOfChain is the next node address that terminates a chain. Only the low
	// 24 bits of an address are compared against it.
	EndOfChain = 0xFFFFFF

	addressBits = 0xFFFFFF
	sizeShift   = 24
	headerSize  = 4
)

// Memory is the RAM a chain is read from.
type Memory interface {
	Layout() ram.Layout
	Load32(addr uint32) uint32
}

// StopReason describes why a traversal ended.
type StopReason int

// Traversal states.
const (
	Iterating StopReason = iota
	EndReached
	CeilingExceeded
	LoopDetected
	NoMemory
)

func (s StopReason) String() string {
	switch s {
	case Iterating:
		return "iterating"
	case EndReached:
		return "end of chain"
	case CeilingExceeded:
		return "iteration ceiling exceeded"
	case LoopDetected:
		return "loop detected"
	case NoMemory:
		return "no memory"
	default:
		return fmt.Sprintf("StopReason(%d)", int(s))
	}
}

// Block is a payload block of a chain node.
type Block struct {
	Node    uint32 // masked address of the node header
	Pointer uint32 // address of the first payload word
	Size    int    // payload size in words, can be 0
	Next    uint32 // unmasked next node address as stored in the node
}

// Reader iterates over the blocks of a single chain. A Reader is meant to be
// used for one traversal and then discarded.
type Reader struct {
	mem     Memory
	mask    uint32
	ceiling int

	cursor uint32
	steps  int
	reason StopReason

	// Addresses for the cheap loop check: the last visited node and the last
	// nodes that were visited below or above their predecessor.
	latest  uint32
	lower   uint32
	greater uint32

	// slow follows the chain at half speed.
	slow uint32
}

// New returns a reader that starts at the given address. A nil memory returns
// a reader that has already ended.
func New(mem Memory, start uint32) *Reader {
	r := &Reader{
		cursor:  start,
		latest:  EndOfChain,
		lower:   EndOfChain,
		greater: EndOfChain,
	}
	if region, ok := mem.(*ram.Region); mem == nil || (ok && region == nil) {
		r.end(NoMemory)
		return r
	}

	layout := mem.Layout()
	r.mem = mem
	r.mask = layout.AddressMask()
	r.ceiling = layout.IterationCeiling()
	r.slow = start & r.mask
	return r
}

// Advance reads the next node of the chain. It returns the address of the
// first payload word and the payload size in words. A size of 0 is valid, the
// pointer must not be dereferenced in that case. Once Advance returns false,
// all further calls return false.
func (r *Reader) Advance() (uint32, int, bool) {
	b, ok := r.Next()
	return b.Pointer, b.Size, ok
}

// Next reads the next node of the chain and returns it as block.
func (r *Reader) Next() (Block, bool) {
	if r.reason != Iterating {
		return Block{}, false
	}
	if r.cursor&addressBits == EndOfChain {
		r.end(EndReached)
		return Block{}, false
	}

	addr := r.cursor & r.mask

	r.steps++
	if r.steps > r.ceiling {
		r.end(CeilingExceeded)
		return Block{}, false
	}
	if r.revisits(addr) {
		r.end(LoopDetected)
		return Block{}, false
	}
	r.track(addr)

	header := r.mem.Load32(addr)
	r.cursor = header & addressBits

	return Block{
		Node:    addr,
		Pointer: addr + headerSize,
		Size:    int(header >> sizeShift),
		Next:    r.cursor,
	}, true
}

// Blocks returns an iterator over the remaining blocks of the chain.
func (r *Reader) Blocks() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		for {
			b, ok := r.Next()
			if !ok || !yield(b) {
				return
			}
		}
	}
}

// Steps returns the number of nodes that were visited, including a node that
// caused the traversal to be aborted.
func (r *Reader) Steps() int {
	return r.steps
}

// Ended returns whether the traversal is finished.
func (r *Reader) Ended() bool {
	return r.reason != Iterating
}

// Reason returns why the traversal ended, or Iterating.
func (r *Reader) Reason() StopReason {
	return r.reason
}

func (r *Reader) end(reason StopReason) {
	r.reason = reason
	r.cursor = EndOfChain
}

// revisits reports whether addr was seen before by one of the two loop
// heuristics. Neither of them detects every loop before the ceiling is hit.
func (r *Reader) revisits(addr uint32) bool {
	if addr == r.latest || addr == r.lower || addr == r.greater {
		return true
	}
	// on the first step the slow cursor is still on the start node
	return r.steps > 1 && addr == r.slow
}

func (r *Reader) track(addr uint32) {
	if addr < r.latest {
		r.lower = addr
	} else {
		r.greater = addr
	}
	r.latest = addr

	if r.steps&1 == 0 {
		r.slow = r.mem.Load32(r.slow) & addressBits & r.mask
	}
}
