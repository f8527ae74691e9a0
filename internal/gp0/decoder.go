package gp0

// Decoder assembles GP0 words into complete command packets.
type Decoder struct {
	words     []uint32
	kind      Kind
	remaining int // words missing for the minimum packet length

	// a CPU to VRAM copy is extended by its pixel data once the size is known
	awaitingSize bool

	// polyline state, a polyline is open until the terminator word arrives
	minLength  int
	vertexLen  int
	terminated bool
}

// NewDecoder returns a decoder that waits for a command word.
func NewDecoder() *Decoder {
	return &Decoder{
		words: make([]uint32, 0, maxPacketWords),
	}
}

// Pending returns whether a partially received packet is buffered.
func (d *Decoder) Pending() bool {
	return len(d.words) > 0
}

// Reset drops a partially received packet.
func (d *Decoder) Reset() {
	d.words = d.words[:0]
	d.remaining = 0
	d.minLength = 0
	d.terminated = false
	d.awaitingSize = false
}

// Push adds a word. It returns the command when the word completes a packet.
func (d *Decoder) Push(word uint32) (Command, bool) {
	if len(d.words) == 0 {
		d.start(word)
	} else {
		d.words = append(d.words, word)
		d.next(word)
	}

	if d.remaining > 0 || (d.kind == PolyLine && !d.terminated) {
		return Command{}, false
	}

	cmd := Command{
		Opcode: byte(d.words[0] >> 24),
		Kind:   d.kind,
		Words:  append([]uint32(nil), d.words...),
	}
	d.Reset()
	return cmd, true
}

func (d *Decoder) start(word uint32) {
	opcode := byte(word >> 24)
	kind, length := layout(opcode)

	d.words = append(d.words, word)
	d.kind = kind
	d.remaining = length - 1

	switch kind {
	case CopyCPUToVRAM:
		d.awaitingSize = true
	case PolyLine:
		d.minLength = length
		d.vertexLen = 1
		if opcode&lineGouraud != 0 {
			d.vertexLen = 2
		}
	default:
	}
}

func (d *Decoder) next(word uint32) {
	switch {
	case d.kind == PolyLine && d.remaining == 0:
		// past the first two vertices every vertex start can be the terminator
		extra := len(d.words) - d.minLength
		if (extra-1)%d.vertexLen == 0 && word&polyLineTerminatorMask == polyLineTerminator {
			d.terminated = true
		}

	case d.awaitingSize && d.remaining == 1:
		// last header word holds the size of the pixel data that follows
		d.awaitingSize = false
		d.remaining = imageDataWords(word)

	default:
		d.remaining--
	}
}
