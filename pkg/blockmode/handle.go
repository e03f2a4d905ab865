package blockmode

import (
	"blockmode-go/pkg/padding"
	"blockmode-go/pkg/primitive"
)

type handle struct {
	id     Handle
	state  State
	err    error
	mode   Mode
	key    primitive.Key
	bs     int
	dev    Device
	loaded bool
	ctx    modeContext

	phase  phase
	resume phase

	// staged request
	dir       Direction
	src       []byte
	dst       []byte
	tagOut    []byte
	opts      Option
	bits      int // CFB1 bits left
	bitPos    int
	bitCall   bool
	blocks    int // keystream blocks left
	processed int

	out [primitive.MaxBlockSize]byte
}

func (hd *handle) clearRequest() {
	hd.src, hd.dst, hd.tagOut = nil, nil, nil
	hd.opts = 0
	hd.bits, hd.bitPos, hd.bitCall = 0, 0, false
	hd.blocks = 0
	hd.processed = 0
}

// emit writes p to the destination and advances it.
func (hd *handle) emit(p []byte) {
	n := copy(hd.dst, p)
	hd.dst = hd.dst[n:]
	hd.processed += n
}

// xorOut writes src[:n] ^ ks[:n] to the destination and advances both.
func (hd *handle) xorOut(ks []byte, n int) {
	for i := 0; i < n; i++ {
		hd.dst[i] = hd.src[i] ^ ks[i]
	}
	hd.dst = hd.dst[n:]
	hd.src = hd.src[n:]
	hd.processed += n
}

// finalPad reports whether a partial remainder must be padded and emitted
// now: an encrypting call that completes the stream with a padding scheme.
func (hd *handle) finalPad(buffered int) bool {
	return hd.dir == Encrypt &&
		hd.opts.Has(StreamComplete) &&
		hd.opts.Padding() != padding.None &&
		buffered > 0 &&
		len(hd.src) == 0
}

// request is a validated-but-not-yet-staged data call.
type request struct {
	dir     Direction
	dst     []byte
	src     []byte
	tag     []byte
	opts    Option
	bits    int
	bitCall bool
}
