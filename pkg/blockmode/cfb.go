package blockmode

import (
	"fmt"

	"blockmode-go/internal/fn"
	"blockmode-go/pkg/primitive"
)

// cfbContext is full-block CFB with byte granularity. reg is filled with
// ciphertext as keystream bytes are used, so once a block is used up it
// holds the input of the next primitive call.
type cfbContext struct {
	bs  int
	iv  []byte
	reg [primitive.MaxBlockSize]byte
	ks  [primitive.MaxBlockSize]byte
	pos int
}

func (c *cfbContext) reset() {
	copy(c.reg[:], c.iv)
	c.pos = c.bs
}

func (c *cfbContext) outputLen(r *request) (int, error) {
	return needOutput(r, len(r.src))
}

func (c *cfbContext) next(hd *handle) (Direction, []byte, bool, error) {
	for len(hd.src) > 0 && c.pos < c.bs {
		in := hd.src[0]
		out := in ^ c.ks[c.pos]
		c.reg[c.pos] = fn.T(hd.dir == Encrypt, out, in)
		c.pos++
		hd.xorOut(c.ks[c.pos-1:c.pos], 1)
	}
	if len(hd.src) == 0 {
		return 0, nil, false, nil
	}
	return Encrypt, c.reg[:c.bs], true, nil
}

func (c *cfbContext) complete(hd *handle, out []byte) error {
	copy(c.ks[:c.bs], out)
	c.pos = 0
	return nil
}

// cfb8Context shifts the register by one byte per primitive call.
type cfb8Context struct {
	bs  int
	iv  []byte
	reg [primitive.MaxBlockSize]byte
}

func (c *cfb8Context) reset() { copy(c.reg[:], c.iv) }

func (c *cfb8Context) outputLen(r *request) (int, error) {
	return needOutput(r, len(r.src))
}

func (c *cfb8Context) next(hd *handle) (Direction, []byte, bool, error) {
	if len(hd.src) == 0 {
		return 0, nil, false, nil
	}
	return Encrypt, c.reg[:c.bs], true, nil
}

func (c *cfb8Context) complete(hd *handle, out []byte) error {
	in := hd.src[0]
	fb := fn.T(hd.dir == Encrypt, in^out[0], in)
	copy(c.reg[:c.bs-1], c.reg[1:c.bs])
	c.reg[c.bs-1] = fb
	hd.xorOut(out[:1], 1)
	return nil
}

// cfb1Context processes one bit per primitive call, most significant bit
// of each byte first.
type cfb1Context struct {
	bs  int
	iv  []byte
	reg [primitive.MaxBlockSize]byte
	acc byte // output bits of the current byte
}

func (c *cfb1Context) reset() {
	copy(c.reg[:], c.iv)
	c.acc = 0
}

func (c *cfb1Context) outputLen(r *request) (int, error) {
	bits := r.bits
	if !r.bitCall {
		bits = 8 * len(r.src)
	}
	n := (bits + 7) / 8
	if len(r.src) < n {
		return 0, fmt.Errorf("%w: %d bits need %d source bytes, have %d", ErrInvalidParameter, bits, n, len(r.src))
	}
	return needOutput(r, n)
}

func (c *cfb1Context) next(hd *handle) (Direction, []byte, bool, error) {
	if hd.bits == 0 {
		return 0, nil, false, nil
	}
	return Encrypt, c.reg[:c.bs], true, nil
}

func (c *cfb1Context) complete(hd *handle, out []byte) error {
	i := hd.bitPos
	shift := uint(7 - i%8)
	in := hd.src[i/8] >> shift & 1
	o := in ^ out[0]>>7

	fb := fn.T(hd.dir == Encrypt, o, in)
	for j := 0; j < c.bs-1; j++ {
		c.reg[j] = c.reg[j]<<1 | c.reg[j+1]>>7
	}
	c.reg[c.bs-1] = c.reg[c.bs-1]<<1 | fb

	// the source byte may be the destination byte, so write it whole
	c.acc |= o << shift
	hd.bitPos++
	hd.bits--
	if shift == 0 || hd.bits == 0 {
		hd.dst[i/8] = c.acc
		c.acc = 0
	}
	if hd.bitCall || hd.bitPos%8 == 0 {
		hd.processed++
	}
	return nil
}
