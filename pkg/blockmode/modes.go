package blockmode

import (
	"fmt"

	"blockmode-go/internal/fn"
	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/padding"
	"blockmode-go/pkg/primitive"
)

// modeContext is the per-mode state a handle carries between calls.
type modeContext interface {
	// reset drops buffered bytes and rewinds chaining state to the IV.
	reset()
	// outputLen validates r and returns how many bytes it will write.
	outputLen(r *request) (int, error)
	// next returns the next block for the device, doing any work that
	// needs no device on the way. ok is false when the staged input is used up.
	next(hd *handle) (dir Direction, in []byte, ok bool, err error)
	// complete consumes the device output for the block next returned.
	complete(hd *handle, out []byte) error
}

// keyGenerator is implemented by the modes that precompute keystream.
type keyGenerator interface {
	keyRing() *keystream.Ring
	// seed returns the block to encrypt for the next keystream block.
	seed() ([]byte, error)
	// store appends a keystream block and advances the generator.
	store(ks []byte) error
}

func newModeContext(p Params, bs, ksBlocks int) (modeContext, error) {
	needIV := func() error {
		if len(p.IV) != bs {
			return fmt.Errorf("%w: %s needs a %d-byte IV, got %d", ErrInvalidParameter, p.Mode, bs, len(p.IV))
		}
		return nil
	}
	ring := func() (*keystream.Ring, error) {
		buf := p.KeyStream
		if buf == nil {
			buf = make([]byte, ksBlocks*bs)
		}
		if len(buf) < bs {
			return nil, fmt.Errorf("%w: keystream storage of %d bytes is smaller than a block", ErrInvalidParameter, len(buf))
		}
		return keystream.NewRing(buf), nil
	}

	switch p.Mode {
	case ModeECB:
		return &ecbContext{blockBuffer: blockBuffer{bs: bs}}, nil
	case ModeCBC:
		if err := needIV(); err != nil {
			return nil, err
		}
		c := &cbcContext{blockBuffer: blockBuffer{bs: bs}, iv: clone(p.IV)}
		c.reset()
		return c, nil
	case ModeCFB:
		if err := needIV(); err != nil {
			return nil, err
		}
		c := &cfbContext{bs: bs, iv: clone(p.IV)}
		c.reset()
		return c, nil
	case ModeCFB8:
		if err := needIV(); err != nil {
			return nil, err
		}
		c := &cfb8Context{bs: bs, iv: clone(p.IV)}
		c.reset()
		return c, nil
	case ModeCFB1:
		if err := needIV(); err != nil {
			return nil, err
		}
		c := &cfb1Context{bs: bs, iv: clone(p.IV)}
		c.reset()
		return c, nil
	case ModeOFB:
		if err := needIV(); err != nil {
			return nil, err
		}
		r, err := ring()
		if err != nil {
			return nil, err
		}
		c := &ofbContext{streamContext: streamContext{bs: bs, ring: r}, iv: clone(p.IV)}
		c.reset()
		return c, nil
	case ModeCTR:
		if err := needIV(); err != nil {
			return nil, err
		}
		r, err := ring()
		if err != nil {
			return nil, err
		}
		ctr, err := keystream.NewCounter(p.IV, fn.T(p.CounterWidth == 0, keystream.Width128, p.CounterWidth))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameter, err)
		}
		return &ctrContext{streamContext: streamContext{bs: bs, ring: r}, counter: ctr}, nil
	case ModeGCM:
		if bs != 16 {
			return nil, fmt.Errorf("%w: GCM needs a 128-bit block cipher", ErrInvalidFunction)
		}
		if len(p.IV) == 0 {
			return nil, fmt.Errorf("%w: GCM needs a non-empty IV", ErrInvalidParameter)
		}
		r, err := ring()
		if err != nil {
			return nil, err
		}
		return &gcmContext{streamContext: streamContext{bs: bs, ring: r}, iv: clone(p.IV)}, nil
	}
	return nil, fmt.Errorf("%w: unsupported mode %s", ErrInvalidParameter, p.Mode)
}

func clone(b []byte) []byte { return append([]byte(nil), b...) }

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

func needOutput(r *request, n int) (int, error) {
	if len(r.dst) < n {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, len(r.dst))
	}
	return n, nil
}

// blockBuffer gathers input into whole blocks for ECB and CBC.
type blockBuffer struct {
	bs  int
	buf [primitive.MaxBlockSize]byte
	n   int
}

// gather moves source bytes into the buffer. It reports whether a whole
// block is ready, padding the remainder on the final encrypting call.
func (b *blockBuffer) gather(hd *handle) bool {
	c := copy(b.buf[b.n:b.bs], hd.src)
	b.n += c
	hd.src = hd.src[c:]
	if b.n == b.bs {
		return true
	}
	if hd.finalPad(b.n) {
		padding.Insert(b.buf[:b.bs], b.n, hd.opts.Padding())
		b.n = b.bs
		return true
	}
	return false
}

func (b *blockBuffer) outputLen(r *request) (int, error) {
	total := fn.T(r.opts.Has(StreamStart), 0, b.n) + len(r.src)
	out := fn.RoundDown(total, b.bs)
	if r.dir == Encrypt && r.opts.Has(StreamComplete) && r.opts.Padding() != padding.None {
		out = fn.RoundUp(total, b.bs)
	}
	return needOutput(r, out)
}

// buffered returns the bytes held back waiting for a whole block.
func (b *blockBuffer) buffered() int { return b.n }

type ecbContext struct {
	blockBuffer
}

func (c *ecbContext) reset() { c.n = 0 }

func (c *ecbContext) next(hd *handle) (Direction, []byte, bool, error) {
	if !c.gather(hd) {
		return 0, nil, false, nil
	}
	return hd.dir, c.buf[:c.bs], true, nil
}

func (c *ecbContext) complete(hd *handle, out []byte) error {
	hd.emit(out[:c.bs])
	c.n = 0
	return nil
}

type cbcContext struct {
	blockBuffer
	iv   []byte
	prev [primitive.MaxBlockSize]byte
	in   [primitive.MaxBlockSize]byte
}

func (c *cbcContext) reset() {
	c.n = 0
	copy(c.prev[:], c.iv)
}

func (c *cbcContext) next(hd *handle) (Direction, []byte, bool, error) {
	if !c.gather(hd) {
		return 0, nil, false, nil
	}
	if hd.dir == Encrypt {
		xorBytes(c.in[:c.bs], c.buf[:c.bs], c.prev[:c.bs])
	} else {
		copy(c.in[:c.bs], c.buf[:c.bs])
	}
	return hd.dir, c.in[:c.bs], true, nil
}

func (c *cbcContext) complete(hd *handle, out []byte) error {
	bs := c.bs
	if hd.dir == Encrypt {
		hd.emit(out[:bs])
		copy(c.prev[:bs], out[:bs])
	} else {
		var pt [primitive.MaxBlockSize]byte
		xorBytes(pt[:bs], out[:bs], c.prev[:bs])
		hd.emit(pt[:bs])
		copy(c.prev[:bs], c.in[:bs])
	}
	c.n = 0
	return nil
}
