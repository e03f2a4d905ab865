package blockmode

import (
	"crypto/subtle"
	"fmt"

	"blockmode-go/pkg/ghash"
	"blockmode-go/pkg/keystream"
)

const (
	gcmMinTag = 4
	gcmMaxTag = ghash.BlockSize
)

// gcmContext is CTR keystream over inc32(J0) plus a GHASH of the
// authenticated data and the ciphertext.
type gcmContext struct {
	streamContext
	iv      []byte
	counter *keystream.Counter
	hash    *ghash.Hash
	j0      [ghash.BlockSize]byte

	aadLen        uint64
	ctLen         uint64
	authCompleted bool

	ready    bool
	finished bool
	tag      [ghash.BlockSize]byte
	tagReady bool
}

// reset is a no-op: restarting a GCM stream needs a new IV and therefore
// Initialize.
func (c *gcmContext) reset() {}

func (c *gcmContext) outputLen(r *request) (int, error) {
	if !c.ready {
		return 0, fmt.Errorf("%w: hash subkey not computed", ErrInvalidParameter)
	}
	if c.finished {
		return 0, fmt.Errorf("%w: GCM stream already completed, initialize with a new IV", ErrInvalidParameter)
	}
	if r.opts.Has(StreamComplete) {
		if r.dir == Decrypt && r.tag == nil {
			return 0, fmt.Errorf("%w: decryption needs the expected tag", ErrInvalidParameter)
		}
		if r.tag != nil && (len(r.tag) < gcmMinTag || len(r.tag) > gcmMaxTag) {
			return 0, fmt.Errorf("%w: tag length %d outside %d..%d", ErrInvalidParameter, len(r.tag), gcmMinTag, gcmMaxTag)
		}
	}
	if r.opts.Has(AuthenticateOnly) {
		if c.authCompleted {
			return 0, ErrAuthenticationOrder
		}
		return 0, nil
	}
	return needOutput(r, len(r.src))
}

// prepare runs once per call before any block is processed.
func (c *gcmContext) prepare(hd *handle) error {
	if hd.opts.Has(AuthenticateOnly) {
		c.hash.Write(hd.src)
		c.aadLen += uint64(len(hd.src))
		hd.src = nil
		return nil
	}
	if !c.authCompleted {
		c.hash.Flush()
		c.authCompleted = true
	}
	return nil
}

func (c *gcmContext) seed() ([]byte, error) {
	if c.counter.Expired() {
		return nil, ErrCtrCounterExpired
	}
	return c.counter.Block(), nil
}

func (c *gcmContext) store(ks []byte) error {
	if err := c.ring.Write(ks[:c.bs]); err != nil {
		return err
	}
	return c.counter.Increment()
}

func (c *gcmContext) next(hd *handle) (Direction, []byte, bool, error) {
	n := min(c.ring.Len(), len(hd.src))
	if hd.dir == Decrypt {
		c.hash.Write(hd.src[:n])
	}
	out := hd.dst[:n]
	c.drain(hd)
	if hd.dir == Encrypt {
		c.hash.Write(out)
	}
	c.ctLen += uint64(n)

	if len(hd.src) == 0 {
		return 0, nil, false, nil
	}
	in, err := c.seed()
	if err != nil {
		return 0, nil, false, err
	}
	return Encrypt, in, true, nil
}

func (c *gcmContext) complete(hd *handle, out []byte) error {
	return c.store(out)
}

// setSubkey takes H = E(0^128) and derives J0 and the working counter.
func (c *gcmContext) setSubkey(h []byte) error {
	c.hash = ghash.New(h[:ghash.BlockSize])
	c.j0 = ghash.DeriveCounter(c.hash, c.iv)
	ctr, err := keystream.NewCounter(c.j0[:], keystream.Width32)
	if err != nil {
		return err
	}
	if err := ctr.Increment(); err != nil {
		return err
	}
	ctr.Rebase(ctr.Block())
	c.counter = ctr
	c.ring.Reset()
	c.aadLen, c.ctLen = 0, 0
	c.authCompleted = false
	c.finished, c.tagReady = false, false
	c.ready = true
	return nil
}

// tagInput closes the hash with the length block and returns J0, whose
// encryption masks the tag.
func (c *gcmContext) tagInput() []byte {
	c.hash.WriteLengths(c.aadLen, c.ctLen)
	return c.j0[:]
}

func (c *gcmContext) finishTag(hd *handle, ej0 []byte) error {
	s := c.hash.Sum()
	xorBytes(c.tag[:], ej0[:ghash.BlockSize], s[:])
	c.tagReady = true
	c.finished = true

	if hd.dir == Encrypt {
		copy(hd.tagOut, c.tag[:])
		return nil
	}
	if subtle.ConstantTimeCompare(c.tag[:len(hd.tagOut)], hd.tagOut) != 1 {
		return ErrInvalidAuthentication
	}
	return nil
}
