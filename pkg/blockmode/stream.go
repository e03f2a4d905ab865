package blockmode

import (
	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/primitive"
)

// streamContext XORs data with keystream from a ring, asking the device
// for one more keystream block whenever the ring runs dry.
type streamContext struct {
	bs   int
	ring *keystream.Ring
}

func (s *streamContext) keyRing() *keystream.Ring { return s.ring }

func (s *streamContext) outputLen(r *request) (int, error) {
	return needOutput(r, len(r.src))
}

// drain XORs as much staged input as the ring covers.
func (s *streamContext) drain(hd *handle) {
	n := s.ring.XOR(hd.dst, hd.src)
	hd.dst = hd.dst[n:]
	hd.src = hd.src[n:]
	hd.processed += n
}

func (s *streamContext) nextFrom(hd *handle, g keyGenerator) (Direction, []byte, bool, error) {
	s.drain(hd)
	if len(hd.src) == 0 {
		return 0, nil, false, nil
	}
	in, err := g.seed()
	if err != nil {
		return 0, nil, false, err
	}
	return Encrypt, in, true, nil
}

type ofbContext struct {
	streamContext
	iv []byte
	fb [primitive.MaxBlockSize]byte
}

func (c *ofbContext) reset() {
	c.ring.Reset()
	copy(c.fb[:], c.iv)
}

func (c *ofbContext) seed() ([]byte, error) { return c.fb[:c.bs], nil }

func (c *ofbContext) store(ks []byte) error {
	if err := c.ring.Write(ks[:c.bs]); err != nil {
		return err
	}
	copy(c.fb[:c.bs], ks)
	return nil
}

func (c *ofbContext) next(hd *handle) (Direction, []byte, bool, error) {
	return c.nextFrom(hd, c)
}

func (c *ofbContext) complete(hd *handle, out []byte) error {
	return c.store(out)
}

type ctrContext struct {
	streamContext
	counter *keystream.Counter
}

func (c *ctrContext) reset() {
	c.ring.Reset()
	c.counter.Reset()
}

func (c *ctrContext) seed() ([]byte, error) {
	if c.counter.Expired() {
		return nil, ErrCtrCounterExpired
	}
	return c.counter.Block(), nil
}

func (c *ctrContext) store(ks []byte) error {
	if err := c.ring.Write(ks[:c.bs]); err != nil {
		return err
	}
	return c.counter.Increment()
}

func (c *ctrContext) next(hd *handle) (Direction, []byte, bool, error) {
	return c.nextFrom(hd, c)
}

func (c *ctrContext) complete(hd *handle, out []byte) error {
	return c.store(out)
}
