package blockmode

import (
	"fmt"

	"blockmode-go/internal/fn"
)

// Encrypt enciphers src into dst. On the software engine it returns the
// number of bytes written. On the hardware engine it only stages the call
// and returns 0; read Processed once Wait returns.
//
// ECB and CBC hold back a partial block until a later call fills it or a
// StreamComplete call pads it.
func (e *Engine) Encrypt(h Handle, dst, src []byte, opts Option) (int, error) {
	return e.submit(h, &request{dir: Encrypt, dst: dst, src: src, opts: opts})
}

// Decrypt is the inverse of Encrypt. Padding is never removed; see
// padding.Strip.
func (e *Engine) Decrypt(h Handle, dst, src []byte, opts Option) (int, error) {
	return e.submit(h, &request{dir: Decrypt, dst: dst, src: src, opts: opts})
}

// EncryptGCM is Encrypt for GCM handles. On StreamComplete the tag,
// truncated to len(tag), is written to tag; a nil tag leaves it to Tag.
func (e *Engine) EncryptGCM(h Handle, dst, src, tag []byte, opts Option) (int, error) {
	if err := e.expectMode(h, ModeGCM); err != nil {
		return 0, err
	}
	return e.submit(h, &request{dir: Encrypt, dst: dst, src: src, tag: tag, opts: opts})
}

// DecryptGCM is Decrypt for GCM handles. On StreamComplete tag holds the
// expected tag and a mismatch fails with ErrInvalidAuthentication.
// Plaintext of earlier calls, and of this one, has already been written to
// dst when the tag is checked.
func (e *Engine) DecryptGCM(h Handle, dst, src, tag []byte, opts Option) (int, error) {
	if err := e.expectMode(h, ModeGCM); err != nil {
		return 0, err
	}
	return e.submit(h, &request{dir: Decrypt, dst: dst, src: src, tag: tag, opts: opts})
}

// EncryptBits enciphers the first bits bits of src on a CFB1 handle. The
// unused low bits of a final partial output byte are zero. The count
// returned, and Processed, are in bits.
func (e *Engine) EncryptBits(h Handle, dst, src []byte, bits int, opts Option) (int, error) {
	if err := e.expectMode(h, ModeCFB1); err != nil {
		return 0, err
	}
	return e.submit(h, &request{dir: Encrypt, dst: dst, src: src, bits: bits, bitCall: true, opts: opts})
}

func (e *Engine) DecryptBits(h Handle, dst, src []byte, bits int, opts Option) (int, error) {
	if err := e.expectMode(h, ModeCFB1); err != nil {
		return 0, err
	}
	return e.submit(h, &request{dir: Decrypt, dst: dst, src: src, bits: bits, bitCall: true, opts: opts})
}

// KeyStreamGenerate precomputes numBlocks keystream blocks for an OFB, CTR
// or GCM handle. It fails with ErrKeyStreamOutOfSpace, without touching the
// buffered keystream, when the ring cannot take them all.
func (e *Engine) KeyStreamGenerate(h Handle, numBlocks int, opts Option) error {
	hd, err := e.ready(h)
	if err != nil {
		return err
	}
	g, ok := hd.ctx.(keyGenerator)
	if !ok {
		return fmt.Errorf("%w: %s has no key stream", ErrInvalidParameter, hd.mode)
	}
	if numBlocks < 0 {
		return fmt.Errorf("%w: negative block count", ErrInvalidParameter)
	}
	if gc, ok := hd.ctx.(*gcmContext); ok && !gc.ready {
		return fmt.Errorf("%w: hash subkey not computed", ErrInvalidParameter)
	}

	ring := g.keyRing()
	restart := opts.Has(StreamStart) && hd.mode != ModeGCM
	free := fn.T(restart, ring.Cap(), ring.Free())
	if numBlocks > free/hd.bs {
		return fmt.Errorf("%w: %d blocks requested, room for %d", ErrKeyStreamOutOfSpace, numBlocks, free/hd.bs)
	}

	e.applyOptions(hd, opts)
	if restart {
		hd.ctx.reset()
	}
	if _, err := g.seed(); err != nil {
		e.fail(hd, err)
		return err
	}

	hd.clearRequest()
	hd.opts = opts
	hd.blocks = numBlocks
	e.stage(hd, phaseGenerateKeystream)
	return e.dispatch(hd)
}

func (e *Engine) expectMode(h Handle, m Mode) error {
	hd, err := e.lookup(h)
	if err != nil {
		return err
	}
	if hd.state != StateOpen && hd.mode != m {
		return fmt.Errorf("%w: call needs a %s handle, have %s", ErrInvalidParameter, m, hd.mode)
	}
	return nil
}

// ready returns the handle if it can accept a new operation.
func (e *Engine) ready(h Handle) (*handle, error) {
	hd, err := e.lookup(h)
	if err != nil {
		return nil, err
	}
	switch hd.state {
	case StateIdle:
		return hd, nil
	case StateOpen:
		return nil, fmt.Errorf("%w: %d is not initialized", ErrInvalidHandle, h)
	case StateError:
		return nil, fmt.Errorf("%w: handle in error state: %v", ErrBusy, hd.err)
	}
	return nil, ErrBusy
}

func (e *Engine) applyOptions(hd *handle, opts Option) {
	if c, ok := hd.ctx.(*ctrContext); ok {
		if w := opts.CounterWidth(); w != 0 {
			c.counter.SetWidth(w)
		}
	}
}

func (e *Engine) submit(h Handle, r *request) (int, error) {
	hd, err := e.ready(h)
	if err != nil {
		return 0, err
	}
	if r.bitCall && r.bits < 0 {
		return 0, fmt.Errorf("%w: negative bit count", ErrInvalidParameter)
	}
	if _, err := hd.ctx.outputLen(r); err != nil {
		return 0, err
	}

	e.applyOptions(hd, r.opts)
	if r.opts.Has(StreamStart) {
		hd.ctx.reset()
	}

	hd.clearRequest()
	hd.dir = r.dir
	hd.src = r.src
	hd.dst = r.dst
	hd.tagOut = r.tag
	hd.opts = r.opts
	hd.bitCall = r.bitCall
	if hd.mode == ModeCFB1 {
		hd.bits = fn.T(r.bitCall, r.bits, 8*len(r.src))
	}

	e.stage(hd, phaseProcessData)
	if err := e.dispatch(hd); err != nil {
		return hd.processed, err
	}
	if e.hw != nil {
		return 0, nil
	}
	return hd.processed, nil
}
