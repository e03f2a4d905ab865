// Package keystream holds precomputed cipher output for the stream modes.
package keystream

import "errors"

var ErrOutOfSpace = errors.New("key stream buffer out of space")

// Ring is a byte ring over caller-owned storage. Blocks are written at the
// tail and consumed byte by byte from the head.
type Ring struct {
	buf  []byte
	head int // next byte to consume
	n    int // bytes available
}

// NewRing wraps buf. The ring never allocates; its capacity is len(buf).
func NewRing(buf []byte) *Ring {
	return &Ring{buf: buf}
}

func (r *Ring) Cap() int  { return len(r.buf) }
func (r *Ring) Len() int  { return r.n }
func (r *Ring) Free() int { return len(r.buf) - r.n }

// Reset discards any buffered keystream.
func (r *Ring) Reset() {
	r.head = 0
	r.n = 0
}

// Write appends p at the tail, wrapping at the end of the storage. It fails
// without writing anything if p does not fit.
func (r *Ring) Write(p []byte) error {
	if len(p) > r.Free() {
		return ErrOutOfSpace
	}
	tail := r.head + r.n
	if tail >= len(r.buf) {
		tail -= len(r.buf)
	}
	c := copy(r.buf[tail:], p)
	copy(r.buf, p[c:])
	r.n += len(p)
	return nil
}

// XOR sets dst[i] = src[i] ^ keystream for as many bytes as are buffered and
// fit in src, consuming them. It returns the number of bytes processed.
func (r *Ring) XOR(dst, src []byte) int {
	total := 0
	for len(src) > 0 && r.n > 0 {
		run := len(r.buf) - r.head
		if run > r.n {
			run = r.n
		}
		if run > len(src) {
			run = len(src)
		}
		ks := r.buf[r.head : r.head+run]
		for i := range ks {
			dst[i] = src[i] ^ ks[i]
		}
		r.head += run
		if r.head == len(r.buf) {
			r.head = 0
		}
		r.n -= run
		total += run
		dst = dst[run:]
		src = src[run:]
	}
	return total
}

// Peek copies up to len(p) buffered bytes into p without consuming them.
func (r *Ring) Peek(p []byte) int {
	total := 0
	head, n := r.head, r.n
	for len(p) > 0 && n > 0 {
		run := len(r.buf) - head
		if run > n {
			run = n
		}
		c := copy(p, r.buf[head:head+run])
		head = (head + c) % len(r.buf)
		n -= c
		total += c
		p = p[c:]
	}
	return total
}
