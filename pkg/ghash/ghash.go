// Package ghash implements the GCM authenticator: multiplication in
// GF(2^128) and the streaming GHASH accumulator built on it.
package ghash

import (
	"encoding/binary"
)

// BlockSize is the GHASH block size. GCM is only defined for 128-bit ciphers.
const BlockSize = 16

// Multiply returns x·y in GF(2^128) with the GCM bit order and the reduction
// polynomial x^128 + x^7 + x^2 + x + 1.
//
// It walks the 128 bits of x from the most significant bit of x[0]; for every
// set bit the shifted copy of y is added to the product, then the copy is
// shifted right one bit and reduced with R = 0xE1 || 0^120 when a bit falls
// off the end.
func Multiply(x, y *[BlockSize]byte) [BlockSize]byte {
	vh := binary.BigEndian.Uint64(y[:8])
	vl := binary.BigEndian.Uint64(y[8:])
	var zh, zl uint64

	for i := 0; i < BlockSize; i++ {
		b := x[i]
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				zh ^= vh
				zl ^= vl
			}
			lsb := vl & 1
			vl = vl>>1 | vh<<63
			vh >>= 1
			if lsb != 0 {
				vh ^= 0xe1 << 56
			}
		}
	}

	var out [BlockSize]byte
	binary.BigEndian.PutUint64(out[:8], zh)
	binary.BigEndian.PutUint64(out[8:], zl)
	return out
}

// Hash is a streaming GHASH under a fixed subkey H. Input is gathered in a
// one-block buffer; every full block is folded into the running value.
type Hash struct {
	h   [BlockSize]byte
	y   [BlockSize]byte
	buf [BlockSize]byte
	n   int
}

// New returns a Hash for the subkey h = E_K(0^128).
func New(subkey []byte) *Hash {
	g := &Hash{}
	copy(g.h[:], subkey)
	return g
}

// Reset clears the running value and the partial block, keeping H.
func (g *Hash) Reset() {
	g.y = [BlockSize]byte{}
	g.buf = [BlockSize]byte{}
	g.n = 0
}

// Buffered returns the number of bytes waiting for a full block.
func (g *Hash) Buffered() int { return g.n }

// Write absorbs p. It never fails.
func (g *Hash) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		c := copy(g.buf[g.n:], p)
		g.n += c
		p = p[c:]
		if g.n == BlockSize {
			g.block()
		}
	}
	return total, nil
}

// Flush zero-pads and folds a pending partial block. It does nothing when no
// bytes are buffered.
func (g *Hash) Flush() {
	if g.n == 0 {
		return
	}
	clear(g.buf[g.n:])
	g.block()
}

// WriteLengths flushes and then folds the final block holding the bit
// lengths of the authenticated data and of the ciphertext, both given in bytes.
func (g *Hash) WriteLengths(aadBytes, ctBytes uint64) {
	g.Flush()
	binary.BigEndian.PutUint64(g.buf[:8], aadBytes*8)
	binary.BigEndian.PutUint64(g.buf[8:], ctBytes*8)
	g.n = BlockSize
	g.block()
}

// Sum returns the running value. Pending partial input is not included.
func (g *Hash) Sum() [BlockSize]byte { return g.y }

func (g *Hash) block() {
	for i := range g.y {
		g.y[i] ^= g.buf[i]
	}
	g.y = Multiply(&g.y, &g.h)
	g.n = 0
}

// DeriveCounter computes the pre-counter block J0 for an IV. A 96-bit IV is
// used directly as IV || 0^31 || 1; any other length is hashed together with
// its bit length. g is left reset.
func DeriveCounter(g *Hash, iv []byte) [BlockSize]byte {
	var j0 [BlockSize]byte
	if len(iv) == 12 {
		copy(j0[:], iv)
		j0[BlockSize-1] = 1
		return j0
	}
	g.Reset()
	g.Write(iv)
	g.Flush()
	var lens [BlockSize]byte
	binary.BigEndian.PutUint64(lens[8:], uint64(len(iv))*8)
	g.Write(lens[:])
	j0 = g.Sum()
	g.Reset()
	return j0
}
