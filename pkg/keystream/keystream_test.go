package keystream

import (
	"bytes"
	"errors"
	"testing"
)

func TestRingWrap(t *testing.T) {
	r := NewRing(make([]byte, 10))
	if err := r.Write([]byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := make([]byte, 6)
	if n := r.XOR(out, make([]byte, 6)); n != 6 {
		t.Fatalf("expected to consume 6 bytes, got %d", n)
	}
	if !bytes.Equal(out, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected keystream %v", out)
	}

	// tail is at 8; writing 8 more wraps around the end
	if err := r.Write([]byte{9, 10, 11, 12, 13, 14, 15, 16}); err != nil {
		t.Fatalf("wrapping Write failed: %v", err)
	}
	if r.Len() != 10 || r.Free() != 0 {
		t.Fatalf("expected full ring, len=%d free=%d", r.Len(), r.Free())
	}

	out = make([]byte, 10)
	src := bytes.Repeat([]byte{0xff}, 10)
	if n := r.XOR(out, src); n != 10 {
		t.Fatalf("expected 10 bytes, got %d", n)
	}
	for i, b := range out {
		if b != byte(7+i)^0xff {
			t.Fatalf("byte %d: got %d", i, b^0xff)
		}
	}
}

func TestRingOutOfSpaceKeepsContents(t *testing.T) {
	r := NewRing(make([]byte, 32))
	_ = r.Write(bytes.Repeat([]byte{0xaa}, 16))
	if err := r.Write(make([]byte, 32)); !errors.Is(err, ErrOutOfSpace) {
		t.Fatalf("expected ErrOutOfSpace, got %v", err)
	}
	peek := make([]byte, 32)
	if n := r.Peek(peek); n != 16 || !bytes.Equal(peek[:16], bytes.Repeat([]byte{0xaa}, 16)) {
		t.Fatalf("existing keystream disturbed: n=%d %x", n, peek)
	}
}

func TestCounterWindow(t *testing.T) {
	initial := []byte{0xde, 0xad, 0xbe, 0xef, 0xff, 0xff, 0xff, 0xfe}
	c, err := NewCounter(initial, Width32)
	if err != nil {
		t.Fatalf("NewCounter: %v", err)
	}
	if err := c.Increment(); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if c.Expired() {
		t.Fatalf("counter expired too early")
	}
	if err := c.Increment(); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if !c.Expired() {
		t.Fatalf("window overflow should expire the counter")
	}
	if !bytes.Equal(c.Block()[:4], []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Fatalf("nonce bytes were modified: %x", c.Block())
	}
	if err := c.Increment(); !errors.Is(err, ErrCounterExpired) {
		t.Fatalf("expected ErrCounterExpired, got %v", err)
	}

	c.Reset()
	if c.Expired() || !bytes.Equal(c.Block(), initial) {
		t.Fatalf("Reset should restore the initial block")
	}
}

func TestCounterCarry(t *testing.T) {
	c, _ := NewCounter([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, Width128)
	_ = c.Increment()
	want := []byte{0, 0, 0, 0, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0}
	if !bytes.Equal(c.Block(), want) || c.Expired() {
		t.Fatalf("128-bit carry: got %x", c.Block())
	}

	c, _ = NewCounter([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, Width64)
	_ = c.Increment()
	if !c.Expired() {
		t.Fatalf("64-bit window should overflow")
	}
}
