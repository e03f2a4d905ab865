package keystream

import (
	"errors"
	"fmt"
)

var ErrCounterExpired = errors.New("counter expired")

// Width is the size of the counter field, counted from the last byte of the
// counter block. Bytes above the window are nonce and never change.
type Width int

const (
	Width32  Width = 32
	Width64  Width = 64
	Width128 Width = 128
)

// Counter is a counter block whose low Width bits increment.
type Counter struct {
	block   []byte
	initial []byte
	width   Width
	expired bool
}

// NewCounter copies initial into a new counter of the given width.
func NewCounter(initial []byte, width Width) (*Counter, error) {
	if width != Width32 && width != Width64 && width != Width128 {
		return nil, fmt.Errorf("unsupported counter width %d", width)
	}
	if int(width)/8 > len(initial) {
		width = Width(len(initial) * 8)
	}
	c := &Counter{
		block:   append([]byte(nil), initial...),
		initial: append([]byte(nil), initial...),
		width:   width,
	}
	return c, nil
}

// Block returns the current counter block. Callers must not modify it.
func (c *Counter) Block() []byte { return c.block }

func (c *Counter) Width() Width { return c.width }

// SetWidth changes the counter window; it does not alter the block.
func (c *Counter) SetWidth(w Width) {
	if int(w)/8 > len(c.block) {
		w = Width(len(c.block) * 8)
	}
	c.width = w
}

// Expired reports whether the counter window has run out. A window that
// wraps is about to revisit values already used under this key, starting with
// the initial block once 2^width increments have happened, so the counter stays
// expired until Reset.
func (c *Counter) Expired() bool {
	return c.expired
}

// Increment advances the counter window by one. Overflow of the window marks
// the counter expired instead of carrying into the nonce bytes.
func (c *Counter) Increment() error {
	if c.expired {
		return ErrCounterExpired
	}
	lo := len(c.block) - int(c.width)/8
	for i := len(c.block) - 1; i >= lo; i-- {
		c.block[i]++
		if c.block[i] != 0 {
			return nil
		}
	}
	c.expired = true
	return nil
}

// Reset returns the counter to its initial block.
func (c *Counter) Reset() {
	copy(c.block, c.initial)
	c.expired = false
}

// Rebase replaces both the current and the initial block.
func (c *Counter) Rebase(initial []byte) {
	copy(c.initial, initial)
	c.Reset()
}
