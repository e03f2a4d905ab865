// Package padding fills the unused tail of a final partial block.
package padding

import (
	"errors"
	"fmt"
)

var ErrInvalidPadding = errors.New("invalid padding")

type Scheme uint8

const (
	// None leaves the tail untouched.
	None Scheme = iota
	// Nulls fills the tail with zero bytes.
	Nulls
	// Pad8000 writes 0x80 followed by zero bytes.
	Pad8000
	// Number sets every pad byte to the pad length.
	Number
)

func (s Scheme) String() string {
	switch s {
	case None:
		return "none"
	case Nulls:
		return "nulls"
	case Pad8000:
		return "8000"
	case Number:
		return "number"
	}
	return fmt.Sprintf("Scheme(%d)", uint8(s))
}

// Parse maps a scheme name back to a Scheme.
func Parse(name string) (Scheme, error) {
	switch name {
	case "none", "":
		return None, nil
	case "nulls", "null", "zero":
		return Nulls, nil
	case "8000", "iso7816":
		return Pad8000, nil
	case "number", "pkcs7":
		return Number, nil
	}
	return None, fmt.Errorf("unknown padding scheme %q", name)
}

// Insert pads block[filled:] in place. filled must be smaller than
// len(block); a full block never takes padding.
func Insert(block []byte, filled int, s Scheme) {
	if filled >= len(block) {
		return
	}
	tail := block[filled:]
	switch s {
	case Nulls:
		clear(tail)
	case Pad8000:
		tail[0] = 0x80
		clear(tail[1:])
	case Number:
		n := byte(len(tail))
		for i := range tail {
			tail[i] = n
		}
	}
}

// Strip removes the padding Insert added to the last block of data. Nulls
// and None cannot be told apart from data and are returned unchanged.
func Strip(data []byte, blockSize int, s Scheme) ([]byte, error) {
	switch s {
	case Pad8000:
		lo := len(data) - blockSize
		if lo < 0 {
			lo = 0
		}
		for i := len(data) - 1; i >= lo; i-- {
			if data[i] == 0x00 {
				continue
			}
			if data[i] == 0x80 {
				return data[:i], nil
			}
			break
		}
		return nil, fmt.Errorf("%w: no 0x80 marker in final block", ErrInvalidPadding)
	case Number:
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: empty input", ErrInvalidPadding)
		}
		n := int(data[len(data)-1])
		if n == 0 || n >= blockSize || n > len(data) {
			return nil, fmt.Errorf("%w: pad length %d", ErrInvalidPadding, n)
		}
		for _, b := range data[len(data)-n:] {
			if int(b) != n {
				return nil, fmt.Errorf("%w: inconsistent pad bytes", ErrInvalidPadding)
			}
		}
		return data[:len(data)-n], nil
	}
	return data, nil
}
