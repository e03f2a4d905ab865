package blockmode

import (
	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/padding"
)

// Option is the bitmask passed with every data call.
type Option uint32

const (
	// StreamContinue is the default: the call continues the current stream.
	StreamContinue Option = 0
	// StreamStart drops buffered bytes and rewinds chaining state to the IV.
	StreamStart Option = 0x0001
	// StreamComplete marks the last call of a stream. Padding and the GCM
	// tag are produced here.
	StreamComplete Option = 0x0002
	// AuthenticateOnly feeds the data to GHASH without enciphering it.
	AuthenticateOnly Option = 0x0004

	PadNone   Option = 0x0000
	PadNulls  Option = 0x0010
	Pad8000   Option = 0x0020
	PadNumber Option = 0x0030
	padMask   Option = 0x0030

	Ctr32Bit  Option = 0x0100
	Ctr64Bit  Option = 0x0200
	Ctr128Bit Option = 0x0300
	ctrMask   Option = 0x0300
)

func (o Option) Has(f Option) bool { return o&f == f && f != 0 }

// Padding returns the padding scheme selected by o.
func (o Option) Padding() padding.Scheme {
	switch o & padMask {
	case PadNulls:
		return padding.Nulls
	case Pad8000:
		return padding.Pad8000
	case PadNumber:
		return padding.Number
	}
	return padding.None
}

// CounterWidth returns the counter window selected by o, or 0 if o carries
// no counter size.
func (o Option) CounterWidth() keystream.Width {
	switch o & ctrMask {
	case Ctr32Bit:
		return keystream.Width32
	case Ctr64Bit:
		return keystream.Width64
	case Ctr128Bit:
		return keystream.Width128
	}
	return 0
}

// PadOption maps a padding scheme to its option bits.
func PadOption(s padding.Scheme) Option {
	switch s {
	case padding.Nulls:
		return PadNulls
	case padding.Pad8000:
		return Pad8000
	case padding.Number:
		return PadNumber
	}
	return PadNone
}
