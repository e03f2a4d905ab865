// Package transform chains reversible payload stages: compression and
// block mode encryption.
package transform

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

type Transform interface {
	Apply(data []byte) ([]byte, error)
	Reverse(data []byte) ([]byte, error)
}

type noOpTransform struct{}

func NewNoOpTransform() Transform                            { return &noOpTransform{} }
func (n *noOpTransform) Apply(data []byte) ([]byte, error)   { return data, nil }
func (n *noOpTransform) Reverse(data []byte) ([]byte, error) { return data, nil }

// NewCompression returns the compression stage called name: "none", "zstd"
// or "gzip".
func NewCompression(name string) (Transform, error) {
	switch name {
	case "", "none":
		return NewNoOpTransform(), nil
	case "zstd":
		return NewZstdTransform(zstd.SpeedDefault)
	case "gzip":
		return NewGzipTransform(), nil
	}
	return nil, fmt.Errorf("transform: unknown compression %q", name)
}
