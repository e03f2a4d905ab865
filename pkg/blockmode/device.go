package blockmode

import (
	"crypto/cipher"
	"fmt"

	"blockmode-go/pkg/primitive"
)

type Direction uint8

const (
	Encrypt Direction = iota
	Decrypt
)

func (d Direction) String() string {
	if d == Decrypt {
		return "decrypt"
	}
	return "encrypt"
}

// DeviceConfig is what a handle writes into the device registers when it
// becomes current.
type DeviceConfig struct {
	Key primitive.Key
}

// Device is a block cipher engine that processes one block at a time.
//
// Start must copy in before returning. The result is readable with Output
// once Busy reports false. Fault and Aborted report latched conditions; a
// fault is cleared by the next Load, an abort by ClearAbort.
type Device interface {
	Load(cfg DeviceConfig) error
	Start(dir Direction, in []byte) error
	Busy() bool
	Fault() bool
	Aborted() bool
	ClearAbort()
	Output(out []byte)
}

// softDevice runs the primitive synchronously. It is never busy and never
// faults.
type softDevice struct {
	block cipher.Block
	out   [primitive.MaxBlockSize]byte
}

func (d *softDevice) Load(cfg DeviceConfig) error {
	if !cfg.Key.Type.IsSoftware() {
		return fmt.Errorf("%w: software engine cannot use key type %d", ErrUnsupportedKeyType, cfg.Key.Type)
	}
	b, err := primitive.Expand(cfg.Key.Algorithm, cfg.Key.Mode, cfg.Key.Material)
	if err != nil {
		return err
	}
	d.block = b
	return nil
}

func (d *softDevice) Start(dir Direction, in []byte) error {
	if d.block == nil {
		return fmt.Errorf("%w: no key loaded", ErrHwSetting)
	}
	bs := d.block.BlockSize()
	if dir == Decrypt {
		d.block.Decrypt(d.out[:bs], in[:bs])
	} else {
		d.block.Encrypt(d.out[:bs], in[:bs])
	}
	return nil
}

func (d *softDevice) Busy() bool        { return false }
func (d *softDevice) Fault() bool       { return false }
func (d *softDevice) Aborted() bool     { return false }
func (d *softDevice) ClearAbort()       {}
func (d *softDevice) Output(out []byte) { copy(out, d.out[:]) }
