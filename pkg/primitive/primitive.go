// Package primitive builds the raw block ciphers the mode engine runs on.
//
// A primitive is consumed only through crypto/cipher.Block: one block in, one
// block out. AES and TDES are provided by the standard library implementations.
package primitive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"errors"
	"fmt"
)

var (
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrInvalidFunction    = errors.New("invalid cipher algorithm")
)

// MaxBlockSize is the largest block size of any supported algorithm.
const MaxBlockSize = aes.BlockSize

type Algorithm uint8

const (
	AlgorithmAES Algorithm = iota + 1
	AlgorithmTDES
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmAES:
		return "AES"
	case AlgorithmTDES:
		return "TDES"
	default:
		return fmt.Sprintf("Algorithm(%d)", uint8(a))
	}
}

// BlockSize returns the cipher block size of the algorithm, or 0 if unknown.
func (a Algorithm) BlockSize() int {
	switch a {
	case AlgorithmAES:
		return aes.BlockSize
	case AlgorithmTDES:
		return des.BlockSize
	}
	return 0
}

// KeyMode selects the key length within an algorithm.
type KeyMode uint8

const (
	KeyModeNone KeyMode = iota
	AES128
	AES192
	AES256
	DES1Key
	DES2Key
	DES3Key
)

func (m KeyMode) String() string {
	switch m {
	case AES128:
		return "AES-128"
	case AES192:
		return "AES-192"
	case AES256:
		return "AES-256"
	case DES1Key:
		return "DES-1KEY"
	case DES2Key:
		return "TDES-2KEY"
	case DES3Key:
		return "TDES-3KEY"
	default:
		return "none"
	}
}

// KeyType says where the key lives.
type KeyType uint8

const (
	KeyNone KeyType = iota
	// KeySoftware is raw key material supplied by the caller.
	KeySoftware
	// KeySoftwareExpanded is a caller-expanded key schedule. Hardware key
	// registers cannot take it.
	KeySoftwareExpanded
	// KeyHardwareKEK is a key-encryption-key wrapped key; not supported.
	KeyHardwareKEK
	// KeyHardwareOTP1 to KeyHardwareOTP7 reference one-time-programmable
	// key slots inside the hardware engine.
	KeyHardwareOTP1
	KeyHardwareOTP2
	KeyHardwareOTP3
	KeyHardwareOTP4
	KeyHardwareOTP5
	KeyHardwareOTP6
	KeyHardwareOTP7
)

// Slot returns the OTP slot number (1..7) and true for hardware OTP keys.
func (t KeyType) Slot() (int, bool) {
	if t >= KeyHardwareOTP1 && t <= KeyHardwareOTP7 {
		return int(t-KeyHardwareOTP1) + 1, true
	}
	return 0, false
}

// IsSoftware reports whether the key material is held by the caller.
func (t KeyType) IsSoftware() bool {
	return t == KeySoftware || t == KeySoftwareExpanded
}

// Key describes the key a handle is initialized with.
type Key struct {
	Algorithm Algorithm
	Mode      KeyMode
	Type      KeyType
	// Material is the raw key; empty for hardware slots.
	Material []byte
}

// Length returns the key length in bytes implied by the key mode.
func (k Key) Length() int {
	switch k.Mode {
	case AES128, DES2Key:
		return 16
	case AES192, DES3Key:
		return 24
	case AES256:
		return 32
	case DES1Key:
		return 8
	}
	return 0
}

// Validate checks that algorithm, key mode and key type agree with each other
// and with the length of the material.
func (k Key) Validate() error {
	switch k.Algorithm {
	case AlgorithmAES:
		if k.Mode != AES128 && k.Mode != AES192 && k.Mode != AES256 {
			return fmt.Errorf("%w: %s key mode for AES", ErrUnsupportedKeyType, k.Mode)
		}
	case AlgorithmTDES:
		if k.Mode != DES1Key && k.Mode != DES2Key && k.Mode != DES3Key {
			return fmt.Errorf("%w: %s key mode for TDES", ErrUnsupportedKeyType, k.Mode)
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidFunction, k.Algorithm)
	}

	switch {
	case k.Type.IsSoftware():
		if len(k.Material) != k.Length() {
			return fmt.Errorf("%w: %s needs %d key bytes, got %d",
				ErrUnsupportedKeyType, k.Mode, k.Length(), len(k.Material))
		}
	case k.Type == KeyHardwareKEK, k.Type == KeyNone:
		return fmt.Errorf("%w: key type %d", ErrUnsupportedKeyType, k.Type)
	default:
		if _, ok := k.Type.Slot(); !ok {
			return fmt.Errorf("%w: key type %d", ErrUnsupportedKeyType, k.Type)
		}
	}
	return nil
}

// New expands a key into a block cipher. Only software keys can be expanded
// here; hardware slot keys are resolved by the device that owns them.
func New(k Key) (cipher.Block, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	if !k.Type.IsSoftware() {
		return nil, fmt.Errorf("%w: key slot keys are only usable by a hardware device", ErrUnsupportedKeyType)
	}
	return expand(k.Algorithm, k.Mode, k.Material)
}

// Expand builds the cipher for raw key material without key type checks. It
// is what a device does when a key register is written.
func Expand(alg Algorithm, mode KeyMode, material []byte) (cipher.Block, error) {
	return expand(alg, mode, material)
}

func expand(alg Algorithm, mode KeyMode, material []byte) (cipher.Block, error) {
	switch alg {
	case AlgorithmAES:
		b, err := aes.NewCipher(material)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
		}
		return b, nil
	case AlgorithmTDES:
		var ede []byte
		switch mode {
		case DES1Key:
			b, err := des.NewCipher(material)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
			}
			return b, nil
		case DES2Key:
			// K1 K2 K1
			ede = make([]byte, 0, 24)
			ede = append(ede, material[:16]...)
			ede = append(ede, material[:8]...)
		default:
			ede = material
		}
		b, err := des.NewTripleDESCipher(ede)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidFunction, alg)
}

// AESKey is a shorthand for a software AES key; the key mode follows the
// material length.
func AESKey(material []byte) Key {
	mode := KeyModeNone
	switch len(material) {
	case 16:
		mode = AES128
	case 24:
		mode = AES192
	case 32:
		mode = AES256
	}
	return Key{Algorithm: AlgorithmAES, Mode: mode, Type: KeySoftware, Material: material}
}

// TDESKey is a shorthand for a software TDES key of 8, 16 or 24 bytes.
func TDESKey(material []byte) Key {
	mode := KeyModeNone
	switch len(material) {
	case 8:
		mode = DES1Key
	case 16:
		mode = DES2Key
	case 24:
		mode = DES3Key
	}
	return Key{Algorithm: AlgorithmTDES, Mode: mode, Type: KeySoftware, Material: material}
}
