package primitive

import (
	"crypto/sha256"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/sys/cpu"
)

const deriveInfo = "blockmode-go key"

// DeriveKey stretches a passphrase into n bytes of key material with
// HKDF-SHA256. It exists for the command line tool; it is not a password
// hashing scheme.
func DeriveKey(passphrase string, salt []byte, n int) ([]byte, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("derive key: empty passphrase")
	}
	r := hkdf.New(sha256.New, []byte(passphrase), salt, []byte(deriveInfo))
	key := make([]byte, n)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// Accelerated reports whether the host CPU has AES instructions, which the
// standard library AES primitive uses when present.
func Accelerated() bool {
	switch runtime.GOARCH {
	case "amd64", "386":
		return cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ
	case "arm64":
		return cpu.ARM64.HasAES && cpu.ARM64.HasPMULL
	case "s390x":
		return cpu.S390X.HasAES
	}
	return false
}
