// Package selftest runs published known-answer vectors (NIST SP 800-38A and
// the GCM specification test cases) through an engine.
package selftest

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/log"
	"blockmode-go/pkg/primitive"
)

var ErrMismatch = errors.New("known answer mismatch")

type Vector struct {
	Name string
	Mode blockmode.Mode
	Key  string
	IV   string
	AAD  string
	PT   string
	CT   string
	Tag  string
}

const (
	sp38aKey = "2b7e151628aed2a6abf7158809cf4f3c"
	sp38aIV  = "000102030405060708090a0b0c0d0e0f"
	sp38aPT  = "6bc1bee22e409f96e93d7e117393172aae2d8a571e03ac9c9eb76fac45af8e51" +
		"30c81c46a35ce411e5fbc1191a0a52eff69f2445df4f9b17ad2b417be66c3710"

	gcmKey = "feffe9928665731c6d6a8f9467308308"
	gcmIV  = "cafebabefacedbaddecaf888"
	gcmPT  = "d9313225f88406e5a55909c5aff5269a86a7a9531534f7da2e4c303d8a318a72" +
		"1c3c0c95956809532fcf0e2449a6b525b16aedf5aa0de657ba637b391aafd255"
	gcmCT = "42831ec2217774244b7221b784d0d49ce3aa212f2c02a4e035c17e2329aca12e" +
		"21d514b25466931c7d8f6a5aac84aa051ba30b396a0aac973d58e091473f5985"
)

// Vectors returns the built-in known-answer set.
func Vectors() []Vector {
	return []Vector{
		{Name: "F.1.1 ECB-AES128", Mode: blockmode.ModeECB, Key: sp38aKey, PT: sp38aPT,
			CT: "3ad77bb40d7a3660a89ecaf32466ef97f5d3d58503b9699de785895a96fdbaaf" +
				"43b1cd7f598ece23881b00e3ed0306887b0c785e27e8ad3f8223207104725dd4"},
		{Name: "F.2.1 CBC-AES128", Mode: blockmode.ModeCBC, Key: sp38aKey, IV: sp38aIV, PT: sp38aPT,
			CT: "7649abac8119b246cee98e9b12e9197d5086cb9b507219ee95db113a917678b2" +
				"73bed6b8e3c1743b7116e69e222295163ff1caa1681fac09120eca307586e1a7"},
		{Name: "F.3.1 CFB1-AES128", Mode: blockmode.ModeCFB1, Key: sp38aKey, IV: sp38aIV,
			PT: "6bc1", CT: "68b3"},
		{Name: "F.3.7 CFB8-AES128", Mode: blockmode.ModeCFB8, Key: sp38aKey, IV: sp38aIV,
			PT: "6bc1bee22e409f96e93d7e117393172aae2d", CT: "3b79424c9c0dd436bace9e0ed4586a4f32b9"},
		{Name: "F.3.13 CFB128-AES128", Mode: blockmode.ModeCFB, Key: sp38aKey, IV: sp38aIV, PT: sp38aPT,
			CT: "3b3fd92eb72dad20333449f8e83cfb4ac8a64537a0b3a93fcde3cdad9f1ce58b" +
				"26751f67a3cbb140b1808cf187a4f4dfc04b05357c5d1c0eeac4c66f9ff7f2e6"},
		{Name: "F.4.1 OFB-AES128", Mode: blockmode.ModeOFB, Key: sp38aKey, IV: sp38aIV, PT: sp38aPT,
			CT: "3b3fd92eb72dad20333449f8e83cfb4a7789508d16918f03f53c52dac54ed825" +
				"9740051e9c5fecf64344f7a82260edcc304c6528f659c77866a510d9c1d6ae5e"},
		{Name: "F.5.1 CTR-AES128", Mode: blockmode.ModeCTR, Key: sp38aKey, IV: "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff", PT: sp38aPT,
			CT: "874d6191b620e3261bef6864990db6ce9806f66b7970fdff8617187bb9fffdff" +
				"5ae4df3edbd5d35e5b4f09020db03eab1e031dda2fbe03d1792170a0f3009cee"},
		{Name: "GCM test case 2", Mode: blockmode.ModeGCM, Key: "00000000000000000000000000000000",
			IV: "000000000000000000000000", PT: "00000000000000000000000000000000",
			CT: "0388dace60b6a392f328c2b971b2fe78", Tag: "ab6e47d42cec13bdf53a67b21257bddf"},
		{Name: "GCM test case 3", Mode: blockmode.ModeGCM, Key: gcmKey, IV: gcmIV, PT: gcmPT, CT: gcmCT,
			Tag: "4d5c2af327cd64a62cf35abd2ba6fab4"},
		{Name: "GCM test case 4", Mode: blockmode.ModeGCM, Key: gcmKey, IV: gcmIV,
			AAD: "feedfacedeadbeeffeedfacedeadbeefabaddad2", PT: gcmPT[:120], CT: gcmCT[:120],
			Tag: "5bc94fbc3221a5db94fae95ae7121a47"},
	}
}

// Result is the outcome of one vector.
type Result struct {
	Vector Vector
	Err    error
}

func (r Result) Passed() bool { return r.Err == nil }

// Run checks every vector in both directions on e. It stops early only when
// ctx is done.
func Run(ctx context.Context, e *blockmode.Engine, vectors []Vector) ([]Result, error) {
	results := make([]Result, 0, len(vectors))
	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		err := check(ctx, e, v)
		if err != nil {
			log.Warn().Str("engine", e.ID().String()).Str("vector", v.Name).Err(err).Msg("selftest: vector failed")
		}
		results = append(results, Result{Vector: v, Err: err})
	}
	return results, nil
}

type decoded struct {
	key, iv, aad, pt, ct, tag []byte
}

func decode(v Vector) (decoded, error) {
	var d decoded
	fields := []struct {
		dst *[]byte
		src string
	}{{&d.key, v.Key}, {&d.iv, v.IV}, {&d.aad, v.AAD}, {&d.pt, v.PT}, {&d.ct, v.CT}, {&d.tag, v.Tag}}
	for _, f := range fields {
		b, err := hex.DecodeString(f.src)
		if err != nil {
			return d, fmt.Errorf("vector %s: %w", v.Name, err)
		}
		*f.dst = b
	}
	return d, nil
}

func check(ctx context.Context, e *blockmode.Engine, v Vector) error {
	d, err := decode(v)
	if err != nil {
		return err
	}
	for _, dir := range []blockmode.Direction{blockmode.Encrypt, blockmode.Decrypt} {
		in, want := d.pt, d.ct
		if dir == blockmode.Decrypt {
			in, want = d.ct, d.pt
		}
		got, tag, err := runOnce(ctx, e, v.Mode, d, dir, in)
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		if !bytes.Equal(got, want) {
			return fmt.Errorf("%w: %s gave %x", ErrMismatch, dir, got)
		}
		if dir == blockmode.Encrypt && v.Mode == blockmode.ModeGCM && !bytes.Equal(tag, d.tag) {
			return fmt.Errorf("%w: tag %x", ErrMismatch, tag)
		}
	}
	return nil
}

func runOnce(ctx context.Context, e *blockmode.Engine, m blockmode.Mode, d decoded, dir blockmode.Direction, in []byte) ([]byte, []byte, error) {
	h, err := e.Open()
	if err != nil {
		return nil, nil, err
	}
	defer e.Close(h)

	if err := e.Initialize(h, blockmode.Params{Mode: m, Key: primitive.AESKey(d.key), IV: d.iv}); err != nil {
		return nil, nil, err
	}
	if err := e.Wait(ctx, h); err != nil {
		return nil, nil, err
	}

	wait := func(_ int, err error) error {
		if err != nil {
			return err
		}
		return e.Wait(ctx, h)
	}

	out := make([]byte, len(in))
	var tag []byte
	switch m {
	case blockmode.ModeGCM:
		tag = make([]byte, 16)
		if dir == blockmode.Decrypt {
			tag = d.tag
		}
		call := e.EncryptGCM
		if dir == blockmode.Decrypt {
			call = e.DecryptGCM
		}
		if len(d.aad) > 0 {
			if err := wait(call(h, nil, d.aad, nil, blockmode.AuthenticateOnly)); err != nil {
				return nil, nil, err
			}
		}
		err = wait(call(h, out, in, tag, blockmode.StreamComplete))
	case blockmode.ModeCFB1:
		call := e.EncryptBits
		if dir == blockmode.Decrypt {
			call = e.DecryptBits
		}
		err = wait(call(h, out, in, 8*len(in), blockmode.StreamComplete))
	default:
		call := e.Encrypt
		if dir == blockmode.Decrypt {
			call = e.Decrypt
		}
		err = wait(call(h, out, in, blockmode.StreamComplete))
	}
	if err != nil {
		return nil, nil, err
	}
	return out, tag, nil
}
