package blockmode

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"encoding/hex"
	"errors"
	"math/rand"
	"testing"

	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/padding"
	"blockmode-go/pkg/primitive"
)

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex %q: %v", s, err)
	}
	return b
}

func randBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func openHandle(t *testing.T, e *Engine, p Params) Handle {
	t.Helper()
	h, err := e.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := e.Initialize(h, p); err != nil {
		t.Fatalf("Initialize %s: %v", p.Mode, err)
	}
	return h
}

// SP 800-38A, appendix F, AES-128
var (
	sp38aKey = "2b7e151628aed2a6abf7158809cf4f3c"
	sp38aIV  = "000102030405060708090a0b0c0d0e0f"
	sp38aPT  = "6bc1bee22e409f96e93d7e117393172a" +
		"ae2d8a571e03ac9c9eb76fac45af8e51" +
		"30c81c46a35ce411e5fbc1191a0a52ef" +
		"f69f2445df4f9b17ad2b417be66c3710"
)

func TestSP800_38AVectors(t *testing.T) {
	tests := []struct {
		mode Mode
		iv   string
		ct   string
	}{
		{ModeECB, "", "3ad77bb40d7a3660a89ecaf32466ef97" +
			"f5d3d58503b9699de785895a96fdbaaf" +
			"43b1cd7f598ece23881b00e3ed030688" +
			"7b0c785e27e8ad3f8223207104725dd4"},
		{ModeCBC, sp38aIV, "7649abac8119b246cee98e9b12e9197d" +
			"5086cb9b507219ee95db113a917678b2" +
			"73bed6b8e3c1743b7116e69e22229516" +
			"3ff1caa1681fac09120eca307586e1a7"},
		{ModeCFB, sp38aIV, "3b3fd92eb72dad20333449f8e83cfb4a" +
			"c8a64537a0b3a93fcde3cdad9f1ce58b" +
			"26751f67a3cbb140b1808cf187a4f4df" +
			"c04b05357c5d1c0eeac4c66f9ff7f2e6"},
		{ModeOFB, sp38aIV, "3b3fd92eb72dad20333449f8e83cfb4a" +
			"7789508d16918f03f53c52dac54ed825" +
			"9740051e9c5fecf64344f7a82260edcc" +
			"304c6528f659c77866a510d9c1d6ae5e"},
		{ModeCTR, "f0f1f2f3f4f5f6f7f8f9fafbfcfdfeff", "874d6191b620e3261bef6864990db6ce" +
			"9806f66b7970fdff8617187bb9fffdff" +
			"5ae4df3edbd5d35e5b4f09020db03eab" +
			"1e031dda2fbe03d1792170a0f3009cee"},
	}

	pt := unhex(t, sp38aPT)
	for _, tc := range tests {
		t.Run(tc.mode.String(), func(t *testing.T) {
			e := NewSoftware(DefaultConfig())
			p := Params{Mode: tc.mode, Key: primitive.AESKey(unhex(t, sp38aKey))}
			if tc.iv != "" {
				p.IV = unhex(t, tc.iv)
			}
			h := openHandle(t, e, p)

			ct := make([]byte, len(pt))
			n, err := e.Encrypt(h, ct, pt, StreamComplete)
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if n != len(pt) || !bytes.Equal(ct, unhex(t, tc.ct)) {
				t.Fatalf("n=%d ciphertext %x", n, ct)
			}

			back := make([]byte, len(ct))
			if _, err := e.Decrypt(h, back, ct, StreamStart|StreamComplete); err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(back, pt) {
				t.Fatalf("round trip: %x", back)
			}
		})
	}
}

func TestCFB8Vector(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{
		Mode: ModeCFB8,
		Key:  primitive.AESKey(unhex(t, sp38aKey)),
		IV:   unhex(t, sp38aIV),
	})
	pt := unhex(t, "6bc1bee22e409f96e93d7e117393172aae2d")
	ct := make([]byte, len(pt))
	if _, err := e.Encrypt(h, ct, pt, 0); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if want := unhex(t, "3b79424c9c0dd436bace9e0ed4586a4f32b9"); !bytes.Equal(ct, want) {
		t.Fatalf("CFB8: got %x want %x", ct, want)
	}
}

func TestCFB1Vector(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{
		Mode: ModeCFB1,
		Key:  primitive.AESKey(unhex(t, sp38aKey)),
		IV:   unhex(t, sp38aIV),
	})
	pt := []byte{0x6b, 0xc1}
	ct := make([]byte, 2)
	n, err := e.EncryptBits(h, ct, pt, 16, 0)
	if err != nil {
		t.Fatalf("EncryptBits: %v", err)
	}
	if n != 16 || !bytes.Equal(ct, []byte{0x68, 0xb3}) {
		t.Fatalf("CFB1: n=%d got %x", n, ct)
	}

	back := make([]byte, 2)
	if _, err := e.DecryptBits(h, back, ct, 16, StreamStart); err != nil {
		t.Fatalf("DecryptBits: %v", err)
	}
	if !bytes.Equal(back, pt) {
		t.Fatalf("CFB1 decrypt: got %x", back)
	}
}

func TestCFB1SingleBit(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{
		Mode: ModeCFB1,
		Key:  primitive.AESKey(unhex(t, sp38aKey)),
		IV:   unhex(t, sp38aIV),
	})

	for _, bit := range []byte{0x00, 0x80} {
		// garbage in the unused low bits of the source must not leak through
		src := []byte{bit | 0x2a}
		ct := []byte{0xff}
		if _, err := e.EncryptBits(h, ct, src, 1, StreamStart); err != nil {
			t.Fatalf("EncryptBits: %v", err)
		}
		if ct[0]&0x7f != 0 {
			t.Fatalf("unused bits not cleared: %08b", ct[0])
		}
		pt := []byte{0xff}
		n, err := e.DecryptBits(h, pt, ct, 1, StreamStart)
		if err != nil || n != 1 {
			t.Fatalf("DecryptBits: n=%d err=%v", n, err)
		}
		if pt[0] != bit {
			t.Fatalf("bit %02x came back as %02x", bit, pt[0])
		}
	}
}

func TestCFB1PartialBytesAcrossCalls(t *testing.T) {
	key := primitive.AESKey(unhex(t, sp38aKey))
	iv := unhex(t, sp38aIV)
	src := randBytes(7, 4)

	e := NewSoftware(DefaultConfig())
	whole := openHandle(t, e, Params{Mode: ModeCFB1, Key: key, IV: iv})
	want := make([]byte, 4)
	if _, err := e.EncryptBits(whole, want, src, 32, 0); err != nil {
		t.Fatalf("EncryptBits: %v", err)
	}

	// byte calls and bit calls share one stream
	split := openHandle(t, e, Params{Mode: ModeCFB1, Key: key, IV: iv})
	got := make([]byte, 4)
	if n, err := e.Encrypt(split, got[:1], src[:1], 0); err != nil || n != 1 {
		t.Fatalf("Encrypt byte: n=%d err=%v", n, err)
	}
	if n, err := e.EncryptBits(split, got[1:], src[1:], 24, 0); err != nil || n != 24 {
		t.Fatalf("EncryptBits: n=%d err=%v", n, err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("split %x, whole %x", got, want)
	}

	// in place
	inPlace := append([]byte(nil), src...)
	h := openHandle(t, e, Params{Mode: ModeCFB1, Key: key, IV: iv})
	if _, err := e.Encrypt(h, inPlace, inPlace, 0); err != nil {
		t.Fatalf("Encrypt in place: %v", err)
	}
	if !bytes.Equal(inPlace, want) {
		t.Fatalf("in place %x, want %x", inPlace, want)
	}
}

func allModeParams(t *testing.T) []Params {
	key := primitive.AESKey(unhex(t, "feffe9928665731c6d6a8f9467308308"))
	iv := unhex(t, "cafebabefacedbaddecaf888deadbeef")
	var ps []Params
	for _, m := range Modes() {
		p := Params{Mode: m, Key: key}
		switch m {
		case ModeECB:
		case ModeGCM:
			p.IV = iv[:12]
		default:
			p.IV = iv
		}
		ps = append(ps, p)
	}
	return ps
}

// runChunks feeds src through fn in chunks of size step and returns the
// concatenated output.
func runChunks(t *testing.T, src []byte, step int, last Option,
	fn func(dst, src []byte, opts Option) (int, error)) []byte {
	t.Helper()
	out := make([]byte, 0, len(src)+16)
	buf := make([]byte, len(src)+16)
	for i := 0; i < len(src); i += step {
		end := min(i+step, len(src))
		opts := Option(0)
		if end == len(src) {
			opts = last
		}
		n, err := fn(buf, src[i:end], opts)
		if err != nil {
			t.Fatalf("chunk at %d: %v", i, err)
		}
		out = append(out, buf[:n]...)
	}
	return out
}

func TestStreamingMatchesSingleCall(t *testing.T) {
	pt := randBytes(1, 80)
	for _, p := range allModeParams(t) {
		t.Run(p.Mode.String(), func(t *testing.T) {
			e := NewSoftware(DefaultConfig())
			single := openHandle(t, e, p)
			streamed := openHandle(t, e, p)

			var tagA, tagB [16]byte
			enc := func(h Handle, tag []byte) func(dst, src []byte, opts Option) (int, error) {
				return func(dst, src []byte, opts Option) (int, error) {
					if p.Mode == ModeGCM {
						return e.EncryptGCM(h, dst, src, tag, opts)
					}
					return e.Encrypt(h, dst, src, opts)
				}
			}
			want := runChunks(t, pt, len(pt), StreamComplete, enc(single, tagA[:]))
			got := runChunks(t, pt, 7, StreamComplete, enc(streamed, tagB[:]))
			if !bytes.Equal(got, want) {
				t.Fatalf("streamed ciphertext differs\n got %x\nwant %x", got, want)
			}
			if tagA != tagB {
				t.Fatalf("streamed tag differs: %x vs %x", tagB, tagA)
			}

			dec := openHandle(t, e, p)
			back := runChunks(t, want, 5, StreamComplete, func(dst, src []byte, opts Option) (int, error) {
				if p.Mode == ModeGCM {
					return e.DecryptGCM(dec, dst, src, tagA[:], opts)
				}
				return e.Decrypt(dec, dst, src, opts)
			})
			if !bytes.Equal(back, pt) {
				t.Fatalf("round trip failed: %x", back)
			}
		})
	}
}

func TestMatchesCryptoCipher(t *testing.T) {
	key := randBytes(2, 32)
	iv := randBytes(3, 16)
	pt := randBytes(4, 96)
	block, _ := aes.NewCipher(key)

	want := map[Mode][]byte{}
	{
		b := make([]byte, len(pt))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(b, pt)
		want[ModeCBC] = b
	}
	{
		b := make([]byte, len(pt))
		cipher.NewCFBEncrypter(block, iv).XORKeyStream(b, pt)
		want[ModeCFB] = b
	}
	{
		b := make([]byte, len(pt))
		cipher.NewOFB(block, iv).XORKeyStream(b, pt)
		want[ModeOFB] = b
	}
	{
		b := make([]byte, len(pt))
		cipher.NewCTR(block, iv).XORKeyStream(b, pt)
		want[ModeCTR] = b
	}

	for m, w := range want {
		e := NewSoftware(DefaultConfig())
		h := openHandle(t, e, Params{Mode: m, Key: primitive.AESKey(key), IV: iv})
		got := runChunks(t, pt, 13, 0, func(dst, src []byte, opts Option) (int, error) {
			return e.Encrypt(h, dst, src, opts)
		})
		if !bytes.Equal(got, w) {
			t.Errorf("%s: differs from crypto/cipher", m)
		}
	}
}

func TestTDESCBC(t *testing.T) {
	for _, n := range []int{8, 16, 24} {
		material := randBytes(int64(n), n)
		iv := randBytes(5, des.BlockSize)
		pt := randBytes(6, 40)

		e := NewSoftware(DefaultConfig())
		h := openHandle(t, e, Params{Mode: ModeCBC, Key: primitive.TDESKey(material), IV: iv})
		ct := make([]byte, len(pt))
		if _, err := e.Encrypt(h, ct, pt, 0); err != nil {
			t.Fatalf("TDES %d: %v", n, err)
		}

		block, err := primitive.New(primitive.TDESKey(material))
		if err != nil {
			t.Fatalf("primitive.New: %v", err)
		}
		want := make([]byte, len(pt))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(want, pt)
		if !bytes.Equal(ct, want) {
			t.Fatalf("TDES %d-byte key differs from crypto/cipher", n)
		}
	}
}

func TestPad8000Strip(t *testing.T) {
	pt := randBytes(8, 21)
	for _, m := range []Mode{ModeECB, ModeCBC} {
		e := NewSoftware(DefaultConfig())
		p := Params{Mode: m, Key: primitive.AESKey(randBytes(9, 16)), IV: randBytes(10, 16)}
		enc := openHandle(t, e, p)
		ct := make([]byte, 32)
		n, err := e.Encrypt(enc, ct, pt, StreamComplete|Pad8000)
		if err != nil || n != 32 {
			t.Fatalf("%s: n=%d err=%v", m, n, err)
		}

		dec := openHandle(t, e, p)
		back := make([]byte, 32)
		if n, err := e.Decrypt(dec, back, ct, StreamComplete|Pad8000); err != nil || n != 32 {
			t.Fatalf("%s decrypt: n=%d err=%v", m, n, err)
		}
		stripped, err := padding.Strip(back, 16, padding.Pad8000)
		if err != nil {
			t.Fatalf("%s: Strip: %v", m, err)
		}
		if !bytes.Equal(stripped, pt) {
			t.Fatalf("%s: got %d bytes %x", m, len(stripped), stripped)
		}
	}
}

func TestPadNoneKeepsRemainder(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{Mode: ModeECB, Key: primitive.AESKey(randBytes(11, 16))})
	ct := make([]byte, 32)
	n, err := e.Encrypt(h, ct, randBytes(12, 20), StreamComplete|PadNone)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if n != 16 || e.Buffered(h) != 4 {
		t.Fatalf("expected 16 bytes out and 4 buffered, got %d and %d", n, e.Buffered(h))
	}
}

func TestStreamStartRestarts(t *testing.T) {
	pt := randBytes(13, 48)
	for _, p := range allModeParams(t) {
		if p.Mode == ModeGCM {
			continue
		}
		e := NewSoftware(DefaultConfig())
		h := openHandle(t, e, p)
		first := make([]byte, 48)
		if _, err := e.Encrypt(h, first, pt, 0); err != nil {
			t.Fatalf("%s: %v", p.Mode, err)
		}
		// leave state mid-stream
		if _, err := e.Encrypt(h, make([]byte, 16), pt[:5], 0); err != nil {
			t.Fatalf("%s: %v", p.Mode, err)
		}
		again := make([]byte, 48)
		if _, err := e.Encrypt(h, again, pt, StreamStart); err != nil {
			t.Fatalf("%s: %v", p.Mode, err)
		}
		if !bytes.Equal(first, again) {
			t.Errorf("%s: StreamStart did not restart the stream", p.Mode)
		}
	}
}

func TestCounterWindowExpires(t *testing.T) {
	iv := unhex(t, "000102030405060708090a0bfffffffe")
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{
		Mode: ModeCTR,
		Key:  primitive.AESKey(randBytes(14, 16)),
		IV:   iv,
	})

	out := make([]byte, 48)
	n, err := e.Encrypt(h, out, make([]byte, 48), Ctr32Bit)
	if !errors.Is(err, ErrCtrCounterExpired) {
		t.Fatalf("expected ErrCtrCounterExpired, got %v", err)
	}
	if n != 32 {
		t.Fatalf("expected the two blocks inside the window, got %d bytes", n)
	}
	if e.State(h) != StateError {
		t.Fatalf("expected error state, got %s", e.State(h))
	}
	ctr := e.handles[h].ctx.(*ctrContext).counter
	if !bytes.Equal(ctr.Block()[:12], iv[:12]) {
		t.Fatalf("counter overflow reached the nonce: %x", ctr.Block())
	}

	// the same IV with a 64-bit window carries instead
	h2 := openHandle(t, e, Params{Mode: ModeCTR, Key: primitive.AESKey(randBytes(14, 16)), IV: iv})
	if _, err := e.Encrypt(h2, out, make([]byte, 48), Ctr64Bit); err != nil {
		t.Fatalf("64-bit window: %v", err)
	}
}

func TestKeyStreamGenerateCounterExpired(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{
		Mode:         ModeCTR,
		Key:          primitive.AESKey(randBytes(15, 16)),
		IV:           unhex(t, "000102030405060708090a0bfffffffe"),
		CounterWidth: keystream.Width32,
	})
	if err := e.KeyStreamGenerate(h, 2, 0); err != nil {
		t.Fatalf("KeyStreamGenerate: %v", err)
	}
	if err := e.KeyStreamGenerate(h, 1, 0); !errors.Is(err, ErrCtrCounterExpired) {
		t.Fatalf("expected ErrCtrCounterExpired, got %v", err)
	}
}

func TestKeyStreamOutOfSpace(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{
		Mode:      ModeCTR,
		Key:       primitive.AESKey(randBytes(16, 16)),
		IV:        randBytes(17, 16),
		KeyStream: make([]byte, 48),
	})
	if err := e.KeyStreamGenerate(h, 2, StreamStart); err != nil {
		t.Fatalf("KeyStreamGenerate: %v", err)
	}
	ring := e.handles[h].ctx.(keyGenerator).keyRing()
	before := make([]byte, 32)
	ring.Peek(before)

	if err := e.KeyStreamGenerate(h, 2, 0); !errors.Is(err, ErrKeyStreamOutOfSpace) {
		t.Fatalf("expected ErrKeyStreamOutOfSpace, got %v", err)
	}
	if e.State(h) != StateIdle {
		t.Fatalf("out of space must not fail the handle, state %s", e.State(h))
	}
	after := make([]byte, 48)
	if n := ring.Peek(after); n != 32 || !bytes.Equal(after[:32], before) {
		t.Fatalf("buffered keystream changed: n=%d", n)
	}
	if e.KeyStreamLen(h) != 32 {
		t.Fatalf("KeyStreamLen = %d", e.KeyStreamLen(h))
	}

	// a count whose byte size overflows int is still rejected up front
	if err := e.KeyStreamGenerate(h, 1<<60, 0); !errors.Is(err, ErrKeyStreamOutOfSpace) {
		t.Fatalf("expected ErrKeyStreamOutOfSpace for a huge count, got %v", err)
	}
	if e.State(h) != StateIdle || e.KeyStreamLen(h) != 32 {
		t.Fatalf("huge count touched the handle: state %s, KeyStreamLen %d", e.State(h), e.KeyStreamLen(h))
	}
	if n := ring.Peek(after); n != 32 || !bytes.Equal(after[:32], before) {
		t.Fatalf("buffered keystream changed after a huge count: n=%d", n)
	}
}

func TestPrecomputedKeyStreamIsUsed(t *testing.T) {
	for _, m := range []Mode{ModeOFB, ModeCTR} {
		p := Params{Mode: m, Key: primitive.AESKey(randBytes(18, 16)), IV: randBytes(19, 16)}
		pt := randBytes(20, 40)

		e := NewSoftware(DefaultConfig())
		plain := openHandle(t, e, p)
		want := make([]byte, 40)
		if _, err := e.Encrypt(plain, want, pt, 0); err != nil {
			t.Fatalf("%s: %v", m, err)
		}

		pre := openHandle(t, e, p)
		if err := e.KeyStreamGenerate(pre, 3, 0); err != nil {
			t.Fatalf("%s: KeyStreamGenerate: %v", m, err)
		}
		got := make([]byte, 40)
		if _, err := e.Encrypt(pre, got, pt, 0); err != nil {
			t.Fatalf("%s: %v", m, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("%s: precomputed keystream changed the output", m)
		}
		if e.KeyStreamLen(pre) != 8 {
			t.Fatalf("%s: expected 8 keystream bytes left, got %d", m, e.KeyStreamLen(pre))
		}
	}
}

func TestHandleLifecycle(t *testing.T) {
	e := NewSoftware(Config{Handles: 2})
	h, _ := e.Open()
	if e.State(h) != StateOpen {
		t.Fatalf("expected open, got %s", e.State(h))
	}
	if _, err := e.Encrypt(h, make([]byte, 16), make([]byte, 16), 0); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("uninitialized handle: %v", err)
	}
	if _, err := e.Open(); err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if _, err := e.Open(); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("table should be full, got %v", err)
	}
	if _, err := e.Encrypt(Handle(7), nil, nil, 0); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("out of range handle: %v", err)
	}

	if err := e.Initialize(h, Params{Mode: ModeCTR, Key: primitive.AESKey(randBytes(21, 16)),
		IV: unhex(t, "000102030405060708090a0bffffffff"), CounterWidth: keystream.Width32}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := e.Encrypt(h, make([]byte, 32), make([]byte, 32), 0); !errors.Is(err, ErrCtrCounterExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
	_, err := e.Encrypt(h, make([]byte, 16), make([]byte, 16), 0)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("handle in error should reject with ErrBusy, got %v", err)
	}
	if e.Err(h) == nil || !errors.Is(e.Err(h), ErrCtrCounterExpired) {
		t.Fatalf("Err = %v", e.Err(h))
	}

	if err := e.Initialize(h, Params{Mode: ModeECB, Key: primitive.AESKey(randBytes(22, 16))}); err != nil {
		t.Fatalf("re-Initialize: %v", err)
	}
	if e.State(h) != StateIdle || e.Err(h) != nil {
		t.Fatalf("re-Initialize should clear the error")
	}

	if err := e.Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if e.State(h) != StateClosed {
		t.Fatalf("expected closed, got %s", e.State(h))
	}
	if err := e.Close(h); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("double Close: %v", err)
	}
}

func TestInitializeValidation(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h, _ := e.Open()
	aes128 := primitive.AESKey(randBytes(23, 16))

	tests := []struct {
		name string
		p    Params
		want error
	}{
		{"short iv", Params{Mode: ModeCBC, Key: aes128, IV: make([]byte, 8)}, ErrInvalidParameter},
		{"gcm tdes", Params{Mode: ModeGCM, Key: primitive.TDESKey(randBytes(24, 24)), IV: make([]byte, 12)}, ErrInvalidFunction},
		{"gcm empty iv", Params{Mode: ModeGCM, Key: aes128}, ErrInvalidParameter},
		{"tiny keystream", Params{Mode: ModeOFB, Key: aes128, IV: make([]byte, 16), KeyStream: make([]byte, 8)}, ErrInvalidParameter},
		{"slot key", Params{Mode: ModeECB, Key: primitive.Key{Algorithm: primitive.AlgorithmAES, Mode: primitive.AES128, Type: primitive.KeyHardwareOTP1}}, ErrUnsupportedKeyType},
		{"bad key length", Params{Mode: ModeECB, Key: primitive.Key{Algorithm: primitive.AlgorithmAES, Mode: primitive.AES256, Type: primitive.KeySoftware, Material: make([]byte, 16)}}, ErrUnsupportedKeyType},
		{"no mode", Params{Key: aes128}, ErrInvalidParameter},
	}
	for _, tc := range tests {
		if err := e.Initialize(h, tc.p); !errors.Is(err, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
	if e.State(h) != StateOpen {
		t.Fatalf("failed Initialize changed the state to %s", e.State(h))
	}
}

func TestShortBuffer(t *testing.T) {
	e := NewSoftware(DefaultConfig())
	h := openHandle(t, e, Params{Mode: ModeCBC, Key: primitive.AESKey(randBytes(25, 16)), IV: randBytes(26, 16)})
	if _, err := e.Encrypt(h, make([]byte, 16), make([]byte, 20), StreamComplete|PadNumber); !errors.Is(err, ErrShortBuffer) {
		t.Fatalf("expected ErrShortBuffer, got %v", err)
	}
	if e.State(h) != StateIdle || e.Buffered(h) != 0 {
		t.Fatalf("rejected call changed the handle")
	}
}
