package transform

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/buffers"
	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/padding"
	"blockmode-go/pkg/primitive"
)

const (
	gcmIVSize  = 12
	gcmTagSize = 16
	ctrWidth   = 4 // bytes of the CTR counter field
)

var ErrShortMessage = errors.New("message too short")

// CipherOptions configures a block mode stage.
type CipherOptions struct {
	Mode blockmode.Mode
	Key  primitive.Key
	// AAD is authenticated with every GCM message.
	AAD []byte
	// ChunkSize is the input fed to one Encrypt or Decrypt call.
	ChunkSize int
	// Rand supplies IVs; nil means crypto/rand.
	Rand io.Reader
}

// cipherTransform encrypts a whole message as IV ‖ body, plus the tag for
// GCM. ECB and CBC messages end with a 0x80 marker padded with zeros.
type cipherTransform struct {
	eng  *blockmode.Engine
	opts CipherOptions
	bs   int
	pool *buffers.BufferPool
}

// NewCipherTransform runs the stage on eng, opening a handle per message.
func NewCipherTransform(eng *blockmode.Engine, opts CipherOptions) (Transform, error) {
	if err := opts.Key.Validate(); err != nil {
		return nil, err
	}
	if opts.Mode == blockmode.ModeNone {
		return nil, fmt.Errorf("cipher transform: no mode")
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = buffers.DefaultChunkSize
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	return &cipherTransform{
		eng:  eng,
		opts: opts,
		bs:   opts.Key.Algorithm.BlockSize(),
		pool: buffers.ForSize(opts.ChunkSize),
	}, nil
}

func (c *cipherTransform) ivSize() int {
	switch c.opts.Mode {
	case blockmode.ModeECB:
		return 0
	case blockmode.ModeGCM:
		return gcmIVSize
	}
	return c.bs
}

func (c *cipherTransform) padded() bool {
	return c.opts.Mode == blockmode.ModeECB || c.opts.Mode == blockmode.ModeCBC
}

func (c *cipherTransform) newIV() ([]byte, error) {
	iv := make([]byte, c.ivSize())
	if c.opts.Mode == blockmode.ModeCTR {
		// random nonce, counter field starting at 1
		if _, err := io.ReadFull(c.opts.Rand, iv[:len(iv)-ctrWidth]); err != nil {
			return nil, err
		}
		iv[len(iv)-1] = 1
		return iv, nil
	}
	if _, err := io.ReadFull(c.opts.Rand, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// wait drives a staged call to completion and returns its output count.
func (c *cipherTransform) wait(h blockmode.Handle, call func() (int, error)) (int, error) {
	if _, err := call(); err != nil {
		return 0, err
	}
	if err := c.eng.Wait(context.Background(), h); err != nil {
		return 0, err
	}
	return c.eng.Processed(h), nil
}

func (c *cipherTransform) open(iv []byte) (blockmode.Handle, error) {
	h, err := c.eng.Open()
	if err != nil {
		return h, err
	}
	p := blockmode.Params{Mode: c.opts.Mode, Key: c.opts.Key, IV: iv}
	if c.opts.Mode == blockmode.ModeCTR {
		p.CounterWidth = keystream.Width32
	}
	if err := c.eng.Initialize(h, p); err != nil {
		c.eng.Close(h)
		return h, err
	}
	if err := c.eng.Wait(context.Background(), h); err != nil {
		c.eng.Close(h)
		return h, err
	}
	return h, nil
}

func (c *cipherTransform) Apply(data []byte) ([]byte, error) {
	iv, err := c.newIV()
	if err != nil {
		return nil, fmt.Errorf("cipher apply: iv: %w", err)
	}
	h, err := c.open(iv)
	if err != nil {
		return nil, fmt.Errorf("cipher apply: %w", err)
	}
	defer c.eng.Close(h)

	if c.padded() {
		data = append(data[:len(data):len(data)], 0x80)
	}
	out := make([]byte, 0, len(iv)+len(data)+c.bs+gcmTagSize)
	out = append(out, iv...)

	var tag []byte
	if c.opts.Mode == blockmode.ModeGCM {
		tag = make([]byte, gcmTagSize)
	}
	out, err = c.stream(h, blockmode.Encrypt, out, data, tag)
	if err != nil {
		return nil, fmt.Errorf("cipher apply: %w", err)
	}
	return append(out, tag...), nil
}

func (c *cipherTransform) Reverse(data []byte) ([]byte, error) {
	ivLen := c.ivSize()
	tagLen := 0
	if c.opts.Mode == blockmode.ModeGCM {
		tagLen = gcmTagSize
	}
	if len(data) < ivLen+tagLen {
		return nil, fmt.Errorf("cipher reverse: %w", ErrShortMessage)
	}
	iv := data[:ivLen]
	body := data[ivLen : len(data)-tagLen]
	tag := data[len(data)-tagLen:]
	if c.padded() && (len(body) == 0 || len(body)%c.bs != 0) {
		return nil, fmt.Errorf("cipher reverse: %w: body is not whole blocks", ErrShortMessage)
	}

	h, err := c.open(iv)
	if err != nil {
		return nil, fmt.Errorf("cipher reverse: %w", err)
	}
	defer c.eng.Close(h)

	out, err := c.stream(h, blockmode.Decrypt, make([]byte, 0, len(body)), body, tag)
	if err != nil {
		return nil, fmt.Errorf("cipher reverse: %w", err)
	}
	if c.padded() {
		return padding.Strip(out, c.bs, padding.Pad8000)
	}
	return out, nil
}

// stream feeds src to h in chunks and appends the output to out. For GCM
// the AAD goes first and tag is written (Encrypt) or checked (Decrypt) by
// the final call.
func (c *cipherTransform) stream(h blockmode.Handle, dir blockmode.Direction, out, src, tag []byte) ([]byte, error) {
	gcm := c.opts.Mode == blockmode.ModeGCM
	call := func(dst, in []byte, opts blockmode.Option) (int, error) {
		switch {
		case gcm && dir == blockmode.Encrypt:
			return c.eng.EncryptGCM(h, dst, in, tag, opts)
		case gcm:
			return c.eng.DecryptGCM(h, dst, in, tag, opts)
		case dir == blockmode.Encrypt:
			return c.eng.Encrypt(h, dst, in, opts)
		}
		return c.eng.Decrypt(h, dst, in, opts)
	}

	if gcm && len(c.opts.AAD) > 0 {
		_, err := c.wait(h, func() (int, error) { return call(nil, c.opts.AAD, blockmode.AuthenticateOnly) })
		if err != nil {
			return nil, fmt.Errorf("aad: %w", err)
		}
	}

	dst := c.pool.Get()
	defer c.pool.Put(dst)

	final := blockmode.StreamComplete
	if c.padded() && dir == blockmode.Encrypt {
		final |= blockmode.PadOption(padding.Nulls)
	}
	for off := 0; ; off += c.opts.ChunkSize {
		end := min(off+c.opts.ChunkSize, len(src))
		opts := blockmode.Option(0)
		if end == len(src) {
			opts = final
		}
		n, err := c.wait(h, func() (int, error) { return call(dst, src[off:end], opts) })
		if err != nil {
			return nil, err
		}
		out = append(out, dst[:n]...)
		if end == len(src) {
			break
		}
	}
	clear(dst)
	return out, nil
}
