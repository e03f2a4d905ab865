// Package blockmode runs block cipher modes of operation over a single block
// device, either synchronously in software or time-sliced across handles on
// a shared hardware engine.
//
// An Engine is not safe for concurrent use. All calls, including Tasks, must
// come from one goroutine.
package blockmode

import (
	"fmt"

	"blockmode-go/internal/fn"
	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/log"
	"blockmode-go/pkg/primitive"

	"github.com/google/uuid"
)

// Handle identifies one cipher stream inside an Engine.
type Handle int

type Config struct {
	// Handles is the size of the handle table.
	Handles int
	// KeyStreamBlocks sizes the keystream ring allocated for OFB, CTR and
	// GCM handles initialized without caller storage.
	KeyStreamBlocks int
}

func DefaultConfig() Config {
	return Config{
		Handles:         8,
		KeyStreamBlocks: 4,
	}
}

// Params configures a handle for one mode.
type Params struct {
	Mode Mode
	Key  primitive.Key
	// IV is the initialization vector. For CTR it is the full initial
	// counter block (nonce and counter); for GCM any non-empty length.
	IV []byte
	// KeyStream is caller-owned storage for precomputed keystream. It must
	// hold at least one block. Nil means an engine-allocated ring.
	KeyStream []byte
	// CounterWidth is the CTR counter window; zero selects 128 bits.
	CounterWidth keystream.Width
}

type Engine struct {
	id       uuid.UUID
	cfg      Config
	hw       Device
	handles  []*handle
	current  int
	resident *handle
}

// NewSoftware returns an engine whose handles each run on a private
// synchronous primitive. Every call completes before it returns.
func NewSoftware(cfg Config) *Engine {
	return newEngine(nil, cfg)
}

// NewHardware returns an engine sharing dev across all handles. Calls only
// stage work; Tasks or Wait drive it.
func NewHardware(dev Device, cfg Config) *Engine {
	return newEngine(dev, cfg)
}

func newEngine(dev Device, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Handles <= 0 {
		cfg.Handles = def.Handles
	}
	if cfg.KeyStreamBlocks <= 0 {
		cfg.KeyStreamBlocks = def.KeyStreamBlocks
	}
	e := &Engine{
		id:      uuid.New(),
		cfg:     cfg,
		hw:      dev,
		handles: make([]*handle, cfg.Handles),
	}
	for i := range e.handles {
		e.handles[i] = &handle{id: Handle(i)}
	}
	log.Debug().Str("engine", e.id.String()).
		Str("kind", fn.T(dev == nil, "software", "hardware")).
		Int("handles", cfg.Handles).
		Msg("blockmode: engine created")
	return e
}

// ID is a random identifier attached to every log event of the engine.
func (e *Engine) ID() uuid.UUID { return e.id }

// Hardware reports whether the engine drives a shared device.
func (e *Engine) Hardware() bool { return e.hw != nil }

func (e *Engine) lookup(h Handle) (*handle, error) {
	if int(h) < 0 || int(h) >= len(e.handles) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHandle, h)
	}
	hd := e.handles[h]
	if hd.state == StateClosed {
		return nil, fmt.Errorf("%w: %d is closed", ErrInvalidHandle, h)
	}
	return hd, nil
}

// Open reserves a free handle.
func (e *Engine) Open() (Handle, error) {
	for _, hd := range e.handles {
		if hd.state != StateClosed {
			continue
		}
		hd.state = StateOpen
		if e.hw != nil {
			hd.dev = e.hw
		} else {
			hd.dev = &softDevice{}
		}
		return hd.id, nil
	}
	return -1, fmt.Errorf("%w: all %d handles are open", ErrInvalidHandle, len(e.handles))
}

// Close releases a handle. A busy handle cannot be closed.
func (e *Engine) Close(h Handle) error {
	hd, err := e.lookup(h)
	if err != nil {
		return err
	}
	if hd.state == StateBusy {
		return ErrBusy
	}
	if e.resident == hd {
		e.resident = nil
	}
	*hd = handle{id: hd.id}
	return nil
}

// Initialize configures h for a mode, key and IV. It resets a handle in the
// Error state. On the hardware engine a GCM handle stays Busy until the hash
// subkey has been computed.
func (e *Engine) Initialize(h Handle, p Params) error {
	hd, err := e.lookup(h)
	if err != nil {
		return err
	}
	if hd.state == StateBusy {
		return ErrBusy
	}
	if err := p.Key.Validate(); err != nil {
		return err
	}
	if e.hw == nil && !p.Key.Type.IsSoftware() {
		return fmt.Errorf("%w: hardware key slots need a hardware engine", ErrUnsupportedKeyType)
	}
	if e.hw != nil && p.Key.Type == primitive.KeySoftwareExpanded {
		return fmt.Errorf("%w: key registers cannot take an expanded key", ErrUnsupportedKeyType)
	}

	bs := p.Key.Algorithm.BlockSize()
	ctx, err := newModeContext(p, bs, e.cfg.KeyStreamBlocks)
	if err != nil {
		return err
	}

	if e.resident == hd {
		e.resident = nil
	}
	hd.mode = p.Mode
	hd.key = p.Key
	hd.key.Material = append([]byte(nil), p.Key.Material...)
	hd.bs = bs
	hd.ctx = ctx
	hd.loaded = false
	hd.err = nil
	hd.clearRequest()

	log.Debug().Str("engine", e.id.String()).Int("handle", int(h)).
		Str("mode", p.Mode.String()).Str("key", p.Key.Mode.String()).
		Msg("blockmode: handle initialized")

	if p.Mode != ModeGCM {
		hd.state = StateIdle
		hd.phase = phaseIdle
		return nil
	}
	e.stage(hd, phaseInitSubkey)
	return e.dispatch(hd)
}

// State returns the lifecycle state of h; unknown handles are Closed.
func (e *Engine) State(h Handle) State {
	hd, err := e.lookup(h)
	if err != nil {
		return StateClosed
	}
	return hd.state
}

// Mode returns the mode h was initialized with.
func (e *Engine) Mode(h Handle) Mode {
	hd, err := e.lookup(h)
	if err != nil {
		return ModeNone
	}
	return hd.mode
}

// Err returns the error that put h into the Error state.
func (e *Engine) Err(h Handle) error {
	hd, err := e.lookup(h)
	if err != nil {
		return err
	}
	return hd.err
}

// Processed returns the output count of the last operation on h: bytes, or
// bits for EncryptBits and DecryptBits. It is final once h is no longer
// Busy.
func (e *Engine) Processed(h Handle) int {
	hd, err := e.lookup(h)
	if err != nil {
		return 0
	}
	return hd.processed
}

// Tag returns the full 16-byte tag of a completed GCM stream, or nil.
func (e *Engine) Tag(h Handle) []byte {
	hd, err := e.lookup(h)
	if err != nil {
		return nil
	}
	g, ok := hd.ctx.(*gcmContext)
	if !ok || !g.tagReady {
		return nil
	}
	return append([]byte(nil), g.tag[:]...)
}

// KeyStreamLen returns the number of precomputed keystream bytes buffered
// for h.
func (e *Engine) KeyStreamLen(h Handle) int {
	hd, err := e.lookup(h)
	if err != nil {
		return 0
	}
	if g, ok := hd.ctx.(keyGenerator); ok {
		return g.keyRing().Len()
	}
	return 0
}

// stage makes hd Busy with the state machine resuming at p, going through
// INIT first unless this handle's configuration is in the device.
func (e *Engine) stage(hd *handle, p phase) {
	hd.state = StateBusy
	hd.err = nil
	hd.resume = p
	hd.phase = fn.T(hd.loaded, p, phaseInit)
}

// dispatch runs a staged handle to completion on the software engine. The
// hardware engine leaves it for Tasks.
func (e *Engine) dispatch(hd *handle) error {
	if e.hw != nil {
		return nil
	}
	e.run(hd)
	if hd.state == StateError {
		return hd.err
	}
	return nil
}

func (e *Engine) makeResident(hd *handle) {
	hd.loaded = true
	if e.hw == nil {
		return
	}
	if e.resident != nil && e.resident != hd {
		e.resident.loaded = false
	}
	e.resident = hd
}

func (e *Engine) finish(hd *handle) {
	hd.state = StateIdle
	hd.phase = phaseIdle
}

func (e *Engine) fail(hd *handle, err error) {
	hd.state = StateError
	hd.err = err
	hd.phase = phaseIdle
	log.Warn().Str("engine", e.id.String()).Int("handle", int(hd.id)).
		Str("mode", hd.mode.String()).Int("processed", hd.processed).
		Err(err).Msg("blockmode: handle failed")
}

// Buffered returns the bytes an ECB or CBC handle holds back until a whole
// block is available.
func (e *Engine) Buffered(h Handle) int {
	hd, err := e.lookup(h)
	if err != nil {
		return 0
	}
	if b, ok := hd.ctx.(interface{ buffered() int }); ok {
		return b.buffered()
	}
	return 0
}
