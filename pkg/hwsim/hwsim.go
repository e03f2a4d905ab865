// Package hwsim simulates a memory-mapped AES/TDES peripheral: one key
// register, seven one-time-programmable key slots, a block latency counted
// in status polls, and latched fault and abort flags.
package hwsim

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/log"
	"blockmode-go/pkg/primitive"
)

const Slots = 7

var ErrSlot = errors.New("invalid key slot")

type Config struct {
	// Latency is the number of Busy polls that report true after Start.
	Latency int
}

func DefaultConfig() Config {
	return Config{Latency: 2}
}

// Stats counts what the peripheral has been asked to do.
type Stats struct {
	Loads  uint64
	Starts uint64
	Polls  uint64
	Faults uint64
	Aborts uint64
}

type Peripheral struct {
	cfg   Config
	slots [Slots][]byte

	block   cipher.Block
	loaded  primitive.Key
	pending int
	out     [primitive.MaxBlockSize]byte

	fault     bool
	abort     bool
	failStart int // fault on the n-th Start from now, 0 for never

	stats Stats
}

var _ blockmode.Device = (*Peripheral)(nil)

func New(cfg Config) *Peripheral {
	if cfg.Latency < 0 {
		cfg.Latency = 0
	}
	return &Peripheral{cfg: cfg}
}

// Provision burns key material into OTP slot 1..7.
func (p *Peripheral) Provision(slot int, material []byte) error {
	if slot < 1 || slot > Slots {
		return fmt.Errorf("%w: %d", ErrSlot, slot)
	}
	p.slots[slot-1] = append([]byte(nil), material...)
	return nil
}

// Load writes the key and mode registers. Key problems latch a fault
// instead of failing the call, like the register interface does.
func (p *Peripheral) Load(cfg blockmode.DeviceConfig) error {
	p.stats.Loads++
	p.fault = false
	p.block = nil
	p.pending = 0

	k := cfg.Key
	material := k.Material
	if slot, ok := k.Type.Slot(); ok {
		material = p.slots[slot-1]
		if material == nil {
			p.raise("key slot not provisioned", slot)
			return nil
		}
	} else if k.Type != primitive.KeySoftware {
		p.raise("key type not accepted by key register", int(k.Type))
		return nil
	}

	b, err := primitive.Expand(k.Algorithm, k.Mode, material)
	if err != nil {
		p.raise(err.Error(), 0)
		return nil
	}
	p.block = b
	p.loaded = k
	return nil
}

func (p *Peripheral) raise(reason string, detail int) {
	p.fault = true
	p.stats.Faults++
	log.Debug().Str("reason", reason).Int("detail", detail).Msg("hwsim: fault latched")
}

// Start begins one block operation. The result is computed at once and
// held back until the latency has elapsed.
func (p *Peripheral) Start(dir blockmode.Direction, in []byte) error {
	if p.pending > 0 {
		return fmt.Errorf("%w: start while busy", blockmode.ErrHwSetting)
	}
	p.stats.Starts++
	if p.failStart > 0 {
		p.failStart--
		if p.failStart == 0 {
			p.raise("injected fault", 0)
		}
	}
	if p.fault || p.block == nil {
		p.fault = true
		return nil
	}
	bs := p.block.BlockSize()
	if len(in) < bs {
		return fmt.Errorf("%w: short input block", blockmode.ErrHwSetting)
	}
	if dir == blockmode.Decrypt {
		p.block.Decrypt(p.out[:bs], in[:bs])
	} else {
		p.block.Encrypt(p.out[:bs], in[:bs])
	}
	p.pending = p.cfg.Latency
	return nil
}

// Busy reports whether the current operation is still running. Every call
// counts as one poll.
func (p *Peripheral) Busy() bool {
	p.stats.Polls++
	if p.pending > 0 {
		p.pending--
		return true
	}
	return false
}

func (p *Peripheral) Fault() bool   { return p.fault }
func (p *Peripheral) Aborted() bool { return p.abort }
func (p *Peripheral) ClearAbort()   { p.abort = false }

func (p *Peripheral) Output(out []byte) { copy(out, p.out[:]) }

// Abort cancels the operation in flight and latches the abort flag.
func (p *Peripheral) Abort() {
	p.abort = true
	p.pending = 0
	p.stats.Aborts++
}

// FailAfter latches a fault on the n-th Start call from now.
func (p *Peripheral) FailAfter(n int) {
	p.failStart = n
}

// Stats returns the operation counters.
func (p *Peripheral) Stats() Stats { return p.stats }

// Loaded returns the key currently in the key register.
func (p *Peripheral) Loaded() primitive.Key { return p.loaded }
