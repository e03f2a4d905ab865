package blockmode

import (
	"context"

	"blockmode-go/pkg/log"
)

var zeroBlock [16]byte

// Tasks advances the hardware engine by one scheduling step. It returns at
// once while the device is busy. Otherwise it records device faults and
// aborts against the handle whose configuration is loaded, runs the current
// handle until it has to wait, and moves round-robin to the next Busy handle
// once the current one is done. It does nothing on the software engine.
func (e *Engine) Tasks() {
	if e.hw == nil || e.hw.Busy() {
		return
	}
	cur := e.handles[e.current]

	if e.hw.Aborted() {
		e.hw.ClearAbort()
		if cur.state == StateBusy {
			e.fail(cur, ErrAbort)
		}
	}
	if e.resident != nil && e.hw.Fault() {
		if e.resident.state == StateBusy {
			e.fail(e.resident, ErrHwSetting)
		}
		e.resident.loaded = false
		e.resident = nil
	}

	if cur.state == StateBusy {
		e.run(cur)
	}
	if cur.state != StateBusy {
		e.advance()
	}
}

// advance makes the next Busy handle current. Switching handles marks the
// device as not loaded so the new handle starts over at INIT.
func (e *Engine) advance() {
	n := len(e.handles)
	for i := 1; i <= n; i++ {
		idx := (e.current + i) % n
		if e.handles[idx].state != StateBusy {
			continue
		}
		if idx != e.current {
			if e.resident != nil {
				e.resident.loaded = false
				e.resident = nil
			}
			log.Debug().Str("engine", e.id.String()).
				Int("from", e.current).Int("to", idx).
				Msg("blockmode: handle switch")
			e.current = idx
		}
		return
	}
}

// Wait drives Tasks until h is no longer Busy and returns the error that
// stopped it, if any. It returns ctx.Err() if ctx is done first; the
// operation keeps its state and can be waited on again.
func (e *Engine) Wait(ctx context.Context, h Handle) error {
	hd, err := e.lookup(h)
	if err != nil {
		return err
	}
	for hd.state == StateBusy {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		e.Tasks()
	}
	if hd.state == StateError {
		return hd.err
	}
	return nil
}

// run steps hd until it waits on the device or leaves Busy.
func (e *Engine) run(hd *handle) {
	if !hd.loaded && hd.phase == hd.resume {
		hd.phase = phaseInit
	}
	for hd.state == StateBusy {
		wait, err := e.step(hd)
		if err != nil {
			e.fail(hd, err)
			return
		}
		if wait {
			return
		}
	}
}

// collect reads the device result once it is ready.
func (e *Engine) collect(hd *handle) (bool, error) {
	if hd.dev.Busy() {
		return true, nil
	}
	if hd.dev.Aborted() {
		hd.dev.ClearAbort()
		return false, ErrAbort
	}
	if hd.dev.Fault() {
		return false, ErrHwSetting
	}
	hd.dev.Output(hd.out[:hd.bs])
	return false, nil
}

func (e *Engine) step(hd *handle) (wait bool, err error) {
	switch hd.phase {
	case phaseInit:
		if err := hd.dev.Load(DeviceConfig{Key: hd.key}); err != nil {
			return false, err
		}
		if hd.dev.Fault() {
			return false, ErrHwSetting
		}
		e.makeResident(hd)
		hd.phase = hd.resume

	case phaseProcessData:
		if g, ok := hd.ctx.(*gcmContext); ok {
			if err := g.prepare(hd); err != nil {
				return false, err
			}
		}
		hd.phase = phaseAddData

	case phaseAddData:
		dir, in, ok, err := hd.ctx.next(hd)
		if err != nil {
			return false, err
		}
		if !ok {
			if _, gcm := hd.ctx.(*gcmContext); gcm && hd.opts.Has(StreamComplete) {
				hd.phase = phaseGenerateTag
				return false, nil
			}
			e.finish(hd)
			return false, nil
		}
		if err := hd.dev.Start(dir, in); err != nil {
			return false, err
		}
		hd.phase = phaseWaitForHW

	case phaseWaitForHW:
		if wait, err := e.collect(hd); wait || err != nil {
			return wait, err
		}
		if err := hd.ctx.complete(hd, hd.out[:hd.bs]); err != nil {
			return false, err
		}
		hd.phase = phaseAddData

	case phaseGenerateKeystream:
		if hd.blocks == 0 {
			e.finish(hd)
			return false, nil
		}
		in, err := hd.ctx.(keyGenerator).seed()
		if err != nil {
			return false, err
		}
		if err := hd.dev.Start(Encrypt, in); err != nil {
			return false, err
		}
		hd.phase = phaseWaitForKeystream

	case phaseWaitForKeystream:
		if wait, err := e.collect(hd); wait || err != nil {
			return wait, err
		}
		if err := hd.ctx.(keyGenerator).store(hd.out[:hd.bs]); err != nil {
			return false, err
		}
		hd.blocks--
		hd.phase = phaseGenerateKeystream

	case phaseInitSubkey:
		if err := hd.dev.Start(Encrypt, zeroBlock[:hd.bs]); err != nil {
			return false, err
		}
		hd.phase = phaseInitSubkeyFinish

	case phaseInitSubkeyFinish:
		if wait, err := e.collect(hd); wait || err != nil {
			return wait, err
		}
		if err := hd.ctx.(*gcmContext).setSubkey(hd.out[:hd.bs]); err != nil {
			return false, err
		}
		e.finish(hd)

	case phaseGenerateTag:
		in := hd.ctx.(*gcmContext).tagInput()
		if err := hd.dev.Start(Encrypt, in); err != nil {
			return false, err
		}
		hd.phase = phaseGenerateTagFinish

	case phaseGenerateTagFinish:
		if wait, err := e.collect(hd); wait || err != nil {
			return wait, err
		}
		if err := hd.ctx.(*gcmContext).finishTag(hd, hd.out[:hd.bs]); err != nil {
			return false, err
		}
		e.finish(hd)

	default:
		e.finish(hd)
	}
	return false, nil
}
