package blockmode

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a handle.
type State uint8

const (
	StateClosed State = iota
	StateOpen
	StateIdle
	StateBusy
	StateError
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

type Mode uint8

const (
	ModeNone Mode = iota
	ModeECB
	ModeCBC
	ModeOFB
	ModeCFB1
	ModeCFB8
	ModeCFB
	ModeCTR
	ModeGCM
)

var modeNames = map[Mode]string{
	ModeNone: "none",
	ModeECB:  "ecb",
	ModeCBC:  "cbc",
	ModeOFB:  "ofb",
	ModeCFB1: "cfb1",
	ModeCFB8: "cfb8",
	ModeCFB:  "cfb",
	ModeCTR:  "ctr",
	ModeGCM:  "gcm",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode looks a mode up by its lower-case name; "cfb128" is accepted for
// the full-block CFB.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(name)
	if name == "cfb128" {
		return ModeCFB, nil
	}
	for m, s := range modeNames {
		if s == name && m != ModeNone {
			return m, nil
		}
	}
	return ModeNone, fmt.Errorf("%w: unknown mode %q", ErrInvalidParameter, name)
}

// Modes lists every supported mode in a stable order.
func Modes() []Mode {
	return []Mode{ModeECB, ModeCBC, ModeOFB, ModeCFB1, ModeCFB8, ModeCFB, ModeCTR, ModeGCM}
}

// phase is the position of a handle inside its mode state machine.
type phase uint8

const (
	phaseIdle phase = iota
	phaseInit
	phaseProcessData
	phaseAddData
	phaseWaitForHW
	phaseGenerateKeystream
	phaseWaitForKeystream
	phaseInitSubkey
	phaseInitSubkeyFinish
	phaseGenerateTag
	phaseGenerateTagFinish
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "IDLE"
	case phaseInit:
		return "INIT"
	case phaseProcessData:
		return "PROCESS_DATA"
	case phaseAddData:
		return "ADD_DATA"
	case phaseWaitForHW:
		return "WAIT_FOR_HW"
	case phaseGenerateKeystream:
		return "GENERATE_KEYSTREAM"
	case phaseWaitForKeystream:
		return "WAIT_FOR_KEYSTREAM"
	case phaseInitSubkey:
		return "INIT_SUBKEY"
	case phaseInitSubkeyFinish:
		return "INIT_SUBKEY_FINISH"
	case phaseGenerateTag:
		return "GENERATE_TAG"
	case phaseGenerateTagFinish:
		return "GENERATE_TAG_FINISH"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}
