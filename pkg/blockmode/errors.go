package blockmode

import (
	"errors"

	"blockmode-go/pkg/keystream"
	"blockmode-go/pkg/primitive"
)

var (
	ErrInvalidHandle         = errors.New("invalid handle")
	ErrUnsupportedKeyType    = primitive.ErrUnsupportedKeyType
	ErrInvalidFunction       = primitive.ErrInvalidFunction
	ErrBusy                  = errors.New("handle busy")
	ErrInvalidAuthentication = errors.New("authentication tag mismatch")
	ErrKeyStreamOutOfSpace   = keystream.ErrOutOfSpace
	ErrCtrCounterExpired     = keystream.ErrCounterExpired
	ErrAbort                 = errors.New("operation aborted by hardware")
	ErrHwSetting             = errors.New("hardware reported a configuration fault")

	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrShortBuffer         = errors.New("destination buffer too small")
	ErrAuthenticationOrder = errors.New("authenticated data must precede ciphertext")
)
