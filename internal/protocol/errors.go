package protocol

import (
	"errors"
	"fmt"
)

// ErrDecode is the root of every decode failure.
var ErrDecode = errors.New("protocol: decode failed")

var (
	ErrEmpty         = fmt.Errorf("%w: empty instruction", ErrDecode)
	ErrUnknownOpcode = fmt.Errorf("%w: unknown opcode", ErrDecode)
	ErrTruncated     = fmt.Errorf("%w: truncated data", ErrDecode)
	ErrInvalidText   = fmt.Errorf("%w: invalid utf-8 text", ErrDecode)
	ErrInvalidBool   = fmt.Errorf("%w: invalid bool value", ErrDecode)
	ErrTrailingBytes = fmt.Errorf("%w: trailing bytes", ErrDecode)
)

// ErrEncode is returned when a command cannot be represented on the wire.
var ErrEncode = errors.New("protocol: encode failed")

// FieldError names the opcode and field where decoding stopped.
type FieldError struct {
	Opcode Opcode
	Field  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: opcode=%s field=%s", e.Err, e.Opcode, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}
