package signature

import (
	"errors"
	"fmt"
)

var (
	// ErrTooManyTokens indicates a pattern longer than MaxTokens.
	ErrTooManyTokens = errors.New("too many ciphers or extensions")

	// ErrMalformed indicates a signature line that does not follow the
	// "<major>.<minor>:<ciphers>:<extensions>:<flags>" layout.
	ErrMalformed = errors.New("malformed signature")

	// ErrUnknownFlag indicates a flag keyword outside compr, v2, ver, time, stime.
	ErrUnknownFlag = errors.New("unrecognized flag")
)

// DecodeError reports a pattern token that could not be decoded.
type DecodeError struct {
	Offset int    // byte offset into the decoded text
	Reason string // what was expected
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode pattern at offset %d: %s", e.Offset, e.Reason)
}

// Is lets errors.Is(err, ErrMalformed) match decode failures.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformed
}
