package dissect

import (
	"errors"
	"fmt"
)

var (
	// ErrTruncated indicates a required field runs past the available bytes.
	ErrTruncated = errors.New("truncated")

	// ErrBadCipherSpecLength indicates an SSLv2 cipher spec list whose length
	// is not a multiple of three.
	ErrBadCipherSpecLength = errors.New("cipher spec length not a multiple of 3")

	// ErrOddCipherLength indicates a cipher suite list with an odd byte length.
	ErrOddCipherLength = errors.New("cipher suite length is odd")

	// ErrFragmentCoalescing indicates a handshake message spanning several
	// records. Reassembly is not supported.
	ErrFragmentCoalescing = errors.New("handshake message spans records")

	// ErrNotClientHello indicates the first handshake message is not a ClientHello.
	ErrNotClientHello = errors.New("first handshake message is not ClientHello")
)

// ParseError describes why a handshake could not be dissected.
type ParseError struct {
	Proto string // "sslv2" or "sslv3"
	Field string // field being read when parsing stopped
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Proto, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Proto, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error { return e.Err }

func v2Error(field string, err error) error {
	return &ParseError{Proto: "sslv2", Field: field, Err: err}
}

func v3Error(field string, err error) error {
	return &ParseError{Proto: "sslv3", Field: field, Err: err}
}
