package signature

import (
	"fmt"
	"strconv"
	"strings"
)

// Signature describes one client hello, either as a database reference or as
// observed on the wire.
type Signature struct {
	Version    uint16  // request version, major<<8 | minor
	Ciphers    Pattern // cipher suites in offered order
	Extensions Pattern // extension types in offered order; empty for SSLv2
	Flags      Flags

	// Only meaningful for observed SSLv3/TLS hellos.
	RemoteTime uint32 // gmt_unix_time from the client random
	Drift      int64  // local time minus RemoteTime, in seconds
}

// VersionString renders the request version as "major.minor".
func (s *Signature) VersionString() string {
	return strconv.Itoa(int(s.Version>>8)) + "." + strconv.Itoa(int(s.Version&0xff))
}

// String renders the signature in database syntax.
func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString(s.VersionString())
	b.WriteByte(':')
	b.WriteString(s.Ciphers.String())
	b.WriteByte(':')
	b.WriteString(s.Extensions.ExtensionString())
	b.WriteByte(':')
	b.WriteString(s.Flags.String())
	return b.String()
}

// Parse decodes a database signature line of the form
// "<major>.<minor>:<ciphers>:<extensions>:<flags>". Both lists need at
// least one token.
func Parse(raw string) (*Signature, error) {
	return parse(raw, false)
}

// ParseObserved decodes a signature as rendered by Signature.String for a
// hello seen on the wire. Unlike Parse it accepts empty cipher and
// extension lists, which SSLv2 hellos and hellos without extensions
// produce.
func ParseObserved(raw string) (*Signature, error) {
	return parse(raw, true)
}

func parse(raw string, allowEmpty bool) (*Signature, error) {
	major, rest, ok := strings.Cut(raw, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing '.' in version", ErrMalformed)
	}
	minor, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return nil, fmt.Errorf("%w: missing ':' after version", ErrMalformed)
	}

	maj, err := parseVersionPart(major)
	if err != nil {
		return nil, err
	}
	mnr, err := parseVersionPart(minor)
	if err != nil {
		return nil, err
	}

	sig := &Signature{Version: uint16(maj)<<8 | uint16(mnr)}

	sig.Ciphers, rest, err = decodeField(rest, allowEmpty)
	if err != nil {
		return nil, fmt.Errorf("ciphers: %w", err)
	}
	if !strings.HasPrefix(rest, ":") {
		return nil, fmt.Errorf("%w: missing ':' after ciphers", ErrMalformed)
	}

	sig.Extensions, rest, err = decodeField(rest[1:], allowEmpty)
	if err != nil {
		return nil, fmt.Errorf("extensions: %w", err)
	}
	if !strings.HasPrefix(rest, ":") {
		return nil, fmt.Errorf("%w: missing ':' after extensions", ErrMalformed)
	}

	sig.Flags, err = ParseFlags(rest[1:])
	if err != nil {
		return nil, err
	}

	return sig, nil
}

func decodeField(text string, allowEmpty bool) (Pattern, string, error) {
	if allowEmpty && (text == "" || text[0] == ':') {
		return Pattern{}, text, nil
	}
	return DecodePattern(text)
}

func parseVersionPart(s string) (uint8, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty version number", ErrMalformed)
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: version %q: %v", ErrMalformed, s, err)
	}
	return uint8(n), nil
}
