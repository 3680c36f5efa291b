package signature

import (
	"fmt"
	"strings"
)

// Flags is the set of handshake properties recorded alongside a signature.
type Flags uint8

const (
	// FlagCompr is set when the client offers DEFLATE compression.
	FlagCompr Flags = 1 << iota
	// FlagV2 is set for SSLv2-framed client hellos.
	FlagV2
	// FlagVer is set when the hello version differs from the record version.
	FlagVer
	// FlagTime is set when the client clock looks random.
	FlagTime
	// FlagSTime is set when the client clock looks like seconds since boot.
	FlagSTime
)

var flagNames = []struct {
	name string
	flag Flags
}{
	{"compr", FlagCompr},
	{"v2", FlagV2},
	{"ver", FlagVer},
	{"time", FlagTime},
	{"stime", FlagSTime},
}

// Has reports whether all bits of f2 are set.
func (f Flags) Has(f2 Flags) bool { return f&f2 == f2 }

// String renders the flags as a comma separated keyword list in canonical order.
func (f Flags) String() string {
	var parts []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseFlags parses a comma separated keyword list. The empty string yields no flags.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	if s == "" {
		return f, nil
	}
	for _, word := range strings.Split(s, ",") {
		if word == "" {
			continue
		}
		matched := false
		for _, fn := range flagNames {
			if word == fn.name {
				f |= fn.flag
				matched = true
				break
			}
		}
		if !matched {
			return 0, fmt.Errorf("%w: %q", ErrUnknownFlag, word)
		}
	}
	return f, nil
}
