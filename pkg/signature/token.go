// Package signature models SSL/TLS client signatures: ordered cipher and
// extension patterns, handshake flags and the textual database syntax used to
// describe them.
//
// A Pattern is an ordered list of tokens. Reference patterns (from the
// fingerprint database) may contain wildcard and optional tokens; patterns
// extracted from live traffic only ever contain exact values.
package signature

import (
	"strconv"
	"strings"
)

// ValueMask limits token values to the 24 bits needed for SSLv2 cipher specs.
const ValueMask = 0xFFFFFF

// MaxTokens bounds the number of tokens a single database pattern may hold.
const MaxTokens = 128

// Kind identifies what a token matches.
type Kind uint8

const (
	// Exact matches one literal value.
	Exact Kind = iota
	// Wildcard matches zero or more values.
	Wildcard
	// Optional matches a value that may be absent.
	Optional
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Wildcard:
		return "wildcard"
	case Optional:
		return "optional"
	default:
		return "unknown"
	}
}

// Token is one element of a Pattern.
type Token struct {
	Kind  Kind
	Value uint32 // unused for Wildcard
}

// ExactToken returns an Exact token for v.
func ExactToken(v uint32) Token { return Token{Kind: Exact, Value: v & ValueMask} }

// OptionalToken returns an Optional token for v.
func OptionalToken(v uint32) Token { return Token{Kind: Optional, Value: v & ValueMask} }

// WildcardToken returns a Wildcard token.
func WildcardToken() Token { return Token{Kind: Wildcard} }

// String renders the token in database syntax.
func (t Token) String() string {
	switch t.Kind {
	case Wildcard:
		return "*"
	case Optional:
		return "?" + strconv.FormatUint(uint64(t.Value), 16)
	default:
		return strconv.FormatUint(uint64(t.Value), 16)
	}
}

// Pattern is an ordered token sequence. Its length is its terminator.
type Pattern []Token

// Values builds a concrete pattern of Exact tokens.
func Values(vs ...uint32) Pattern {
	p := make(Pattern, 0, len(vs))
	for _, v := range vs {
		p = append(p, ExactToken(v))
	}
	return p
}

// IsConcrete reports whether the pattern holds Exact tokens only.
func (p Pattern) IsConcrete() bool {
	for _, t := range p {
		if t.Kind != Exact {
			return false
		}
	}
	return true
}

// String renders the pattern as comma separated tokens.
func (p Pattern) String() string {
	var b strings.Builder
	for i, t := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.String())
	}
	return b.String()
}

// ExtensionString renders an extension pattern. The server_name extension
// (type 0) is always written as optional: whether a client sends it depends
// on how it was invoked, not on the TLS stack.
func (p Pattern) ExtensionString() string {
	var b strings.Builder
	for i, t := range p {
		if i > 0 {
			b.WriteByte(',')
		}
		if t.Kind == Exact && t.Value == 0 {
			b.WriteString("?0")
			continue
		}
		b.WriteString(t.String())
	}
	return b.String()
}
