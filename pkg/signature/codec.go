package signature

// DecodePattern reads comma separated tokens from text until a ':' or the end
// of the string. It returns the decoded pattern and the unconsumed remainder,
// which starts at the terminating ':' (or is empty).
//
// Accepted tokens are "*", hex digits, and "?" followed by hex digits. Values
// are truncated to their low 24 bits.
func DecodePattern(text string) (Pattern, string, error) {
	var out Pattern
	pos := 0

	for {
		if len(out) == MaxTokens {
			return nil, text[pos:], ErrTooManyTokens
		}

		if pos >= len(text) {
			return nil, "", &DecodeError{Offset: pos, Reason: "expected token, got end of input"}
		}

		switch c := text[pos]; {
		case c == '*':
			out = append(out, WildcardToken())
			pos++

		case c == '?':
			v, n := parseHex(text[pos+1:])
			if n == 0 {
				return nil, text[pos:], &DecodeError{Offset: pos + 1, Reason: "expected hex digits after '?'"}
			}
			out = append(out, OptionalToken(v))
			pos += 1 + n

		case isHexDigit(c):
			v, n := parseHex(text[pos:])
			if n == 0 {
				return nil, text[pos:], &DecodeError{Offset: pos, Reason: "expected hex digits"}
			}
			out = append(out, ExactToken(v))
			pos += n

		default:
			return nil, text[pos:], &DecodeError{Offset: pos, Reason: "unexpected character " + quoteByte(c)}
		}

		if pos >= len(text) {
			return out, "", nil
		}

		switch text[pos] {
		case ':':
			return out, text[pos:], nil
		case ',':
			pos++
		default:
			return nil, text[pos:], &DecodeError{Offset: pos, Reason: "expected ',' or ':' after token, got " + quoteByte(text[pos])}
		}
	}
}

// MustDecodePattern is DecodePattern for literals in code and tests. It
// panics on error or when text holds more than one pattern.
func MustDecodePattern(text string) Pattern {
	p, rest, err := DecodePattern(text)
	if err != nil {
		panic(err)
	}
	if rest != "" {
		panic("signature: trailing input after pattern: " + rest)
	}
	return p
}

// parseHex consumes hex digits from the start of s, accepting an optional
// 0x prefix. It returns the value masked to 24 bits and the number of bytes
// consumed; n is zero when no digit was read.
func parseHex(s string) (uint32, int) {
	i := 0
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') && isHexDigit(s[2]) {
		i = 2
	}
	start := i
	var v uint32
	for i < len(s) && isHexDigit(s[i]) {
		v = (v<<4 | uint32(hexValue(s[i]))) & ValueMask
		i++
	}
	if i == start {
		return 0, 0
	}
	return v, i
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func hexValue(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

func quoteByte(c byte) string {
	if c < 0x20 || c > 0x7e {
		return "0x" + string("0123456789abcdef"[c>>4]) + string("0123456789abcdef"[c&0xf])
	}
	return "'" + string(c) + "'"
}
