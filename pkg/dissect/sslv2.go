package dissect

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/cryptobyte"

	"github.com/vulntor/sslprint/pkg/signature"
)

// ParseV2 dissects an SSLv2 CLIENT-HELLO. b starts at the two byte record
// length and ends at the end of the record.
//
// The V2 flag is not set here; callers know which framing they matched.
func ParseV2(b []byte) (*signature.Signature, error) {
	s := cryptobyte.String(b)

	var (
		msgLen                     uint16
		msgType, major, minor      uint8
		cipherLen, sidLen, chalLen uint16
	)
	if !s.ReadUint16(&msgLen) ||
		!s.ReadUint8(&msgType) ||
		!s.ReadUint8(&major) ||
		!s.ReadUint8(&minor) ||
		!s.ReadUint16(&cipherLen) ||
		!s.ReadUint16(&sidLen) ||
		!s.ReadUint16(&chalLen) {
		return nil, v2Error("header", ErrTruncated)
	}

	sig := &signature.Signature{Extensions: signature.Pattern{}}

	// SSLv2 itself is 0.2 on the wire; most clients announce 3.x here.
	if major == 0 && minor == 2 {
		sig.Version = 0x0200
	} else {
		sig.Version = uint16(major)<<8 | uint16(minor)
	}

	if cipherLen%3 != 0 {
		log.Debug().Str("component", "dissect").Uint16("cipher_spec_len", cipherLen).Msg("SSLv2 cipher spec length is not divisible by 3")
		return nil, v2Error("cipher_specs", ErrBadCipherSpecLength)
	}

	var specs cryptobyte.String
	if !s.ReadBytes((*[]byte)(&specs), int(cipherLen)) {
		return nil, v2Error("cipher_specs", ErrTruncated)
	}

	sig.Ciphers = make(signature.Pattern, 0, cipherLen/3)
	for !specs.Empty() {
		var spec uint32
		specs.ReadUint24(&spec)
		sig.Ciphers = append(sig.Ciphers, signature.ExactToken(spec))
	}

	if !s.Skip(int(sidLen) + int(chalLen)) {
		log.Debug().Str("component", "dissect").Msg("SSLv2 frame truncated (but valid)")
		return sig, nil
	}

	if !s.Empty() {
		log.Debug().Str("component", "dissect").Int("extra", len(s)).Msg("SSLv2 bytes remaining after client hello")
	}

	return sig, nil
}
