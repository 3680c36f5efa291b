package dissect

import (
	"encoding/binary"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/cryptobyte"

	"github.com/vulntor/sslprint/pkg/signature"
)

// ParseV3 dissects the handshake fragment of the first SSLv3/TLS record.
// recordVersion is the version from the record header and localTime the
// observer's clock in Unix seconds.
//
// Truncation inside the compression methods or the extension list is
// tolerated: the signature collected so far is returned without error.
func ParseV3(fragment []byte, recordVersion uint16, localTime uint32) (*signature.Signature, error) {
	s := cryptobyte.String(fragment)

	var (
		msgType uint8
		msgLen  uint32
	)
	if !s.ReadUint8(&msgType) || !s.ReadUint24(&msgLen) {
		return nil, v3Error("handshake header", ErrTruncated)
	}
	if int(msgLen) > len(s) {
		log.Debug().Str("component", "dissect").Uint32("msg_len", msgLen).Int("available", len(s)).Msg("SSL fragment coalescing not supported")
		return nil, v3Error("", ErrFragmentCoalescing)
	}
	if msgType != MsgClientHello {
		log.Debug().Str("component", "dissect").Uint8("msg_type", msgType).Msg("first SSL handshake message is not ClientHello")
		return nil, v3Error("", ErrNotClientHello)
	}

	body := cryptobyte.String(s[:msgLen])
	sig := &signature.Signature{Extensions: signature.Pattern{}}

	var random []byte
	if !body.ReadUint16(&sig.Version) ||
		!body.ReadUint32(&sig.RemoteTime) ||
		!body.ReadBytes(&random, randomLen) {
		return nil, v3Error("client hello", ErrTruncated)
	}

	if sig.Version != recordVersion {
		sig.Flags |= signature.FlagVer
	}

	sig.Drift = int64(int32(localTime - sig.RemoteTime))
	switch {
	case sig.RemoteTime < year:
		sig.Flags |= signature.FlagSTime
	case abs(sig.Drift) > 5*year:
		sig.Flags |= signature.FlagTime
	}

	checkRandom(random)

	if !skipUint8Prefixed(&body) {
		return nil, v3Error("session_id", ErrTruncated)
	}

	var cipherLen uint16
	if !body.ReadUint16(&cipherLen) {
		return nil, v3Error("cipher_suites", ErrTruncated)
	}
	if cipherLen%2 != 0 {
		log.Debug().Str("component", "dissect").Uint16("cipher_suites_len", cipherLen).Msg("SSL cipher suites length is odd")
		return nil, v3Error("cipher_suites", ErrOddCipherLength)
	}
	var suites cryptobyte.String
	if !body.ReadBytes((*[]byte)(&suites), int(cipherLen)) {
		return nil, v3Error("cipher_suites", ErrTruncated)
	}
	sig.Ciphers = make(signature.Pattern, 0, cipherLen/2)
	for !suites.Empty() {
		var suite uint16
		suites.ReadUint16(&suite)
		sig.Ciphers = append(sig.Ciphers, signature.ExactToken(uint32(suite)))
	}

	var methods cryptobyte.String
	if !body.ReadUint8LengthPrefixed(&methods) {
		logTruncated("compression_methods")
		return sig, nil
	}
	for _, m := range methods {
		if m == compressionDeflate {
			sig.Flags |= signature.FlagCompr
		}
	}

	var extLen uint16
	if !body.ReadUint16(&extLen) {
		logTruncated("extensions")
		return sig, nil
	}

	exts := body
	if int(extLen) > len(body) {
		// p0f reports no extensions here; the types that fit are kept
		logTruncated("extensions")
	} else {
		exts = body[:extLen]
		if rest := len(body) - int(extLen); rest > 0 {
			log.Debug().Str("component", "dissect").Int("extra", rest).Msg("SSL bytes remaining after extensions")
		}
	}
	sig.Extensions = readExtensionTypes(exts)

	return sig, nil
}

// readExtensionTypes collects extension types until the list runs out. An
// extension whose header is complete is recorded even when its payload is
// cut short; collection stops there.
func readExtensionTypes(s cryptobyte.String) signature.Pattern {
	out := signature.Pattern{}
	for len(s) >= 4 {
		var typ, n uint16
		s.ReadUint16(&typ)
		s.ReadUint16(&n)
		out = append(out, signature.ExactToken(uint32(typ)))
		if !s.Skip(int(n)) {
			log.Debug().Str("component", "dissect").Uint16("type", typ).Msg("SSL extension payload truncated")
			break
		}
	}
	return out
}

func skipUint8Prefixed(s *cryptobyte.String) bool {
	var v cryptobyte.String
	return s.ReadUint8LengthPrefixed(&v)
}

// checkRandom flags client randoms containing 0x0000 or 0xffff words. The
// result only feeds diagnostics.
func checkRandom(random []byte) {
	for i := 0; i+1 < len(random); i += 2 {
		if w := binary.BigEndian.Uint16(random[i:]); w == 0x0000 || w == 0xffff {
			log.Debug().Str("component", "dissect").Msg("SSL 0x0000 or 0xffff found in allegedly random blob")
			return
		}
	}
}

func logTruncated(field string) {
	log.Debug().Str("component", "dissect").Str("field", field).Msg("SSL packet truncated (but valid)")
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
