// Package dissect extracts client signatures from SSLv2 and SSLv3/TLS client
// hellos. Parsers work on possibly truncated buffers through a bounds checked
// cursor and never read past the bytes they are given.
package dissect

const (
	// V2HeaderLen is the SSLv2 CLIENT-HELLO header size including the
	// two byte record length.
	V2HeaderLen = 11

	// V2MsgClientHello is the SSLv2 CLIENT-HELLO message type.
	V2MsgClientHello = 1

	// RecordHeaderLen is the SSLv3/TLS record header size.
	RecordHeaderLen = 5

	// ContentTypeHandshake is the SSLv3/TLS handshake record type.
	ContentTypeHandshake = 22

	// MsgClientHello is the SSLv3/TLS ClientHello handshake type.
	MsgClientHello = 1

	// MaxFragmentLen is the largest record fragment allowed by the protocol.
	MaxFragmentLen = 1 << 14

	// randomLen is the part of the client random after gmt_unix_time.
	randomLen = 28

	compressionDeflate = 1

	year = 365 * 24 * 60 * 60
)
