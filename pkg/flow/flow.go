// Package flow holds per-connection state shared between the packet capture
// front end and the fingerprint engine.
package flow

import (
	"fmt"
	"net/netip"
	"time"
)

// DefaultMaxData is the number of client bytes retained per flow.
const DefaultMaxData = 8192

// Direction tells which side of a connection sent a segment.
type Direction uint8

const (
	// ToServer marks client-to-server data.
	ToServer Direction = iota
	// ToClient marks server-to-client data.
	ToClient
)

// String returns the direction name.
func (d Direction) String() string {
	if d == ToServer {
		return "to-server"
	}
	return "to-client"
}

// State records whether a flow has been classified as SSL.
type State uint8

const (
	// Undetermined flows are still being looked at.
	Undetermined State = iota
	// ConfirmedSSL flows carried a client hello that was fingerprinted.
	ConfirmedSSL
	// ConfirmedNotSSL flows were rejected and are never looked at again.
	ConfirmedNotSSL
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Undetermined:
		return "undetermined"
	case ConfirmedSSL:
		return "ssl"
	case ConfirmedNotSSL:
		return "not-ssl"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Key identifies a connection by its client and server endpoints.
type Key struct {
	Client netip.AddrPort
	Server netip.AddrPort
}

// String renders the key as "client -> server".
func (k Key) String() string {
	return k.Client.String() + " -> " + k.Server.String()
}

// Flow is one tracked connection.
type Flow struct {
	Key      Key
	Request  []byte    // client bytes in stream order
	MaxData  int       // cap on len(Request)
	LastSeen time.Time // time of the latest client segment

	state State
}

// New returns an undetermined flow retaining at most maxData client bytes.
func New(key Key, maxData int) *Flow {
	if maxData <= 0 {
		maxData = DefaultMaxData
	}
	return &Flow{Key: key, MaxData: maxData}
}

// State returns the classification state.
func (f *Flow) State() State { return f.state }

// Decide moves an undetermined flow to s. Decided flows keep their state and
// Decide reports false.
func (f *Flow) Decide(s State) bool {
	if f.state != Undetermined || s == Undetermined {
		return false
	}
	f.state = s
	return true
}

// CanGetMore reports whether the request buffer still has room.
func (f *Flow) CanGetMore() bool {
	return len(f.Request) < f.MaxData
}

// Append adds client bytes up to MaxData and returns how many were kept.
func (f *Flow) Append(b []byte, now time.Time) int {
	f.LastSeen = now
	room := f.MaxData - len(f.Request)
	if room <= 0 {
		return 0
	}
	if len(b) > room {
		b = b[:room]
	}
	f.Request = append(f.Request, b...)
	return len(b)
}
