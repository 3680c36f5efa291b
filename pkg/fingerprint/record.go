package fingerprint

import (
	"sync"

	"github.com/vulntor/sslprint/pkg/signature"
)

// Class tells whether a record identifies an operating system or a client
// application.
type Class uint8

const (
	ClassOS Class = iota
	ClassApp
)

// String returns the label kind used in observations.
func (c Class) String() string {
	if c == ClassApp {
		return "app"
	}
	return "os"
}

// ParseClass maps a catalog class name to a Class. "!" is the p0f spelling
// for applications.
func ParseClass(s string) (Class, bool) {
	switch s {
	case "app", "!":
		return ClassApp, true
	case "os":
		return ClassOS, true
	default:
		return ClassOS, false
	}
}

// Record is one reference signature with its classification.
type Record struct {
	Signature *signature.Signature
	Class     Class
	NameID    uint32
	Flavor    string
	LabelID   uint32
	Systems   []uint32 // name IDs of systems an application runs on
	Line      int      // catalog line the signature was read from
	Generic   bool
}

// NameTable interns label and system names so records carry small IDs.
type NameTable struct {
	mu    sync.RWMutex
	names []string
	ids   map[string]uint32
}

// NewNameTable returns an empty table.
func NewNameTable() *NameTable {
	return &NameTable{ids: make(map[string]uint32)}
}

// Intern returns the ID of name, adding it when new.
func (t *NameTable) Intern(name string) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ids[name]; ok {
		return id
	}
	id := uint32(len(t.names))
	t.names = append(t.names, name)
	t.ids[name] = id
	return id
}

// Lookup returns the name for id, or "" when unknown.
func (t *NameTable) Lookup(id uint32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(id) >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// Len returns the number of interned names.
func (t *NameTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.names)
}
