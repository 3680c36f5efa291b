// Package fingerprint holds the SSL client signature database: reference
// records, the catalogs they are loaded from, and matching of observed
// signatures against them.
package fingerprint

import (
	"github.com/vulntor/sslprint/pkg/flow"
	"github.com/vulntor/sslprint/pkg/signature"
)

// Database is an ordered list of reference records. It is built once and
// read-only afterwards, so concurrent FindMatch calls need no locking.
type Database struct {
	records []*Record
	names   *NameTable
}

// NewDatabase returns an empty database.
func NewDatabase() *Database {
	return &Database{names: NewNameTable()}
}

// Names returns the table resolving record name IDs.
func (db *Database) Names() *NameTable { return db.names }

// Register parses raw and appends it as a new record. Signatures for the
// server direction are accepted and ignored. Parse failures are returned as
// *ConfigError carrying line.
func (db *Database) Register(dir flow.Direction, class Class, nameID uint32, flavor string,
	labelID uint32, systems []uint32, raw string, line int, generic bool,
) error {
	if dir != flow.ToServer {
		return nil
	}

	sig, err := signature.Parse(raw)
	if err != nil {
		return NewConfigError(line, err)
	}

	db.records = append(db.records, &Record{
		Signature: sig,
		Class:     class,
		NameID:    nameID,
		Flavor:    flavor,
		LabelID:   labelID,
		Systems:   systems,
		Line:      line,
		Generic:   generic,
	})
	return nil
}

// FindMatch returns the first record, in registration order, whose version
// and flags equal the observed ones and whose extension and cipher patterns
// both match. It returns nil when nothing matches.
func (db *Database) FindMatch(sig *signature.Signature) *Record {
	for _, r := range db.records {
		ref := r.Signature
		if ref.Version != sig.Version || ref.Flags != sig.Flags {
			continue
		}
		if !signature.Match(ref.Extensions, sig.Extensions) {
			continue
		}
		if !signature.Match(ref.Ciphers, sig.Ciphers) {
			continue
		}
		return r
	}
	return nil
}

// Observed pairs an observed signature with the record it matched.
type Observed struct {
	Signature *signature.Signature
	Matched   *Record
}

// Match runs FindMatch and returns the pair.
func (db *Database) Match(sig *signature.Signature) Observed {
	return Observed{Signature: sig, Matched: db.FindMatch(sig)}
}

// Len returns the number of records.
func (db *Database) Len() int { return len(db.records) }

// Records returns the records in registration order. The slice is a copy;
// the records themselves are shared.
func (db *Database) Records() []*Record {
	out := make([]*Record, len(db.records))
	copy(out, db.records)
	return out
}

// Description is a record with its names resolved.
type Description struct {
	Kind    string
	Name    string
	Flavor  string
	Systems []string
	Generic bool
}

// Label renders "name flavor", or just the name when there is no flavor.
func (d Description) Label() string {
	if d.Flavor == "" {
		return d.Name
	}
	return d.Name + " " + d.Flavor
}

// Describe resolves the IDs held by r.
func (db *Database) Describe(r *Record) Description {
	d := Description{
		Kind:    r.Class.String(),
		Name:    db.names.Lookup(r.NameID),
		Flavor:  r.Flavor,
		Generic: r.Generic,
	}
	for _, id := range r.Systems {
		d.Systems = append(d.Systems, db.names.Lookup(id))
	}
	return d
}
