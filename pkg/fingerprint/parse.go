package fingerprint

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/vulntor/sslprint/pkg/flow"
)

// SchemaConstraint is the range of catalog schema versions this build reads.
const SchemaConstraint = "^1"

var validate = validator.New()

// Catalog is the YAML form of a signature database.
type Catalog struct {
	SchemaVersion string         `yaml:"schema_version" validate:"required"`
	Entries       []CatalogEntry `yaml:"entries" validate:"required,min=1,dive"`
}

// CatalogEntry is one label with the signatures that identify it.
type CatalogEntry struct {
	Name      string    `yaml:"name" validate:"required"`
	Flavor    string    `yaml:"flavor"`
	Class     string    `yaml:"class" validate:"required,oneof=app os"`
	Direction string    `yaml:"direction" validate:"omitempty,oneof=request response"`
	Generic   bool      `yaml:"generic"`
	Systems   any       `yaml:"systems"`
	Sigs      []SigLine `yaml:"sigs" validate:"required,min=1,dive"`
	Line      int       `yaml:"-"`
}

// SigLine is a raw signature with the line it was written on.
type SigLine struct {
	Raw  string `validate:"required"`
	Line int
}

// UnmarshalYAML keeps the source line of each signature.
func (s *SigLine) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: signature must be a string", value.Line)
	}
	s.Raw = strings.TrimSpace(value.Value)
	s.Line = value.Line
	return nil
}

// UnmarshalYAML records the line an entry starts on.
func (e *CatalogEntry) UnmarshalYAML(value *yaml.Node) error {
	type plain CatalogEntry
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*e = CatalogEntry(p)
	e.Line = value.Line
	return nil
}

// SystemNames returns the systems list. Both a YAML list and a comma
// separated string are accepted.
func (e CatalogEntry) SystemNames() ([]string, error) {
	switch v := e.Systems.(type) {
	case nil:
		return nil, nil
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		out, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, fmt.Errorf("systems: %w", err)
		}
		return out, nil
	}
}

// ParseCatalog decodes and validates a YAML catalog without building a
// database.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, NewConfigError(0, fmt.Errorf("failed to parse catalog YAML: %w", err))
	}

	if err := checkSchemaVersion(c.SchemaVersion); err != nil {
		return nil, NewConfigError(0, err)
	}

	if err := validate.Struct(c); err != nil {
		return nil, NewConfigError(firstInvalidLine(&c, err), err)
	}

	return &c, nil
}

func checkSchemaVersion(v string) error {
	if v == "" {
		return errors.New("schema_version is required")
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Errorf("schema_version %q is not a valid version: %w", v, err)
	}
	constraint, err := semver.NewConstraint(SchemaConstraint)
	if err != nil {
		return err
	}
	if !constraint.Check(ver) {
		return fmt.Errorf("schema_version %s is not supported (want %s)", v, SchemaConstraint)
	}
	return nil
}

// firstInvalidLine maps a validation failure back to the entry it came from.
func firstInvalidLine(c *Catalog, err error) int {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return 0
	}
	ns := verrs[0].Namespace()
	for i, e := range c.Entries {
		if strings.HasPrefix(ns, fmt.Sprintf("Catalog.Entries[%d]", i)) {
			return e.Line
		}
	}
	return 0
}

// Build registers every catalog signature into db in file order.
func (c *Catalog) Build(db *Database) error {
	for label, e := range c.Entries {
		class, _ := ParseClass(e.Class)

		dir := flow.ToServer
		if e.Direction == "response" {
			dir = flow.ToClient
		}

		names, err := e.SystemNames()
		if err != nil {
			return NewConfigError(e.Line, err)
		}
		systems := make([]uint32, 0, len(names))
		for _, n := range names {
			systems = append(systems, db.Names().Intern(n))
		}

		nameID := db.Names().Intern(e.Name)
		for _, s := range e.Sigs {
			if err := db.Register(dir, class, nameID, e.Flavor, uint32(label), systems, s.Raw, s.Line, e.Generic); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseCatalogYAML parses data and builds a database from it.
func parseCatalogYAML(data []byte) (*Database, error) {
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, err
	}
	db := NewDatabase()
	if err := c.Build(db); err != nil {
		return nil, err
	}
	return db, nil
}
