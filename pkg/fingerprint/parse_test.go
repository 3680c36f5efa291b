package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `schema_version: "1.2.0"
entries:
  - name: Chrome
    flavor: "11 to 29"
    class: app
    systems: [Windows, "@unix"]
    sigs:
      - "3.1:c00a,*,a:?0,ff01:compr"
  - name: SChannel
    class: os
    systems: "Windows 7, Windows 8"
    sigs:
      - "3.1:2f,35:ff01:"
      - "3.1:35,2f:ff01:"
  - name: Server hello
    class: app
    direction: response
    sigs:
      - "3.1:35:ff01:"
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	require.Len(t, c.Entries, 3)

	assert.Equal(t, 3, c.Entries[0].Line)
	assert.Equal(t, 8, c.Entries[0].Sigs[0].Line)
	assert.Equal(t, "3.1:c00a,*,a:?0,ff01:compr", c.Entries[0].Sigs[0].Raw)

	systems, err := c.Entries[1].SystemNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Windows 7", "Windows 8"}, systems)

	systems, err = c.Entries[0].SystemNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"Windows", "@unix"}, systems)
}

func TestCatalogBuild(t *testing.T) {
	db, err := Parse([]byte(testCatalog))
	require.NoError(t, err)
	require.Equal(t, 3, db.Len(), "response signatures are not registered")

	recs := db.Records()
	assert.Equal(t, ClassApp, recs[0].Class)
	assert.Equal(t, "Chrome", db.Names().Lookup(recs[0].NameID))
	assert.Equal(t, 8, recs[0].Line)
	assert.Equal(t, ClassOS, recs[1].Class)
	assert.Equal(t, recs[1].LabelID, recs[2].LabelID)
	assert.NotEqual(t, recs[0].LabelID, recs[1].LabelID)
	assert.Equal(t, []string{"Windows 7", "Windows 8"}, db.Describe(recs[2]).Systems)
}

func TestParseCatalogErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		line int
	}{
		{
			name: "missing schema version",
			yaml: "entries:\n  - name: A\n    class: app\n    sigs: [\"3.1:2f:ff01:\"]\n",
		},
		{
			name: "unsupported schema version",
			yaml: "schema_version: \"2.0.0\"\nentries:\n  - name: A\n    class: app\n    sigs: [\"3.1:2f:ff01:\"]\n",
		},
		{
			name: "bad class",
			yaml: "schema_version: \"1.0.0\"\nentries:\n  - name: A\n    class: app\n    sigs: [\"3.1:2f:ff01:\"]\n  - name: B\n    class: browser\n    sigs: [\"3.1:2f:ff01:\"]\n",
			line: 6,
		},
		{
			name: "no sigs",
			yaml: "schema_version: \"1.0.0\"\nentries:\n  - name: A\n    class: app\n",
			line: 3,
		},
		{
			name: "not yaml",
			yaml: "schema_version: [\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigInvalid)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.line, ce.Line)
		})
	}
}

func TestCatalogBuildReportsSignatureLine(t *testing.T) {
	yaml := "schema_version: \"1.0.0\"\nentries:\n  - name: A\n    class: app\n    sigs:\n      - \"3.1:2f:ff01:\"\n      - \"3.1:2f:ff01:nope\"\n"
	_, err := Parse([]byte(yaml))
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 7, ce.Line)
}

func TestLoadBuiltin(t *testing.T) {
	db, err := LoadBuiltin()
	require.NoError(t, err)
	assert.Greater(t, db.Len(), 10)

	res := NewValidator(false).Validate(db)
	assert.True(t, res.IsValid(), "%+v", res.Errors)
}
