package fingerprint

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseP0F(t *testing.T) {
	f, err := os.Open("testdata/p0f-ssl.fp")
	require.NoError(t, err)
	defer f.Close()

	db := NewDatabase()
	require.NoError(t, ParseP0F(f, db))
	require.Equal(t, 4, db.Len(), "tcp and response sections are skipped")

	recs := db.Records()
	chrome := db.Describe(recs[0])
	assert.Equal(t, "app", chrome.Kind)
	assert.Equal(t, "Chrome 11 to 29", chrome.Label())
	assert.Equal(t, []string{"Windows", "@unix"}, chrome.Systems)
	assert.False(t, chrome.Generic)
	assert.Equal(t, 12, recs[0].Line)

	openssl := db.Describe(recs[2])
	assert.True(t, openssl.Generic)
	assert.Equal(t, "OpenSSL", openssl.Label())
	assert.Equal(t, recs[2].LabelID, recs[3].LabelID)
	assert.Empty(t, openssl.Systems)
}

func TestParseP0FErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
	}{
		{"sig before label", "[ssl:request]\nsig = 3.1:2f:ff01:\n", 2},
		{"bad label type", "[ssl:request]\nlabel = x:!:A:\n", 2},
		{"short label", "[ssl:request]\nlabel = s:!:A\n", 2},
		{"sys on os label", "[ssl:request]\nlabel = s:win:Windows:\nsys = Windows\n", 3},
		{"unknown key", "[ssl:request]\nlabel = s:!:A:\nfoo = bar\n", 3},
		{"bad direction", "; hdr\n[ssl:sideways]\n", 2},
		{"bad signature", "[ssl:request]\nlabel = s:!:A:\n\nsig = 3.1:2f:ff01:wat\n", 4},
		{"not key value", "[ssl:request]\nlabel\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseP0F(strings.NewReader(tt.text), NewDatabase())
			require.Error(t, err)

			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.line, ce.Line)
		})
	}
}

func TestParseP0FIgnoresOtherModules(t *testing.T) {
	text := "[http:request]\nlabel = s:!:curl:\nwhatever = 1\n[ssl:request]\nlabel = s:!:A:\nsig = 3.1:2f:ff01:\n"
	db := NewDatabase()
	require.NoError(t, ParseP0F(strings.NewReader(text), db))
	assert.Equal(t, 1, db.Len())
}
