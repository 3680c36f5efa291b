package fingerprint

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulntor/sslprint/pkg/signature"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError(12, signature.ErrUnknownFlag)
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.ErrorIs(t, err, signature.ErrUnknownFlag)
	assert.Contains(t, err.Error(), "line 12")

	var ce *ConfigError
	require.ErrorAs(t, fmt.Errorf("load: %w", err), &ce)
	assert.Equal(t, 12, ce.Line)

	assert.NotContains(t, NewConfigError(0, errors.New("x")).Error(), "line")
}

func TestErrorClassification(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name  string
		err   error
		code  string
		exit  int
		hints bool
	}{
		{"nil", nil, "", 0, false},
		{"source required", NewSourceRequiredError(), errorCodeSourceRequired, 2, true},
		{"source conflict", NewSourceConflictError(), errorCodeSourceConflict, 2, true},
		{"bad catalog", NewConfigError(3, signature.ErrMalformed), errorCodeConfigInvalid, 3, true},
		{"bare sentinel", ErrConfigInvalid, errorCodeConfigInvalid, 3, true},
		{"validation", NewValidationError(2, 1), errorCodeValidationFailed, 1, true},
		{"no workspace", NewStorageDisabledError(), errorCodeStorageDisabled, 7, true},
		{"wrapped no workspace", fmt.Errorf("analyze: %w", ErrStorageDisabled), errorCodeStorageDisabled, 7, true},
		{"sync", WrapSyncError(other), errorCodeSyncFailed, 1, true},
		{"unclassified", other, errorCodeSyncFailed, 1, true},
		{"custom code", WithErrorCode(other, "CUSTOM"), "CUSTOM", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.exit, ExitCode(tt.err))
			if tt.hints {
				assert.NotEmpty(t, Suggestions(tt.err))
			} else {
				assert.Nil(t, Suggestions(tt.err))
			}
		})
	}
}

func TestWithErrorCode(t *testing.T) {
	assert.Nil(t, WithErrorCode(nil, "X"))
	assert.Nil(t, WrapSyncError(nil))

	base := errors.New("base")
	wrapped := WithErrorCode(base, "CODE123")
	assert.ErrorIs(t, wrapped, base)
	assert.Equal(t, "base", wrapped.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError(2, 1)
	assert.EqualError(t, err, "validation failed: 2 errors, 1 warnings")
	assert.ErrorIs(t, err, ErrValidationFailed)
}
