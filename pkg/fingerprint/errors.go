package fingerprint

import (
	"errors"
	"fmt"
)

const (
	errorCodeConfigInvalid    = "FINGERPRINT_CONFIG_INVALID"
	errorCodeValidationFailed = "FINGERPRINT_VALIDATION_FAILED"
	errorCodeSourceRequired   = "FINGERPRINT_SOURCE_REQUIRED"
	errorCodeSourceConflict   = "FINGERPRINT_SOURCE_CONFLICT"
	errorCodeStorageDisabled  = "FINGERPRINT_STORAGE_DISABLED"
	errorCodeSyncFailed       = "FINGERPRINT_SYNC_FAILED"
)

var (
	// ErrConfigInvalid indicates a catalog that cannot be loaded.
	ErrConfigInvalid = errors.New("invalid signature catalog")
	// ErrValidationFailed indicates a catalog that loads but fails validation.
	ErrValidationFailed = errors.New("validation failed")
	// ErrSourceRequired indicates neither --file nor --url was provided.
	ErrSourceRequired = errors.New("source required")
	// ErrSourceConflict indicates both --file and --url were provided.
	ErrSourceConflict = errors.New("multiple sources provided")
	// ErrStorageDisabled indicates no workspace is available to cache a catalog.
	ErrStorageDisabled = errors.New("storage disabled")
)

// errorKind ties a sentinel to its code, exit status and CLI hints.
type errorKind struct {
	sentinel error
	code     string
	exit     int
	hints    []string
}

// kinds is checked in order; the first sentinel matched wins.
var kinds = []errorKind{
	{ErrSourceRequired, errorCodeSourceRequired, 2, []string{
		"Provide a source:          --file <path> or --url <address>",
		"Example:                   sslprint db sync --url https://example/ssl.yaml",
	}},
	{ErrSourceConflict, errorCodeSourceConflict, 2, []string{
		"Pass exactly one of --file or --url",
	}},
	{ErrConfigInvalid, errorCodeConfigInvalid, 3, []string{
		"Check the reported line against:  <major>.<minor>:<ciphers>:<extensions>:<flags>",
		"Validate before use:              sslprint db validate <file>",
	}},
	{ErrValidationFailed, errorCodeValidationFailed, 1, []string{
		"Fix the findings listed above",
		"Warnings only fail validation with --strict",
	}},
	{ErrStorageDisabled, errorCodeStorageDisabled, 7, []string{
		"Set a workspace:           sslprint db sync --workspace-dir <path>",
		"Or a cache directory:      sslprint db sync --cache-dir <path>",
	}},
}

var syncFailedHints = []string{
	"Retry with --url pointing to a reachable catalog",
	"Check network connectivity and workspace permissions",
}

func kindOf(err error) (errorKind, bool) {
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k, true
		}
	}
	return errorKind{}, false
}

// ConfigError is a fatal catalog error tied to a source line.
type ConfigError struct {
	Line int
	Err  error
}

// NewConfigError wraps err with the catalog line it occurred on.
func NewConfigError(line int, err error) error {
	return &ConfigError{Line: line, Err: err}
}

func (e *ConfigError) Error() string {
	if e.Line <= 0 {
		return fmt.Sprintf("%v: %v", ErrConfigInvalid, e.Err)
	}
	return fmt.Sprintf("%v: line %d: %v", ErrConfigInvalid, e.Line, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports ErrConfigInvalid for every ConfigError.
func (e *ConfigError) Is(target error) bool { return target == ErrConfigInvalid }

// codedError carries an explicit code through wrapping.
type codedError struct {
	error
	code string
}

func (e *codedError) Code() string  { return e.code }
func (e *codedError) Unwrap() error { return e.error }

// WithErrorCode annotates err with a fingerprint error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &codedError{error: err, code: code}
}

// NewSourceRequiredError reports a sync without --file or --url.
func NewSourceRequiredError() error {
	return WithErrorCode(fmt.Errorf("%w: either --file or --url must be provided", ErrSourceRequired), errorCodeSourceRequired)
}

// NewSourceConflictError reports a sync given both --file and --url.
func NewSourceConflictError() error {
	return WithErrorCode(fmt.Errorf("%w: only one of --file or --url may be provided at a time", ErrSourceConflict), errorCodeSourceConflict)
}

// NewStorageDisabledError reports an operation that needs a workspace.
func NewStorageDisabledError() error {
	return WithErrorCode(fmt.Errorf("%w: no workspace directory; set --workspace-dir, --cache-dir or SSLPRINT_WORKSPACE", ErrStorageDisabled), errorCodeStorageDisabled)
}

// NewValidationError summarizes a failed catalog validation.
func NewValidationError(errorCount, warningCount int) error {
	return fmt.Errorf("%w: %d errors, %d warnings", ErrValidationFailed, errorCount, warningCount)
}

// WrapSyncError annotates a sync failure.
func WrapSyncError(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeSyncFailed)
}

// ErrorCode resolves err to a fingerprint error code. An explicit code wins;
// otherwise the matching sentinel decides, and anything else counts as a
// sync failure.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) && coded.Code() != "" {
		return coded.Code()
	}
	if k, ok := kindOf(err); ok {
		return k.code
	}
	return errorCodeSyncFailed
}

// ExitCode maps err to a CLI exit status: 2 for source flags, 3 for an
// unloadable catalog, 7 without a workspace and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if k, ok := kindOf(err); ok {
		return k.exit
	}
	return 1
}

// Suggestions returns CLI hints for err, or nil when there are none.
func Suggestions(err error) []string {
	code := ErrorCode(err)
	if code == errorCodeSyncFailed {
		return syncFailedHints
	}
	for _, k := range kinds {
		if k.code == code {
			return k.hints
		}
	}
	return nil
}
