package fingerprint

import (
	"fmt"
)

// ValidationError is a finding about one catalog record.
type ValidationError struct {
	Line     int    // catalog line of the record
	Field    string // "sig", "systems" or "flavor"
	Message  string
	Severity string // "error" or "warning"
}

// DatabaseValidationResult collects the findings of a validation run.
type DatabaseValidationResult struct {
	Errors      []ValidationError
	Warnings    []ValidationError
	RecordCount int
}

// IsValid returns true if there are no errors (warnings are allowed).
func (r *DatabaseValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator looks for records that load fine but cannot work as intended.
// Syntax is already checked by the loaders.
type Validator struct {
	strict bool // Treat warnings as errors
}

// NewValidator creates a new Validator instance.
func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict}
}

// Validate checks every record of db.
func (v *Validator) Validate(db *Database) *DatabaseValidationResult {
	records := db.Records()
	result := &DatabaseValidationResult{
		Errors:      make([]ValidationError, 0),
		Warnings:    make([]ValidationError, 0),
		RecordCount: len(records),
	}

	seen := make(map[string]int, len(records))
	for i, r := range records {
		v.validateDuplicate(r, seen, result)
		v.validateShadowed(r, records[:i], result)
		v.validateSystems(r, result)
	}

	if v.strict {
		result.Errors = append(result.Errors, result.Warnings...)
		result.Warnings = result.Warnings[:0]
	}
	return result
}

// validateDuplicate flags signatures registered twice.
func (v *Validator) validateDuplicate(r *Record, seen map[string]int, result *DatabaseValidationResult) {
	key := r.Signature.String()
	if first, ok := seen[key]; ok {
		result.Errors = append(result.Errors, ValidationError{
			Line:     r.Line,
			Field:    "sig",
			Message:  fmt.Sprintf("duplicate signature (first defined on line %d)", first),
			Severity: "error",
		})
		return
	}
	seen[key] = r.Line
}

// validateShadowed warns about concrete signatures that an earlier record
// already matches, so they can never be returned.
func (v *Validator) validateShadowed(r *Record, earlier []*Record, result *DatabaseValidationResult) {
	sig := r.Signature
	if !sig.Ciphers.IsConcrete() || !sig.Extensions.IsConcrete() {
		return
	}

	prefix := &Database{records: earlier}
	if hit := prefix.FindMatch(sig); hit != nil && hit.Signature.String() != sig.String() {
		result.Warnings = append(result.Warnings, ValidationError{
			Line:     r.Line,
			Field:    "sig",
			Message:  fmt.Sprintf("unreachable: signature on line %d matches first", hit.Line),
			Severity: "warning",
		})
	}
}

// validateSystems warns about specific application records without systems.
func (v *Validator) validateSystems(r *Record, result *DatabaseValidationResult) {
	if r.Class == ClassApp && !r.Generic && len(r.Systems) == 0 {
		result.Warnings = append(result.Warnings, ValidationError{
			Line:     r.Line,
			Field:    "systems",
			Message:  "application signature without systems (recommended)",
			Severity: "warning",
		})
	}
}
