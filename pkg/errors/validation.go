package errors

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// FieldError describes one invalid configuration field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string { return f.Field + ": " + f.Message }

// ValidationError collects every invalid field of a configuration.
type ValidationError struct {
	Fields []FieldError
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	parts := make([]string, len(v.Fields))
	for i, f := range v.Fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}

// Validator accumulates field errors so a configuration reports all of
// its problems at once.
//
//	v := errors.NewValidator()
//	v.Check(o.StepLength > 0, "step_length", "must be positive, got %v", o.StepLength)
//	return v.Err()
type Validator struct {
	fields []FieldError
}

// NewValidator returns an empty validator. Its zero field list makes
// [Validator.Err] return nil until a check fails.
func NewValidator() *Validator { return &Validator{} }

// Check records a field error when ok is false. field names the
// offending option as it appears in configuration files, and format and
// args build the message with fmt.Sprintf.
func (v *Validator) Check(ok bool, field, format string, args ...any) {
	if !ok {
		v.Add(field, format, args...)
	}
}

// Add records a field error unconditionally. Use it for failures reported
// by a nested parser, passing the error text through "%s".
func (v *Validator) Add(field, format string, args ...any) {
	v.fields = append(v.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Merge records the field errors of a nested validation under prefix,
// joining names with a dot. A non-nil error that carries no field errors
// is recorded as a single error for prefix.
func (v *Validator) Merge(prefix string, err error) {
	if err == nil {
		return
	}
	fields := Fields(err)
	if len(fields) == 0 {
		v.Add(prefix, "%s", UserMessage(err))
		return
	}
	for _, f := range fields {
		v.fields = append(v.fields, FieldError{Field: prefix + "." + f.Field, Message: f.Message})
	}
}

// Err returns nil when no field failed, otherwise an INVALID_CONFIG error
// whose cause is a *ValidationError.
func (v *Validator) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	ve := &ValidationError{Fields: v.fields}
	msg := "invalid configuration: " + v.fields[0].String()
	if n := len(v.fields) - 1; n > 0 {
		msg += fmt.Sprintf(" (and %d more)", n)
	}
	return Wrap(ErrCodeInvalidConfig, ve, "%s", msg)
}

// Fields returns the field errors carried by err, if any.
func Fields(err error) []FieldError {
	var ve *ValidationError
	if As(err, &ve) {
		return ve.Fields
	}
	return nil
}

// ValidateName validates a short identifier such as a preset, cache scope
// or output stem. It rejects names that could be used for path traversal.
//
// Validation rules:
//   - Name cannot be empty
//   - Maximum length of 128 bytes
//   - No control characters
//   - No "..", "/", "\\" or null bytes
//
// Failures are INVALID_INPUT errors.
func ValidateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "name too long (max 128 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "name contains invalid control characters")
		}
	}
	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "name contains invalid characters: %q", pattern)
		}
	}
	return nil
}

// ValidatePath validates a relative output path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}
	return nil
}

// runIDRegex matches canonical lowercase UUIDs.
var runIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateRunID validates a run id received from a client. Run ids are
// canonical lowercase UUIDs; anything else is an INVALID_INPUT error.
func ValidateRunID(id string) error {
	if !runIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid run id: %q", id)
	}
	return nil
}
