package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDocument wraps the formatted errors of a failed validation.
var ErrInvalidDocument = errors.New("invalid profile document")

// FormatError formats a ValidationError into a human-readable error message.
func FormatError(err ValidationError) string {
	if err.Message == "unknown parameter" && len(err.Allowed) == 0 {
		return fmt.Sprintf("%s: unknown parameter '%s', the rule has no parameters", err.Path, err.Value)
	}

	// Format: "{path}: '{value}' is not valid, must be one of: {allowed}"
	if len(err.Allowed) > 0 {
		return fmt.Sprintf("%s: '%s' is not valid, must be one of: %s",
			err.Path, err.Value, strings.Join(err.Allowed, ", "))
	}

	if err.Value != "" {
		return fmt.Sprintf("%s: %s '%s'", err.Path, err.Message, err.Value)
	}

	return fmt.Sprintf("%s: %s", err.Path, err.Message)
}

// FormatErrors formats all validation errors into a slice of human-readable messages.
func FormatErrors(result ValidationResult) []string {
	messages := make([]string, len(result.Errors))
	for i, err := range result.Errors {
		messages[i] = FormatError(err)
	}
	return messages
}

// Err returns nil for a valid result, otherwise an error wrapping
// ErrInvalidDocument that lists every message.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w:\n  %s", ErrInvalidDocument, strings.Join(FormatErrors(r), "\n  "))
}
