package billing

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("billing record not found")

// ErrCountBasedLocked is returned when a patch tries to change the hours or
// rate of a count-based record. Those amounts come from the count calculator.
var ErrCountBasedLocked = &ValidationError{
	Field:   "terms",
	Message: "count-based records only allow status and notes to be edited",
}

// ValidationError reports a field that failed a billing rule.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return "invalid record: " + e.Message
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
