package importer

import (
	"errors"
	"fmt"
	"strings"
)

// MissingHeaderError aborts an import before any row is processed.
type MissingHeaderError struct {
	Missing []string
}

func (e *MissingHeaderError) Error() string {
	return "Missing required CSV headers: " + strings.Join(e.Missing, ", ")
}

// Kind classifies a row failure.
type Kind string

const (
	KindSkipped     Kind = "skipped"     // parser dropped the row
	KindValidation  Kind = "validation"  // bad or unresolvable values
	KindPersistence Kind = "persistence" // the store refused the record
)

// RowError is a failure confined to one source row.
type RowError struct {
	Row  int
	Kind Kind
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

func rowError(row int, kind Kind, format string, args ...any) *RowError {
	return &RowError{Row: row, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// IsMissingHeader reports whether err is, or wraps, a *MissingHeaderError.
func IsMissingHeader(err error) bool {
	var mh *MissingHeaderError
	return errors.As(err, &mh)
}
