// Package csvio reads and writes the CSV files exchanged with spreadsheet
// users: uploads of billing rows and exports of stored records.
//
// Parsing is tolerant. Rows whose column count does not match the header
// are reported as SkippedRow diagnostics instead of failing the file, and
// only input without a usable header is a ParseError.
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// PreviewLength is how many characters of a skipped row are kept.
const PreviewLength = 50

// ReasonColumnCount is the skip reason for rows with the wrong field count.
const ReasonColumnCount = "column count mismatch"

// ParseError means the input could not be parsed at all.
type ParseError struct {
	Line int // input line, 0 when not applicable
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse csv: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse csv: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errEmpty       = errors.New("file is empty")
	errBlankHeader = errors.New("header row is blank")
)

// SkippedRow describes a record that was left out of the result.
type SkippedRow struct {
	RowNumber  int
	Reason     string
	RowContent string
}

// Row is one data record keyed by the file's headers.
type Row struct {
	// Number is the 1-based position among non-blank records; the header is 1.
	Number int

	headers []string
	index   map[string]int
	values  []string
}

// Get returns the value of the named column, matched case-insensitively.
// When headers repeat, the first column wins.
func (r Row) Get(name string) (string, bool) {
	i, ok := r.index[strings.ToLower(strings.TrimSpace(name))]
	if !ok || i >= len(r.values) {
		return "", false
	}
	return r.values[i], true
}

// Map returns header -> value. A repeated header keeps its first value.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.headers))
	for i, h := range r.headers {
		if _, dup := m[h]; dup {
			continue
		}
		m[h] = r.values[i]
	}
	return m
}

// Result is a parsed file.
type Result struct {
	Headers []string
	Rows    []Row
	Skipped []SkippedRow
}

// HasHeader reports whether name is one of the headers, ignoring case.
func (r *Result) HasHeader(name string) bool {
	for _, h := range r.Headers {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

// ParseString parses CSV text.
func ParseString(s string) (*Result, error) {
	return Parse([]byte(s))
}

// ParseReader sanitizes and parses everything read from r.
func ParseReader(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(Sanitize(r))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return Parse(data)
}

// Parse parses data into headers and rows.
//
// The first non-blank record is the header. Blank records (a single field
// of only whitespace) are dropped and do not consume a row number. Records
// whose field count differs from the header are skipped with a preview of
// their raw text.
func Parse(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, bom[:])
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Err: errEmpty}
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	res := &Result{}
	var index map[string]int
	rowNum := 0

	for {
		start := cr.InputOffset()
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return nil, &ParseError{Line: line, Err: err}
		}
		if isBlank(rec) {
			continue
		}
		rowNum++

		if index == nil {
			res.Headers = make([]string, len(rec))
			for i, h := range rec {
				res.Headers[i] = strings.TrimSpace(h)
			}
			if allEmpty(res.Headers) {
				return nil, &ParseError{Err: errBlankHeader}
			}
			index = makeHeaderIndex(res.Headers)
			continue
		}

		if len(rec) != len(res.Headers) {
			raw := string(data[start:cr.InputOffset()])
			res.Skipped = append(res.Skipped, SkippedRow{
				RowNumber:  rowNum,
				Reason:     ReasonColumnCount,
				RowContent: preview(strings.TrimRight(raw, "\r\n")),
			})
			continue
		}

		res.Rows = append(res.Rows, Row{
			Number:  rowNum,
			headers: res.Headers,
			index:   index,
			values:  rec,
		})
	}

	if index == nil {
		return nil, &ParseError{Err: errEmpty}
	}
	return res, nil
}

// makeHeaderIndex maps lowercased header names to their first column.
func makeHeaderIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		key := strings.ToLower(h)
		if _, ok := idx[key]; !ok {
			idx[key] = i
		}
	}
	return idx
}

func isBlank(rec []string) bool {
	return len(rec) == 1 && strings.TrimSpace(rec[0]) == ""
}

func allEmpty(rec []string) bool {
	for _, v := range rec {
		if v != "" {
			return false
		}
	}
	return true
}

// preview truncates s to PreviewLength characters.
func preview(s string) string {
	if utf8.RuneCountInString(s) <= PreviewLength {
		return s
	}
	r := []rune(s)
	return string(r[:PreviewLength])
}
