package core

// Error codes shown to users, grouped by prefix:
//
//	VAL  row and field validation
//	IMP  directory lookups during import
//	REC  record operations
//	FILE upload and CSV structure
//	UPL  import slots, cancellation and timeouts
//	DB   storage failures
//	RATE request throttling
//	ERR000 anything unmatched; check the logs for the technical error
//
// Patterns are matched case-insensitively against err.Error() and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage is an error as shown to a user.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Validation
	{"missing required csv headers", UserMessage{"The file is missing required columns", "Download the import template and compare the header row", "VAL004"}},
	{"missing required fields", UserMessage{"A required field is empty", "Fill in employee, project, client, date, status and isCountBased", "VAL003"}},
	{"invalid date", UserMessage{"Invalid date format detected", "Use YYYY-MM-DD", "VAL001"}},
	{"must be a positive number", UserMessage{"Hours and rate must be positive numbers", "Check the hoursBilled and rateApplied values", "VAL006"}},
	{"must be a number", UserMessage{"Invalid number format detected", "Use plain decimal numbers", "VAL002"}},
	{"invalid status", UserMessage{"Status is not one of the allowed values", "Use pending, paid or overdue", "VAL005"}},
	{"valid positive", UserMessage{"Hours and rate must be positive numbers", "Enter hours billed and rate applied", "VAL006"}},
	{"is required", UserMessage{"A required field is empty", "Fill in every required field", "VAL003"}},

	// Import lookups
	{"employee \"", UserMessage{"Employee not found", "Use a username, full name or user id from the directory", "IMP001"}},
	{"project \"", UserMessage{"Project not found", "Use a project id or project name from the directory", "IMP002"}},

	// Records
	{"billing record not found", UserMessage{"Billing record not found", "It may have been deleted. Refresh the list", "REC001"}},
	{"count-based records only allow", UserMessage{"Count-based amounts cannot be edited here", "Only status and notes can change on count-based records", "REC002"}},
	{"manual entry only supports", UserMessage{"Manual entry is limited to hourly records", "Import count-based records from CSV", "REC003"}},
	{"no data to export", UserMessage{"No records match the current filters", "Widen the filters and export again", "REC004"}},
	{"billing record already exists", UserMessage{"A record with this ID already exists", "Retry the request", "DB001"}},

	// Files
	{"file too large", UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks", "FILE001"}},
	{"file is empty", UserMessage{"The uploaded file is empty", "Upload a CSV file with a header row and data rows", "FILE005"}},
	{"header row is blank", UserMessage{"The header row is blank", "Put the column names on the first line", "FILE002"}},
	{"parse csv", UserMessage{"File is not a valid CSV", "Ensure the file is comma-separated with consistent columns", "FILE002"}},
	{"no file provided", UserMessage{"No file was selected", "Select a CSV file to import", "FILE004"}},

	// Import runs
	{"too many imports", UserMessage{"System is busy processing other imports", "Wait a moment and try again", "UPL001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or try again later", "UPL003"}},

	// Storage
	{"duplicate key", UserMessage{"A record with this ID already exists", "Retry the request", "DB001"}},
	{"violates unique", UserMessage{"A duplicate value was found", "Review the data for duplicates", "DB002"}},
	{"connection refused", UserMessage{"Unable to connect to database", "Please try again in a few moments", "DB004"}},
	{"connection reset", UserMessage{"Database connection was interrupted", "Please try again", "DB005"}},
	{"timeout", UserMessage{"Operation timed out", "Please try again later", "DB006"}},
	{"deadlock", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},
	{"database is locked", UserMessage{"Database was busy with conflicting operations", "Please try again", "DB007"}},

	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-facing message. Unmatched
// errors map to ERR000; nil maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	s := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}
	return NewUserError(err).Error()
}

// IsUserFacing reports whether err maps to something other than ERR000.
func IsUserFacing(err error) bool {
	return err != nil && MapError(err).Code != defaultMessage.Code
}

// UserError keeps the technical error for logs alongside its user message.
// Commands return it so the caller sees the catalogue text while errors.Is
// still reaches the cause.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s (Code: %s). %s", e.User.Message, e.User.Code, e.User.Action)
}

func (e *UserError) Unwrap() error { return e.Technical }

// NewUserError maps err through the catalogue. It returns nil for nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Technical: err, User: MapError(err)}
}
