package core

// error_messages.go maps run errors to operator-facing messages with codes.
//
// # Error Codes Reference
//
// Operators can quote the code when reporting a failed run.
//
// # Parse Errors (PRS001-PRS099)
//
//	PRS001 - Wrong field count: A line does not have the expected number of fields
//	PRS002 - Invalid date: A date is not in yyyy-MM-dd format
//	PRS003 - Invalid amount: An amount is not a plain decimal
//	PRS004 - Encoding error: A line is not valid UTF-8
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid identity code
//	VAL002 - Required field is empty
//	VAL003 - Negative amount
//	VAL004 - Other rule violation
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused
//	DB002 - Check constraint violated
//	DB003 - Timeout
//	DB004 - Other rejected chunk
//
// # Archive Errors (ARC001-ARC099)
//
//	ARC001 - Permission denied
//	ARC002 - Other move failure
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Run in progress
//	RUN002 - Run not found
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the logs for the technical error.
//
// # Matching
//
// Typed errors (errors.As) are resolved first, then the message is matched
// case-insensitively against patterns. The first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFieldCount = UserMessage{
		Message: "A line does not have the expected number of fields",
		Action:  "Check the delimiter and that every line has all seven fields",
		Code:    "PRS001",
	}
	msgBadDate = UserMessage{
		Message: "Invalid date format detected",
		Action:  "Use yyyy-MM-dd",
		Code:    "PRS002",
	}
	msgBadAmount = UserMessage{
		Message: "Invalid amount format detected",
		Action:  "Use a plain decimal with '.' as separator, at most 2 decimal places and no currency symbol",
		Code:    "PRS003",
	}
	msgEncoding = UserMessage{
		Message: "File contains invalid characters",
		Action:  "Save the file as UTF-8",
		Code:    "PRS004",
	}
	msgIdentityCode = UserMessage{
		Message: "Invalid identity code",
		Action:  "Use 11 digits or the ddd.ddd.ddd-dd format",
		Code:    "VAL001",
	}
	msgRequired = UserMessage{
		Message: "Required field is empty",
		Action:  "Ensure holder, event and category have values",
		Code:    "VAL002",
	}
	msgNegativeAmount = UserMessage{
		Message: "Amount must not be negative",
		Action:  "Correct the amount in the source file",
		Code:    "VAL003",
	}
	msgValidation = UserMessage{
		Message: "A record breaks a data rule",
		Action:  "Fix the reported line and run again",
		Code:    "VAL004",
	}
	msgPersistence = UserMessage{
		Message: "The database rejected a chunk",
		Action:  "Earlier chunks are kept; fix the cause and run again",
		Code:    "DB004",
	}
	msgArchivePermission = UserMessage{
		Message: "Permission denied while archiving",
		Action:  "Check write access to the source and archive directories",
		Code:    "ARC001",
	}
	msgArchive = UserMessage{
		Message: "Imported files could not be archived",
		Action:  "Data is stored; move the remaining files manually before the next run",
		Code:    "ARC002",
	}
	msgRunInProgress = UserMessage{
		Message: "An import run is already in progress",
		Action:  "Wait for it to finish and try again",
		Code:    "RUN001",
	}
	msgRunNotFound = UserMessage{
		Message: "Run not found",
		Action:  "Verify the run id",
		Code:    "RUN002",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to messages.
// Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{pattern: "violates check constraint", msg: UserMessage{
		Message: "A value was rejected by a database rule",
		Action:  "Review the amounts and dates of the failed chunk",
		Code:    "DB002",
	}},
	{pattern: "timeout", msg: UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later or split the input",
		Code:    "DB003",
	}},
	{pattern: "context deadline exceeded", msg: UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later or split the input",
		Code:    "DB003",
	}},
	{pattern: "permission denied", msg: msgArchivePermission},
	{pattern: "already in progress", msg: msgRunInProgress},
	{pattern: "run not found", msg: msgRunNotFound},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
//
// Example:
//
//	msg := MapError(&ParseError{Field: "amount", Reason: "invalid decimal"})
//	// msg.Code == "PRS003"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	switch {
	case errors.Is(err, ErrRunInProgress):
		return msgRunInProgress, true
	case errors.Is(err, ErrRunNotFound):
		return msgRunNotFound, true
	}

	var pe *ParseError
	if errors.As(err, &pe) {
		switch {
		case pe.Field == FieldNames[fieldBirthDate] || pe.Field == FieldNames[fieldEventDate]:
			return msgBadDate, true
		case pe.Field == FieldNames[fieldAmount]:
			return msgBadAmount, true
		case strings.Contains(pe.Reason, "UTF-8"):
			return msgEncoding, true
		default:
			return msgFieldCount, true
		}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Field == FieldNames[fieldIdentityCode]:
			return msgIdentityCode, true
		case ve.Field == FieldNames[fieldAmount]:
			return msgNegativeAmount, true
		case ve.Rule == "must not be empty":
			return msgRequired, true
		default:
			return msgValidation, true
		}
	}

	var ae *ArchivalError
	if errors.As(err, &ae) {
		if ae.Err != nil && strings.Contains(strings.ToLower(ae.Err.Error()), "permission denied") {
			return msgArchivePermission, true
		}
		return msgArchive, true
	}

	var perr *PersistenceError
	if errors.As(err, &perr) {
		// The cause usually says more (connection, constraint).
		errStr := strings.ToLower(perr.Error())
		for _, ep := range errorPatterns {
			if strings.Contains(errStr, ep.pattern) {
				return ep.msg, true
			}
		}
		return msgPersistence, true
	}

	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
