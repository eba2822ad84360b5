package core

// error_messages.go maps technical errors to messages an operator can act on.
//
// Every message carries a support code:
//
//	FILE001 file too large          FILE002 unreadable or unsupported file
//	FILE003 legacy .xls workbook    FILE004 no file provided
//	TBL001  sheet not found
//	VAL001  invalid date            VAL002  invalid status
//	VAL003  required field empty    VAL004  missing required column
//	VAL005  check-out before check-in
//	VAL006  unknown property        VAL007  invalid request body
//	IMP001  too many imports        IMP002  unsupported resolution
//	IMP003  import cancelled        IMP004  import timed out
//	DB001   duplicate booking       DB002   dates rejected by database
//	DB003   database unavailable    DB004   database busy
//	RATE001 rate limited
//	ERR000  anything else; check the logs for the technical error
//
// Typed errors are matched first with errors.Is/errors.As. Everything else
// falls back to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"strings"
)

// UserMessage is an error as shown to the operator.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the bookings into smaller files",
		Code:    "FILE001",
	}
	msgUnreadable = UserMessage{
		Message: "File could not be read as a spreadsheet",
		Action:  "Upload an .xlsx workbook or a UTF-8 CSV file",
		Code:    "FILE002",
	}
	msgLegacyXLS = UserMessage{
		Message: "Legacy .xls workbooks are not supported",
		Action:  "Save the workbook as .xlsx or export it as CSV",
		Code:    "FILE003",
	}
	msgTableNotFound = UserMessage{
		Message: "The requested sheet does not exist in the workbook",
		Action:  "Check the sheet name or leave it empty to use the default sheet",
		Code:    "TBL001",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP001",
	}
	msgCancelled = UserMessage{
		Message: "Import was cancelled",
		Action:  "Run the import again; rows already saved will show up as conflicts",
		Code:    "IMP003",
	}
	msgTimeout = UserMessage{
		Message: "Import timed out",
		Action:  "Split the file or try again later",
		Code:    "IMP004",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"file too large", msgTooLarge},
	{"legacy .xls", msgLegacyXLS},
	{"invalid source", msgUnreadable},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Choose a bookings spreadsheet to upload",
		Code:    "FILE004",
	}},
	{"table not found", msgTableNotFound},

	{"invalid date", UserMessage{
		Message: "A date could not be read",
		Action:  "Use YYYY-MM-DD, or format the cells as dates",
		Code:    "VAL001",
	}},
	{"invalid status", UserMessage{
		Message: "Unknown booking status",
		Action:  "Use confirmed, pending or cancelled",
		Code:    "VAL002",
	}},
	{"required field", UserMessage{
		Message: "Required field is empty",
		Action:  "Fill in property, check-in, check-out and guest on every row",
		Code:    "VAL003",
	}},
	{"missing required column", UserMessage{
		Message: "Required column is missing",
		Action:  "Download the template to see the expected headers",
		Code:    "VAL004",
	}},
	{"must be after check-in", UserMessage{
		Message: "Check-out is not after check-in",
		Action:  "Correct the stay dates",
		Code:    "VAL005",
	}},
	{`property "`, UserMessage{
		Message: "Property not found",
		Action:  "Use the property name exactly as it appears in the directory",
		Code:    "VAL006",
	}},
	{"invalid request", UserMessage{
		Message: "The request could not be understood",
		Action:  "Check the submitted fields and try again",
		Code:    "VAL007",
	}},

	{"too many concurrent imports", msgBusy},
	{"unsupported resolution", UserMessage{
		Message: "Only overwrite and skip are supported",
		Action:  "Choose overwrite or skip for each conflict",
		Code:    "IMP002",
	}},
	{"can overwrite one booking", UserMessage{
		Message: "A row can replace only one existing booking",
		Action:  "Choose overwrite for at most one conflict per row",
		Code:    "IMP002",
	}},
	{"no candidate matches conflict", UserMessage{
		Message: "A decision refers to a conflict that no longer exists",
		Action:  "Run the import again to get fresh conflicts",
		Code:    "IMP002",
	}},
	{"context canceled", msgCancelled},
	{"context deadline exceeded", msgTimeout},

	{"duplicate key", UserMessage{
		Message: "This booking already exists",
		Action:  "Run the import again to review it as a conflict",
		Code:    "DB001",
	}},
	{"check constraint", UserMessage{
		Message: "The database rejected the booking dates",
		Action:  "Check that check-out is after check-in",
		Code:    "DB002",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB003",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB003",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB004",
	}},

	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user message. A nil error maps to the zero
// UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var (
		srcErr   *SourceFormatError
		tableErr *TableNotFoundError
	)
	switch {
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.As(err, &tableErr):
		return msgTableNotFound
	case errors.As(err, &srcErr):
		if strings.Contains(srcErr.Reason, "too large") {
			return msgTooLarge
		}
		if strings.Contains(srcErr.Reason, "legacy") {
			return msgLegacyXLS
		}
		return msgUnreadable
	}

	return matchPattern(err.Error())
}

// MapImportError converts a row-level report entry to a user message.
func MapImportError(e ImportError) UserMessage {
	switch e.Kind {
	case KindEmptySource:
		return UserMessage{
			Message: "The sheet has no booking rows",
			Action:  "Add rows below the header or pick another sheet",
			Code:    "FILE002",
		}
	case KindTableNotFound:
		return msgTableNotFound
	}
	return matchPattern(e.Message)
}

func matchPattern(s string) UserMessage {
	s = strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
