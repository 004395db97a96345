package core

// error_messages.go maps technical errors to user-facing messages with codes
// that users can quote to support.
//
// # Logbook Errors (LOG001-LOG099)
//
//	LOG001 - Not a logbook export: first line lacks the ForeFlight marker
//	         Action: Export the logbook from ForeFlight as CSV and upload that file
//	         Patterns: "invalid logbook format"
//
//	LOG002 - Flights table missing: the Flights Table header could not be found
//	         Action: Re-export the full logbook, including the Flights Table
//	         Patterns: "section not found"
//
//	LOG003 - No usable flights: the file parsed but no row had a date and flight time
//	         Action: Check that flights have a date and a total or simulated time
//	         Patterns: "no valid flights"
//
//	LOG004 - Nothing imported: progress was requested before the first import
//	         Action: Import a ForeFlight export first
//	         Patterns: "no imports yet"
//
// # Certification Errors (CERT001-CERT099)
//
//	CERT001 - Unknown certification: the requested certificate is not supported
//	          Action: Choose private, instrument, commercial or cfi
//	          Patterns: "unknown certification type"
//
// # Storage Errors (DB004-DB099)
//
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "timeout"
//	DB008 - Database locked         Patterns: "database is locked"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large        Patterns: "file too large"
//	FILE004 - No file               Patterns: "no file provided"
//	FILE005 - Empty file            Patterns: "empty file"
//
// # Import Errors (UPL001-UPL099)
//
//	UPL002 - System busy            Patterns: "too many concurrent imports"
//	UPL004 - Request cancelled      Patterns: "context canceled"
//	UPL005 - Request timeout        Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Logbook parsing (LOG001-LOG003)
	{
		pattern: "invalid logbook format",
		msg: UserMessage{
			Message: "This file is not a ForeFlight logbook export",
			Action:  "Export the logbook from ForeFlight as CSV and upload that file",
			Code:    "LOG001",
		},
	},
	{
		pattern: "section not found",
		msg: UserMessage{
			Message: "The Flights Table could not be found in this export",
			Action:  "Re-export the full logbook, including the Flights Table",
			Code:    "LOG002",
		},
	},
	{
		pattern: "no valid flights",
		msg: UserMessage{
			Message: "The file was read but contained no usable flights",
			Action:  "Check that flights have a date and a total or simulated time",
			Code:    "LOG003",
		},
	},

	{
		pattern: "no imports yet",
		msg: UserMessage{
			Message: "No logbook has been imported yet",
			Action:  "Import a ForeFlight export first",
			Code:    "LOG004",
		},
	},

	// Certification (CERT001)
	{
		pattern: "unknown certification type",
		msg: UserMessage{
			Message: "Unknown certification type",
			Action:  "Choose private, instrument, commercial or cfi",
			Code:    "CERT001",
		},
	},

	// Import concurrency (UPL002)
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},

	// Storage (DB004-DB008)
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Import history is busy",
			Action:  "Please try again",
			Code:    "DB008",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},

	// File handling (FILE001-FILE005)
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Upload a logbook export under the configured size limit",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a logbook CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a logbook export with flights",
			Code:    "FILE005",
		},
	},

	// Request lifecycle (UPL004-UPL005)
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try again or check your connection",
			Code:    "UPL005",
		},
	},

	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
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

// IsUserFacing reports whether err matches a known pattern rather than the
// generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
