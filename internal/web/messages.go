package web

// messages.go maps technical errors to user-facing messages with stable
// codes operators can quote when reporting a problem.
//
// Codes by category:
//
//	DB001-DB007   database constraints and connectivity
//	VAL001-VAL004 payload validation
//	RES001-RES004 resource type and schema problems
//	CHG001        optimistic-concurrency conflicts on proposed changes
//	IMP001-IMP004 bulk import limits and decoding
//	REQ001-REQ002 cancelled or expired requests
//	RATE001       request throttling
//	ERR000        fallback for everything else
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns sit above general ones. When a
// user reports ERR000, the original technical error is in the server log,
// keyed by request id.

import "strings"

// UserMessage is the client-facing half of an error: what happened, what
// to do about it, and a code for support reference.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// errorPattern pairs a substring to match with its user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Database constraints (DB001-DB003).
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Check whether the row was already imported",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check your items for duplicate values",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check your items for duplicate values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "A referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "A referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB003",
		},
	},

	// Database connectivity (DB004-DB007).
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "The database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller batch or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "The database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Payload validation (VAL001-VAL004).
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some items failed validation",
			Action:  "Fix the reported fields and resubmit",
			Code:    "VAL001",
		},
	},
	{
		pattern: "missing required field",
		msg: UserMessage{
			Message: "A required field is empty",
			Action:  "Ensure required fields have values",
			Code:    "VAL002",
		},
	},
	{
		pattern: "is not a valid",
		msg: UserMessage{
			Message: "A field value has the wrong format",
			Action:  "Check the reported field and correct its format",
			Code:    "VAL003",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "A value is outside the allowed list",
			Action:  "Use one of the allowed values for this field",
			Code:    "VAL004",
		},
	},

	// Resource type and schema problems (RES001-RES004).
	{
		pattern: "unsupported resource type",
		msg: UserMessage{
			Message: "Unknown resource type",
			Action:  "Check the resource type in the request path",
			Code:    "RES001",
		},
	},
	{
		pattern: "unsupported lookup type",
		msg: UserMessage{
			Message: "This resource type has no name lookup",
			Action:  "Lookups exist only for types with a name column",
			Code:    "RES002",
		},
	},
	{
		pattern: "no valid columns",
		msg: UserMessage{
			Message: "The payload contained no writable fields",
			Action:  "Check field names against the resource schema",
			Code:    "RES003",
		},
	},
	{
		pattern: "resource no longer exists",
		msg: UserMessage{
			Message: "The record was deleted since it was analyzed",
			Action:  "Re-run the analysis",
			Code:    "RES004",
		},
	},

	// Proposed-change conflicts (CHG001).
	{
		pattern: "stale change",
		msg: UserMessage{
			Message: "The record changed since it was analyzed",
			Action:  "Re-run the analysis and review the new proposals",
			Code:    "CHG001",
		},
	},

	// Bulk import limits and decoding (IMP001-IMP004).
	{
		pattern: "too many concurrent imports",
		msg: UserMessage{
			Message: "The system is busy with other imports",
			Action:  "Wait a moment and try again",
			Code:    "IMP001",
		},
	},
	{
		pattern: "too many items",
		msg: UserMessage{
			Message: "The import exceeds the per-request item limit",
			Action:  "Split the import into smaller batches",
			Code:    "IMP002",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The body is not valid CSV",
			Action:  "Send comma-separated rows with a header line",
			Code:    "IMP003",
		},
	},
	{
		pattern: "empty import",
		msg: UserMessage{
			Message: "The import contained no items",
			Action:  "Provide at least one row",
			Code:    "IMP004",
		},
	},

	// Cancelled or expired requests (REQ001-REQ002).
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request timed out",
			Action:  "Try a smaller batch or check your connection",
			Code:    "REQ002",
		},
	},

	// Request throttling (RATE001).
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is the ERR000 fallback when no pattern matches.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// mapMessage converts a technical error to its user-facing message.
func mapMessage(err error) UserMessage {
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
