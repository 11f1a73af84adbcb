package discussion

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error kind
type Kind string

// Error kinds surfaced to callers. All are recoverable.
const (
	KindBlocked         Kind = "BLOCKED"
	KindForbidden       Kind = "FORBIDDEN"
	KindNotFound        Kind = "NOT_FOUND"
	KindInvalidParent   Kind = "INVALID_PARENT"
	KindDuplicateReport Kind = "DUPLICATE_REPORT"
	KindNotFlagged      Kind = "NOT_FLAGGED"
	KindAlreadyBlocked  Kind = "ALREADY_BLOCKED"
	KindNotBlocked      Kind = "NOT_BLOCKED"
	KindInvalid         Kind = "INVALID"
)

var userMessages = map[Kind]string{
	KindBlocked:         "You cannot post comments because you have been blocked.",
	KindForbidden:       "You do not have permission to perform this action.",
	KindNotFound:        "The comment does not exist or has been removed.",
	KindInvalidParent:   "You can only reply to a comment on the same page.",
	KindDuplicateReport: "You have already reported this comment.",
	KindNotFlagged:      "This comment is not flagged.",
	KindAlreadyBlocked:  "This user is already blocked.",
	KindNotBlocked:      "This user is not blocked.",
	KindInvalid:         "The request is invalid.",
}

// UserMessage returns the stable, presentable message of the kind
func (k Kind) UserMessage() string {
	if msg, ok := userMessages[k]; ok {
		return msg
	}
	return "Something went wrong."
}

// Error is a discussion domain error
type Error struct {
	Kind    Kind
	Message string // detail for logs
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrBlocked)
// holds for every Blocked error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrBlocked         = &Error{Kind: KindBlocked, Message: "author is blocked"}
	ErrForbidden       = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidParent   = &Error{Kind: KindInvalidParent, Message: "parent belongs to another target"}
	ErrDuplicateReport = &Error{Kind: KindDuplicateReport, Message: "duplicate report"}
	ErrNotFlagged      = &Error{Kind: KindNotFlagged, Message: "comment is not flagged"}
	ErrAlreadyBlocked  = &Error{Kind: KindAlreadyBlocked, Message: "already blocked"}
	ErrNotBlocked      = &Error{Kind: KindNotBlocked, Message: "not blocked"}
	ErrInvalid         = &Error{Kind: KindInvalid, Message: "invalid request"}
)

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error, or "" for any other error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
