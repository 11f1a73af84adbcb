package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/steemit/discussion/internal/api/params"
	"github.com/steemit/discussion/internal/discussion"
)

// Server error codes of discussion error kinds
const (
	ErrServerError     = -32000
	ErrBlocked         = -32001
	ErrForbidden       = -32002
	ErrNotFound        = -32003
	ErrInvalidParent   = -32004
	ErrDuplicateReport = -32005
	ErrNotFlagged      = -32006
	ErrAlreadyBlocked  = -32007
	ErrNotBlocked      = -32008
	ErrInvalid         = -32009
)

var kindCodes = map[discussion.Kind]int{
	discussion.KindBlocked:         ErrBlocked,
	discussion.KindForbidden:       ErrForbidden,
	discussion.KindNotFound:        ErrNotFound,
	discussion.KindInvalidParent:   ErrInvalidParent,
	discussion.KindDuplicateReport: ErrDuplicateReport,
	discussion.KindNotFlagged:      ErrNotFlagged,
	discussion.KindAlreadyBlocked:  ErrAlreadyBlocked,
	discussion.KindNotBlocked:      ErrNotBlocked,
	discussion.KindInvalid:         ErrInvalid,
}

// toRPCError maps a handler error to its wire form. The second result
// reports whether the error is a server fault.
func toRPCError(err error) (*JSONRPCError, bool) {
	var paramErr *params.Error
	if errors.As(err, &paramErr) {
		return &JSONRPCError{Code: ErrInvalidParams, Message: "Invalid params", Data: paramErr.Message}, false
	}

	if kind := discussion.KindOf(err); kind != "" {
		return &JSONRPCError{
			Code:    kindCodes[kind],
			Message: kind.UserMessage(),
			Data:    gin.H{"kind": kind},
		}, false
	}

	return &JSONRPCError{Code: ErrServerError, Message: "Server error"}, true
}
