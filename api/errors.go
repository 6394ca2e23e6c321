// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by descriptors, reactors and raw sockets.

package api

import "fmt"

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodePermissionDenied
	ErrCodeNotFound
	ErrCodeDeviceBindFailed
	ErrCodeOS
	ErrCodeWouldBlock
	ErrCodeClosed
	ErrCodeInvalidArgument
	ErrCodeNotSupported
)

var codeNames = map[ErrorCode]string{
	ErrCodeOK:               "ok",
	ErrCodePermissionDenied: "permission denied",
	ErrCodeNotFound:         "not found",
	ErrCodeDeviceBindFailed: "device bind failed",
	ErrCodeOS:               "os error",
	ErrCodeWouldBlock:       "would block",
	ErrCodeClosed:           "closed",
	ErrCodeInvalidArgument:  "invalid argument",
	ErrCodeNotSupported:     "not supported",
}

// String returns the human readable name of the code.
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Sentinels for errors.Is matching. Matching is by Code only, so any *Error
// carrying the same code satisfies errors.Is(err, ErrNotFound).
var (
	ErrPermissionDenied = &Error{Code: ErrCodePermissionDenied, Message: "permission denied"}
	ErrNotFound         = &Error{Code: ErrCodeNotFound, Message: "not found"}
	ErrDeviceBindFailed = &Error{Code: ErrCodeDeviceBindFailed, Message: "device bind failed"}
	ErrOS               = &Error{Code: ErrCodeOS, Message: "os error"}
	ErrWouldBlock       = &Error{Code: ErrCodeWouldBlock, Message: "operation would block"}
	ErrClosed           = &Error{Code: ErrCodeClosed, Message: "use of closed descriptor"}
	ErrInvalidArgument  = &Error{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrNotSupported     = &Error{Code: ErrCodeNotSupported, Message: "operation not supported"}
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string // failing operation, e.g. "socket", "bind", "recv"
	Message string
	Err     error // underlying cause, usually a unix.Errno
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	switch {
	case msg != "":
	case e.Err != nil:
		msg = e.Err.Error()
	default:
		msg = e.Code.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the underlying OS error.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// OSError wraps an OS-level failure of op.
func OSError(op string, err error) *Error {
	return &Error{Code: ErrCodeOS, Op: op, Err: err}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// CodeOf extracts the code of err, or ErrCodeOK for nil and ErrCodeOS for
// errors that are not *Error.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ErrCodeOS
}
