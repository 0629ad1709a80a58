package miniav

import (
	"errors"
	"fmt"
)

// Code is the flat status enumeration shared by every operation. A Code
// other than CodeOK is always carried by an *Error.
type Code int32

const (
	CodeOK Code = iota
	CodeUnknown
	CodeInvalidArg
	CodeInvalidHandle
	CodeNotInitialized
	CodeNotConfigured
	CodeAlreadyRunning
	CodeNotRunning
	CodeOutOfMemory
	CodeDeviceNotFound
	CodeDeviceBusy
	CodeDeviceLost
	CodeNotSupported
	CodeNotImplemented
	CodeFormatNotSupported
	CodeSystemCallFailed
	CodeTimeout
	CodePortalFailed
	CodePortalClosed
	CodeUserCancelled
)

var codeStrings = map[Code]string{
	CodeOK:                 "success",
	CodeUnknown:            "unknown error",
	CodeInvalidArg:         "invalid argument",
	CodeInvalidHandle:      "invalid handle",
	CodeNotInitialized:     "not initialized",
	CodeNotConfigured:      "not configured",
	CodeAlreadyRunning:     "capture already running",
	CodeNotRunning:         "capture not running",
	CodeOutOfMemory:        "out of memory",
	CodeDeviceNotFound:     "device not found",
	CodeDeviceBusy:         "device busy",
	CodeDeviceLost:         "device lost",
	CodeNotSupported:       "not supported",
	CodeNotImplemented:     "not implemented",
	CodeFormatNotSupported: "format not supported",
	CodeSystemCallFailed:   "system call failed",
	CodeTimeout:            "operation timed out",
	CodePortalFailed:       "desktop portal request failed",
	CodePortalClosed:       "desktop portal session closed",
	CodeUserCancelled:      "cancelled by user",
}

// String returns the stable human-readable description for the code.
func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return codeStrings[CodeUnknown]
}

// ErrorString mirrors the C surface's GetErrorString.
func ErrorString(c Code) string { return c.String() }

// Error is the error type returned across the package boundary. Two
// Errors match under errors.Is when their codes are equal, so callers
// compare against the package sentinels:
//
//	if errors.Is(err, miniav.ErrDeviceNotFound) { ... }
type Error struct {
	Code Code
	msg  string
	err  error
}

func (e *Error) Error() string {
	switch {
	case e.msg != "" && e.err != nil:
		return fmt.Sprintf("miniav: %s: %v", e.msg, e.err)
	case e.msg != "":
		return "miniav: " + e.msg
	case e.err != nil:
		return fmt.Sprintf("miniav: %s: %v", e.Code, e.err)
	default:
		return "miniav: " + e.Code.String()
	}
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel errors, one per failure code.
var (
	ErrUnknown            = &Error{Code: CodeUnknown}
	ErrInvalidArg         = &Error{Code: CodeInvalidArg}
	ErrInvalidHandle      = &Error{Code: CodeInvalidHandle}
	ErrNotInitialized     = &Error{Code: CodeNotInitialized}
	ErrNotConfigured      = &Error{Code: CodeNotConfigured}
	ErrAlreadyRunning     = &Error{Code: CodeAlreadyRunning}
	ErrNotRunning         = &Error{Code: CodeNotRunning}
	ErrOutOfMemory        = &Error{Code: CodeOutOfMemory}
	ErrDeviceNotFound     = &Error{Code: CodeDeviceNotFound}
	ErrDeviceBusy         = &Error{Code: CodeDeviceBusy}
	ErrDeviceLost         = &Error{Code: CodeDeviceLost}
	ErrNotSupported       = &Error{Code: CodeNotSupported}
	ErrNotImplemented     = &Error{Code: CodeNotImplemented}
	ErrFormatNotSupported = &Error{Code: CodeFormatNotSupported}
	ErrSystemCallFailed   = &Error{Code: CodeSystemCallFailed}
	ErrTimeout            = &Error{Code: CodeTimeout}
	ErrPortalFailed       = &Error{Code: CodePortalFailed}
	ErrPortalClosed       = &Error{Code: CodePortalClosed}
	ErrUserCancelled      = &Error{Code: CodeUserCancelled}
)

// Errorf builds an *Error with a formatted message. Backend packages
// use it to return the most specific applicable code.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a code to an underlying error, preserving the
// chain for errors.Is/As.
func WrapError(code Code, err error) *Error {
	return &Error{Code: code, err: err}
}

// CodeOf extracts the status code from an error chain. A nil error is
// CodeOK; an error with no *Error in its chain is CodeUnknown, the
// dispatch layer's downgrade for unrecognized backend failures.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
