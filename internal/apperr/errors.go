package apperr

import (
	"errors"
	"fmt"
)

// Code categorizes application errors.
type Code string

const (
	// CodePermissionDenied indicates location permission is missing.
	CodePermissionDenied Code = "PERMISSION_DENIED"

	// CodeConflict indicates a trip start while another trip is active.
	CodeConflict Code = "CONFLICT"

	// CodeNotFound indicates an operation on a missing trip or vehicle id.
	CodeNotFound Code = "NOT_FOUND"

	// CodeInvalidState indicates an operation illegal for the record's status.
	CodeInvalidState Code = "INVALID_STATE"

	// CodeNetworkUnavailable indicates sync or resolution attempted offline.
	CodeNetworkUnavailable Code = "NETWORK_UNAVAILABLE"

	// CodeIntegrityMismatch indicates a recomputed hash differs from the stored one.
	CodeIntegrityMismatch Code = "INTEGRITY_MISMATCH"
)

// Error is a coded application error. Code drives HTTP mapping and caller
// branching; Message is human-readable.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error wrapping a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func is(err error, code Code) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

// IsPermissionDenied reports whether err is a PERMISSION_DENIED error.
func IsPermissionDenied(err error) bool { return is(err, CodePermissionDenied) }

// IsConflict reports whether err is a CONFLICT error.
func IsConflict(err error) bool { return is(err, CodeConflict) }

// IsNotFound reports whether err is a NOT_FOUND error.
func IsNotFound(err error) bool { return is(err, CodeNotFound) }

// IsInvalidState reports whether err is an INVALID_STATE error.
func IsInvalidState(err error) bool { return is(err, CodeInvalidState) }

// IsNetworkUnavailable reports whether err is a NETWORK_UNAVAILABLE error.
func IsNetworkUnavailable(err error) bool { return is(err, CodeNetworkUnavailable) }

// IsIntegrityMismatch reports whether err is an INTEGRITY_MISMATCH error.
func IsIntegrityMismatch(err error) bool { return is(err, CodeIntegrityMismatch) }
