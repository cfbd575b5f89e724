// Package domainerrors provides the coded error taxonomy shared by all
// migration modules. Services create or wrap errors with a Code; boundaries
// (the processor, the CLI) branch on codes rather than on error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for propagation policy decisions.
type Code string

const (
	// CodeValidation marks malformed run input (bad domain, missing flag).
	// Fatal: the run aborts before any identity is processed.
	CodeValidation Code = "validation"

	// CodeConnectivity marks failure to reach or authenticate to the
	// directory service. Fatal: the run aborts.
	CodeConnectivity Code = "connectivity"

	// CodeNotFound marks an identity lookup miss. Recorded per identity,
	// the batch continues.
	CodeNotFound Code = "not_found"

	// CodeMalformedAddress marks an unparsable proxy-address token.
	// Recorded per identity as a planning failure, the batch continues.
	CodeMalformedAddress Code = "malformed_address"

	// CodeMutation marks an apply failure after the fallback chain is
	// exhausted. Recorded per identity, the batch continues.
	CodeMutation Code = "mutation"

	// CodeInvariantViolation marks a broken internal invariant (for
	// example a plan whose final set has two primaries).
	CodeInvariantViolation Code = "invariant_violation"

	// CodeInternal is the catch-all for unexpected failures.
	CodeInternal Code = "internal"
)

// Error carries a code, a human message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err
// returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// uncoded errors.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is forwards to errors.Is; kept so call sites can stay on one import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsFatal reports whether the error category aborts the whole run.
func IsFatal(err error) bool {
	switch CodeOf(err) {
	case CodeValidation, CodeConnectivity:
		return true
	}
	return false
}
