// Package syncerr defines the error taxonomy shared by the sync engine.
// Every failure that crosses a component boundary is a *Error carrying a
// stable code and a retryable flag, so callers match with errors.As and
// never need to inspect message text. Use errors.Is/errors.As to classify.
package syncerr

import (
	"errors"
	"fmt"
)

// Code identifies a failure class. The string values are part of the
// persisted/reported surface and must stay stable.
type Code string

const (
	CodeAuthConfigMissing Code = "AUTH_CONFIG_MISSING"
	CodeIdentityLoad      Code = "GIS_LOAD_FAILED"
	CodeAuthFailed        Code = "AUTH_FAILED"
	CodeTokenExpired      Code = "TOKEN_EXPIRED"
	CodeOffline           Code = "OFFLINE"
	CodeNetworkFailure    Code = "NETWORK_FAILURE"
	CodeMissingFile       Code = "MISSING_FILE"
	CodeCorruptedJSON     Code = "CORRUPTED_JSON"
	CodeValidationFailed  Code = "VALIDATION_FAILED"
	CodeRemoteAPI         Code = "DRIVE_API_ERROR"
	CodeStoreNotReady     Code = "STORE_NOT_READY"
	CodeUnknown           Code = "UNKNOWN_ERROR"
)

// Error is the single error type of the taxonomy.
type Error struct {
	Code      Code
	Message   string
	Retryable bool
	// Status is the HTTP status that produced the error, when one exists.
	Status int
	// Err is the wrapped cause, if any.
	Err error
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

// New builds a non-retryable error with the given code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Retryable builds an error the caller may retry later.
func Retryable(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Retryable: true}
}

// Wrap attaches a cause to a new taxonomy error.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// From classifies an arbitrary error. Taxonomy errors pass through
// unchanged; anything else becomes UNKNOWN_ERROR with the fallback message.
func From(err error, fallback string) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	msg := fallback
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &Error{Code: CodeUnknown, Message: msg, Err: err}
}

// CodeOf reports the taxonomy code of err, or CodeUnknown for foreign errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given taxonomy code.
func HasCode(err error, code Code) bool {
	var se *Error
	return errors.As(err, &se) && se.Code == code
}

// IsRetryable reports whether err is marked retryable. Foreign errors are not.
func IsRetryable(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Retryable
}

// Offline is the pre-flight connectivity failure. It is always retryable:
// a later trigger re-runs the sync once the network is back.
func Offline() *Error {
	return &Error{
		Code:      CodeOffline,
		Message:   "device is offline, sync will retry when connection is restored",
		Retryable: true,
	}
}
