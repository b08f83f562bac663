package geocore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure an operation can report.
type ErrorKind int

// Error kinds.
const (
	KindInvalidState ErrorKind = iota + 1
	KindInvalidServerResponse
	KindUnexpectedResponse
	KindServerError
	KindTokenUndefined
	KindUnauthorizedAccess
	KindInvalidParameter
	KindNetworkError
	KindOtherError
)

var kindNames = map[ErrorKind]string{
	KindInvalidState:          "invalid state",
	KindInvalidServerResponse: "invalid server response",
	KindUnexpectedResponse:    "unexpected response",
	KindServerError:           "server error",
	KindTokenUndefined:        "token undefined",
	KindUnauthorizedAccess:    "unauthorized access",
	KindInvalidParameter:      "invalid parameter",
	KindNetworkError:          "network error",
	KindOtherError:            "other error",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Status codes reported with KindInvalidServerResponse when no real HTTP
// status is available.
const (
	StatusUnavailable        = -1
	StatusUnexpectedResponse = -2
	StatusEmptyResponse      = -3
)

// CodeNotRegistered is the server error code returned by /auth for an
// unknown user.
const CodeNotRegistered = "Auth.0001"

// Error is the only error type returned by this package.
type Error struct {
	Kind ErrorKind
	// StatusCode is set for KindInvalidServerResponse.
	StatusCode int
	// Code and Message carry the server envelope for KindServerError.
	Code    string
	Message string
	// Cause is set for KindNetworkError and KindOtherError.
	Cause error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidServerResponse:
		return fmt.Sprintf("geocore: %s (status %d)", e.Kind, e.StatusCode)
	case KindServerError:
		return fmt.Sprintf("geocore: %s [%s] %s", e.Kind, e.Code, e.Message)
	case KindNetworkError, KindOtherError:
		if e.Cause != nil {
			return fmt.Sprintf("geocore: %s: %v", e.Kind, e.Cause)
		}
	}
	if e.Message != "" {
		return fmt.Sprintf("geocore: %s: %s", e.Kind, e.Message)
	}
	return "geocore: " + e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so the Err* values below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrInvalidServerResponse = &Error{Kind: KindInvalidServerResponse}
	ErrUnexpectedResponse    = &Error{Kind: KindUnexpectedResponse}
	ErrServerError           = &Error{Kind: KindServerError}
	ErrTokenUndefined        = &Error{Kind: KindTokenUndefined}
	ErrUnauthorizedAccess    = &Error{Kind: KindUnauthorizedAccess}
	ErrInvalidParameter      = &Error{Kind: KindInvalidParameter}
	ErrNetworkError          = &Error{Kind: KindNetworkError}
	ErrOtherError            = &Error{Kind: KindOtherError}
)

// KindOf returns the kind of err, or 0 when err is not a *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsServerCode reports whether err is a server error carrying code.
func IsServerCode(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindServerError && e.Code == code
}

func errInvalidState(msg string) *Error {
	return &Error{Kind: KindInvalidState, Message: msg}
}

func errInvalidParameter(msg string) *Error {
	return &Error{Kind: KindInvalidParameter, Message: msg}
}

func errUnexpectedResponse(msg string) *Error {
	return &Error{Kind: KindUnexpectedResponse, Message: msg}
}

func errInvalidServerResponse(status int) *Error {
	return &Error{Kind: KindInvalidServerResponse, StatusCode: status}
}

func errServer(code, msg string) *Error {
	return &Error{Kind: KindServerError, Code: code, Message: msg}
}

func errNetwork(cause error) *Error {
	return &Error{Kind: KindNetworkError, Cause: cause}
}

// asError keeps *Error values intact and wraps anything else as
// KindOtherError.
func asError(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindOtherError, Cause: err}
}
