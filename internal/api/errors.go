package api

import (
	"errors"
	"fmt"
)

// ErrorKind separates the backend's two failure channels plus our own decode
// failures. Domain errors arrive as data ({success: false, error: "..."}),
// often with HTTP 200; transport errors are network failures and non-2xx
// statuses. Callers present them differently: domain messages are meaningful
// to an accounting user, transport errors get a generic retryable banner.
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindDomain    ErrorKind = "domain"
	KindDecode    ErrorKind = "decode"
)

// Error is a failed API operation.
type Error struct {
	Kind       ErrorKind
	Op         string // logical operation, e.g. "purchase_reconciliation"
	StatusCode int    // HTTP status when one was received
	Message    string // backend's error string for domain errors
	Err        error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s error (status %d)", e.Op, e.Kind, e.StatusCode)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsDomain reports whether err is a backend domain error
// ({success: false}), whose message is safe to show inline.
func IsDomain(err error) bool {
	return kindOf(err) == KindDomain
}

// IsTransport reports whether err is a network or HTTP-level failure,
// presentable only as a generic retryable failure.
func IsTransport(err error) bool {
	return kindOf(err) == KindTransport
}

func kindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}
