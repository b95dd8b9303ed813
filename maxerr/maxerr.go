// Package maxerr defines the typed error taxonomy surfaced by the dispatch
// core: invalid-token, platform, transport, upload, parameter, handler and
// middleware failures.
package maxerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidTokenError signals an authentication failure from the platform.
// It is fatal: the long-poll loop stops and the error is surfaced to the
// caller.
type InvalidTokenError struct {
	cause error
}

// NewInvalidToken wraps cause as an InvalidTokenError.
func NewInvalidToken(cause error) *InvalidTokenError {
	return &InvalidTokenError{cause: errors.Wrap(cause, "invalid token")}
}

func (e *InvalidTokenError) Error() string { return e.cause.Error() }
func (e *InvalidTokenError) Unwrap() error { return e.cause }

// PlatformError represents a non-2xx, non-auth response from the platform
// API. It is retried in the poll loop and raised synchronously for one-shot
// calls.
type PlatformError struct {
	Code int
	Raw  []byte
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error: status=%d body=%s", e.Code, e.Raw)
}

// IsAuthFailure reports whether this platform error represents an
// authentication failure (HTTP 401/403), which callers should treat as
// InvalidToken rather than a retryable PlatformError.
func (e *PlatformError) IsAuthFailure() bool {
	return e.Code == 401 || e.Code == 403
}

// TransportError represents a connect/timeout failure reaching the
// platform. Retried in the poll loop.
type TransportError struct {
	cause error
}

// NewTransport wraps cause as a TransportError.
func NewTransport(cause error) *TransportError {
	return &TransportError{cause: errors.Wrap(cause, "transport failure")}
}

func (e *TransportError) Error() string { return e.cause.Error() }
func (e *TransportError) Unwrap() error { return e.cause }

// UploadFailureError is returned to the caller on a failed media upload.
type UploadFailureError struct {
	cause error
}

// NewUploadFailure wraps cause as an UploadFailureError.
func NewUploadFailure(cause error) *UploadFailureError {
	return &UploadFailureError{cause: errors.Wrap(cause, "upload failed")}
}

func (e *UploadFailureError) Error() string { return e.cause.Error() }
func (e *UploadFailureError) Unwrap() error { return e.cause }

// InvalidParametersError signals a client-side contract violation, e.g. an
// over-long callback payload. Raised synchronously.
type InvalidParametersError struct {
	Message string
}

func (e *InvalidParametersError) Error() string { return "invalid parameters: " + e.Message }

// NewInvalidParameters builds an InvalidParametersError with a formatted
// message.
func NewInvalidParameters(format string, args ...any) *InvalidParametersError {
	return &InvalidParametersError{Message: fmt.Sprintf(format, args...)}
}

// StateSnapshot captures the FSM state+data observed at the moment a
// handler or middleware failed, for diagnostic logging.
type StateSnapshot struct {
	Data  map[string]any
	State *string
}

// HandlerFailureError wraps an error returned from a user handler or its
// middleware chain; panics are not recovered. The update is still
// considered handled: the dispatcher returns this error and the ingestion
// drivers log it and continue.
type HandlerFailureError struct {
	HandlerTitle string
	RouterID     string
	ProcessInfo  string
	Snapshot     StateSnapshot
	Cause        error
}

func (e *HandlerFailureError) Error() string {
	return fmt.Sprintf("handler %q failed: router_id=%s process_info=%s: %v",
		e.HandlerTitle, e.RouterID, e.ProcessInfo, e.Cause)
}

func (e *HandlerFailureError) Unwrap() error { return e.Cause }

// MiddlewareFailureError describes a failure attributed to a middleware
// rather than a handler. The dispatcher does not construct it: an error
// returned by router-level or handler-level middleware comes back through
// the handler chain and is reported as a HandlerFailureError.
type MiddlewareFailureError struct {
	MiddlewareTitle string
	RouterID        string
	ProcessInfo     string
	Snapshot        StateSnapshot
	Cause           error
}

func (e *MiddlewareFailureError) Error() string {
	return fmt.Sprintf("middleware %q failed: router_id=%s process_info=%s: %v",
		e.MiddlewareTitle, e.RouterID, e.ProcessInfo, e.Cause)
}

func (e *MiddlewareFailureError) Unwrap() error { return e.Cause }
