package biz

import (
	"errors"
	"fmt"
)

// NotFoundError indicates the upstream reported the designated not-found
// status for a resource. It is distinguishable from generic failure so the
// service layer can map it to a 404 response.
type NotFoundError struct {
	Resource string // "Person" or "Film"
	ID       int
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

// UnavailableError indicates the upstream dependency could not serve the
// request: connection failure, exhausted retries, or an unexpected status.
type UnavailableError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As compatibility.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// CircuitOpenError indicates the circuit breaker rejected the call before
// any network activity. SinceLastFailure and RetryAfter are in seconds.
type CircuitOpenError struct {
	Key              string
	SinceLastFailure int64
	RetryAfter       int64
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is OPEN for %s: last failure %ds ago, retry after %ds",
		e.Key, e.SinceLastFailure, e.RetryAfter)
}

// RequestFailedError indicates a received response represented a failure.
// Status 0 means the response body could not be parsed.
type RequestFailedError struct {
	Status int
}

// Error implements the error interface.
func (e *RequestFailedError) Error() string {
	if e.Status == 0 {
		return "invalid response body"
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsUnavailable reports whether err is (or wraps) an UnavailableError or
// CircuitOpenError, both of which map to a transient-unavailable response.
func IsUnavailable(err error) bool {
	var ua *UnavailableError
	var co *CircuitOpenError
	return errors.As(err, &ua) || errors.As(err, &co)
}
