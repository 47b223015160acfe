package auth

import (
	"errors"
	"fmt"
)

type FailureKind string

const (
	// FailureNoServerConfigured means there is nothing to validate against.
	FailureNoServerConfigured FailureKind = "no_server_configured"
	// FailureUnauthorized means the service rejected the credential (401/403).
	FailureUnauthorized FailureKind = "unauthorized"
	// FailureTransient covers every other failure, the call may be retried.
	FailureTransient FailureKind = "transient"
)

// Failure is the error returned by the gateway operations.
type Failure struct {
	Kind   FailureKind
	Reason string
	// Status is the HTTP status of the response, 0 when no response arrived.
	Status int
	Err    error
}

func (f *Failure) Error() string {
	if f.Reason == "" {
		return fmt.Sprintf("auth %s", f.Kind)
	}
	return fmt.Sprintf("auth %s: %s", f.Kind, f.Reason)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf classifies err. Errors that are not a [Failure] are transient.
func KindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return FailureTransient
}

// ReasonOf returns the human readable reason carried by err.
func ReasonOf(err error) string {
	var failure *Failure
	if errors.As(err, &failure) && failure.Reason != "" {
		return failure.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
