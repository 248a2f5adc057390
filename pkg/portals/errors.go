package portals

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// FailureReason classifies why an extraction could not produce offers.
// The orchestrator's retry policy keys off this classification.
type FailureReason string

const (
	// FailureUnknownDistributor means no adapter is registered for the code.
	FailureUnknownDistributor FailureReason = "unknown_distributor"
	// FailureAuthentication means the portal rejected our credentials or
	// session. Requires operator attention, never retried.
	FailureAuthentication FailureReason = "authentication_failed"
	// FailureUnreachable covers network, DNS and TLS level failures.
	FailureUnreachable FailureReason = "portal_unreachable"
	// FailureBadShape means the portal answered but its structure no longer
	// matches what the adapter expects. Never retried.
	FailureBadShape FailureReason = "unexpected_response_shape"
	// FailureRateLimited means the portal throttled us.
	FailureRateLimited FailureReason = "rate_limited"
	// FailureTimeout means the time budget elapsed before completion.
	FailureTimeout FailureReason = "timeout"
	// FailureValidation means the normalizer could not trust the scraped
	// record; Field names the offending field.
	FailureValidation FailureReason = "validation_error"
)

// Retryable reports whether the orchestrator may retry a failure of the
// given reason. Authentication and shape failures indicate the portal or
// credentials changed and repetition cannot fix them.
func Retryable(r FailureReason) bool {
	return r == FailureRateLimited || r == FailureUnreachable
}

// Error is the typed failure every adapter returns instead of partial data.
type Error struct {
	Code   string
	Reason FailureReason
	Field  string // set for validation_error only
	cause  error
}

func (e *Error) Error() string {
	if e == nil {
		return "portal error"
	}
	msg := fmt.Sprintf("portal %s: %s", e.Code, e.Reason)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified portal error wrapping cause (which may be nil).
func NewError(code string, reason FailureReason, cause error) *Error {
	return &Error{Code: code, Reason: reason, cause: cause}
}

// NewValidationError reports an untrustworthy record, naming the field.
func NewValidationError(code, field string, cause error) *Error {
	return &Error{Code: code, Reason: FailureValidation, Field: field, cause: cause}
}

// ReasonOf extracts the failure reason from err. Unclassified errors map to
// portal_unreachable, the conservative transient bucket.
func ReasonOf(err error) FailureReason {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Reason
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureUnreachable
}

// Classify wraps a transport-level error from an HTTP round trip into a
// portal error. It never reclassifies an already typed *Error.
func Classify(code string, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(code, FailureTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewError(code, FailureTimeout, err)
	}
	return NewError(code, FailureUnreachable, err)
}

// ClassifyStatus maps a non-2xx HTTP status to a failure reason.
func ClassifyStatus(code string, status int) *Error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewError(code, FailureAuthentication, fmt.Errorf("HTTP %d", status))
	case status == http.StatusTooManyRequests:
		return NewError(code, FailureRateLimited, fmt.Errorf("HTTP %d", status))
	case status >= 500:
		return NewError(code, FailureUnreachable, fmt.Errorf("HTTP %d", status))
	default:
		return NewError(code, FailureBadShape, fmt.Errorf("HTTP %d", status))
	}
}
