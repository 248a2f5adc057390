package portals

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		reason FailureReason
		want   bool
	}{
		{FailureRateLimited, true},
		{FailureUnreachable, true},
		{FailureAuthentication, false},
		{FailureBadShape, false},
		{FailureTimeout, false},
		{FailureValidation, false},
		{FailureUnknownDistributor, false},
	}
	for _, tt := range tests {
		if got := Retryable(tt.reason); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.reason, got, tt.want)
		}
	}
}

func TestReasonOf(t *testing.T) {
	if got := ReasonOf(NewError("x", FailureRateLimited, nil)); got != FailureRateLimited {
		t.Errorf("ReasonOf typed error = %s, want rate_limited", got)
	}
	wrapped := fmt.Errorf("attempt 3: %w", NewError("x", FailureAuthentication, nil))
	if got := ReasonOf(wrapped); got != FailureAuthentication {
		t.Errorf("ReasonOf wrapped error = %s, want authentication_failed", got)
	}
	if got := ReasonOf(context.DeadlineExceeded); got != FailureTimeout {
		t.Errorf("ReasonOf deadline = %s, want timeout", got)
	}
	if got := ReasonOf(errors.New("boom")); got != FailureUnreachable {
		t.Errorf("ReasonOf unclassified = %s, want portal_unreachable", got)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FailureReason
	}{
		{http.StatusUnauthorized, FailureAuthentication},
		{http.StatusForbidden, FailureAuthentication},
		{http.StatusTooManyRequests, FailureRateLimited},
		{http.StatusInternalServerError, FailureUnreachable},
		{http.StatusBadGateway, FailureUnreachable},
		{http.StatusNotFound, FailureBadShape},
	}
	for _, tt := range tests {
		if got := ClassifyStatus("x", tt.status).Reason; got != tt.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestClassifyKeepsTypedErrors(t *testing.T) {
	orig := NewError("x", FailureAuthentication, errors.New("bad token"))
	got := Classify("x", fmt.Errorf("round trip: %w", orig))
	if got.Reason != FailureAuthentication {
		t.Fatalf("Classify reclassified typed error to %s", got.Reason)
	}
}

func TestErrorString(t *testing.T) {
	err := NewValidationError("ide", "accessTariff", errors.New("missing"))
	msg := err.Error()
	for _, want := range []string{"ide", "validation_error", "accessTariff", "missing"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error string %q missing %q", msg, want)
		}
	}
	if err.Field != "accessTariff" {
		t.Errorf("Field = %q, want accessTariff", err.Field)
	}
}
