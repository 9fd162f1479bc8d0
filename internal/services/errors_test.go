package services_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := errors.New("exit status 1")
	err := services.Wrap(services.ErrRateLimited, "fetch", "download", "throttled", cause)

	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatal("marker lost through Wrap")
	}
	if !errors.Is(err, cause) {
		t.Fatal("cause lost through Wrap")
	}
	if !strings.Contains(err.Error(), "fetch: download: throttled") {
		t.Fatalf("stage context missing: %v", err)
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "fuse", "", "unexpected state", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient fallback, got %v", err)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		marker error
		want   string
	}{
		{services.ErrAuthRequired, "auth_required"},
		{services.ErrRateLimited, "rate_limited"},
		{services.ErrNotFound, "not_found"},
		{services.ErrRemoved, "removed"},
		{services.ErrFingerprint, "fingerprint"},
		{services.ErrExtraction, "extraction"},
		{services.ErrConfiguration, "configuration"},
		{services.ErrValidation, "validation"},
		{services.ErrCancelled, "cancelled"},
		{services.ErrTransient, "transient"},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "stage", "op", "msg", nil)
		if got := services.Kind(err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}
	if services.Kind(nil) != "" {
		t.Error("Kind(nil) must be empty")
	}
	if services.Kind(errors.New("plain")) != "transient" {
		t.Error("unclassified errors default to transient")
	}
}

func TestRetryable(t *testing.T) {
	permanent := []error{
		services.ErrCancelled,
		services.ErrAuthRequired,
		services.ErrNotFound,
		services.ErrRemoved,
		services.ErrConfiguration,
		services.ErrValidation,
	}
	for _, marker := range permanent {
		if services.Retryable(services.Wrap(marker, "s", "o", "m", nil)) {
			t.Errorf("%v must not be retryable", marker)
		}
	}

	retryable := []error{
		services.ErrRateLimited,
		services.ErrFingerprint,
		services.ErrExtraction,
		services.ErrTransient,
	}
	for _, marker := range retryable {
		if !services.Retryable(services.Wrap(marker, "s", "o", "m", nil)) {
			t.Errorf("%v must be retryable", marker)
		}
	}
	if services.Retryable(nil) {
		t.Error("nil error is not retryable")
	}
}
