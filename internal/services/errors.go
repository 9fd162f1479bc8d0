package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the pipeline error taxonomy. Stage code wraps failures
// with one of these via Wrap so the retry scheduler can classify them without
// knowing anything about the producing component.
var (
	// ErrAuthRequired marks platform fetches rejected for missing credentials.
	ErrAuthRequired = errors.New("auth required")
	// ErrRateLimited marks platform fetches throttled by the remote side.
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound marks URLs whose content does not exist.
	ErrNotFound = errors.New("not found")
	// ErrRemoved marks content taken down after publication.
	ErrRemoved = errors.New("content removed")
	// ErrFingerprint marks media that could not be fingerprinted.
	ErrFingerprint = errors.New("fingerprint error")
	// ErrExtraction marks signal extraction failures.
	ErrExtraction = errors.New("extraction error")
	// ErrTransient marks failures worth retrying with backoff.
	ErrTransient = errors.New("transient failure")
	// ErrConfiguration marks operator configuration problems.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks malformed input that will never succeed.
	ErrValidation = errors.New("validation error")
	// ErrCancelled marks jobs stopped by an external cancellation request.
	ErrCancelled = errors.New("cancelled")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short machine-readable name for an error's taxonomy marker,
// suitable for persistence in a job's last_error_kind column.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrAuthRequired):
		return "auth_required"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRemoved):
		return "removed"
	case errors.Is(err, ErrFingerprint):
		return "fingerprint"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "transient"
	}
}

// Retryable reports whether an error kind may succeed on a later attempt.
// Fingerprint failures are retryable until the scheduler's repetition limit;
// the scheduler owns that counting.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCancelled),
		errors.Is(err, ErrAuthRequired),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrRemoved),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrValidation):
		return false
	default:
		return true
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
