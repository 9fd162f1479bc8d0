// Package retrypolicy decides whether a failed attempt is retried and how
// long to wait before the next one. Delays grow exponentially and are
// persisted by the caller, so a daemon restart never resets the clock.
package retrypolicy

import (
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

// Scheduler holds the backoff parameters.
type Scheduler struct {
	Base             time.Duration
	Max              time.Duration
	MaxAttempts      int
	FingerprintLimit int
}

// Decision is the scheduler's verdict on a failed attempt.
type Decision struct {
	Retry  bool
	Delay  time.Duration
	Reason string
}

// FromConfig builds a Scheduler from the retry section.
func FromConfig(cfg *config.Config) *Scheduler {
	return &Scheduler{
		Base:             time.Duration(cfg.Retry.BaseSeconds) * time.Second,
		Max:              time.Duration(cfg.Retry.MaxSeconds) * time.Second,
		MaxAttempts:      cfg.Retry.MaxAttempts,
		FingerprintLimit: cfg.Retry.FingerprintFailureLimit,
	}
}

// Decide routes a failed attempt: permanent error kinds fail immediately,
// fingerprint failures get a tighter attempt limit, and everything else
// retries with exponential backoff until the attempt limit.
func (s *Scheduler) Decide(job *jobs.Job, err error) Decision {
	if !services.Retryable(err) {
		return Decision{Retry: false, Reason: "permanent: " + services.Kind(err)}
	}

	if services.Kind(err) == "fingerprint" && job.FingerprintFailures >= s.FingerprintLimit {
		return Decision{Retry: false, Reason: "fingerprint failure limit reached"}
	}

	if job.Attempts >= s.MaxAttempts {
		return Decision{Retry: false, Reason: "attempt limit reached"}
	}

	return Decision{Retry: true, Delay: s.DelayFor(job.Attempts), Reason: "transient"}
}

// DelayFor computes the backoff delay after the given attempt count:
// base * 2^attempts, capped at Max.
func (s *Scheduler) DelayFor(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	delay := s.Base
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= s.Max {
			return s.Max
		}
	}
	if delay > s.Max {
		return s.Max
	}
	return delay
}
