package workflow

import (
	"context"
	"log/slog"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/logging"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

// handleFailure routes a stage error through the retry policy: either the
// job returns to pending with a durable backoff, or it fails terminally.
func (m *Manager) handleFailure(ctx context.Context, logger *slog.Logger, job *jobs.Job, err error) {
	kind := services.Kind(err)
	if kind == "fingerprint" {
		job.FingerprintFailures++
	}

	decision := m.scheduler.Decide(job, err)
	if decision.Retry {
		if requeueErr := m.store.RequeueWithBackoff(ctx, job, decision.Delay, kind, err.Error()); requeueErr != nil {
			logger.Error("failed to requeue job", logging.Error(requeueErr))
			return
		}
		logger.Warn("job requeued with backoff",
			logging.Error(err),
			logging.String(logging.FieldEventType, "job_requeued"),
			logging.String(logging.FieldErrorKind, kind),
			logging.Duration("retry_delay", decision.Delay),
			logging.Int("attempt", job.Attempts),
		)
		m.takePendingFragments(job.ID)
		return
	}

	if markErr := m.store.MarkFailed(ctx, job, kind, err.Error()); markErr != nil {
		logger.Error("failed to persist terminal failure", logging.Error(markErr))
		return
	}
	logger.Error("job failed terminally",
		logging.Error(err),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorKind, kind),
		logging.String("reason", decision.Reason),
		logging.String(logging.FieldErrorHint, platform.FetchError(err)),
	)
	m.takePendingFragments(job.ID)
	m.cleanupStaging(job)
}
