package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimNext atomically claims the oldest claimable pending job, moving it to
// fetching and incrementing its attempt counter. Urgent jobs are claimed
// first. Returns nil when nothing is ready.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	nowStr := now.Format(time.RFC3339Nano)

	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT id FROM jobs
             WHERE status = ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
             ORDER BY CASE priority WHEN 'urgent' THEN 0 ELSE 1 END, created_at
             LIMIT 1`,
			StatusPending, nowStr,
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				claimed = nil
				return tx.Commit()
			}
			return fmt.Errorf("select claimable: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE jobs
             SET status = ?, attempts = attempts + 1, last_attempt_at = ?,
                 next_attempt_at = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusFetching, nowStr, nowStr, id, StatusPending,
		)
		if err != nil {
			return fmt.Errorf("claim job %d: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			// Lost the race to another worker; treat as nothing claimable.
			claimed = nil
			return tx.Commit()
		}

		row = tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
		job, err := scanJob(row)
		if err != nil {
			return fmt.Errorf("reload claimed job %d: %w", id, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit claim: %w", err)
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// Transition moves a job to the given processing status and persists it.
func (s *Store) Transition(ctx context.Context, job *Job, status Status) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if job.IsTerminal() {
		return fmt.Errorf("job %d is terminal (%s)", job.ID, job.Status)
	}
	job.Status = status
	return s.Update(ctx, job)
}

// RequeueWithBackoff returns a failed attempt to pending with a future
// next_attempt_at. The delay survives restarts because it is persisted.
func (s *Store) RequeueWithBackoff(ctx context.Context, job *Job, delay time.Duration, kind, message string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	at := time.Now().UTC().Add(delay)
	job.Status = StatusPending
	job.NextAttemptAt = &at
	job.LastErrorKind = kind
	job.LastError = message
	return s.Update(ctx, job)
}

// MarkFailed moves a job to the failed terminal state.
func (s *Store) MarkFailed(ctx context.Context, job *Job, kind, message string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.SetFailed(kind, message)
	return s.Update(ctx, job)
}

// MarkDuplicate finalizes a job as a duplicate of an archived original.
func (s *Store) MarkDuplicate(ctx context.Context, job *Job, originalID int64) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.Status = StatusDuplicate
	job.DuplicateOf = originalID
	job.NextAttemptAt = nil
	return s.Update(ctx, job)
}

// MarkCompleted finalizes a job with its classification result.
func (s *Store) MarkCompleted(ctx context.Context, job *Job, resultJSON string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.Status = StatusCompleted
	job.ResultJSON = resultJSON
	job.NextAttemptAt = nil
	job.LastErrorKind = ""
	job.LastError = ""
	return s.Update(ctx, job)
}

// RequestCancel flags a job for cancellation. Workers observe the flag at
// stage boundaries; terminal jobs are left untouched.
func (s *Store) RequestCancel(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET cancel_requested = 1, updated_at = ?
         WHERE id = ? AND status NOT IN (?, ?, ?)`,
		now, id, StatusCompleted, StatusDuplicate, StatusFailed,
	)
	if err != nil {
		return false, fmt.Errorf("request cancel: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// IsCancelRequested re-reads the cancellation flag for a job.
func (s *Store) IsCancelRequested(ctx context.Context, id int64) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT cancel_requested FROM jobs WHERE id = ?`, id)
	var flag int
	if err := row.Scan(&flag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Retry returns a failed job to pending so it is claimable again. The
// attempt counters are preserved; only an explicit operator action clears
// the failure detail.
func (s *Store) Retry(ctx context.Context, id int64) (*Job, error) {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %d not found", id)
	}
	if job.Status != StatusFailed {
		return nil, fmt.Errorf("job %d is %s, only failed jobs can be retried", id, job.Status)
	}
	job.Status = StatusPending
	job.Attempts = 0
	job.FingerprintFailures = 0
	job.NextAttemptAt = nil
	job.CancelRequested = false
	if err := s.Update(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// ResetStuckProcessing returns jobs stranded mid-stage by a crash to pending
// so the next daemon run re-claims them. Attempt counts are preserved.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx,
		`UPDATE jobs SET status = ?, updated_at = ?
         WHERE status IN (?, ?, ?, ?)`,
		StatusPending, now,
		StatusFetching, StatusDedupChecking, StatusExtracting, StatusFusing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
