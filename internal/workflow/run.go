package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/logging"
)

// Start begins background processing with the configured worker count.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	workers := m.cfg.Workflow.WorkerCount
	if workers <= 0 {
		workers = 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(workers)
	m.mu.Unlock()

	m.logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.Int("workers", workers),
	)
	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, m.logger.With(logging.Int("worker", i)))
	}
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow stopped", logging.String(logging.FieldEventType, "workflow_stop"))
}

// RunUntilIdle processes claimable jobs until the queue drains, then
// returns. Used by the one-shot CLI run mode.
func (m *Manager) RunUntilIdle(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}
		m.processJob(ctx, m.logger, job)
	}
}

func (m *Manager) runWorker(ctx context.Context, logger *slog.Logger) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("failed to claim next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "claim_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
			m.waitOrShutdown(ctx, time.Duration(m.cfg.Workflow.ErrorRetryInterval)*time.Second)
			continue
		}
		if job == nil {
			m.waitOrShutdown(ctx, m.pollInterval)
			continue
		}

		m.processJob(ctx, logger, job)
	}
}

func (m *Manager) waitOrShutdown(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		delay = m.pollInterval
	}
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}
