// Package daemon runs the pipeline as a long-lived process. A file lock
// guarantees a single instance per data directory, and jobs stranded
// mid-stage by a previous crash are returned to pending before workers start.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/logging"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/workflow"
)

// Daemon owns the process-wide lifecycle: lock, store, workflow manager.
type Daemon struct {
	cfg     *config.Config
	store   *jobs.Store
	manager *workflow.Manager
	logger  *slog.Logger
	lock    *flock.Flock

	running bool
}

// New assembles a daemon. The store and manager are owned by the daemon and
// closed on Stop.
func New(cfg *config.Config, store *jobs.Store, manager *workflow.Manager, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Daemon{
		cfg:     cfg,
		store:   store,
		manager: manager,
		logger:  logger.With(logging.String(logging.FieldComponent, "daemon")),
		lock:    flock.New(filepath.Join(cfg.Paths.DataDir, "gazaclass.lock")),
	}
}

// Start acquires the instance lock, resets stuck jobs, and starts workers.
func (d *Daemon) Start(ctx context.Context) error {
	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return errors.New("another instance is already running for this data directory")
	}

	reset, err := d.store.ResetStuckProcessing(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reset stuck jobs: %w", err)
	}
	if reset > 0 {
		d.logger.Info("reset stuck jobs from previous run",
			logging.Int("count", reset),
			logging.String(logging.FieldEventType, "stuck_jobs_reset"),
		)
	}

	if err := d.manager.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return err
	}
	d.running = true
	return nil
}

// Stop shuts down workers, releases the lock, and closes the store.
func (d *Daemon) Stop() {
	if !d.running {
		return
	}
	d.running = false
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("failed to close job store", logging.Error(err))
	}
}
