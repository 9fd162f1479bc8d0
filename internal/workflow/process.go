package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/extract"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fingerprint"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fusion"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/logging"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
)

// processJob drives one claimed job through fetch, dedup, extract, and fuse.
// The claim already moved the job to fetching; every later transition is
// persisted before the next stage starts so a crash resumes cleanly.
func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *jobs.Job) {
	correlationID := uuid.NewString()
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, correlationID)
	jobLogger := logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldURL, job.URL),
		logging.String(logging.FieldCorrelationID, correlationID),
	)

	start := time.Now()
	jobLogger.Info("job claimed",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("platform", string(job.Platform)),
		logging.String("priority", string(job.Priority)),
		logging.Int("attempt", job.Attempts),
	)

	stages := []struct {
		name string
		run  func(context.Context, *slog.Logger, *jobs.Job) (bool, error)
	}{
		{"fetch", m.stageFetch},
		{"dedup_check", m.stageDedupCheck},
		{"extract", m.stageExtract},
		{"fuse", m.stageFuse},
	}

	for _, stage := range stages {
		if m.checkCancelled(ctx, jobLogger, job) {
			return
		}

		stageLogger := jobLogger.With(logging.String(logging.FieldStage, stage.name))
		stageStart := time.Now()
		stageLogger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

		done, err := stage.run(services.WithStage(ctx, stage.name), stageLogger, job)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				stageLogger.Debug("stage interrupted by shutdown")
				return
			}
			m.handleFailure(ctx, stageLogger, job, err)
			return
		}
		stageLogger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", time.Since(stageStart)),
		)
		if done {
			break
		}
	}

	jobLogger.Info("job finished",
		logging.String(logging.FieldEventType, "job_finish"),
		logging.String("status", string(job.Status)),
		logging.Duration("job_duration", time.Since(start)),
	)
}

// checkCancelled honors a cancel request at a stage boundary. The in-flight
// stage is never interrupted, only the next one is skipped.
func (m *Manager) checkCancelled(ctx context.Context, logger *slog.Logger, job *jobs.Job) bool {
	cancelled, err := m.store.IsCancelRequested(ctx, job.ID)
	if err != nil {
		logger.Warn("failed to read cancel flag", logging.Error(err))
		return false
	}
	if !cancelled {
		return false
	}
	job.CancelRequested = true
	if err := m.store.MarkFailed(ctx, job, "cancelled", "cancelled by operator"); err != nil {
		logger.Error("failed to persist cancellation", logging.Error(err))
		return true
	}
	logger.Info("job cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	m.cleanupStaging(job)
	return true
}

// stageFetch downloads the media and records its coarse metadata.
func (m *Manager) stageFetch(ctx context.Context, logger *slog.Logger, job *jobs.Job) (bool, error) {
	destDir := m.stagingDir(job)
	asset, meta, err := m.gateway.Fetch(ctx, job.URL, destDir)
	if err != nil {
		return false, err
	}

	job.MediaPath = asset.Path
	job.MediaDuration = asset.DurationSeconds
	job.MediaWidth = asset.Width
	job.MediaHeight = asset.Height
	if err := m.store.Transition(ctx, job, jobs.StatusDedupChecking); err != nil {
		return false, err
	}

	logger.Info("media fetched",
		logging.String("media_path", asset.Path),
		logging.Float64("duration_seconds", asset.DurationSeconds),
		logging.String("resolution", asset.Resolution()),
		logging.String("uploader", meta.Uploader),
	)
	return false, nil
}

// stageDedupCheck fingerprints the media and asks the archive whether an
// equivalent video already exists. Duplicates terminate here.
func (m *Manager) stageDedupCheck(ctx context.Context, logger *slog.Logger, job *jobs.Job) (bool, error) {
	hash, err := m.fingerprinter.Compute(ctx, job.MediaPath, job.MediaDuration)
	if err != nil {
		return false, err
	}
	job.ContentHash = fingerprint.Encode(hash)

	match, err := m.archiveIndex.CheckAndInsert(ctx, job.ID, hash, job.MediaDuration, job.MediaWidth, job.MediaHeight)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "dedup_checking", "archive_lookup", "check archive index", err)
	}
	if match != nil {
		if err := m.store.MarkDuplicate(ctx, job, match.JobID); err != nil {
			return false, err
		}
		logger.Info("duplicate detected",
			logging.String(logging.FieldEventType, "duplicate_found"),
			logging.Int64("duplicate_of", match.JobID),
			logging.Int("hash_distance", match.Distance),
		)
		m.cleanupStaging(job)
		return true, nil
	}

	return false, m.store.Transition(ctx, job, jobs.StatusExtracting)
}

// stageExtract runs all extractors concurrently and gathers their fragments.
// Individual extractor failures are logged and skipped; an empty fragment
// set still proceeds to fusing.
func (m *Manager) stageExtract(ctx context.Context, logger *slog.Logger, job *jobs.Job) (bool, error) {
	asset := media.Asset{
		Path:            job.MediaPath,
		DurationSeconds: job.MediaDuration,
		Width:           job.MediaWidth,
		Height:          job.MediaHeight,
	}

	extractors := make([]extract.Extractor, 0, len(m.extractors)+1)
	extractors = append(extractors, m.extractors...)
	if m.visionEligible(job) {
		extractors = append(extractors, m.vision)
	}

	var (
		mu        sync.Mutex
		fragments []extract.Fragment
		proposals []string
		wg        sync.WaitGroup
	)
	for _, extractor := range extractors {
		wg.Add(1)
		go func(ex extract.Extractor) {
			defer wg.Done()
			var (
				produced []extract.Fragment
				proposed []string
				err      error
			)
			if vision, ok := ex.(*extract.VisionExtractor); ok {
				produced, proposed, err = vision.Analyze(ctx, asset)
			} else {
				produced, err = ex.Extract(ctx, asset)
			}
			if err != nil {
				logger.Warn("extractor failed",
					logging.String("extractor", ex.Name()),
					logging.Error(err),
					logging.String(logging.FieldErrorKind, services.Kind(err)),
				)
				return
			}
			mu.Lock()
			fragments = append(fragments, produced...)
			proposals = append(proposals, proposed...)
			mu.Unlock()
			logger.Debug("extractor finished",
				logging.String("extractor", ex.Name()),
				logging.Int("fragments", len(produced)),
			)
		}(extractor)
	}
	wg.Wait()

	for _, label := range proposals {
		if err := m.store.AppendProposedTag(ctx, job.ID, label, string(extract.SourceVision)); err != nil {
			logger.Warn("failed to record proposed tag", logging.Error(err))
		}
	}

	m.setPendingFragments(job.ID, fragments)
	logger.Info("extraction finished",
		logging.Int("fragments", len(fragments)),
		logging.Int("proposed_tags", len(proposals)),
	)
	return false, m.store.Transition(ctx, job, jobs.StatusFusing)
}

// stageFuse merges fragments into the final classification. Fusion is pure
// and never fails; an empty fragment set yields a review-flagged result.
func (m *Manager) stageFuse(ctx context.Context, logger *slog.Logger, job *jobs.Job) (bool, error) {
	fragments := m.takePendingFragments(job.ID)
	classification := fusion.Fuse(fragments)

	encoded, err := json.Marshal(classification)
	if err != nil {
		return false, fmt.Errorf("encode classification: %w", err)
	}
	if err := m.store.MarkCompleted(ctx, job, string(encoded)); err != nil {
		return false, err
	}

	logger.Info("job classified",
		logging.String(logging.FieldEventType, "job_classified"),
		logging.String("category", classification.Category),
		logging.Int("tags", len(classification.Tags)),
		logging.Float64("overall_confidence", classification.OverallConfidence),
		logging.Bool("requires_review", classification.RequiresReview),
	)
	m.cleanupStaging(job)
	return true, nil
}

func (m *Manager) stagingDir(job *jobs.Job) string {
	return filepath.Join(m.cfg.Paths.StagingDir, fmt.Sprintf("job-%d", job.ID))
}

func (m *Manager) cleanupStaging(job *jobs.Job) {
	dir := m.stagingDir(job)
	if dir == "" || dir == "/" {
		return
	}
	_ = os.RemoveAll(dir)
}
