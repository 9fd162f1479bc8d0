package workflow_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/extract"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fingerprint"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fusion"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/logging"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/media"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/testsupport"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/workflow"
)

type fakeGateway struct {
	duration float64
	err      error
	fetches  int
}

func (g *fakeGateway) Fetch(ctx context.Context, url, destDir string) (media.Asset, platform.Metadata, error) {
	g.fetches++
	if g.err != nil {
		return media.Asset{}, platform.Metadata{}, g.err
	}
	return media.Asset{
		Path:            filepath.Join(destDir, "video.mp4"),
		DurationSeconds: g.duration,
		Width:           1280,
		Height:          720,
		AudioStreams:    1,
	}, platform.Metadata{Uploader: "witness"}, nil
}

type fakeExtractor struct {
	name      string
	source    extract.Source
	fragments []extract.Fragment
	err       error
}

func (e fakeExtractor) Name() string           { return e.name }
func (e fakeExtractor) Source() extract.Source { return e.source }
func (e fakeExtractor) Extract(ctx context.Context, asset media.Asset) ([]extract.Fragment, error) {
	return e.fragments, e.err
}

// stubFingerprint makes every ffmpeg frame extraction return the given
// grayscale frame, so the content hash is fully controlled by the test.
func stubFingerprint(t *testing.T, frames ...[]byte) {
	t.Helper()
	call := 0
	restore := fingerprint.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		frame := frames[call%len(frames)]
		call++
		return frame, nil
	})
	t.Cleanup(restore)
}

func flatFrame(step byte) []byte {
	frame := make([]byte, fingerprint.FrameBytes)
	for i := range frame {
		frame[i] = byte(i%9) * step
	}
	return frame
}

func TestManagerCompletesUniqueJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stubFingerprint(t, flatFrame(10))

	gateway := &fakeGateway{duration: 30}
	manager := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithGateway(gateway),
		workflow.WithExtractors(
			fakeExtractor{name: "transcript", source: extract.SourceAudio, fragments: []extract.Fragment{
				{Source: extract.SourceAudio, Text: "families displaced from the shelter", Confidence: 0.7},
			}},
			fakeExtractor{name: "onscreen_text", source: extract.SourceOCR, fragments: []extract.Fragment{
				{Source: extract.SourceOCR, Text: "نزوح", Confidence: 0.6},
			}},
		),
	)

	ctx := context.Background()
	job, _, err := store.Ingest(ctx, "https://x.com/unique", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	done, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", done.Status, done.LastError)
	}
	if done.ContentHash == "" {
		t.Fatal("expected content hash persisted")
	}

	var classification fusion.Classification
	if err := json.Unmarshal([]byte(done.ResultJSON), &classification); err != nil {
		t.Fatalf("decode classification: %v", err)
	}
	if classification.Category != "Displacement" {
		t.Fatalf("expected Displacement, got %q", classification.Category)
	}
	if classification.OverallConfidence <= 0.7 {
		t.Fatalf("two agreeing sources should score above either alone, got %f", classification.OverallConfidence)
	}
}

func TestManagerMarksDuplicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	// Both videos yield the same frame, so the same hash.
	stubFingerprint(t, flatFrame(10))

	manager := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithGateway(&fakeGateway{duration: 30}),
		workflow.WithExtractors(fakeExtractor{name: "transcript", source: extract.SourceAudio}),
	)

	ctx := context.Background()
	first, _, err := store.Ingest(ctx, "https://x.com/original", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	second, _, err := store.Ingest(ctx, "https://x.com/mirror", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	original, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if original.Status != jobs.StatusCompleted {
		t.Fatalf("expected original completed, got %s", original.Status)
	}

	dupe, err := store.GetByID(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if dupe.Status != jobs.StatusDuplicate {
		t.Fatalf("expected duplicate, got %s (%s)", dupe.Status, dupe.LastError)
	}
	if dupe.DuplicateOf != first.ID {
		t.Fatalf("expected duplicate_of %d, got %d", first.ID, dupe.DuplicateOf)
	}
	if dupe.ResultJSON != "" {
		t.Fatal("duplicates must not be classified")
	}
}

func TestManagerRequeuesTransientFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stubFingerprint(t, flatFrame(10))

	gateway := &fakeGateway{err: services.Wrap(services.ErrRateLimited, "fetch", "download", "throttled", nil)}
	manager := workflow.New(cfg, store, logging.NewNop(), workflow.WithGateway(gateway))

	ctx := context.Background()
	job, _, err := store.Ingest(ctx, "https://x.com/throttled", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	requeued, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if requeued.Status != jobs.StatusPending {
		t.Fatalf("expected pending with backoff, got %s", requeued.Status)
	}
	if requeued.NextAttemptAt == nil {
		t.Fatal("expected persisted next_attempt_at")
	}
	if requeued.Attempts != 1 {
		t.Fatalf("expected one attempt recorded, got %d", requeued.Attempts)
	}
	if requeued.LastErrorKind != "rate_limited" {
		t.Fatalf("expected rate_limited kind, got %q", requeued.LastErrorKind)
	}
	if gateway.fetches != 1 {
		t.Fatalf("backoff must prevent immediate re-claim, fetches=%d", gateway.fetches)
	}
}

func TestManagerFailsTerminalKinds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	gateway := &fakeGateway{err: services.Wrap(services.ErrRemoved, "fetch", "download", "content removed by platform", nil)}
	manager := workflow.New(cfg, store, logging.NewNop(), workflow.WithGateway(gateway))

	ctx := context.Background()
	job, _, err := store.Ingest(ctx, "https://x.com/gone", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	failed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if failed.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", failed.Status)
	}
	if failed.LastErrorKind != "removed" {
		t.Fatalf("expected removed kind, got %q", failed.LastErrorKind)
	}
	if failed.NextAttemptAt != nil {
		t.Fatal("terminal job must not be scheduled for retry")
	}
}

func TestManagerHonorsCancellationAtStageBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	gateway := &fakeGateway{duration: 30}
	manager := workflow.New(cfg, store, logging.NewNop(), workflow.WithGateway(gateway))

	ctx := context.Background()
	job, _, err := store.Ingest(ctx, "https://x.com/cancelme", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := store.RequestCancel(ctx, job.ID); err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	cancelled, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if cancelled.Status != jobs.StatusFailed || cancelled.LastErrorKind != "cancelled" {
		t.Fatalf("expected cancelled failure, got %s (%s)", cancelled.Status, cancelled.LastErrorKind)
	}
	if gateway.fetches != 0 {
		t.Fatalf("cancelled job must not fetch, fetches=%d", gateway.fetches)
	}
}

func TestManagerCountsFingerprintFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	restore := fingerprint.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		return []byte{0, 1}, nil // short read
	})
	t.Cleanup(restore)

	manager := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithGateway(&fakeGateway{duration: 30}),
	)

	ctx := context.Background()
	job, _, err := store.Ingest(ctx, "https://x.com/badframe", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != jobs.StatusPending {
		t.Fatalf("first fingerprint failure should requeue, got %s", reloaded.Status)
	}
	if reloaded.FingerprintFailures != 1 {
		t.Fatalf("expected fingerprint failure counted, got %d", reloaded.FingerprintFailures)
	}
	if reloaded.LastErrorKind != "fingerprint" {
		t.Fatalf("expected fingerprint kind, got %q", reloaded.LastErrorKind)
	}
}

func TestManagerEmptyEvidenceStillCompletes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stubFingerprint(t, flatFrame(10))

	manager := workflow.New(cfg, store, logging.NewNop(),
		workflow.WithGateway(&fakeGateway{duration: 30}),
		workflow.WithExtractors(fakeExtractor{name: "transcript", source: extract.SourceAudio}),
	)

	ctx := context.Background()
	job, _, err := store.Ingest(ctx, "https://x.com/noevidence", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := manager.RunUntilIdle(ctx); err != nil {
		t.Fatalf("RunUntilIdle failed: %v", err)
	}

	done, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if done.Status != jobs.StatusCompleted {
		t.Fatalf("empty evidence must still complete, got %s", done.Status)
	}

	var classification fusion.Classification
	if err := json.Unmarshal([]byte(done.ResultJSON), &classification); err != nil {
		t.Fatalf("decode classification: %v", err)
	}
	if !classification.RequiresReview || classification.ReviewReason != "no evidence extracted" {
		t.Fatalf("expected no-evidence review flag, got %+v", classification)
	}
	if classification.OverallConfidence != 0.05 {
		t.Fatalf("expected minimum confidence, got %f", classification.OverallConfidence)
	}
}
