package jobs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/testsupport"
)

func TestIngestIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first, created, err := store.Ingest(ctx, "https://x.com/status/1", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if !created {
		t.Fatal("expected first ingest to create a job")
	}
	if first.Status != jobs.StatusPending {
		t.Fatalf("expected pending status, got %s", first.Status)
	}

	second, created, err := store.Ingest(ctx, "https://x.com/status/1", jobs.PlatformTwitter, jobs.PriorityUrgent)
	if err != nil {
		t.Fatalf("re-ingest failed: %v", err)
	}
	if created {
		t.Fatal("expected re-ingest to report existing job")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same job, got %d and %d", first.ID, second.ID)
	}
	if second.Priority != jobs.PriorityNormal {
		t.Fatalf("re-ingest must not change priority, got %s", second.Priority)
	}
}

func TestIngestTerminalJobStaysTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, _, err := store.Ingest(ctx, "https://x.com/status/2", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, job, `{"category":"Testimonials"}`); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	again, created, err := store.Ingest(ctx, "https://x.com/status/2", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("re-ingest failed: %v", err)
	}
	if created {
		t.Fatal("re-ingesting a terminal URL must not create a new job")
	}
	if again.Status != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", again.Status)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("terminal job must not be claimable, got job %d", claimed.ID)
	}
}

func TestClaimNextOrdersUrgentFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if _, _, err := store.Ingest(ctx, "https://x.com/a", jobs.PlatformTwitter, jobs.PriorityNormal); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	urgent, _, err := store.Ingest(ctx, "https://x.com/b", jobs.PlatformTwitter, jobs.PriorityUrgent)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed == nil || claimed.ID != urgent.ID {
		t.Fatalf("expected urgent job %d first, got %+v", urgent.ID, claimed)
	}
	if claimed.Status != jobs.StatusFetching {
		t.Fatalf("expected fetching after claim, got %s", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("claim must increment attempts, got %d", claimed.Attempts)
	}
}

func TestRequeueWithBackoffDelaysClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, _, err := store.Ingest(ctx, "https://x.com/c", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	job, err = store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if err := store.RequeueWithBackoff(ctx, job, time.Hour, "rate_limited", "throttled"); err != nil {
		t.Fatalf("RequeueWithBackoff failed: %v", err)
	}

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if claimed != nil {
		t.Fatalf("job with future backoff must not be claimable, got %d", claimed.ID)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != jobs.StatusPending {
		t.Fatalf("expected pending, got %s", reloaded.Status)
	}
	if reloaded.NextAttemptAt == nil || !reloaded.NextAttemptAt.After(time.Now()) {
		t.Fatalf("expected persisted future next_attempt_at, got %v", reloaded.NextAttemptAt)
	}
	if reloaded.LastErrorKind != "rate_limited" {
		t.Fatalf("expected error kind persisted, got %q", reloaded.LastErrorKind)
	}
}

func TestMarkDuplicateRecordsOriginal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	original, _, err := store.Ingest(ctx, "https://x.com/orig", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	dupe, _, err := store.Ingest(ctx, "https://x.com/dupe", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := store.MarkDuplicate(ctx, dupe, original.ID); err != nil {
		t.Fatalf("MarkDuplicate failed: %v", err)
	}
	reloaded, err := store.GetByID(ctx, dupe.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != jobs.StatusDuplicate || reloaded.DuplicateOf != original.ID {
		t.Fatalf("unexpected duplicate record: %+v", reloaded)
	}
}

func TestRequestCancelSkipsTerminalJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	active, _, err := store.Ingest(ctx, "https://x.com/active", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	done, _, err := store.Ingest(ctx, "https://x.com/done", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := store.MarkCompleted(ctx, done, "{}"); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	flagged, err := store.RequestCancel(ctx, active.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if !flagged {
		t.Fatal("expected active job to be flagged")
	}
	cancelled, err := store.IsCancelRequested(ctx, active.ID)
	if err != nil {
		t.Fatalf("IsCancelRequested failed: %v", err)
	}
	if !cancelled {
		t.Fatal("expected cancel flag set")
	}

	flagged, err = store.RequestCancel(ctx, done.ID)
	if err != nil {
		t.Fatalf("RequestCancel failed: %v", err)
	}
	if flagged {
		t.Fatal("terminal job must not be flagged for cancellation")
	}
}

func TestResetStuckProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, _, err := store.Ingest(ctx, "https://x.com/stuck", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	claimed, err := store.ClaimNext(ctx)
	if err != nil || claimed == nil {
		t.Fatalf("ClaimNext failed: %v", err)
	}
	if err := store.Transition(ctx, claimed, jobs.StatusExtracting); err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	reset, err := store.ResetStuckProcessing(ctx)
	if err != nil {
		t.Fatalf("ResetStuckProcessing failed: %v", err)
	}
	if reset != 1 {
		t.Fatalf("expected 1 reset job, got %d", reset)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != jobs.StatusPending {
		t.Fatalf("expected pending after reset, got %s", reloaded.Status)
	}
	if reloaded.Attempts != 1 {
		t.Fatalf("reset must preserve attempts, got %d", reloaded.Attempts)
	}
}

func TestRetryOnlyFailedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, _, err := store.Ingest(ctx, "https://x.com/failed", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if _, err := store.Retry(ctx, job.ID); err == nil {
		t.Fatal("expected retry of pending job to fail")
	}

	if err := store.MarkFailed(ctx, job, "removed", "gone"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	retried, err := store.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if retried.Status != jobs.StatusPending || retried.Attempts != 0 {
		t.Fatalf("unexpected retried job: %+v", retried)
	}
}

func TestProposedTagLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, _, err := store.Ingest(ctx, "https://x.com/tags", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if err := store.AppendProposedTag(ctx, job.ID, "Fishing boats", "vision"); err != nil {
		t.Fatalf("AppendProposedTag failed: %v", err)
	}
	if err := store.AppendProposedTag(ctx, job.ID, "  ", "vision"); err != nil {
		t.Fatalf("blank label should be dropped silently: %v", err)
	}

	tags, err := store.ProposedTags(ctx)
	if err != nil {
		t.Fatalf("ProposedTags failed: %v", err)
	}
	if len(tags) != 1 || tags[0].Label != "Fishing boats" || tags[0].JobID != job.ID {
		t.Fatalf("unexpected proposed tags: %+v", tags)
	}
}

func TestClaimNextIsExclusiveUnderContention(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job, _, err := store.Ingest(ctx, "https://x.com/contended", jobs.PlatformTwitter, jobs.PriorityNormal)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed []*jobs.Job
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			got, err := store.ClaimNext(ctx)
			if err != nil {
				t.Errorf("ClaimNext failed: %v", err)
				return
			}
			if got != nil {
				mu.Lock()
				claimed = append(claimed, got)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(claimed) != 1 {
		t.Fatalf("expected exactly one winner for one pending job, got %d", len(claimed))
	}
	if claimed[0].ID != job.ID {
		t.Fatalf("unexpected job claimed: %d", claimed[0].ID)
	}

	reloaded, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if reloaded.Status != jobs.StatusFetching {
		t.Fatalf("expected fetching, got %s", reloaded.Status)
	}
	if reloaded.Attempts != 1 {
		t.Fatalf("losing claims must not bump attempts, got %d", reloaded.Attempts)
	}
}
