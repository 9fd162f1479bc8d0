package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/archive"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/extract"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fingerprint"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fusion"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/jobs"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/logging"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/retrypolicy"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services/llm"
)

// Manager drives claimed jobs through the pipeline stages with a bounded
// worker pool. Each job is processed by exactly one worker at a time; the
// store's atomic claim enforces that.
type Manager struct {
	cfg           *config.Config
	store         *jobs.Store
	archiveIndex  *archive.Index
	gateway       platform.Gateway
	fingerprinter *fingerprint.Fingerprinter
	scheduler     *retrypolicy.Scheduler
	extractors    []extract.Extractor
	vision        *extract.VisionExtractor
	logger        *slog.Logger

	pollInterval time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// fragments extracted for a job, held between the extract and fuse
	// stages of the same attempt. A restart drops them; the stuck-job reset
	// returns such jobs to pending so extraction reruns.
	fragMu  sync.Mutex
	pending map[int64][]extract.Fragment
}

// Option customizes the manager, mainly for tests.
type Option func(*Manager)

// WithGateway overrides the platform gateway.
func WithGateway(gateway platform.Gateway) Option {
	return func(m *Manager) { m.gateway = gateway }
}

// WithExtractors overrides the extractor set.
func WithExtractors(extractors ...extract.Extractor) Option {
	return func(m *Manager) { m.extractors = extractors }
}

// WithVision overrides the vision extractor (nil disables it).
func WithVision(vision *extract.VisionExtractor) Option {
	return func(m *Manager) { m.vision = vision }
}

// WithFingerprinter overrides the fingerprinter.
func WithFingerprinter(fp *fingerprint.Fingerprinter) Option {
	return func(m *Manager) { m.fingerprinter = fp }
}

// New assembles a manager from configuration and the shared store.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	m := &Manager{
		cfg:           cfg,
		store:         store,
		archiveIndex:  archive.New(store.DB(), cfg.Dedup.HashDistanceThreshold, cfg.Dedup.DurationToleranceSeconds),
		gateway:       platform.NewYtDlp(cfg),
		fingerprinter: fingerprint.New(cfg.FFmpegBinary(), cfg.Dedup.FrameOffsetFraction),
		scheduler:     retrypolicy.FromConfig(cfg),
		extractors: []extract.Extractor{
			extract.NewTranscriptExtractor(cfg),
			extract.NewOnScreenExtractor(cfg),
		},
		logger:       logger.With(logging.String(logging.FieldComponent, "workflow")),
		pollInterval: pollInterval,
		pending:      make(map[int64][]extract.Fragment),
	}
	if cfg.Vision.Enabled {
		client := llm.NewClient(llm.FromAppConfig(cfg))
		m.vision = extract.NewVisionExtractor(cfg, client, fusion.AllLabels())
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) setPendingFragments(jobID int64, fragments []extract.Fragment) {
	m.fragMu.Lock()
	m.pending[jobID] = fragments
	m.fragMu.Unlock()
}

func (m *Manager) takePendingFragments(jobID int64) []extract.Fragment {
	m.fragMu.Lock()
	fragments := m.pending[jobID]
	delete(m.pending, jobID)
	m.fragMu.Unlock()
	return fragments
}

// visionEligible reports whether the vision pass should run for a job.
func (m *Manager) visionEligible(job *jobs.Job) bool {
	if m.vision == nil {
		return false
	}
	if m.cfg.Vision.UrgentOnly && job.Priority != jobs.PriorityUrgent {
		return false
	}
	return true
}
