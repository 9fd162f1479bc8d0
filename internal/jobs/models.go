package jobs

import (
	"strings"
	"time"
)

// Status represents a job's position in the ingestion pipeline.
type Status string

const (
	StatusPending       Status = "pending"
	StatusFetching      Status = "fetching"
	StatusDedupChecking Status = "dedup_checking"
	StatusExtracting    Status = "extracting"
	StatusFusing        Status = "fusing"
	StatusCompleted     Status = "completed"
	StatusDuplicate     Status = "duplicate"
	StatusFailed        Status = "failed"
)

// Platform identifies the social platform a URL belongs to.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformYouTube   Platform = "youtube"
	PlatformUnknown   Platform = "unknown"
)

// Priority orders claimable jobs; urgent jobs may also enable the vision extractor.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

var allStatuses = []Status{
	StatusPending,
	StatusFetching,
	StatusDedupChecking,
	StatusExtracting,
	StatusFusing,
	StatusCompleted,
	StatusDuplicate,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusFetching:      {},
	StatusDedupChecking: {},
	StatusExtracting:    {},
	StatusFusing:        {},
}

var terminalStatuses = map[Status]struct{}{
	StatusCompleted: {},
	StatusDuplicate: {},
	StatusFailed:    {},
}

// Job is the lifecycle record for one ingested URL.
type Job struct {
	ID                  int64
	URL                 string
	Platform            Platform
	Status              Status
	Priority            Priority
	Attempts            int
	FingerprintFailures int
	NextAttemptAt       *time.Time
	LastAttemptAt       *time.Time
	LastErrorKind       string
	LastError           string
	CancelRequested     bool
	MediaPath           string
	MediaDuration       float64
	MediaWidth          int
	MediaHeight         int
	ContentHash         string
	DuplicateOf         int64
	ResultJSON          string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ParsePriority converts a string into a known Priority, defaulting to normal.
func ParsePriority(value string) Priority {
	if strings.EqualFold(strings.TrimSpace(value), string(PriorityUrgent)) {
		return PriorityUrgent
	}
	return PriorityNormal
}

// IsProcessing reports whether the job is mid-stage.
func (j Job) IsProcessing() bool {
	_, ok := processingStatuses[j.Status]
	return ok
}

// IsTerminal reports whether no further transition can occur.
func (j Job) IsTerminal() bool {
	return IsTerminalStatus(j.Status)
}

// IsTerminalStatus reports whether a status permits no further transitions.
func IsTerminalStatus(status Status) bool {
	_, ok := terminalStatuses[status]
	return ok
}

// ProcessingStatusList returns the statuses that indicate an in-flight attempt.
func ProcessingStatusList() []Status {
	return []Status{StatusFetching, StatusDedupChecking, StatusExtracting, StatusFusing}
}

// SetFailed marks the job failed with the given error detail.
func (j *Job) SetFailed(kind, message string) {
	j.Status = StatusFailed
	j.LastErrorKind = kind
	j.LastError = message
	j.NextAttemptAt = nil
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Duplicate  int
	Failed     int
}
