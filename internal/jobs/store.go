package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/config"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the job database and applies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying connection for sibling tables (archive index,
// proposed tags) that share the same database file.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Ingest records a URL as a pending job. It is idempotent: re-ingesting a
// known URL returns the existing job unchanged and reports created=false.
func (s *Store) Ingest(ctx context.Context, url string, platform Platform, priority Priority) (*Job, bool, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, false, errors.New("ingest: url required")
	}
	if platform == "" {
		platform = PlatformUnknown
	}
	if priority == "" {
		priority = PriorityNormal
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (url, platform, status, priority, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(url) DO NOTHING`,
		url,
		platform,
		StatusPending,
		priority,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	job, err := s.GetByURL(ctx, url)
	if err != nil {
		return nil, false, err
	}
	if job == nil {
		return nil, false, fmt.Errorf("job for %q vanished after insert", url)
	}
	return job, affected > 0, nil
}

// GetByURL fetches a job by its unique URL.
func (s *Store) GetByURL(ctx context.Context, url string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE url = ?`, strings.TrimSpace(url))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by url: %w", err)
	}
	return job, nil
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET platform = ?, status = ?, priority = ?, attempts = ?, fingerprint_failures = ?,
             next_attempt_at = ?, last_attempt_at = ?, last_error_kind = ?, last_error = ?,
             cancel_requested = ?, media_path = ?, media_duration = ?, media_width = ?,
             media_height = ?, content_hash = ?, duplicate_of = ?, result_json = ?, updated_at = ?
         WHERE id = ?`,
		job.Platform,
		job.Status,
		job.Priority,
		job.Attempts,
		job.FingerprintFailures,
		nullableTime(job.NextAttemptAt),
		nullableTime(job.LastAttemptAt),
		nullableString(job.LastErrorKind),
		nullableString(job.LastError),
		boolToInt(job.CancelRequested),
		nullableString(job.MediaPath),
		job.MediaDuration,
		job.MediaWidth,
		job.MediaHeight,
		nullableString(job.ContentHash),
		nullableInt64(job.DuplicateOf),
		nullableString(job.ResultJSON),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when none is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, job)
	}
	return items, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusCompleted:
			health.Completed += count
		case StatusDuplicate:
			health.Duplicate += count
		case StatusFailed:
			health.Failed += count
		default:
			if _, ok := processingStatuses[status]; ok {
				health.Processing += count
			}
		}
	}
	return health, nil
}

// AppendProposedTag records a model-suggested label that is not part of the
// core taxonomy. The log is append-only and reviewed out-of-band; proposals
// never mutate the tag relationship table at runtime.
func (s *Store) AppendProposedTag(ctx context.Context, jobID int64, label, source string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO proposed_tags (job_id, label, source, proposed_at) VALUES (?, ?, ?, ?)`,
		jobID,
		label,
		source,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append proposed tag: %w", err)
	}
	return nil
}

// ProposedTag is one entry of the out-of-band tag suggestion log.
type ProposedTag struct {
	ID         int64
	JobID      int64
	Label      string
	Source     string
	ProposedAt time.Time
}

// ProposedTags returns the suggestion log in insertion order.
func (s *Store) ProposedTags(ctx context.Context) ([]ProposedTag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, job_id, label, source, proposed_at FROM proposed_tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list proposed tags: %w", err)
	}
	defer rows.Close()

	var tags []ProposedTag
	for rows.Next() {
		var (
			tag ProposedTag
			raw string
		)
		if err := rows.Scan(&tag.ID, &tag.JobID, &tag.Label, &tag.Source, &raw); err != nil {
			return nil, err
		}
		if parsed, err := parseTimeString(raw); err == nil {
			tag.ProposedAt = parsed
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

const jobColumns = "id, url, platform, status, priority, attempts, fingerprint_failures, next_attempt_at, last_attempt_at, last_error_kind, last_error, cancel_requested, media_path, media_duration, media_width, media_height, content_hash, duplicate_of, result_json, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id            int64
		url           string
		platform      string
		statusStr     string
		priority      string
		attempts      int
		fpFailures    int
		nextAttemptAt sql.NullString
		lastAttemptAt sql.NullString
		lastErrorKind sql.NullString
		lastError     sql.NullString
		cancelReq     sql.NullInt64
		mediaPath     sql.NullString
		mediaDuration sql.NullFloat64
		mediaWidth    sql.NullInt64
		mediaHeight   sql.NullInt64
		contentHash   sql.NullString
		duplicateOf   sql.NullInt64
		resultJSON    sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&url,
		&platform,
		&statusStr,
		&priority,
		&attempts,
		&fpFailures,
		&nextAttemptAt,
		&lastAttemptAt,
		&lastErrorKind,
		&lastError,
		&cancelReq,
		&mediaPath,
		&mediaDuration,
		&mediaWidth,
		&mediaHeight,
		&contentHash,
		&duplicateOf,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:                  id,
		URL:                 url,
		Platform:            Platform(platform),
		Status:              Status(statusStr),
		Priority:            Priority(priority),
		Attempts:            attempts,
		FingerprintFailures: fpFailures,
		LastErrorKind:       lastErrorKind.String,
		LastError:           lastError.String,
		CancelRequested:     cancelReq.Valid && cancelReq.Int64 != 0,
		MediaPath:           mediaPath.String,
		MediaDuration:       mediaDuration.Float64,
		MediaWidth:          int(mediaWidth.Int64),
		MediaHeight:         int(mediaHeight.Int64),
		ContentHash:         contentHash.String,
		DuplicateOf:         duplicateOf.Int64,
		ResultJSON:          resultJSON.String,
	}

	if nextAttemptAt.Valid {
		if t, err := parseTimeString(nextAttemptAt.String); err == nil {
			job.NextAttemptAt = &t
		}
	}
	if lastAttemptAt.Valid {
		if t, err := parseTimeString(lastAttemptAt.String); err == nil {
			job.LastAttemptAt = &t
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt64(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
