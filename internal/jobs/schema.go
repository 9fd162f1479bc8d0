package jobs

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT NOT NULL UNIQUE,
    platform TEXT NOT NULL DEFAULT 'unknown',
    status TEXT NOT NULL DEFAULT 'pending',
    priority TEXT NOT NULL DEFAULT 'normal',
    attempts INTEGER NOT NULL DEFAULT 0,
    fingerprint_failures INTEGER NOT NULL DEFAULT 0,
    next_attempt_at TEXT,
    last_attempt_at TEXT,
    last_error_kind TEXT,
    last_error TEXT,
    cancel_requested INTEGER NOT NULL DEFAULT 0,
    media_path TEXT,
    media_duration REAL NOT NULL DEFAULT 0,
    media_width INTEGER NOT NULL DEFAULT 0,
    media_height INTEGER NOT NULL DEFAULT 0,
    content_hash TEXT,
    duplicate_of INTEGER,
    result_json TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_claimable ON jobs(status, next_attempt_at);

CREATE TABLE IF NOT EXISTS archive_index (
    job_id INTEGER PRIMARY KEY,
    content_hash TEXT NOT NULL,
    duration REAL NOT NULL,
    width INTEGER NOT NULL DEFAULT 0,
    height INTEGER NOT NULL DEFAULT 0,
    inserted_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_hash ON archive_index(content_hash);

CREATE TABLE IF NOT EXISTS proposed_tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id INTEGER NOT NULL,
    label TEXT NOT NULL,
    source TEXT NOT NULL,
    proposed_at TEXT NOT NULL
);
`

func (s *Store) applySchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}
