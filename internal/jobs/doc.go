// Package jobs persists the ingestion queue in SQLite and enforces the job
// state machine. All transitions go through the Store so the on-disk state
// is always consistent with the lifecycle rules: claims are atomic, backoff
// is durable, and terminal jobs never move again.
package jobs
