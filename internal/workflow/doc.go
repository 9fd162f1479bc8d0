// Package workflow orchestrates the ingestion pipeline. A bounded worker
// pool claims pending jobs from the store and drives each through fetch,
// dedup check, extraction, and fusion, persisting every transition. Stage
// failures route through the retry policy; cancellation is honored at stage
// boundaries.
package workflow
