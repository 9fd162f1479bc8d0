// Package archive maintains the fingerprint index of every kept video and
// answers the dedup question: has footage like this been archived before?
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/fingerprint"
)

// Index is the perceptual-hash lookup table over archived originals. It
// shares the job store's SQLite database.
type Index struct {
	db                *sql.DB
	distanceThreshold int
	durationTolerance float64
}

// Match identifies the archived original a candidate collided with.
type Match struct {
	JobID    int64
	Hash     uint64
	Duration float64
	Distance int
}

// New builds an Index over the shared database connection.
func New(db *sql.DB, distanceThreshold int, durationTolerance float64) *Index {
	if distanceThreshold < 0 {
		distanceThreshold = 0
	}
	if durationTolerance < 0 {
		durationTolerance = 0
	}
	return &Index{
		db:                db,
		distanceThreshold: distanceThreshold,
		durationTolerance: durationTolerance,
	}
}

// CheckAndInsert looks the candidate up and, when no archived entry is close
// enough, records it as a new original. The lookup and insert happen inside
// one immediate transaction so two workers fingerprinting identical footage
// cannot both become originals.
//
// A video matches when its hash is within the Hamming distance threshold AND
// its duration is within tolerance; near-identical thumbnails on clips of
// very different length are different videos.
func (i *Index) CheckAndInsert(ctx context.Context, jobID int64, hash uint64, duration float64, width, height int) (*Match, error) {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dedup tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Immediate write intent; serializes concurrent dedup checks.
	if _, err := tx.ExecContext(ctx, `UPDATE archive_index SET job_id = job_id WHERE 0`); err != nil {
		return nil, fmt.Errorf("acquire write lock: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT job_id, content_hash, duration FROM archive_index WHERE job_id != ?`, jobID)
	if err != nil {
		return nil, fmt.Errorf("scan archive index: %w", err)
	}

	var best *Match
	for rows.Next() {
		var (
			candidateID int64
			hashStr     string
			candDur     float64
		)
		if err := rows.Scan(&candidateID, &hashStr, &candDur); err != nil {
			rows.Close()
			return nil, err
		}
		candHash, err := fingerprint.Decode(hashStr)
		if err != nil {
			continue
		}
		distance := fingerprint.Distance(hash, candHash)
		if distance > i.distanceThreshold {
			continue
		}
		if math.Abs(candDur-duration) > i.durationTolerance {
			continue
		}
		if best == nil || distance < best.Distance {
			best = &Match{JobID: candidateID, Hash: candHash, Duration: candDur, Distance: distance}
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if best != nil {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit dedup check: %w", err)
		}
		return best, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO archive_index (job_id, content_hash, duration, width, height, inserted_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(job_id) DO NOTHING`,
		jobID,
		fingerprint.Encode(hash),
		duration,
		width,
		height,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert archive entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit archive insert: %w", err)
	}
	return nil, nil
}

// Size returns the number of archived originals.
func (i *Index) Size(ctx context.Context) (int, error) {
	row := i.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM archive_index`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count archive index: %w", err)
	}
	return count, nil
}
