package signal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/receiptshield/analyzer/internal/entity"
)

// DuplicateIndex is a similarity index over submitted image hashes, backed
// by a local sqlite database. Matching is exact-hash for now, so a hit
// scores 1.0. Implements DuplicateDetector.
type DuplicateIndex struct {
	db  *sql.DB
	log *slog.Logger
}

const duplicateSchema = `
CREATE TABLE IF NOT EXISTS submission_hashes (
	submission_id TEXT PRIMARY KEY,
	image_hash    TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_submission_hashes_hash ON submission_hashes (image_hash);
`

// OpenDuplicateIndex opens (and migrates) the index at path. Use ":memory:"
// for tests.
func OpenDuplicateIndex(path string, logger *slog.Logger) (*DuplicateIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open duplicate index: %w", err)
	}
	// sqlite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from silently splitting per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(duplicateSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate duplicate index: %w", err)
	}
	logger.Info("duplicate.index.open", "path", path)
	return &DuplicateIndex{db: db, log: logger}, nil
}

func (d *DuplicateIndex) Close() error {
	return d.db.Close()
}

// FindSimilar returns prior submissions sharing this image hash, then
// records the current submission so later ones can match it. An empty hash
// cannot match anything and is not recorded.
func (d *DuplicateIndex) FindSimilar(ctx context.Context, submissionID, imageHash string) (entity.DuplicateDetection, error) {
	result := entity.DuplicateDetection{SimilarSubmissions: []string{}}
	if imageHash == "" {
		return result, nil
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT submission_id FROM submission_hashes WHERE image_hash = ? AND submission_id <> ?`,
		imageHash, submissionID,
	)
	if err != nil {
		return result, fmt.Errorf("query similar submissions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			d.log.Warn("duplicate.rows.close", "error", cerr)
		}
	}()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return result, fmt.Errorf("scan similar submission: %w", err)
		}
		result.SimilarSubmissions = append(result.SimilarSubmissions, id)
	}
	if err := rows.Err(); err != nil {
		return result, fmt.Errorf("iterate similar submissions: %w", err)
	}

	if len(result.SimilarSubmissions) > 0 {
		result.IsDuplicate = true
		result.SimilarityScore = 1.0
		d.log.Warn("duplicate.match",
			"submission_id", submissionID,
			"similar", len(result.SimilarSubmissions),
		)
	}

	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO submission_hashes (submission_id, image_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(submission_id) DO UPDATE SET image_hash = excluded.image_hash`,
		submissionID, imageHash, time.Now().UTC(),
	); err != nil {
		// Recording is best-effort; the match result stands either way.
		d.log.Warn("duplicate.record.failed", "submission_id", submissionID, "error", err)
	}

	return result, nil
}

// DuplicateStub is the degrade-to-safe collaborator: it never flags
// anything. Deployments running it must know they are — it announces itself
// at construction and cannot be mistaken for a real negative in the logs.
type DuplicateStub struct {
	log *slog.Logger
}

func NewDuplicateStub(logger *slog.Logger) *DuplicateStub {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("duplicate.stub.enabled",
		"note", "duplicate detection is stubbed; no submission will ever be flagged as a duplicate")
	return &DuplicateStub{log: logger}
}

func (s *DuplicateStub) FindSimilar(_ context.Context, submissionID, _ string) (entity.DuplicateDetection, error) {
	s.log.Debug("duplicate.stub.noop", "submission_id", submissionID)
	return entity.DuplicateDetection{
		IsDuplicate:        false,
		SimilarSubmissions: []string{},
		SimilarityScore:    0,
	}, nil
}
