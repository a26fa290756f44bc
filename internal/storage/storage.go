// Package storage persists analysis results per subject so a subject's
// history can be reviewed over time.
//
// Two backends share one implementation over database/sql: SQLite (pure Go,
// modernc.org/sqlite) for local use and PostgreSQL (lib/pq) for shared
// deployments. The schema is created on open.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("analysis not found")

// MinSampleInterval is the least time between two accepted samples of one
// subject.
const MinSampleInterval = 20 * 24 * time.Hour

// IntervalError rejects a sample submitted before MinSampleInterval has
// passed since the subject's last successful analysis.
type IntervalError struct {
	SubjectID string
	Last      time.Time
	Next      time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("subject %s must wait %d days between samples; next submission is available on %s",
		e.SubjectID, int(MinSampleInterval.Hours()/24), e.Next.Format("2006-01-02"))
}

// CheckInterval returns an *IntervalError when subjectID already has a
// successful analysis newer than MinSampleInterval at now. Failed analyses
// do not count.
func CheckInterval(ctx context.Context, store Store, subjectID string, now time.Time) error {
	records, err := store.History(ctx, subjectID, 0)
	if err != nil {
		return fmt.Errorf("failed to check sample interval: %w", err)
	}
	for _, r := range records {
		if r.Error != "" {
			continue
		}
		if now.Sub(r.CreatedAt) < MinSampleInterval {
			return &IntervalError{
				SubjectID: subjectID,
				Last:      r.CreatedAt,
				Next:      r.CreatedAt.Add(MinSampleInterval),
			}
		}
		return nil
	}
	return nil
}

// Record is one stored analysis. Error is set instead of the verdict fields
// when the analysis failed.
type Record struct {
	ID         uuid.UUID    `json:"id"`
	SubjectID  string       `json:"subject_id"`
	Filename   string       `json:"filename"`
	Prediction string       `json:"prediction,omitempty"`
	Relapse    int          `json:"relapse"`
	Recovery   int          `json:"recovery"`
	Confidence float64      `json:"confidence,omitempty"`
	Features   features.Set `json:"features"`
	Error      string       `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// NewRecord builds a record from an analysis outcome. Exactly one of res and
// err is expected to be non-nil.
func NewRecord(subjectID, filename string, res *scoring.Result, err error) *Record {
	r := &Record{
		ID:        uuid.New(),
		SubjectID: subjectID,
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		r.Error = err.Error()
		return r
	}
	if res != nil {
		r.Prediction = res.Verdict
		r.Relapse = res.Relapse
		r.Recovery = res.Recovery
		r.Confidence = scoring.Confidence(res.Relapse, res.Recovery)
		r.Features = res.Features
	}
	return r
}

// Store saves and retrieves analysis records.
type Store interface {
	Save(ctx context.Context, r *Record) error
	// History returns a subject's records, newest first. limit <= 0 means
	// no limit.
	History(ctx context.Context, subjectID string, limit int) ([]Record, error)
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	Close() error
}

// Open picks Postgres when databaseURL is a postgres URL and SQLite at
// sqlitePath otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if isPostgresURL(databaseURL) {
		return OpenPostgres(ctx, databaseURL)
	}
	return OpenSQLite(ctx, sqlitePath)
}
