package store

import (
	"context"
	"time"

	"github.com/cognicore/termex/pkg/termex/aggregate"
)

// Store persists extraction runs. Implementations return errors matching
// internalerr.ErrNotFound for unknown runs.
type Store interface {
	Close() error

	// SaveRun writes a run and all its rows in one transaction.
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (RunInfo, error)
	ListRuns(ctx context.Context, limit int) ([]RunInfo, error)

	// TopTerms returns the k best ranked records; k <= 0 returns all.
	TopTerms(ctx context.Context, runID string, k int) ([]aggregate.TermRecord, error)
	// DocumentTerms returns a document's terms in index order.
	DocumentTerms(ctx context.Context, runID, docIndex string) ([]string, error)
}

// RunInfo describes a stored run.
type RunInfo struct {
	ID        string
	Digest    string
	Language  string
	StartedAt time.Time
	Duration  time.Duration
	Documents int
	Terms     int
}

// Run is a complete run ready to persist.
type Run struct {
	RunInfo
	Records []aggregate.TermRecord
	Index   []aggregate.IndexEntry
}
