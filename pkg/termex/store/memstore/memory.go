package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/termex/pkg/termex/aggregate"
	"github.com/cognicore/termex/pkg/termex/internalerr"
	"github.com/cognicore/termex/pkg/termex/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu   sync.RWMutex
	runs map[string]storedRun
}

type storedRun struct {
	info    store.RunInfo
	records []aggregate.TermRecord
	docs    map[string][]string
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{runs: make(map[string]storedRun)}
}

var _ store.Store = (*Store)(nil)

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveRun implements store.Store. Run ids are unique.
func (s *Store) SaveRun(ctx context.Context, run store.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("insert run %s: duplicate id", run.ID)
	}

	info := run.RunInfo
	info.Terms = len(run.Records)
	docs := make(map[string][]string, len(run.Index))
	for _, e := range run.Index {
		docs[e.DocIndex] = append([]string(nil), e.Terms...)
	}
	s.runs[run.ID] = storedRun{
		info:    info,
		records: append([]aggregate.TermRecord(nil), run.Records...),
		docs:    docs,
	}
	return nil
}

func (s *Store) get(id string) (storedRun, error) {
	r, ok := s.runs[id]
	if !ok {
		return storedRun{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return r, nil
}

// GetRun implements store.Store.
func (s *Store) GetRun(ctx context.Context, id string) (store.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.get(id)
	return r.info, err
}

// ListRuns implements store.Store, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// TopTerms implements store.Store.
func (s *Store) TopTerms(ctx context.Context, runID string, k int) ([]aggregate.TermRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.get(runID)
	if err != nil {
		return nil, err
	}
	if k <= 0 || k > len(r.records) {
		k = len(r.records)
	}
	return append([]aggregate.TermRecord(nil), r.records[:k]...), nil
}

// DocumentTerms implements store.Store.
func (s *Store) DocumentTerms(ctx context.Context, runID, docIndex string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, err := s.get(runID)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), r.docs[docIndex]...), nil
}
