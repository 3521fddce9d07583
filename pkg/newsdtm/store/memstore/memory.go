package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/store"
)

type bucketKey struct {
	run    string
	bucket record.Bucket
}

// Store is an in-memory implementation of store.Store for tests and dry runs.
type Store struct {
	mu      sync.RWMutex
	runs    map[string]store.Run
	records map[bucketKey][]record.CleanRecord
	rows    map[bucketKey][]string
	cells   map[bucketKey][]dtm.Cell
	outlet  map[bucketKey][]store.OutletCell
	drops   map[string][]record.Drop
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		runs:    make(map[string]store.Run),
		records: make(map[bucketKey][]record.CleanRecord),
		rows:    make(map[bucketKey][]string),
		cells:   make(map[bucketKey][]dtm.Cell),
		outlet:  make(map[bucketKey][]store.OutletCell),
		drops:   make(map[string][]record.Drop),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// CreateRun inserts a new run.
func (s *Store) CreateRun(_ context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		return fmt.Errorf("%w: run id required", internalerr.ErrInvalidInput)
	}
	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrDuplicate, r.ID)
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	s.runs[r.ID] = r
	return nil
}

// FinishRun updates the counters and finish time of a run.
func (s *Store) FinishRun(_ context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.runs[r.ID]
	if !ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, r.ID)
	}
	cur.FinishedAt = r.FinishedAt
	cur.Buckets = r.Buckets
	cur.Records = r.Records
	cur.Documents = r.Documents
	cur.Dropped = r.Dropped
	s.runs[r.ID] = cur
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(_ context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return r, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	out := make([]store.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) requireRun(id string) error {
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return nil
}

// SaveCleanRecords replaces the clean records of a run bucket.
func (s *Store) SaveCleanRecords(_ context.Context, runID string, b record.Bucket, recs []record.CleanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	s.records[bucketKey{runID, b}] = append([]record.CleanRecord(nil), recs...)
	return nil
}

// CleanRecords returns the saved clean records of a run bucket.
func (s *Store) CleanRecords(_ context.Context, runID string, b record.Bucket) ([]record.CleanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.CleanRecord(nil), s.records[bucketKey{runID, b}]...), nil
}

// SaveMatrix replaces the matrix of a run bucket.
func (s *Store) SaveMatrix(_ context.Context, runID string, b record.Bucket, m *dtm.Matrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	k := bucketKey{runID, b}
	s.rows[k] = m.Rows()
	s.cells[k] = m.Cells()
	return nil
}

// Matrix rebuilds the saved matrix of a run bucket.
func (s *Store) Matrix(_ context.Context, runID string, b record.Bucket) (*dtm.Matrix, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k := bucketKey{runID, b}
	rows, ok := s.rows[k]
	if !ok {
		return nil, fmt.Errorf("%w: matrix %s %s", internalerr.ErrNotFound, runID, b)
	}
	return dtm.FromCounts(rows, s.cells[k])
}

// SaveOutletMatrix replaces the outlet-period cells of a run bucket.
func (s *Store) SaveOutletMatrix(_ context.Context, runID string, b record.Bucket, om *dtm.OutletMatrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	cells := store.OutletCellsOf(om)
	sort.SliceStable(cells, func(i, j int) bool {
		a, c := cells[i], cells[j]
		if a.Bucket != c.Bucket {
			return a.Bucket.Before(c.Bucket)
		}
		if a.Outlet != c.Outlet {
			return a.Outlet < c.Outlet
		}
		return a.Term < c.Term
	})
	s.outlet[bucketKey{runID, b}] = cells
	return nil
}

// OutletCells returns cells ordered by period, outlet and lemma.
func (s *Store) OutletCells(_ context.Context, runID string, b record.Bucket) ([]store.OutletCell, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.OutletCell(nil), s.outlet[bucketKey{runID, b}]...), nil
}

// SaveDrops appends drops to a run.
func (s *Store) SaveDrops(_ context.Context, runID string, drops []record.Drop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRun(runID); err != nil {
		return err
	}
	s.drops[runID] = append(s.drops[runID], drops...)
	return nil
}

// Drops lists the drops of a run in insertion order.
func (s *Store) Drops(_ context.Context, runID string) ([]record.Drop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.Drop(nil), s.drops[runID]...), nil
}

var _ store.Store = (*Store)(nil)
