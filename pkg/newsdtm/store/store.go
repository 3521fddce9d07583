// Package store persists pipeline runs: cleaned records, matrices and drops.
package store

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Store is the persistence interface of the pipeline.
type Store interface {
	Close() error

	// Runs
	CreateRun(ctx context.Context, r Run) error
	FinishRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// Stage outputs, keyed by run and bucket
	SaveCleanRecords(ctx context.Context, runID string, b record.Bucket, recs []record.CleanRecord) error
	CleanRecords(ctx context.Context, runID string, b record.Bucket) ([]record.CleanRecord, error)
	SaveMatrix(ctx context.Context, runID string, b record.Bucket, m *dtm.Matrix) error
	Matrix(ctx context.Context, runID string, b record.Bucket) (*dtm.Matrix, error)
	SaveOutletMatrix(ctx context.Context, runID string, b record.Bucket, om *dtm.OutletMatrix) error
	OutletCells(ctx context.Context, runID string, b record.Bucket) ([]OutletCell, error)

	// Drops
	SaveDrops(ctx context.Context, runID string, drops []record.Drop) error
	Drops(ctx context.Context, runID string) ([]record.Drop, error)
}

// Run describes one pipeline execution.
type Run struct {
	ID           string
	RulesVersion int
	StartedAt    time.Time
	FinishedAt   time.Time // zero while running
	Buckets      int
	Records      int
	Documents    int
	Dropped      int
}

// OutletCell is one non-zero count of an outlet-period matrix.
type OutletCell struct {
	Outlet string
	Bucket record.Bucket
	Term   string
	Count  int64
}

// NewRunID returns a fresh, time-ordered run identifier.
func NewRunID() string {
	return ulid.Make().String()
}

// OutletCellsOf flattens om into cells, column by column.
func OutletCellsOf(om *dtm.OutletMatrix) []OutletCell {
	var out []OutletCell
	terms := om.Terms()
	dense := om.Dense()
	for j, g := range om.Groups() {
		for i, term := range terms {
			if c := dense[i][j]; c != 0 {
				out = append(out, OutletCell{Outlet: g.Outlet, Bucket: g.Bucket, Term: term, Count: c})
			}
		}
	}
	return out
}
