// Package storetest holds the behaviour every store.Store must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/store"
)

var week1 = record.Bucket{Year: 2023, Week: 1}

// Run exercises st. The store must be empty.
func Run(t *testing.T, st store.Store) {
	t.Helper()
	t.Run("runs", func(t *testing.T) { testRuns(t, st) })
	t.Run("clean records", func(t *testing.T) { testCleanRecords(t, st) })
	t.Run("matrices", func(t *testing.T) { testMatrices(t, st) })
	t.Run("drops", func(t *testing.T) { testDrops(t, st) })
	t.Run("unknown run", func(t *testing.T) { testUnknownRun(t, st) })
}

func newRun(t *testing.T, st store.Store, started time.Time) store.Run {
	t.Helper()
	r := store.Run{ID: store.NewRunID(), RulesVersion: 1, StartedAt: started}
	if err := st.CreateRun(context.Background(), r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	return r
}

func testRuns(t *testing.T, st store.Store) {
	ctx := context.Background()
	base := time.Date(2023, 1, 9, 12, 0, 0, 0, time.UTC)
	older := newRun(t, st, base)
	newer := newRun(t, st, base.Add(time.Hour))

	if err := st.CreateRun(ctx, older); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	older.FinishedAt = base.Add(time.Minute)
	older.Buckets, older.Records, older.Documents, older.Dropped = 2, 10, 8, 2
	if err := st.FinishRun(ctx, older); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := st.GetRun(ctx, older.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Records != 10 || got.Documents != 8 || got.Dropped != 2 || got.Buckets != 2 || got.RulesVersion != 1 {
		t.Errorf("unexpected run %+v", got)
	}
	if !got.StartedAt.Equal(base) || !got.FinishedAt.Equal(older.FinishedAt) {
		t.Errorf("times not preserved: %+v", got)
	}

	runs, err := st.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != newer.ID || runs[1].ID != older.ID {
		t.Errorf("expected newest run first, got %+v", runs)
	}

	if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := st.FinishRun(ctx, store.Run{ID: "missing"}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testCleanRecords(t *testing.T, st store.Store) {
	ctx := context.Background()
	run := newRun(t, st, time.Now())
	likes := int64(7)
	recs := []record.CleanRecord{
		{
			Record:    record.Record{ID: "2", Outlet: "trome", Text: "Gol de @alianza", CreatedAt: time.Date(2023, 1, 3, 10, 0, 0, 0, time.UTC), LikeCount: &likes},
			TextClean: "gol de alianza",
			Mentions:  []string{"alianza"},
			Hashtags:  []string{},
		},
		{
			Record:    record.Record{ID: "1", Outlet: "elcomercio", Text: "Congreso", CreatedAt: time.Date(2023, 1, 4, 10, 0, 0, 0, time.UTC)},
			TextClean: "congreso",
		},
	}
	if err := st.SaveCleanRecords(ctx, run.ID, week1, recs); err != nil {
		t.Fatalf("SaveCleanRecords: %v", err)
	}
	got, err := st.CleanRecords(ctx, run.ID, week1)
	if err != nil {
		t.Fatalf("CleanRecords: %v", err)
	}
	if len(got) != 2 || got[0].ID != "2" || got[1].ID != "1" {
		t.Fatalf("order not preserved: %+v", got)
	}
	if got[0].TextClean != "gol de alianza" || got[0].LikeCount == nil || *got[0].LikeCount != 7 {
		t.Errorf("fields not preserved: %+v", got[0])
	}
	if len(got[0].Mentions) != 1 || got[0].Mentions[0] != "alianza" {
		t.Errorf("mentions not preserved: %v", got[0].Mentions)
	}
	if !got[0].CreatedAt.Equal(recs[0].CreatedAt) {
		t.Errorf("created_at not preserved: %v", got[0].CreatedAt)
	}

	// saving again replaces the bucket
	if err := st.SaveCleanRecords(ctx, run.ID, week1, recs[1:]); err != nil {
		t.Fatalf("SaveCleanRecords: %v", err)
	}
	got, _ = st.CleanRecords(ctx, run.ID, week1)
	if len(got) != 1 {
		t.Errorf("expected replacement, got %d records", len(got))
	}
}

func testMatrices(t *testing.T, st store.Store) {
	ctx := context.Background()
	run := newRun(t, st, time.Now())
	at := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)

	m, err := dtm.Build([]record.TokenizedDoc{
		{CorpusEntry: record.CorpusEntry{ID: "b"}, Lemmas: []string{"gol", "gol", "lima"}},
		{CorpusEntry: record.CorpusEntry{ID: "a"}, Lemmas: []string{"congreso"}},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := st.SaveMatrix(ctx, run.ID, week1, m); err != nil {
		t.Fatalf("SaveMatrix: %v", err)
	}
	back, err := st.Matrix(ctx, run.ID, week1)
	if err != nil {
		t.Fatalf("Matrix: %v", err)
	}
	if rows := back.Rows(); len(rows) != 2 || rows[0] != "b" || rows[1] != "a" {
		t.Errorf("row order not preserved: %v", rows)
	}
	if back.Get("b", "gol") != 2 || back.Get("a", "congreso") != 1 || back.NNZ() != m.NNZ() {
		t.Errorf("counts not preserved: %+v", back.Cells())
	}
	if _, err := st.Matrix(ctx, run.ID, record.Bucket{Year: 2023, Week: 2}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	om, err := dtm.AggregateByOutlet(m, []record.CorpusEntry{
		{ID: "a", Outlet: "trome", CreatedAt: at},
		{ID: "b", Outlet: "elcomercio", CreatedAt: at},
	}, dtm.FillCrossProduct)
	if err != nil {
		t.Fatalf("AggregateByOutlet: %v", err)
	}
	if err := st.SaveOutletMatrix(ctx, run.ID, week1, om); err != nil {
		t.Fatalf("SaveOutletMatrix: %v", err)
	}
	cells, err := st.OutletCells(ctx, run.ID, week1)
	if err != nil {
		t.Fatalf("OutletCells: %v", err)
	}
	want := []store.OutletCell{
		{Outlet: "elcomercio", Bucket: week1, Term: "gol", Count: 2},
		{Outlet: "elcomercio", Bucket: week1, Term: "lima", Count: 1},
		{Outlet: "trome", Bucket: week1, Term: "congreso", Count: 1},
	}
	if len(cells) != len(want) {
		t.Fatalf("expected %d cells, got %+v", len(want), cells)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("cell %d: got %+v, want %+v", i, cells[i], want[i])
		}
	}
}

func testDrops(t *testing.T, st store.Store) {
	ctx := context.Background()
	run := newRun(t, st, time.Now())
	first := []record.Drop{
		{Stage: "ingest", Reason: "missing_field", ID: "9", Detail: "text"},
		{Stage: "ingest", Reason: "invalid_payload", Source: "trome_data_(2023, 1).json"},
	}
	second := []record.Drop{{Stage: "relevance", Reason: "noise_pattern", ID: "3", Detail: "horóscopo"}}
	if err := st.SaveDrops(ctx, run.ID, first); err != nil {
		t.Fatalf("SaveDrops: %v", err)
	}
	if err := st.SaveDrops(ctx, run.ID, second); err != nil {
		t.Fatalf("SaveDrops: %v", err)
	}
	got, err := st.Drops(ctx, run.ID)
	if err != nil {
		t.Fatalf("Drops: %v", err)
	}
	want := append(append([]record.Drop(nil), first...), second...)
	if len(got) != len(want) {
		t.Fatalf("expected %d drops, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("drop %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func testUnknownRun(t *testing.T, st store.Store) {
	ctx := context.Background()
	if err := st.SaveDrops(ctx, "missing", []record.Drop{{Stage: "x", Reason: "y"}}); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("SaveDrops: expected ErrNotFound, got %v", err)
	}
	if err := st.SaveCleanRecords(ctx, "missing", week1, nil); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("SaveCleanRecords: expected ErrNotFound, got %v", err)
	}
	m, _ := dtm.Build(nil)
	if err := st.SaveMatrix(ctx, "missing", week1, m); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("SaveMatrix: expected ErrNotFound, got %v", err)
	}
}
