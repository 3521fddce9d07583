package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	rules_version INTEGER NOT NULL DEFAULT 0,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	buckets INTEGER NOT NULL DEFAULT 0,
	records INTEGER NOT NULL DEFAULT 0,
	documents INTEGER NOT NULL DEFAULT 0,
	dropped INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS clean_records (
	run_id TEXT NOT NULL,
	year INTEGER NOT NULL,
	week INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	id TEXT NOT NULL,
	outlet TEXT NOT NULL,
	created_at TEXT NOT NULL,
	text_clean TEXT NOT NULL,
	payload TEXT NOT NULL,
	PRIMARY KEY(run_id, year, week, id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dtm_rows (
	run_id TEXT NOT NULL,
	year INTEGER NOT NULL,
	week INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	doc_id TEXT NOT NULL,
	PRIMARY KEY(run_id, year, week, doc_id),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dtm_cells (
	run_id TEXT NOT NULL,
	year INTEGER NOT NULL,
	week INTEGER NOT NULL,
	doc_id TEXT NOT NULL,
	lemma TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, year, week, doc_id, lemma),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS outlet_cells (
	run_id TEXT NOT NULL,
	year INTEGER NOT NULL,
	week INTEGER NOT NULL,
	outlet TEXT NOT NULL,
	period_year INTEGER NOT NULL,
	period_week INTEGER NOT NULL,
	lemma TEXT NOT NULL,
	count INTEGER NOT NULL,
	PRIMARY KEY(run_id, year, week, outlet, period_year, period_week, lemma),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS drops (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	stage TEXT NOT NULL,
	reason TEXT NOT NULL,
	record_id TEXT,
	source TEXT,
	detail TEXT,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_drops_stage ON drops(run_id, stage, reason);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// timeLayout has a fixed-width fraction so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s.String)
}

// CreateRun inserts a new run.
func (s *sqliteStore) CreateRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id required", internalerr.ErrInvalidInput)
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO runs (id, rules_version, started_at, finished_at, buckets, records, documents, dropped)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING;
`, r.ID, r.RulesVersion, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.Buckets, r.Records, r.Documents, r.Dropped)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: run %s", internalerr.ErrDuplicate, r.ID)
	}
	return nil
}

// FinishRun updates the counters and finish time of an existing run.
func (s *sqliteStore) FinishRun(ctx context.Context, r store.Run) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE runs
SET finished_at=?, buckets=?, records=?, documents=?, dropped=?
WHERE id=?;
`, formatTime(r.FinishedAt), r.Buckets, r.Records, r.Documents, r.Dropped, r.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, r.ID)
	}
	return nil
}

const runColumns = `id, rules_version, started_at, finished_at, buckets, records, documents, dropped`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (store.Run, error) {
	var (
		r                 store.Run
		started, finished sql.NullString
	)
	if err := row.Scan(&r.ID, &r.RulesVersion, &started, &finished, &r.Buckets, &r.Records, &r.Documents, &r.Dropped); err != nil {
		return store.Run{}, err
	}
	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return store.Run{}, err
	}
	if r.FinishedAt, err = parseTime(finished); err != nil {
		return store.Run{}, err
	}
	return r, nil
}

// GetRun loads a run by ID.
func (s *sqliteStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return store.Run{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return r, err
}

// ListRuns returns the most recent runs first.
func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireRun(ctx context.Context, tx *sql.Tx, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id=?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, id)
	}
	return err
}

// SaveCleanRecords replaces the clean records of a run bucket.
func (s *sqliteStore) SaveCleanRecords(ctx context.Context, runID string, b record.Bucket, recs []record.CleanRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clean_records WHERE run_id=? AND year=? AND week=?`, runID, b.Year, b.Week); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO clean_records (run_id, year, week, seq, id, outlet, created_at, text_clean, payload)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, rec := range recs {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, b.Year, b.Week, i, rec.ID, rec.Outlet, formatTime(rec.CreatedAt), rec.TextClean, string(payload)); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// CleanRecords loads the clean records of a run bucket in saved order.
func (s *sqliteStore) CleanRecords(ctx context.Context, runID string, b record.Bucket) ([]record.CleanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT payload FROM clean_records
WHERE run_id=? AND year=? AND week=?
ORDER BY seq`, runID, b.Year, b.Week)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.CleanRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec record.CleanRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveMatrix replaces the document-term matrix of a run bucket.
func (s *sqliteStore) SaveMatrix(ctx context.Context, runID string, b record.Bucket, m *dtm.Matrix) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	for _, table := range []string{"dtm_rows", "dtm_cells"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id=? AND year=? AND week=?`, runID, b.Year, b.Week); err != nil {
			return err
		}
	}

	rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO dtm_rows (run_id, year, week, seq, doc_id) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer rowStmt.Close()
	for i, id := range m.Rows() {
		if _, err := rowStmt.ExecContext(ctx, runID, b.Year, b.Week, i, id); err != nil {
			return err
		}
	}

	cellStmt, err := tx.PrepareContext(ctx, `INSERT INTO dtm_cells (run_id, year, week, doc_id, lemma, count) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer cellStmt.Close()
	for _, c := range m.Cells() {
		if _, err := cellStmt.ExecContext(ctx, runID, b.Year, b.Week, c.Doc, c.Term, c.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Matrix rebuilds the saved matrix of a run bucket.
func (s *sqliteStore) Matrix(ctx context.Context, runID string, b record.Bucket) (*dtm.Matrix, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT doc_id FROM dtm_rows WHERE run_id=? AND year=? AND week=? ORDER BY seq`, runID, b.Year, b.Week)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: matrix %s %s", internalerr.ErrNotFound, runID, b)
	}

	crows, err := s.db.QueryContext(ctx, `
SELECT doc_id, lemma, count FROM dtm_cells WHERE run_id=? AND year=? AND week=?`, runID, b.Year, b.Week)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	var cells []dtm.Cell
	for crows.Next() {
		var c dtm.Cell
		if err := crows.Scan(&c.Doc, &c.Term, &c.Count); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}
	return dtm.FromCounts(ids, cells)
}

// SaveOutletMatrix replaces the outlet-period cells of a run bucket.
func (s *sqliteStore) SaveOutletMatrix(ctx context.Context, runID string, b record.Bucket, om *dtm.OutletMatrix) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM outlet_cells WHERE run_id=? AND year=? AND week=?`, runID, b.Year, b.Week); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO outlet_cells (run_id, year, week, outlet, period_year, period_week, lemma, count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range store.OutletCellsOf(om) {
		if _, err := stmt.ExecContext(ctx, runID, b.Year, b.Week, c.Outlet, c.Bucket.Year, c.Bucket.Week, c.Term, c.Count); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// OutletCells loads outlet-period cells ordered by period, outlet and lemma.
func (s *sqliteStore) OutletCells(ctx context.Context, runID string, b record.Bucket) ([]store.OutletCell, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT outlet, period_year, period_week, lemma, count FROM outlet_cells
WHERE run_id=? AND year=? AND week=?
ORDER BY period_year, period_week, outlet, lemma`, runID, b.Year, b.Week)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.OutletCell
	for rows.Next() {
		var c store.OutletCell
		if err := rows.Scan(&c.Outlet, &c.Bucket.Year, &c.Bucket.Week, &c.Term, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveDrops appends drops to a run.
func (s *sqliteStore) SaveDrops(ctx context.Context, runID string, drops []record.Drop) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(ctx, tx, runID); err != nil {
		return err
	}
	var next int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq)+1, 0) FROM drops WHERE run_id=?`, runID).Scan(&next); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO drops (run_id, seq, stage, reason, record_id, source, detail)
VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, d := range drops {
		if _, err := stmt.ExecContext(ctx, runID, next+i, d.Stage, d.Reason, d.ID, d.Source, d.Detail); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Drops lists the drops of a run in insertion order.
func (s *sqliteStore) Drops(ctx context.Context, runID string) ([]record.Drop, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT stage, reason, COALESCE(record_id, ''), COALESCE(source, ''), COALESCE(detail, '')
FROM drops WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []record.Drop
	for rows.Next() {
		var d record.Drop
		if err := rows.Scan(&d.Stage, &d.Reason, &d.ID, &d.Source, &d.Detail); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
