// Package dtm builds document-term matrices from tokenized documents and
// aggregates them per outlet and ISO week.
package dtm

import (
	"fmt"
	"sort"

	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage is the artifact stage of the base matrix.
const Stage = "dtm"

// Cell is one non-zero (document, lemma) count.
type Cell struct {
	Doc   string `json:"id"`
	Term  string `json:"lemma"`
	Count int64  `json:"count"`
}

// Matrix is a sparse document-term matrix. Rows keep the order documents
// were given in; columns are the distinct lemmas in lexicographic order.
// Absent cells read as zero. A Matrix is immutable once built.
type Matrix struct {
	rows      []string
	rowIndex  map[string]int
	terms     []string
	termIndex map[string]int
	counts    []map[int]int64 // per row: term index -> count
}

// Build counts the lemmas of each document. Documents with repeated IDs are
// rejected.
func Build(docs []record.TokenizedDoc) (*Matrix, error) {
	vocab := make(map[string]struct{})
	for _, d := range docs {
		for _, l := range d.Lemmas {
			vocab[l] = struct{}{}
		}
	}

	m := newMatrix(len(docs), vocab)
	for _, d := range docs {
		row, err := m.addRow(d.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range d.Lemmas {
			m.counts[row][m.termIndex[l]]++
		}
	}
	return m, nil
}

// FromCounts rebuilds a matrix from persisted cells. rows fixes the row order
// and may include documents without cells; every cell must reference a
// listed row.
func FromCounts(rows []string, cells []Cell) (*Matrix, error) {
	vocab := make(map[string]struct{})
	for _, c := range cells {
		vocab[c.Term] = struct{}{}
	}

	m := newMatrix(len(rows), vocab)
	for _, id := range rows {
		if _, err := m.addRow(id); err != nil {
			return nil, err
		}
	}
	for _, c := range cells {
		row, ok := m.rowIndex[c.Doc]
		if !ok {
			return nil, fmt.Errorf("%w: cell for unknown document %q", internalerr.ErrInvalidInput, c.Doc)
		}
		if c.Count < 0 {
			return nil, fmt.Errorf("%w: negative count for %q/%q", internalerr.ErrInvalidInput, c.Doc, c.Term)
		}
		if c.Count > 0 {
			m.counts[row][m.termIndex[c.Term]] += c.Count
		}
	}
	return m, nil
}

func newMatrix(rows int, vocab map[string]struct{}) *Matrix {
	terms := make([]string, 0, len(vocab))
	for t := range vocab {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	termIndex := make(map[string]int, len(terms))
	for i, t := range terms {
		termIndex[t] = i
	}
	return &Matrix{
		rows:      make([]string, 0, rows),
		rowIndex:  make(map[string]int, rows),
		terms:     terms,
		termIndex: termIndex,
		counts:    make([]map[int]int64, 0, rows),
	}
}

func (m *Matrix) addRow(id string) (int, error) {
	if _, dup := m.rowIndex[id]; dup {
		return 0, fmt.Errorf("%w: document %q", internalerr.ErrDuplicate, id)
	}
	m.rowIndex[id] = len(m.rows)
	m.rows = append(m.rows, id)
	m.counts = append(m.counts, make(map[int]int64))
	return len(m.rows) - 1, nil
}

// Rows returns the document IDs in row order.
func (m *Matrix) Rows() []string {
	return append([]string(nil), m.rows...)
}

// Terms returns the lemma vocabulary in column order.
func (m *Matrix) Terms() []string {
	return append([]string(nil), m.terms...)
}

// Shape returns the number of rows and columns.
func (m *Matrix) Shape() (rows, cols int) {
	return len(m.rows), len(m.terms)
}

// NNZ returns the number of non-zero cells.
func (m *Matrix) NNZ() int {
	n := 0
	for _, row := range m.counts {
		n += len(row)
	}
	return n
}

// HasRow reports whether the document is a row of the matrix.
func (m *Matrix) HasRow(id string) bool {
	_, ok := m.rowIndex[id]
	return ok
}

// Get returns the count of term in document id, zero when either is absent.
func (m *Matrix) Get(id, term string) int64 {
	row, ok := m.rowIndex[id]
	if !ok {
		return 0
	}
	col, ok := m.termIndex[term]
	if !ok {
		return 0
	}
	return m.counts[row][col]
}

// Row returns the non-zero counts of a document keyed by lemma.
func (m *Matrix) Row(id string) map[string]int64 {
	row, ok := m.rowIndex[id]
	if !ok {
		return nil
	}
	out := make(map[string]int64, len(m.counts[row]))
	for col, c := range m.counts[row] {
		out[m.terms[col]] = c
	}
	return out
}

// RowSum returns the total lemma count of a document.
func (m *Matrix) RowSum(id string) int64 {
	row, ok := m.rowIndex[id]
	if !ok {
		return 0
	}
	var sum int64
	for _, c := range m.counts[row] {
		sum += c
	}
	return sum
}

// ColumnSums returns the total count of every lemma across all documents.
func (m *Matrix) ColumnSums() map[string]int64 {
	out := make(map[string]int64, len(m.terms))
	for _, row := range m.counts {
		for col, c := range row {
			out[m.terms[col]] += c
		}
	}
	return out
}

// Cells returns the non-zero cells in row order, then column order.
func (m *Matrix) Cells() []Cell {
	out := make([]Cell, 0, m.NNZ())
	for r, id := range m.rows {
		cols := make([]int, 0, len(m.counts[r]))
		for col := range m.counts[r] {
			cols = append(cols, col)
		}
		sort.Ints(cols)
		for _, col := range cols {
			out = append(out, Cell{Doc: id, Term: m.terms[col], Count: m.counts[r][col]})
		}
	}
	return out
}

// Slice returns a matrix with only the given rows, in the given order. The
// vocabulary is kept so slices stay joinable with the full matrix.
func (m *Matrix) Slice(ids []string) (*Matrix, error) {
	out := &Matrix{
		rows:      make([]string, 0, len(ids)),
		rowIndex:  make(map[string]int, len(ids)),
		terms:     m.terms,
		termIndex: m.termIndex,
		counts:    make([]map[int]int64, 0, len(ids)),
	}
	for _, id := range ids {
		src, ok := m.rowIndex[id]
		if !ok {
			return nil, fmt.Errorf("%w: document %q", internalerr.ErrNotFound, id)
		}
		row, err := out.addRow(id)
		if err != nil {
			return nil, err
		}
		for col, c := range m.counts[src] {
			out.counts[row][col] = c
		}
	}
	return out, nil
}
