// Package artifact names, encodes and stores pipeline outputs.
//
// Every artifact is keyed by stage and bucket as "{stage}-({year}, {week}).{ext}",
// the same key the stage tables carry.
package artifact

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Extensions used by the writers.
const (
	ExtJSON = "json"
	ExtCSV  = "csv"
)

// Name returns the artifact name for a stage and bucket.
func Name(stage string, b record.Bucket, ext string) string {
	return b.Key(stage) + "." + ext
}

// ParseName splits an artifact name back into stage, bucket and extension.
func ParseName(name string) (stage string, b record.Bucket, ext string, err error) {
	dot := strings.LastIndexByte(name, '.')
	open := strings.LastIndex(name, "-(")
	if dot < 0 || open <= 0 || dot < open {
		return "", record.Bucket{}, "", fmt.Errorf("artifact name %q: %w", name, internalerr.ErrInvalidInput)
	}
	b, err = record.ParseBucket(name[open+1 : dot])
	if err != nil {
		return "", record.Bucket{}, "", fmt.Errorf("artifact name %q: %w", name, internalerr.ErrInvalidInput)
	}
	return name[:open], b, name[dot+1:], nil
}

// Sink stores named artifacts.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
}

// Writer encodes stage outputs and hands them to a Sink.
type Writer struct {
	sink Sink
}

// NewWriter wraps a sink.
func NewWriter(sink Sink) *Writer {
	return &Writer{sink: sink}
}

// JSON stores v as an indented JSON document.
func (w *Writer) JSON(ctx context.Context, stage string, b record.Bucket, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", stage, err)
	}
	name := Name(stage, b, ExtJSON)
	return name, w.sink.Put(ctx, name, append(data, '\n'), "application/json")
}

// Matrix stores a document-term matrix as sparse "id,lemma,count" triplets.
func (w *Writer) Matrix(ctx context.Context, stage string, b record.Bucket, m *dtm.Matrix) (string, error) {
	data, err := EncodeMatrix(m)
	if err != nil {
		return "", err
	}
	name := Name(stage, b, ExtCSV)
	return name, w.sink.Put(ctx, name, data, "text/csv")
}

// OutletMatrix stores an outlet-period matrix in wide form: one row per
// term, one column per outlet-period label.
func (w *Writer) OutletMatrix(ctx context.Context, stage string, b record.Bucket, om *dtm.OutletMatrix) (string, error) {
	data, err := EncodeOutletMatrix(om)
	if err != nil {
		return "", err
	}
	name := Name(stage, b, ExtCSV)
	return name, w.sink.Put(ctx, name, data, "text/csv")
}

// EncodeMatrix renders the triplet CSV of m.
func EncodeMatrix(m *dtm.Matrix) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write([]string{"id", "lemma", "count"}); err != nil {
		return nil, err
	}
	for _, c := range m.Cells() {
		if err := cw.Write([]string{c.Doc, c.Term, strconv.FormatInt(c.Count, 10)}); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// EncodeOutletMatrix renders the wide CSV of om.
func EncodeOutletMatrix(om *dtm.OutletMatrix) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	labels := om.Labels()
	if err := cw.Write(append([]string{"lemma"}, labels...)); err != nil {
		return nil, err
	}
	dense := om.Dense()
	row := make([]string, len(labels)+1)
	for i, term := range om.Terms() {
		row[0] = term
		for j, v := range dense[i] {
			row[j+1] = strconv.FormatInt(v, 10)
		}
		if err := cw.Write(row); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	return buf.Bytes(), cw.Error()
}

// DecodeMatrix reads triplet CSV produced by EncodeMatrix. Rows keep the
// order in which document IDs first appear.
func DecodeMatrix(data []byte) (*dtm.Matrix, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = 3
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("decode matrix: %w: %v", internalerr.ErrInvalidInput, err)
	}
	if len(recs) == 0 || recs[0][0] != "id" {
		return nil, fmt.Errorf("decode matrix: missing header: %w", internalerr.ErrInvalidInput)
	}
	var rows []string
	seen := map[string]bool{}
	cells := make([]dtm.Cell, 0, len(recs)-1)
	for _, r := range recs[1:] {
		n, err := strconv.ParseInt(r[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode matrix: count %q: %w", r[2], internalerr.ErrInvalidInput)
		}
		if !seen[r[0]] {
			seen[r[0]] = true
			rows = append(rows, r[0])
		}
		cells = append(cells, dtm.Cell{Doc: r[0], Term: r[1], Count: n})
	}
	return dtm.FromCounts(rows, cells)
}
