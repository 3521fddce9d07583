// Package ingest compiles raw per-outlet API payloads into ISO-week tables.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cognicore/newsdtm/pkg/newsdtm/observability"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage names the ingestor in drops and artifact keys.
const (
	Stage    = "ingest"
	StageRaw = "data_raw"
)

// Drop reasons reported by the ingestor.
const (
	ReasonMissingData      = "missing_data"
	ReasonInvalidPayload   = "invalid_payload"
	ReasonUnknownOutlet    = "unknown_outlet"
	ReasonInvalidRecord    = "invalid_record"
	ReasonMissingField     = "missing_field"
	ReasonInvalidTimestamp = "invalid_timestamp"
	ReasonDuplicateID      = "duplicate_id"
)

// DefaultDelimiter separates the bucket prefix from the outlet handle in
// source filenames, e.g. "2023w1_data_elcomercio.json".
const DefaultDelimiter = "_data_"

// DefaultStripPrefixes are the namespaces removed from flattened keys.
var DefaultStripPrefixes = []string{"public_metrics."}

// Loader lazily returns the bytes of one source payload.
type Loader func() ([]byte, error)

// Options configures an Ingestor.
type Options struct {
	Delimiter     string
	StripPrefixes []string
	// Outlets restricts accepted outlets; empty accepts any.
	Outlets []string
	// KeepHTMLEntities disables entity decoding of the text field.
	KeepHTMLEntities bool
	Logger           *zerolog.Logger
}

// Ingestor turns source payloads into bucketed record tables.
type Ingestor struct {
	delimiter     string
	stripPrefixes []string
	outlets       map[string]struct{}
	unescape      bool
	logger        zerolog.Logger
}

// New creates an Ingestor.
func New(opts Options) *Ingestor {
	in := &Ingestor{
		delimiter:     opts.Delimiter,
		stripPrefixes: opts.StripPrefixes,
		unescape:      !opts.KeepHTMLEntities,
		logger:        zerolog.Nop(),
	}
	if in.delimiter == "" {
		in.delimiter = DefaultDelimiter
	}
	if in.stripPrefixes == nil {
		in.stripPrefixes = DefaultStripPrefixes
	}
	if len(opts.Outlets) > 0 {
		in.outlets = make(map[string]struct{}, len(opts.Outlets))
		for _, o := range opts.Outlets {
			in.outlets[o] = struct{}{}
		}
	}
	if opts.Logger != nil {
		in.logger = opts.Logger.With().Str("stage", Stage).Logger()
	}
	return in
}

// Result holds the compiled tables keyed by "data_raw-(year, week)".
type Result struct {
	Tables map[string]*record.Table
	Drops  []record.Drop
}

// Buckets returns the buckets present in the result, oldest first.
func (r Result) Buckets() []record.Bucket {
	out := make([]record.Bucket, 0, len(r.Tables))
	for _, t := range r.Tables {
		out = append(out, t.Bucket)
	}
	record.SortBuckets(out)
	return out
}

// Table returns the table for a bucket, if any.
func (r Result) Table(b record.Bucket) (*record.Table, bool) {
	t, ok := r.Tables[b.Key(StageRaw)]
	return t, ok
}

// RecordCount returns the number of accepted records across all tables.
func (r Result) RecordCount() int {
	n := 0
	for _, t := range r.Tables {
		n += len(t.Records)
	}
	return n
}

// Compile loads every source, tags records with the outlet inferred from the
// source name and groups them by ISO week across sources. Malformed payloads
// and records are dropped and reported; only context cancellation fails.
func (in *Ingestor) Compile(ctx context.Context, sources map[string]Loader) (Result, error) {
	res := Result{Tables: make(map[string]*record.Table)}
	seen := make(map[string]map[string]struct{})

	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		in.compileSource(name, sources[name], &res, seen)
	}

	observability.ObserveDrops(res.Drops)
	in.logger.Info().
		Int("sources", len(sources)).
		Int("buckets", len(res.Tables)).
		Int("records", res.RecordCount()).
		Int("dropped", len(res.Drops)).
		Msg("raw data compiled")
	return res, nil
}

func (in *Ingestor) compileSource(name string, load Loader, res *Result, seen map[string]map[string]struct{}) {
	outlet := OutletFromFilename(name, in.delimiter)
	if in.outlets != nil {
		if _, ok := in.outlets[outlet]; !ok {
			in.skipSource(res, name, ReasonUnknownOutlet, fmt.Sprintf("outlet %q not configured", outlet))
			return
		}
	}

	raw, err := load()
	if err != nil {
		in.skipSource(res, name, ReasonInvalidPayload, err.Error())
		return
	}
	items, err := decodePayload(raw)
	if errors.Is(err, errMissingData) {
		in.skipSource(res, name, ReasonMissingData, err.Error())
		return
	}
	if err != nil {
		in.skipSource(res, name, ReasonInvalidPayload, err.Error())
		return
	}

	for i, fields := range items {
		if fields == nil {
			in.drop(res, record.Drop{
				Stage: Stage, Reason: ReasonInvalidRecord, Source: name,
				Detail: fmt.Sprintf("entry %d is not an object", i),
			})
			continue
		}
		flat := flatten(fields, in.stripPrefixes)
		rec, reason, err := buildRecord(flat, outlet, in.unescape)
		if err != nil {
			in.drop(res, record.Drop{Stage: Stage, Reason: reason, ID: rec.ID, Source: name, Detail: err.Error()})
			continue
		}

		bucket := rec.Bucket()
		key := bucket.Key(StageRaw)
		if seen[key] == nil {
			seen[key] = make(map[string]struct{})
		}
		if _, dup := seen[key][rec.ID]; dup {
			in.drop(res, record.Drop{Stage: Stage, Reason: ReasonDuplicateID, ID: rec.ID, Source: name})
			continue
		}
		seen[key][rec.ID] = struct{}{}

		table, ok := res.Tables[key]
		if !ok {
			table = record.NewTable(bucket, record.ColumnOutlet)
			res.Tables[key] = table
		}
		for col := range flat {
			table.Columns[col] = struct{}{}
		}
		table.Records = append(table.Records, rec)
		observability.RecordsIngested.WithLabelValues(outlet).Inc()
	}
}

func (in *Ingestor) skipSource(res *Result, name, reason, detail string) {
	in.logger.Warn().Str("source", name).Str("reason", reason).Msg(detail)
	res.Drops = append(res.Drops, record.Drop{Stage: Stage, Reason: reason, Source: name, Detail: detail})
}

func (in *Ingestor) drop(res *Result, d record.Drop) {
	in.logger.Warn().Str("source", d.Source).Str("id", d.ID).Str("reason", d.Reason).Msg("record dropped")
	res.Drops = append(res.Drops, d)
}

// OutletFromFilename infers the outlet handle from a source name: the base
// name without ".json", after the last occurrence of delimiter.
func OutletFromFilename(name, delimiter string) string {
	base := path.Base(filepath.ToSlash(name))
	base = strings.TrimSuffix(base, ".json")
	if delimiter == "" {
		return base
	}
	parts := strings.Split(base, delimiter)
	return parts[len(parts)-1]
}
