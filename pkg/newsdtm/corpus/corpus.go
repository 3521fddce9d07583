// Package corpus projects cleaned tables onto the fields used for
// linguistic analysis and indexes them by document.
package corpus

import (
	"fmt"

	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage is the artifact stage of corpus tables.
const Stage = "corpus"

// Corpus is the ordered set of corpus entries of one bucket.
type Corpus struct {
	Bucket  record.Bucket
	Entries []record.CorpusEntry
}

// Extract keeps id, created_at, outlet, raw text and the clean text renamed
// to corpus. Entries with an empty corpus are kept; the tokenizer stage
// decides what to exclude.
func Extract(table *record.CleanTable) *Corpus {
	c := &Corpus{Bucket: table.Bucket, Entries: make([]record.CorpusEntry, 0, len(table.Records))}
	for _, rec := range table.Records {
		c.Entries = append(c.Entries, record.CorpusEntry{
			ID:        rec.ID,
			CreatedAt: rec.CreatedAt,
			Outlet:    rec.Outlet,
			Text:      rec.Text,
			Corpus:    rec.TextClean,
		})
	}
	return c
}

// Index maps document IDs to entries. Repeated IDs are rejected.
func Index(entries []record.CorpusEntry) (map[string]record.CorpusEntry, error) {
	idx := make(map[string]record.CorpusEntry, len(entries))
	for _, e := range entries {
		if _, dup := idx[e.ID]; dup {
			return nil, fmt.Errorf("%w: corpus id %q", internalerr.ErrDuplicate, e.ID)
		}
		idx[e.ID] = e
	}
	return idx, nil
}

// Outlets returns the distinct outlets in first-seen order.
func Outlets(entries []record.CorpusEntry) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, e := range entries {
		if _, ok := seen[e.Outlet]; ok {
			continue
		}
		seen[e.Outlet] = struct{}{}
		out = append(out, e.Outlet)
	}
	return out
}

// Buckets returns the distinct ISO weeks of the entries, oldest first.
func Buckets(entries []record.CorpusEntry) []record.Bucket {
	seen := make(map[record.Bucket]struct{})
	var out []record.Bucket
	for _, e := range entries {
		b := e.Bucket()
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	record.SortBuckets(out)
	return out
}
