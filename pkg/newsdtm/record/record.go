// Package record defines the typed rows that flow between pipeline stages.
//
// Every stage returns fresh values built from these types; nothing here is
// shared-mutable across stages.
package record

import (
	"fmt"
	"sort"
	"time"
)

// Column names used by stage contracts.
const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnText      = "text"
	ColumnOutlet    = "outlet"
)

// Reference describes a referenced tweet (reply, quote, retweet).
type Reference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Record is one social post as delivered by the source API.
type Record struct {
	ID                string         `json:"id"`
	CreatedAt         time.Time      `json:"created_at"`
	Outlet            string         `json:"outlet"`
	Text              string         `json:"text"`
	ReplyCount        *int64         `json:"reply_count,omitempty"`
	RetweetCount      *int64         `json:"retweet_count,omitempty"`
	LikeCount         *int64         `json:"like_count,omitempty"`
	QuoteCount        *int64         `json:"quote_count,omitempty"`
	ImpressionCount   *int64         `json:"impression_count,omitempty"`
	PossiblySensitive bool           `json:"possibly_sensitive"`
	ReferencedTweets  []Reference    `json:"referenced_tweets,omitempty"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// Bucket returns the ISO week the record belongs to.
func (r Record) Bucket() Bucket {
	return BucketOf(r.CreatedAt)
}

// Table is the set of records that landed in one bucket.
type Table struct {
	Bucket  Bucket
	Records []Record
	Columns map[string]struct{}
}

// NewTable creates an empty table with the given columns.
func NewTable(b Bucket, columns ...string) *Table {
	t := &Table{Bucket: b, Columns: make(map[string]struct{}, len(columns))}
	for _, c := range columns {
		t.Columns[c] = struct{}{}
	}
	return t
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Columns[name]
	return ok
}

// Derive returns an empty table sharing bucket and a copy of the column set.
func (t *Table) Derive() *Table {
	out := &Table{Bucket: t.Bucket, Columns: make(map[string]struct{}, len(t.Columns))}
	for c := range t.Columns {
		out.Columns[c] = struct{}{}
	}
	return out
}

// ColumnNames returns the column set in sorted order.
func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for c := range t.Columns {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

// CleanRecord is a Record with its normalized text and extracted entities.
type CleanRecord struct {
	Record
	TextClean string   `json:"text_clean"`
	Mentions  []string `json:"mentions"`
	Hashtags  []string `json:"hashtags"`
}

// CleanTable holds the cleaned records of one bucket.
type CleanTable struct {
	Bucket  Bucket
	Records []CleanRecord
}

// CorpusEntry is the projection of a CleanRecord used for linguistic analysis.
type CorpusEntry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Outlet    string    `json:"outlet"`
	Text      string    `json:"text"`
	Corpus    string    `json:"corpus"`
}

// Bucket returns the ISO week of the entry.
func (c CorpusEntry) Bucket() Bucket {
	return BucketOf(c.CreatedAt)
}

// TokenizedDoc is a corpus entry with its filtered token and lemma sequences.
type TokenizedDoc struct {
	CorpusEntry
	Tokens []string `json:"tokens"`
	Lemmas []string `json:"lemmas"`
}

// Drop records why a record or document left the pipeline.
type Drop struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func (d Drop) String() string {
	if d.ID == "" {
		return fmt.Sprintf("%s/%s source=%s", d.Stage, d.Reason, d.Source)
	}
	return fmt.Sprintf("%s/%s id=%s", d.Stage, d.Reason, d.ID)
}
