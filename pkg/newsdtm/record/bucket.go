package record

import (
	"fmt"
	"sort"
	"time"
)

// Bucket is an ISO-8601 (year, week) pair.
type Bucket struct {
	Year int `json:"year"`
	Week int `json:"week"`
}

// BucketOf computes the ISO week of t in UTC.
func BucketOf(t time.Time) Bucket {
	y, w := t.UTC().ISOWeek()
	return Bucket{Year: y, Week: w}
}

// String renders the bucket the way artifact names carry it: "(2023, 1)".
func (b Bucket) String() string {
	return fmt.Sprintf("(%d, %d)", b.Year, b.Week)
}

// Period renders the bucket as used in outlet-period labels: "2023_1".
func (b Bucket) Period() string {
	return fmt.Sprintf("%d_%d", b.Year, b.Week)
}

// Key returns the canonical stage key, e.g. "data_raw-(2023, 1)".
func (b Bucket) Key(stage string) string {
	return stage + "-" + b.String()
}

// Before orders buckets chronologically.
func (b Bucket) Before(o Bucket) bool {
	if b.Year != o.Year {
		return b.Year < o.Year
	}
	return b.Week < o.Week
}

// ParseBucket parses the "(2023, 1)" form.
func ParseBucket(s string) (Bucket, error) {
	var b Bucket
	if _, err := fmt.Sscanf(s, "(%d, %d)", &b.Year, &b.Week); err != nil {
		return Bucket{}, fmt.Errorf("parse bucket %q: %w", s, err)
	}
	if b.Week < 1 || b.Week > 53 {
		return Bucket{}, fmt.Errorf("parse bucket %q: week out of range", s)
	}
	return b, nil
}

// SortBuckets sorts buckets chronologically in place.
func SortBuckets(bs []Bucket) {
	sort.Slice(bs, func(i, j int) bool { return bs[i].Before(bs[j]) })
}
