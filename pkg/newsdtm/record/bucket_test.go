package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketOfISOWeeks(t *testing.T) {
	tests := []struct {
		name string
		ts   string
		want Bucket
	}{
		{"monday opens week one", "2023-01-02T10:00:00Z", Bucket{2023, 1}},
		{"sunday belongs to previous iso year", "2023-01-01T23:59:59Z", Bucket{2022, 52}},
		{"week 53 year", "2020-12-31T12:00:00Z", Bucket{2020, 53}},
		{"january in week 53", "2021-01-03T12:00:00Z", Bucket{2020, 53}},
		{"late december in next year's week one", "2024-12-30T00:00:00Z", Bucket{2025, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := time.Parse(time.RFC3339, tt.ts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, BucketOf(ts))
		})
	}
}

func TestBucketOfUsesUTC(t *testing.T) {
	// Sunday 23:30 in Lima is Monday 04:30 UTC.
	lima := time.FixedZone("PET", -5*60*60)
	ts := time.Date(2023, 1, 1, 23, 30, 0, 0, lima)
	assert.Equal(t, Bucket{2023, 1}, BucketOf(ts))
}

func TestBucketWeekSpan(t *testing.T) {
	start := time.Date(2019, 12, 30, 0, 0, 0, 0, time.UTC) // a Monday
	for w := 0; w < 160; w++ {
		monday := start.AddDate(0, 0, 7*w)
		b := BucketOf(monday)
		assert.Equal(t, b, BucketOf(monday.AddDate(0, 0, 6).Add(23*time.Hour)), "week starting %s", monday)
		assert.NotEqual(t, b, BucketOf(monday.AddDate(0, 0, 7)), "next monday %s", monday)
	}
}

func TestBucketFormatting(t *testing.T) {
	b := Bucket{Year: 2023, Week: 7}
	assert.Equal(t, "(2023, 7)", b.String())
	assert.Equal(t, "2023_7", b.Period())
	assert.Equal(t, "data_raw-(2023, 7)", b.Key("data_raw"))

	parsed, err := ParseBucket("(2023, 7)")
	require.NoError(t, err)
	assert.Equal(t, b, parsed)

	_, err = ParseBucket("(2023, 60)")
	assert.Error(t, err)
	_, err = ParseBucket("2023w7")
	assert.Error(t, err)
}

func TestSortBuckets(t *testing.T) {
	bs := []Bucket{{2023, 2}, {2022, 52}, {2023, 1}}
	SortBuckets(bs)
	assert.Equal(t, []Bucket{{2022, 52}, {2023, 1}, {2023, 2}}, bs)
}
