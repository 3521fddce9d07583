package corpus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

func TestExtract(t *testing.T) {
	ts := time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC)
	table := &record.CleanTable{
		Bucket: record.Bucket{Year: 2023, Week: 1},
		Records: []record.CleanRecord{
			{Record: record.Record{ID: "1", CreatedAt: ts, Outlet: "elcomercio", Text: "Hola 3"}, TextClean: "hola tres"},
			{Record: record.Record{ID: "2", CreatedAt: ts, Outlet: "trome", Text: "https://t.co"}, TextClean: ""},
		},
	}

	c := Extract(table)
	require.Len(t, c.Entries, 2)
	assert.Equal(t, record.CorpusEntry{ID: "1", CreatedAt: ts, Outlet: "elcomercio", Text: "Hola 3", Corpus: "hola tres"}, c.Entries[0])
	assert.Equal(t, "", c.Entries[1].Corpus)
	assert.Equal(t, table.Bucket, c.Bucket)
}

func TestIndexRejectsDuplicates(t *testing.T) {
	_, err := Index([]record.CorpusEntry{{ID: "1"}, {ID: "1"}})
	assert.ErrorIs(t, err, internalerr.ErrDuplicate)

	idx, err := Index([]record.CorpusEntry{{ID: "1", Outlet: "a"}, {ID: "2", Outlet: "b"}})
	require.NoError(t, err)
	assert.Equal(t, "b", idx["2"].Outlet)
}

func TestOutletsAndBuckets(t *testing.T) {
	w1 := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	w52 := time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC)
	entries := []record.CorpusEntry{
		{ID: "1", Outlet: "trome", CreatedAt: w1},
		{ID: "2", Outlet: "elcomercio", CreatedAt: w52},
		{ID: "3", Outlet: "trome", CreatedAt: w52},
	}
	assert.Equal(t, []string{"trome", "elcomercio"}, Outlets(entries))
	assert.Equal(t, []record.Bucket{{Year: 2022, Week: 52}, {Year: 2023, Week: 1}}, Buckets(entries))
}
