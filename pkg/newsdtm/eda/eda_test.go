package eda

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/stoplist"
)

func i64(v int64) *int64 { return &v }

func TestSummarize(t *testing.T) {
	table := &record.CleanTable{
		Bucket: record.Bucket{Year: 2023, Week: 1},
		Records: []record.CleanRecord{
			{Record: record.Record{ID: "1", Outlet: "trome", RetweetCount: i64(4), LikeCount: i64(10), PossiblySensitive: true}},
			{Record: record.Record{ID: "2", Outlet: "trome", RetweetCount: i64(2), ReferencedTweets: []record.Reference{{Type: "quoted", ID: "9"}}}},
			{Record: record.Record{ID: "3", Outlet: "elcomercio", ReplyCount: i64(3), QuoteCount: i64(1)}},
		},
	}

	got := Summarize(table)
	require.Len(t, got, 2)

	trome := got[0]
	assert.Equal(t, "trome", trome.Outlet)
	assert.EqualValues(t, 2, trome.TweetCount)
	assert.EqualValues(t, 1, trome.ReferencedTweetCount)
	assert.EqualValues(t, 1, trome.PossiblySensitiveCount)
	assert.EqualValues(t, 6, trome.RetweetCount)
	assert.InDelta(t, 3.0, trome.RetweetRatio, 1e-9)
	assert.InDelta(t, 5.0, trome.LikeRatio, 1e-9)
	assert.InDelta(t, 0.5, trome.ReferenceRatio, 1e-9)

	ec := got[1]
	assert.EqualValues(t, 1, ec.TweetCount)
	assert.InDelta(t, 3.0, ec.ReplyRatio, 1e-9)
	assert.InDelta(t, 1.0, ec.QuoteRatio, 1e-9)
	assert.Zero(t, ec.SensitiveRatio)
}

func outletMatrix(t *testing.T) (*dtm.OutletMatrix, []record.CorpusEntry) {
	t.Helper()
	at := time.Date(2023, 1, 3, 0, 0, 0, 0, time.UTC)
	docs := []record.TokenizedDoc{
		{CorpusEntry: record.CorpusEntry{ID: "1"}, Lemmas: []string{"gol", "gol", "fútbol", "lima"}},
		{CorpusEntry: record.CorpusEntry{ID: "2"}, Lemmas: []string{"gol", "alianza"}},
		{CorpusEntry: record.CorpusEntry{ID: "3"}, Lemmas: []string{"congreso"}},
	}
	entries := []record.CorpusEntry{
		{ID: "1", Outlet: "trome", CreatedAt: at},
		{ID: "2", Outlet: "trome", CreatedAt: at},
		{ID: "3", Outlet: "elcomercio", CreatedAt: at},
		{ID: "4", Outlet: "elcomercio", CreatedAt: at},
	}
	m, err := dtm.Build(docs)
	require.NoError(t, err)
	om, err := dtm.AggregateByOutlet(m, entries, dtm.FillOmit)
	require.NoError(t, err)
	return om, entries
}

func TestTopTerms(t *testing.T) {
	om, _ := outletMatrix(t)
	top := TopTerms(om, 2)

	require.Len(t, top, 3)
	assert.Equal(t, TopTerm{Outlet: "elcomercio", Year: 2023, Week: 1, Rank: 1, Word: "congreso", Count: 1}, top[0])
	assert.Equal(t, TopTerm{Outlet: "trome", Year: 2023, Week: 1, Rank: 1, Word: "gol", Count: 3}, top[1])
	assert.Equal(t, "alianza", top[2].Word, "ties break alphabetically")
}

func TestCountUniqueWords(t *testing.T) {
	om, entries := outletMatrix(t)
	got := CountUniqueWords(om, entries)
	require.Len(t, got, 2)

	assert.Equal(t, "trome", got[0].Outlet)
	assert.Equal(t, 4, got[0].UniqueWords)
	assert.Equal(t, 2, got[0].TweetNumber)
	assert.InDelta(t, 2.0, got[0].WordTweetRatio, 1e-9)

	assert.Equal(t, "elcomercio", got[1].Outlet)
	assert.Equal(t, 1, got[1].UniqueWords)
	assert.Equal(t, 2, got[1].TweetNumber, "entries without DTM rows still count as posts")
}

func TestAnalyzerStopwordCandidates(t *testing.T) {
	a := NewAnalyzer()
	outlets := []string{"trome", "elcomercio", "larepublica"}
	for i := 0; i < 30; i++ {
		lemmas := []string{"hoy", fmt.Sprintf("tema%d", i)}
		if i%3 == 0 {
			lemmas = append(lemmas, "gol")
		}
		outlet := outlets[i%3]
		a.Process(lemmas, outlet)
	}

	snap := a.Snapshot()
	assert.EqualValues(t, 30, snap.TotalDocs)
	assert.Equal(t, 3, snap.Outlets)
	assert.EqualValues(t, 30, snap.LemmaDF["hoy"])

	stats := snap.StopwordStats()
	byToken := map[string]stoplist.Stats{}
	for _, s := range stats {
		byToken[s.Token] = s
	}
	assert.InDelta(t, 1.0, byToken["hoy"].OutletEntropy, 1e-9)
	assert.InDelta(t, 0.0, byToken["gol"].OutletEntropy, 1e-9)

	candidates := a.SuggestStopwords(stoplist.NewManager(nil), stoplist.DefaultThresholds())
	require.Len(t, candidates, 1)
	assert.Equal(t, "hoy", candidates[0].Token)

	none := a.SuggestStopwords(stoplist.NewManager([]string{"hoy"}), stoplist.DefaultThresholds())
	assert.Empty(t, none)
}

func TestAnalyzerSnapshotIsACopy(t *testing.T) {
	a := NewAnalyzer()
	a.Process([]string{"x"}, "o")
	snap := a.Snapshot()
	a.Process([]string{"x"}, "o")
	assert.EqualValues(t, 1, snap.LemmaDF["x"])
	assert.EqualValues(t, 1, snap.OutletDF["x"]["o"])
}
