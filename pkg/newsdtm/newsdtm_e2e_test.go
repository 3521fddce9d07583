package newsdtm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/newsdtm/pkg/newsdtm/artifact"
	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/ingest"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma/lexmodel"
	"github.com/cognicore/newsdtm/pkg/newsdtm/normalize"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/relevance"
	"github.com/cognicore/newsdtm/pkg/newsdtm/sentiment"
	"github.com/cognicore/newsdtm/pkg/newsdtm/stoplist"
	"github.com/cognicore/newsdtm/pkg/newsdtm/store/memstore"
)

var sources = map[string][]byte{
	"2023w1_data_trome.json": []byte(`{"data": [
		{"id": "1", "created_at": "2023-01-03T09:00:00Z", "text": "Horóscopo de hoy: Aries"},
		{"id": "2", "created_at": "2023-01-03T10:00:00Z", "text": "Alianza Lima ganó 3 goles https://t.co/x"}
	]}`),
	"2023w1_data_elcomercio.json": []byte(`{"data": [
		{"id": "3", "created_at": "2023-01-04T10:00:00Z", "text": "El Congreso aprobó la ley"},
		{"id": "4", "created_at": "2023-01-04T11:00:00Z", "text": "😀😀"}
	]}`),
}

var positive = sentiment.ClassifierFunc(func(context.Context, string) (sentiment.Prediction, error) {
	return sentiment.Prediction{Label: "POS", Probas: map[string]float64{"POS": 0.9, "NEU": 0.1}}, nil
})

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	filter, err := relevance.New(relevance.DefaultPatterns, relevance.Options{})
	require.NoError(t, err)
	normalizer, err := normalize.New(normalize.Options{})
	require.NoError(t, err)
	opts.Filter = filter
	opts.Normalizer = normalizer
	if opts.Model == nil {
		opts.Model = lexmodel.Default()
	}
	p, err := New(opts)
	require.NoError(t, err)
	return p
}

func hasDrop(drops []record.Drop, stage, reason, id string) bool {
	for _, d := range drops {
		if d.Stage == stage && d.Reason == reason && d.ID == id {
			return true
		}
	}
	return false
}

// TestEndToEnd runs the whole pipeline: ingest, relevance filter,
// normalization, lemmatization, matrices, EDA, annotation, artifacts and
// persistence.
func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	sink := artifact.NewMemorySink()
	st := memstore.New()
	p := newPipeline(t, Options{
		Annotator:    sentiment.NewAnnotator(positive, positive, sentiment.Options{}),
		Stoplist:     stoplist.NewManager(lexmodel.SpanishStopwords),
		Sink:         sink,
		Store:        st,
		RulesVersion: 1,
	})
	defer p.Close()

	report, err := p.Run(ctx, ingest.StaticSources(sources))
	require.NoError(t, err)
	require.Len(t, report.Buckets, 1)

	br := report.Buckets[0]
	week1 := record.Bucket{Year: 2023, Week: 1}
	assert.Equal(t, week1, br.Bucket)
	assert.Len(t, br.Raw.Records, 4)
	assert.Len(t, br.Relevant.Records, 3)
	assert.Len(t, br.Corpus.Entries, 3)

	// === matrices ===
	assert.ElementsMatch(t, []string{"2", "3"}, br.Matrix.Rows())
	assert.EqualValues(t, 1, br.Matrix.Get("2", "tres"))
	assert.EqualValues(t, 1, br.Matrix.Get("3", "congreso"))
	assert.Zero(t, br.Matrix.Get("3", "el"), "stopwords never reach the matrix")
	assert.Equal(t, []string{"elcomercio-2023_1", "trome-2023_1"}, br.Outlet.Labels())
	assert.EqualValues(t, 1, br.Outlet.Get("goles", "trome-2023_1"))
	assert.EqualValues(t, 1, br.Outlet.Get("ley", "elcomercio-2023_1"))

	// === eda and annotation ===
	require.Len(t, br.Summary, 2)
	assert.NotEmpty(t, br.TopTerms)
	require.Len(t, br.UniqueWords, 2)
	require.Len(t, br.Annotated, 2)
	assert.Equal(t, "POS", br.Annotated[0].Sentiment)

	// === drops ===
	assert.True(t, hasDrop(report.Drops, relevance.Stage, relevance.ReasonPattern, "1"))
	assert.True(t, hasDrop(report.Drops, lemma.Stage, lemma.ReasonEmptyCorpus, "4"))
	assert.True(t, hasDrop(report.Drops, sentiment.Stage, sentiment.ReasonEmptyCorpus, "4"))
	assert.Empty(t, report.StopwordCandidates, "corpus is below the minimum size")

	// === artifacts ===
	assert.Len(t, report.Artifacts, 10)
	for _, name := range []string{
		"data_raw-(2023, 1).json",
		"data_clean-(2023, 1).json",
		"corpus-(2023, 1).json",
		"data_dtm-(2023, 1).json",
		"dtm-(2023, 1).csv",
		"dtm_outlet-(2023, 1).csv",
		"corpus_emotion-(2023, 1).json",
	} {
		_, ok := sink.Get(name)
		assert.True(t, ok, name)
	}
	data, _ := sink.Get("dtm-(2023, 1).csv")
	fromCSV, err := artifact.DecodeMatrix(data)
	require.NoError(t, err)
	assert.Equal(t, br.Matrix.Cells(), fromCSV.Cells())

	// === persistence ===
	run, err := st.GetRun(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1, run.Buckets)
	assert.Equal(t, 4, run.Records)
	assert.Equal(t, 2, run.Documents)
	assert.Equal(t, len(report.Drops), run.Dropped)
	assert.False(t, run.FinishedAt.IsZero())

	clean, err := st.CleanRecords(ctx, report.RunID, week1)
	require.NoError(t, err)
	assert.Len(t, clean, 3)
	stored, err := st.Matrix(ctx, report.RunID, week1)
	require.NoError(t, err)
	assert.Equal(t, br.Matrix.Cells(), stored.Cells())
	drops, err := st.Drops(ctx, report.RunID)
	require.NoError(t, err)
	assert.Equal(t, report.Drops, drops)
}

func TestRunWithoutOptionalCollaborators(t *testing.T) {
	p := newPipeline(t, Options{FillPolicy: dtm.FillCrossProduct})
	report, err := p.Run(context.Background(), ingest.StaticSources(sources))
	require.NoError(t, err)
	assert.Empty(t, report.Artifacts)
	assert.Nil(t, report.Buckets[0].Annotated)
	assert.Len(t, report.Buckets[0].Outlet.Groups(), 2)
}

func TestModelFailuresAreIsolated(t *testing.T) {
	failing := lemma.ModelFunc(func(ctx context.Context, text string) ([]lemma.Token, error) {
		if text == "el congreso aprobó la ley" {
			return nil, assert.AnError
		}
		return lexmodel.Default().Analyze(ctx, text)
	})
	p := newPipeline(t, Options{Model: failing})
	report, err := p.Run(context.Background(), ingest.StaticSources(sources))
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, report.Buckets[0].Matrix.Rows())
	assert.True(t, hasDrop(report.Drops, lemma.Stage, lemma.ReasonModelError, "3"))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newPipeline(t, Options{}).Run(ctx, ingest.StaticSources(sources))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRequiresStages(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)

	filter, _ := relevance.New(nil, relevance.Options{})
	normalizer, _ := normalize.New(normalize.Options{})
	_, err = New(Options{Filter: filter, Normalizer: normalizer, Model: lexmodel.Default(), FillPolicy: "zeros"})
	assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
}
