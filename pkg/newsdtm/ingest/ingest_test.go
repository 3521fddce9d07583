package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

const elcomercio = `{"data": [
  {"id": "1001", "created_at": "2023-01-02T10:00:00.000Z", "text": "Lima &amp; Callao",
   "public_metrics": {"retweet_count": 3, "reply_count": 1, "like_count": 10, "quote_count": 0},
   "possibly_sensitive": false, "lang": "es"},
  {"id": 1002, "created_at": "2023-01-08T23:00:00Z", "text": "segunda",
   "referenced_tweets": [{"type": "quoted", "id": "900"}]},
  {"id": "1003", "created_at": "2023-01-09T08:00:00Z", "text": "semana dos"}
]}`

const larepublica = `{"data": [
  {"id": "2001", "created_at": "2023-01-04T12:00:00Z", "text": "otra fuente",
   "public_metrics": {"like_count": -4}, "possibly_sensitive": true}
]}`

func compile(t *testing.T, opts Options, payloads map[string]string) Result {
	t.Helper()
	raw := make(map[string][]byte, len(payloads))
	for name, body := range payloads {
		raw[name] = []byte(body)
	}
	res, err := New(opts).Compile(context.Background(), StaticSources(raw))
	require.NoError(t, err)
	return res
}

func TestOutletFromFilename(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{"week prefix", "2023w1_data_elcomercio.json", "elcomercio"},
		{"nested path", "raw/2023w1_data_larepublica.json", "larepublica"},
		{"no delimiter", "peru21.json", "peru21"},
		{"last delimiter wins", "a_data_b_data_trome.json", "trome"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutletFromFilename(tt.file, DefaultDelimiter))
		})
	}
}

func TestCompileGroupsByISOWeekAcrossSources(t *testing.T) {
	res := compile(t, Options{}, map[string]string{
		"2023w1_data_elcomercio.json":  elcomercio,
		"2023w1_data_larepublica.json": larepublica,
	})

	require.Empty(t, res.Drops)
	assert.Equal(t, []record.Bucket{{Year: 2023, Week: 1}, {Year: 2023, Week: 2}}, res.Buckets())

	week1, ok := res.Tables["data_raw-(2023, 1)"]
	require.True(t, ok)
	require.Len(t, week1.Records, 3)
	assert.Equal(t, "1001", week1.Records[0].ID)
	assert.Equal(t, "1002", week1.Records[1].ID)
	assert.Equal(t, "2001", week1.Records[2].ID)

	week2, ok := res.Table(record.Bucket{Year: 2023, Week: 2})
	require.True(t, ok)
	require.Len(t, week2.Records, 1)
	assert.Equal(t, "elcomercio", week2.Records[0].Outlet)
}

func TestCompileFlattensAndTypesRecords(t *testing.T) {
	res := compile(t, Options{}, map[string]string{
		"2023w1_data_elcomercio.json":  elcomercio,
		"2023w1_data_larepublica.json": larepublica,
	})
	week1, _ := res.Table(record.Bucket{Year: 2023, Week: 1})
	first := week1.Records[0]

	assert.Equal(t, "Lima & Callao", first.Text)
	assert.Equal(t, time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC), first.CreatedAt)
	require.NotNil(t, first.RetweetCount)
	assert.EqualValues(t, 3, *first.RetweetCount)
	assert.EqualValues(t, 10, *first.LikeCount)
	assert.Nil(t, first.ImpressionCount)
	assert.Equal(t, "es", first.Extra["lang"])

	assert.True(t, week1.HasColumn("retweet_count"))
	assert.False(t, week1.HasColumn("public_metrics.retweet_count"))
	assert.True(t, week1.HasColumn(record.ColumnOutlet))
	assert.True(t, week1.HasColumn(record.ColumnText))

	assert.Equal(t, []record.Reference{{Type: "quoted", ID: "900"}}, week1.Records[1].ReferencedTweets)

	other := week1.Records[2]
	assert.True(t, other.PossiblySensitive)
	assert.Nil(t, other.LikeCount, "negative counters are treated as absent")
}

func TestCompileKeepsEntitiesWhenAsked(t *testing.T) {
	res := compile(t, Options{KeepHTMLEntities: true}, map[string]string{
		"2023w1_data_elcomercio.json": elcomercio,
	})
	week1, _ := res.Table(record.Bucket{Year: 2023, Week: 1})
	assert.Equal(t, "Lima &amp; Callao", week1.Records[0].Text)
}

func TestCompileSkipsBadPayloads(t *testing.T) {
	res := compile(t, Options{}, map[string]string{
		"2023w1_data_elcomercio.json": elcomercio,
		"2023w1_data_peru21.json":     `{"meta": {"result_count": 0}}`,
		"2023w1_data_trome.json":      `{"data": [`,
	})

	assert.Equal(t, 3, res.RecordCount())
	require.Len(t, res.Drops, 2)
	assert.Equal(t, ReasonMissingData, res.Drops[0].Reason)
	assert.Equal(t, "2023w1_data_peru21.json", res.Drops[0].Source)
	assert.Equal(t, ReasonInvalidPayload, res.Drops[1].Reason)
	assert.Equal(t, "2023w1_data_trome.json", res.Drops[1].Source)
}

func TestCompileDropsInvalidRecords(t *testing.T) {
	res := compile(t, Options{}, map[string]string{
		"2023w1_data_elcomercio.json": `{"data": [
			{"id": "1", "created_at": "2023-01-02T10:00:00Z", "text": "ok"},
			{"created_at": "2023-01-02T10:00:00Z", "text": "no id"},
			{"id": "3", "text": "no timestamp"},
			{"id": "4", "created_at": "yesterday-ish", "text": "bad timestamp"},
			{"id": "5", "created_at": "2023-01-02T10:00:00Z"},
			{"id": "1", "created_at": "2023-01-03T10:00:00Z", "text": "dup"},
			"not an object"
		]}`,
	})

	assert.Equal(t, 1, res.RecordCount())
	reasons := make(map[string]int)
	for _, d := range res.Drops {
		assert.Equal(t, Stage, d.Stage)
		reasons[d.Reason]++
	}
	assert.Equal(t, map[string]int{
		ReasonMissingField:     3,
		ReasonInvalidTimestamp: 1,
		ReasonDuplicateID:      1,
		ReasonInvalidRecord:    1,
	}, reasons)
}

func TestCompileDuplicateIDsInDifferentWeeksAreKept(t *testing.T) {
	res := compile(t, Options{}, map[string]string{
		"a_data_elcomercio.json": `{"data": [
			{"id": "1", "created_at": "2023-01-02T10:00:00Z", "text": "w1"},
			{"id": "1", "created_at": "2023-01-10T10:00:00Z", "text": "w2"}
		]}`,
	})
	assert.Empty(t, res.Drops)
	assert.Len(t, res.Tables, 2)
}

func TestCompileDateparseFallback(t *testing.T) {
	res := compile(t, Options{}, map[string]string{
		"a_data_elcomercio.json": `{"data": [
			{"id": "1", "created_at": "2023-01-02 10:00:00", "text": "loose format"}
		]}`,
	})
	require.Empty(t, res.Drops)
	table, ok := res.Table(record.Bucket{Year: 2023, Week: 1})
	require.True(t, ok)
	assert.Equal(t, time.Date(2023, 1, 2, 10, 0, 0, 0, time.UTC), table.Records[0].CreatedAt)
}

func TestCompileUnknownOutlet(t *testing.T) {
	res := compile(t, Options{Outlets: []string{"larepublica"}}, map[string]string{
		"2023w1_data_elcomercio.json":  elcomercio,
		"2023w1_data_larepublica.json": larepublica,
	})
	assert.Equal(t, 1, res.RecordCount())
	require.Len(t, res.Drops, 1)
	assert.Equal(t, ReasonUnknownOutlet, res.Drops[0].Reason)
}

func TestCompileLoaderErrorSkipsSource(t *testing.T) {
	sources := map[string]Loader{
		"x_data_elcomercio.json": func() ([]byte, error) { return nil, errors.New("disk gone") },
	}
	res, err := New(Options{}).Compile(context.Background(), sources)
	require.NoError(t, err)
	require.Len(t, res.Drops, 1)
	assert.Equal(t, ReasonInvalidPayload, res.Drops[0].Reason)
}

func TestCompileHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Compile(ctx, StaticSources(map[string][]byte{"a.json": []byte(elcomercio)}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2023w1_data_elcomercio.json"), []byte(elcomercio), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	sources, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, sources, 1)

	res, err := New(Options{}).Compile(context.Background(), sources)
	require.NoError(t, err)
	assert.Equal(t, 3, res.RecordCount())

	_, err = LoadDir(t.TempDir())
	assert.Error(t, err)
}
