// Package newsdtm turns weekly dumps of news-outlet posts into cleaned
// corpora, document-term matrices and exploratory tables.
package newsdtm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/newsdtm/pkg/newsdtm/artifact"
	"github.com/cognicore/newsdtm/pkg/newsdtm/corpus"
	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/eda"
	"github.com/cognicore/newsdtm/pkg/newsdtm/ingest"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma"
	"github.com/cognicore/newsdtm/pkg/newsdtm/normalize"
	"github.com/cognicore/newsdtm/pkg/newsdtm/observability"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/relevance"
	"github.com/cognicore/newsdtm/pkg/newsdtm/sentiment"
	"github.com/cognicore/newsdtm/pkg/newsdtm/stoplist"
	"github.com/cognicore/newsdtm/pkg/newsdtm/store"
)

// Options configures a Pipeline. Filter, Normalizer and Model are required;
// every other collaborator is optional.
type Options struct {
	Ingest     ingest.Options
	Filter     *relevance.Filter
	Normalizer *normalize.Normalizer
	Model      lemma.Model
	ModelName  string
	Workers    int

	FillPolicy dtm.FillPolicy
	TopN       int

	// Annotator adds sentiment and emotion labels when set.
	Annotator *sentiment.Annotator
	// Stoplist seeds stopword suggestions; nil skips them.
	Stoplist   *stoplist.Manager
	Thresholds stoplist.Thresholds

	Sink         artifact.Sink
	Store        store.Store
	RulesVersion int

	Logger *zerolog.Logger
}

// Pipeline runs every stage for every bucket of an input set.
type Pipeline struct {
	ingestor   *ingest.Ingestor
	filter     *relevance.Filter
	normalizer *normalize.Normalizer
	adapter    *lemma.Adapter
	annotator  *sentiment.Annotator
	stoplist   *stoplist.Manager
	thresholds stoplist.Thresholds
	policy     dtm.FillPolicy
	topN       int
	writer     *artifact.Writer
	store      store.Store
	rules      int
	logger     zerolog.Logger
}

// New validates opts and builds a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Filter == nil || opts.Normalizer == nil || opts.Model == nil {
		return nil, fmt.Errorf("%w: filter, normalizer and model are required", internalerr.ErrInvalidConfig)
	}
	policy, err := dtm.ParseFillPolicy(string(opts.FillPolicy))
	if err != nil {
		return nil, err
	}
	p := &Pipeline{
		filter:     opts.Filter,
		normalizer: opts.Normalizer,
		annotator:  opts.Annotator,
		stoplist:   opts.Stoplist,
		thresholds: opts.Thresholds,
		policy:     policy,
		topN:       opts.TopN,
		store:      opts.Store,
		rules:      opts.RulesVersion,
		logger:     zerolog.Nop(),
	}
	if opts.Logger != nil {
		p.logger = *opts.Logger
	}
	if p.thresholds == (stoplist.Thresholds{}) {
		p.thresholds = stoplist.DefaultThresholds()
	}
	if opts.Ingest.Logger == nil {
		opts.Ingest.Logger = opts.Logger
	}
	p.ingestor = ingest.New(opts.Ingest)
	p.adapter = lemma.NewAdapter(opts.Model, lemma.Options{Workers: opts.Workers, Name: opts.ModelName, Logger: opts.Logger})
	if opts.Sink != nil {
		p.writer = artifact.NewWriter(opts.Sink)
	}
	return p, nil
}

// Close releases the store.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

// BucketResult holds every stage output of one bucket.
type BucketResult struct {
	Bucket      record.Bucket
	Raw         *record.Table
	Relevant    *record.Table
	Clean       *record.CleanTable
	Corpus      *corpus.Corpus
	Docs        []record.TokenizedDoc
	Matrix      *dtm.Matrix
	Outlet      *dtm.OutletMatrix
	Summary     []eda.OutletStats
	TopTerms    []eda.TopTerm
	UniqueWords []eda.UniqueWords
	Annotated   []sentiment.Annotated
	Drops       []record.Drop
}

// Report summarizes a run.
type Report struct {
	RunID              string
	Buckets            []*BucketResult
	Drops              []record.Drop
	StopwordCandidates []stoplist.Candidate
	Artifacts          []string
}

// Documents counts the matrix rows over all buckets.
func (r *Report) Documents() int {
	n := 0
	for _, b := range r.Buckets {
		rows, _ := b.Matrix.Shape()
		n += rows
	}
	return n
}

// Run ingests sources and processes every bucket in chronological order.
// Per-record problems become drops; configuration problems and context
// cancellation abort the run.
func (p *Pipeline) Run(ctx context.Context, sources map[string]ingest.Loader) (*Report, error) {
	report := &Report{RunID: store.NewRunID()}
	started := time.Now()
	log := p.logger.With().Str("run", report.RunID).Logger()

	if p.store != nil {
		if err := p.store.CreateRun(ctx, store.Run{ID: report.RunID, RulesVersion: p.rules, StartedAt: started}); err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	t0 := time.Now()
	res, err := p.ingestor.Compile(ctx, sources)
	if err != nil {
		return nil, err
	}
	observability.ObserveStage(ingest.Stage, t0)
	report.Drops = append(report.Drops, res.Drops...)

	analyzer := eda.NewAnalyzer()
	for _, b := range res.Buckets() {
		table, _ := res.Table(b)
		br, err := p.ProcessBucket(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", b, err)
		}
		report.Buckets = append(report.Buckets, br)
		report.Drops = append(report.Drops, br.Drops...)
		analyzer.ProcessDocs(br.Docs)

		names, err := p.persist(ctx, report.RunID, br)
		if err != nil {
			return nil, fmt.Errorf("bucket %s: %w", b, err)
		}
		report.Artifacts = append(report.Artifacts, names...)
	}

	if p.stoplist != nil {
		report.StopwordCandidates = analyzer.SuggestStopwords(p.stoplist, p.thresholds)
	}

	if p.store != nil {
		if err := p.store.SaveDrops(ctx, report.RunID, report.Drops); err != nil {
			return nil, fmt.Errorf("save drops: %w", err)
		}
		run := store.Run{
			ID:         report.RunID,
			FinishedAt: time.Now(),
			Buckets:    len(report.Buckets),
			Records:    res.RecordCount(),
			Documents:  report.Documents(),
			Dropped:    len(report.Drops),
		}
		if err := p.store.FinishRun(ctx, run); err != nil {
			return nil, fmt.Errorf("finish run: %w", err)
		}
	}

	log.Info().
		Int("buckets", len(report.Buckets)).
		Int("records", res.RecordCount()).
		Int("documents", report.Documents()).
		Int("drops", len(report.Drops)).
		Dur("elapsed", time.Since(started)).
		Msg("run complete")
	return report, nil
}

// ProcessBucket runs the stages after ingest over one bucket table.
func (p *Pipeline) ProcessBucket(ctx context.Context, table *record.Table) (*BucketResult, error) {
	br := &BucketResult{Bucket: table.Bucket, Raw: table}

	t0 := time.Now()
	relevant, drops, err := p.filter.Apply(table)
	if err != nil {
		return nil, err
	}
	observability.ObserveStage(relevance.Stage, t0)
	br.Relevant = relevant
	br.Drops = append(br.Drops, drops...)

	t0 = time.Now()
	if br.Clean, err = p.normalizer.Apply(relevant); err != nil {
		return nil, err
	}
	observability.ObserveStage(normalize.Stage, t0)

	br.Corpus = corpus.Extract(br.Clean)

	t0 = time.Now()
	docs, drops, err := p.adapter.Tokenize(ctx, br.Corpus.Entries)
	if err != nil {
		return nil, err
	}
	observability.ObserveStage(lemma.Stage, t0)
	br.Docs = docs
	br.Drops = append(br.Drops, drops...)

	t0 = time.Now()
	if br.Matrix, err = dtm.Build(docs); err != nil {
		return nil, err
	}
	if br.Outlet, err = dtm.AggregateByOutlet(br.Matrix, br.Corpus.Entries, p.policy); err != nil {
		return nil, err
	}
	observability.ObserveStage(dtm.Stage, t0)
	observability.MatrixTerms.WithLabelValues(table.Bucket.String()).Set(float64(len(br.Matrix.Terms())))

	br.Summary = eda.Summarize(br.Clean)
	br.TopTerms = eda.TopTerms(br.Outlet, p.topN)
	br.UniqueWords = eda.CountUniqueWords(br.Outlet, br.Corpus.Entries)

	if p.annotator != nil {
		t0 = time.Now()
		annotated, drops, err := p.annotator.Annotate(ctx, br.Corpus.Entries)
		if err != nil {
			return nil, err
		}
		observability.ObserveStage(sentiment.Stage, t0)
		br.Annotated = annotated
		br.Drops = append(br.Drops, drops...)
	}

	rows, cols := br.Matrix.Shape()
	p.logger.Info().
		Str("bucket", table.Bucket.String()).
		Int("records", len(table.Records)).
		Int("relevant", len(relevant.Records)).
		Int("documents", rows).
		Int("terms", cols).
		Int("outlet_columns", len(br.Outlet.Groups())).
		Msg("bucket processed")
	return br, nil
}

// persist writes artifacts and store rows for one bucket.
func (p *Pipeline) persist(ctx context.Context, runID string, br *BucketResult) ([]string, error) {
	var names []string
	if p.writer != nil {
		b := br.Bucket
		jsonOut := []struct {
			stage string
			v     any
		}{
			{ingest.StageRaw, br.Raw.Records},
			{normalize.StageClean, br.Clean.Records},
			{corpus.Stage, br.Corpus.Entries},
			{lemma.StageDataDTM, br.Docs},
			{eda.StageStatsSummary, br.Summary},
			{eda.StageTopTerms, br.TopTerms},
			{eda.StageUniqueWords, br.UniqueWords},
		}
		if p.annotator != nil {
			jsonOut = append(jsonOut, struct {
				stage string
				v     any
			}{sentiment.StageEmotion, br.Annotated})
		}
		for _, o := range jsonOut {
			name, err := p.writer.JSON(ctx, o.stage, b, o.v)
			if err != nil {
				return nil, fmt.Errorf("write %s: %w", o.stage, err)
			}
			names = append(names, name)
		}
		name, err := p.writer.Matrix(ctx, dtm.Stage, b, br.Matrix)
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", dtm.Stage, err)
		}
		names = append(names, name)
		if name, err = p.writer.OutletMatrix(ctx, dtm.StageOutlet, b, br.Outlet); err != nil {
			return nil, fmt.Errorf("write %s: %w", dtm.StageOutlet, err)
		}
		names = append(names, name)
	}

	if p.store != nil {
		err := errors.Join(
			p.store.SaveCleanRecords(ctx, runID, br.Bucket, br.Clean.Records),
			p.store.SaveMatrix(ctx, runID, br.Bucket, br.Matrix),
			p.store.SaveOutletMatrix(ctx, runID, br.Bucket, br.Outlet),
		)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	return names, nil
}
