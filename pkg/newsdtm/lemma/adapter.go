// Package lemma wraps a linguistic model that splits corpus text into
// classified tokens, and applies the filtering and exclusion policy that
// turns corpus entries into tokenized documents.
package lemma

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/newsdtm/pkg/newsdtm/observability"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage names the adapter in drops; StageDataDTM is its artifact stage.
const (
	Stage        = "lemma"
	StageDataDTM = "data_dtm"
)

// Drop reasons reported by the adapter.
const (
	ReasonEmptyCorpus = "empty_corpus"
	ReasonEmptyTokens = "empty_tokens"
	ReasonModelError  = "model_error"
)

// DefaultWorkers bounds concurrent model calls when Options.Workers is unset.
const DefaultWorkers = 4

// Token is one unit returned by a Model.
type Token struct {
	Text    string `json:"text"`
	Lemma   string `json:"lemma"`
	IsPunct bool   `json:"is_punct"`
	IsStop  bool   `json:"is_stop"`
	IsSpace bool   `json:"is_space"`
}

// Model analyzes one text. Implementations must be safe for concurrent use.
type Model interface {
	Analyze(ctx context.Context, text string) ([]Token, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, text string) ([]Token, error)

// Analyze calls f.
func (f ModelFunc) Analyze(ctx context.Context, text string) ([]Token, error) {
	return f(ctx, text)
}

// Options configures an Adapter.
type Options struct {
	Workers int
	// Name labels model latency metrics.
	Name   string
	Logger *zerolog.Logger
}

// Adapter runs a Model over corpus entries.
type Adapter struct {
	model   Model
	workers int
	name    string
	logger  zerolog.Logger
}

// NewAdapter creates an adapter around model.
func NewAdapter(model Model, opts Options) *Adapter {
	a := &Adapter{model: model, workers: opts.Workers, name: opts.Name, logger: zerolog.Nop()}
	if a.workers <= 0 {
		a.workers = DefaultWorkers
	}
	if a.name == "" {
		a.name = "lemma"
	}
	if opts.Logger != nil {
		a.logger = opts.Logger.With().Str("stage", Stage).Logger()
	}
	return a
}

type analysis struct {
	tokens []Token
	err    error
}

// Tokenize analyzes every entry with a non-empty corpus, in parallel, and
// returns the surviving documents in input order. Entries with an empty
// corpus, entries whose filtered token list is empty and entries whose
// model call failed are reported as drops. A cancelled context aborts the
// whole batch.
func (a *Adapter) Tokenize(ctx context.Context, entries []record.CorpusEntry) ([]record.TokenizedDoc, []record.Drop, error) {
	results := make([]analysis, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, entry := range entries {
		if entry.Corpus == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			tokens, err := a.model.Analyze(gctx, entry.Corpus)
			observability.ModelCallDuration.WithLabelValues(a.name).Observe(time.Since(start).Seconds())
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i].err = err
				return nil
			}
			results[i].tokens = tokens
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	docs := make([]record.TokenizedDoc, 0, len(entries))
	var drops []record.Drop
	for i, entry := range entries {
		switch {
		case entry.Corpus == "":
			drops = append(drops, record.Drop{Stage: Stage, Reason: ReasonEmptyCorpus, ID: entry.ID})
			continue
		case results[i].err != nil:
			a.logger.Warn().Err(results[i].err).Str("id", entry.ID).Msg("model call failed")
			drops = append(drops, record.Drop{Stage: Stage, Reason: ReasonModelError, ID: entry.ID, Detail: results[i].err.Error()})
			continue
		}

		tokens, lemmas := Filter(results[i].tokens)
		if len(tokens) == 0 {
			drops = append(drops, record.Drop{Stage: Stage, Reason: ReasonEmptyTokens, ID: entry.ID})
			continue
		}
		docs = append(docs, record.TokenizedDoc{CorpusEntry: entry, Tokens: tokens, Lemmas: lemmas})
	}

	observability.ObserveDrops(drops)
	observability.DocumentsTokenized.Add(float64(len(docs)))
	a.logger.Info().
		Int("entries", len(entries)).
		Int("documents", len(docs)).
		Int("dropped", len(drops)).
		Msg("corpus tokenized")
	return docs, drops, nil
}

// Filter drops punctuation, stopword and whitespace tokens and returns the
// surface forms and lemmas of the rest. A token without a lemma falls back
// to its lowercased surface form.
func Filter(tokens []Token) (surface, lemmas []string) {
	for _, t := range tokens {
		if t.IsPunct || t.IsStop || t.IsSpace || strings.TrimSpace(t.Text) == "" {
			continue
		}
		l := t.Lemma
		if l == "" {
			l = strings.ToLower(t.Text)
		}
		surface = append(surface, t.Text)
		lemmas = append(lemmas, l)
	}
	return surface, lemmas
}
