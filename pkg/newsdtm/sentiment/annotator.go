// Package sentiment annotates corpus entries with sentiment and emotion
// predictions from external classifiers.
package sentiment

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/newsdtm/pkg/newsdtm/observability"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage names the annotator in drops; StageEmotion is its artifact stage.
const (
	Stage        = "sentiment"
	StageEmotion = "corpus_emotion"
)

// Drop reasons reported by the annotator.
const (
	ReasonEmptyCorpus     = "empty_corpus"
	ReasonClassifierError = "classifier_error"
)

// Label sets of the two classifiers.
var (
	SentimentLabels = []string{"NEG", "NEU", "POS"}
	EmotionLabels   = []string{"others", "joy", "surprise", "sadness", "fear", "anger", "disgust"}
)

// Prediction is a classifier output: the winning label and the probability
// of every label.
type Prediction struct {
	Label  string             `json:"output"`
	Probas map[string]float64 `json:"probas"`
}

// Classifier predicts a label for one text. Implementations must be safe
// for concurrent use.
type Classifier interface {
	Predict(ctx context.Context, text string) (Prediction, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

// Predict calls f.
func (f ClassifierFunc) Predict(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// Annotated is a corpus entry with both predictions. Probability maps carry
// every label of their set; labels the classifier did not return are 0.
type Annotated struct {
	record.CorpusEntry
	YearWeek        string             `json:"year_week"`
	Sentiment       string             `json:"sentiment_output"`
	SentimentProbas map[string]float64 `json:"sentiment_probas"`
	Emotion         string             `json:"emotion_output"`
	EmotionProbas   map[string]float64 `json:"emotion_probas"`
}

// Options configures an Annotator.
type Options struct {
	Workers int
	Logger  *zerolog.Logger
}

// Annotator runs both classifiers over corpus entries.
type Annotator struct {
	sentiment Classifier
	emotion   Classifier
	workers   int
	logger    zerolog.Logger
}

// NewAnnotator creates an annotator.
func NewAnnotator(sentiment, emotion Classifier, opts Options) *Annotator {
	a := &Annotator{sentiment: sentiment, emotion: emotion, workers: opts.Workers, logger: zerolog.Nop()}
	if a.workers <= 0 {
		a.workers = 4
	}
	if opts.Logger != nil {
		a.logger = opts.Logger.With().Str("stage", Stage).Logger()
	}
	return a
}

type outcome struct {
	sentiment Prediction
	emotion   Prediction
	err       error
}

// Annotate classifies every entry with a non-empty corpus and returns the
// results in input order. A failure of either classifier drops the entry;
// a cancelled context aborts the batch.
func (a *Annotator) Annotate(ctx context.Context, entries []record.CorpusEntry) ([]Annotated, []record.Drop, error) {
	results := make([]outcome, len(entries))

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
			s, err := a.predict(gctx, "sentiment", a.sentiment, entry.Corpus)
			if err == nil {
				results[i].sentiment = s
				results[i].emotion, err = a.predict(gctx, "emotion", a.emotion, entry.Corpus)
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				results[i].err = err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	out := make([]Annotated, 0, len(entries))
	var drops []record.Drop
	for i, entry := range entries {
		if entry.Corpus == "" {
			drops = append(drops, record.Drop{Stage: Stage, Reason: ReasonEmptyCorpus, ID: entry.ID})
			continue
		}
		if err := results[i].err; err != nil {
			a.logger.Warn().Err(err).Str("id", entry.ID).Msg("classification failed")
			drops = append(drops, record.Drop{Stage: Stage, Reason: ReasonClassifierError, ID: entry.ID, Detail: err.Error()})
			continue
		}
		b := entry.Bucket()
		out = append(out, Annotated{
			CorpusEntry:     entry,
			YearWeek:        fmt.Sprintf("%dw%d", b.Year, b.Week),
			Sentiment:       results[i].sentiment.Label,
			SentimentProbas: complete(results[i].sentiment.Probas, SentimentLabels),
			Emotion:         results[i].emotion.Label,
			EmotionProbas:   complete(results[i].emotion.Probas, EmotionLabels),
		})
	}

	observability.ObserveDrops(drops)
	a.logger.Info().Int("annotated", len(out)).Int("dropped", len(drops)).Msg("sentiment and emotion annotated")
	return out, drops, nil
}

func (a *Annotator) predict(ctx context.Context, model string, c Classifier, text string) (Prediction, error) {
	start := time.Now()
	p, err := c.Predict(ctx, text)
	observability.ModelCallDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
	if err != nil {
		return Prediction{}, fmt.Errorf("%s: %w", model, err)
	}
	return p, nil
}

func complete(probas map[string]float64, labels []string) map[string]float64 {
	out := make(map[string]float64, len(labels))
	for _, l := range labels {
		out[l] = probas[l]
	}
	return out
}
