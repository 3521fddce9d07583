// Package relevance removes recurring non-news boilerplate (horoscopes,
// cover-page announcements, greetings) before text normalization.
package relevance

import (
	"fmt"
	"regexp"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/observability"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage names the filter in drops.
const Stage = "relevance"

// ReasonPattern is the drop reason for rows removed by a noise pattern.
const ReasonPattern = "noise_pattern"

// DefaultPatterns is the shipped Spanish noise list, checked in order.
var DefaultPatterns = []string{
	"horóscopo diario",
	"horóscopo de",
	"horóscopo hoy",
	"horóscopo y tarot",
	"horóscopo",
	"Buenos días",
	"caricatura de",
	"las caricaturas de",
	"portada impresa",
	"portada de hoy",
	"en portada",
	"trome gol",
	"no te pierdas las chiquitas de hoy",
	"esta es la portada",
	"Aquí la portada del",
	"yapaza",
}

// Options configures a Filter.
type Options struct {
	// TextField names the column the filter reads; defaults to "text".
	TextField string
	Logger    *zerolog.Logger
}

// Filter drops rows whose text matches any configured pattern.
// It is immutable after New and safe for concurrent use.
type Filter struct {
	patterns  []string
	compiled  []*regexp.Regexp
	textField string
	logger    zerolog.Logger
}

// New compiles patterns case-insensitively. Patterns are regular
// expressions; an invalid one is a configuration error.
func New(patterns []string, opts Options) (*Filter, error) {
	f := &Filter{
		patterns:  append([]string(nil), patterns...),
		compiled:  make([]*regexp.Regexp, 0, len(patterns)),
		textField: opts.TextField,
		logger:    zerolog.Nop(),
	}
	if f.textField == "" {
		f.textField = record.ColumnText
	}
	if opts.Logger != nil {
		f.logger = opts.Logger.With().Str("stage", Stage).Logger()
	}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + norm.NFC.String(p))
		if err != nil {
			return nil, fmt.Errorf("%w: relevance pattern %q: %v", internalerr.ErrInvalidConfig, p, err)
		}
		f.compiled = append(f.compiled, re)
	}
	return f, nil
}

// Patterns returns the configured pattern list in order.
func (f *Filter) Patterns() []string {
	return append([]string(nil), f.patterns...)
}

// Match returns the first pattern matching text, if any.
func (f *Filter) Match(text string) (string, bool) {
	text = norm.NFC.String(text)
	for i, re := range f.compiled {
		if re.MatchString(text) {
			return f.patterns[i], true
		}
	}
	return "", false
}

// Apply returns a new table holding only the rows that match no pattern,
// in their original order, plus one drop per removed row.
func (f *Filter) Apply(table *record.Table) (*record.Table, []record.Drop, error) {
	if !table.HasColumn(f.textField) {
		return nil, nil, fmt.Errorf("%w: %q in table %s", internalerr.ErrMissingColumn, f.textField, table.Bucket)
	}

	out := table.Derive()
	out.Records = make([]record.Record, 0, len(table.Records))
	var drops []record.Drop
	for _, rec := range table.Records {
		if pattern, hit := f.Match(fieldText(rec, f.textField)); hit {
			drops = append(drops, record.Drop{Stage: Stage, Reason: ReasonPattern, ID: rec.ID, Detail: pattern})
			continue
		}
		out.Records = append(out.Records, rec)
	}

	observability.ObserveDrops(drops)
	f.logger.Info().
		Str("bucket", table.Bucket.String()).
		Int("kept", len(out.Records)).
		Int("dropped", len(drops)).
		Msg("relevance filter applied")
	return out, drops, nil
}

func fieldText(rec record.Record, field string) string {
	if field == record.ColumnText {
		return rec.Text
	}
	if s, ok := rec.Extra[field].(string); ok {
		return s
	}
	return ""
}
