// Package normalize turns raw post text into the clean form used for
// tokenization: numbers spelled out, links, digits, punctuation and emoji
// removed, outlet boilerplate phrases and filler fragments stripped.
package normalize

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/forPelevin/gomoji"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Stage names the normalizer in logs and artifact keys.
const (
	Stage      = "normalize"
	StageClean = "data_clean"
)

// DefaultPhrases are the Spanish boilerplate fragments removed in order.
var DefaultPhrases = []string{
	"click aquí",
	"opinión",
	"rt",
	"lee aquí el blog de",
	"vía gestionpe",
	"entrevista exclusiva",
	"en vivo",
	"entérate más aquí",
	"lee la columna de",
	"lee y comenta",
	"lea hoy la columna de",
	"escrito por",
	"lee la nota aquí",
	"una nota de",
	"aquí la nota",
	"nota completa aquí",
	"nota completa",
	"lee más",
	"lee aquí",
}

// DefaultPrefixes are artifacts removed from the start of the text.
var DefaultPrefixes = []string{"plusg"}

// DefaultSuffixes are filler fragments removed from the end of the text.
var DefaultSuffixes = []string{"lee la", "lee", "video"}

const wordClass = `\p{L}\p{M}\p{N}_`

var (
	urlPattern        = regexp.MustCompile(`http[s]?(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)
	digitWordPattern  = regexp.MustCompile(`[` + wordClass + `]*\p{Nd}[` + wordClass + `]*`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	isolatedPattern   = regexp.MustCompile(` [\p{L}\p{N}_]\p{M}* `)
)

// asciiPunctuation mirrors the classic ASCII punctuation set.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// typographic quotes, ellipsis, guillemets, inverted marks and bars
const extraSymbols = "‘’“”…«»►¿¡|│"

// Options configures a Normalizer. Nil slices select the defaults; an empty
// non-nil slice disables the step.
type Options struct {
	TextField string
	Phrases   []string
	Prefixes  []string
	Suffixes  []string
	Logger    *zerolog.Logger
}

// Normalizer cleans text. It is immutable after New and safe for
// concurrent use.
type Normalizer struct {
	textField string
	phrases   []*regexp.Regexp
	prefixes  []string
	suffix    *regexp.Regexp
	logger    zerolog.Logger
}

// New compiles the configured phrase lists.
func New(opts Options) (*Normalizer, error) {
	n := &Normalizer{textField: opts.TextField, logger: zerolog.Nop()}
	if n.textField == "" {
		n.textField = record.ColumnText
	}
	if opts.Logger != nil {
		n.logger = opts.Logger.With().Str("stage", Stage).Logger()
	}

	phrases := opts.Phrases
	if phrases == nil {
		phrases = DefaultPhrases
	}
	for _, p := range phrases {
		p = strings.TrimSpace(lower(p))
		if p == "" {
			return nil, fmt.Errorf("%w: empty normalize phrase", internalerr.ErrInvalidConfig)
		}
		re, err := regexp.Compile(`(^|[^` + wordClass + `])(?:` + regexp.QuoteMeta(p) + `)($|[^` + wordClass + `])`)
		if err != nil {
			return nil, fmt.Errorf("%w: normalize phrase %q: %v", internalerr.ErrInvalidConfig, p, err)
		}
		n.phrases = append(n.phrases, re)
	}

	prefixes := opts.Prefixes
	if prefixes == nil {
		prefixes = DefaultPrefixes
	}
	for _, p := range prefixes {
		if p = lower(p); p != "" {
			n.prefixes = append(n.prefixes, p)
		}
	}

	suffixes := opts.Suffixes
	if suffixes == nil {
		suffixes = DefaultSuffixes
	}
	if len(suffixes) > 0 {
		quoted := make([]string, 0, len(suffixes))
		for _, s := range suffixes {
			if s = strings.TrimSpace(lower(s)); s != "" {
				quoted = append(quoted, regexp.QuoteMeta(s))
			}
		}
		if len(quoted) > 0 {
			re, err := regexp.Compile(`(^|\s)(?:` + strings.Join(quoted, "|") + `)\s*$`)
			if err != nil {
				return nil, fmt.Errorf("%w: normalize suffixes: %v", internalerr.ErrInvalidConfig, err)
			}
			n.suffix = re
		}
	}
	return n, nil
}

// Normalize returns the clean form of text. Normalize(Normalize(x)) equals
// Normalize(x) for every input.
func (n *Normalizer) Normalize(text string) string {
	text = ExpandNumbers(text)
	for {
		next := n.clean(text)
		if next == text {
			return next
		}
		text = next
	}
}

func (n *Normalizer) clean(text string) string {
	text = firstPass(text)
	text = gomoji.RemoveEmojis(text)
	text = n.secondPass(text)
	return strings.TrimSpace(text)
}

func firstPass(text string) string {
	text = lower(text)
	text = urlPattern.ReplaceAllString(text, "")
	text = digitWordPattern.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(asciiPunctuation, r) || strings.ContainsRune(extraSymbols, r) {
			return -1
		}
		return r
	}, text)
	return strings.ReplaceAll(text, "\n", " ")
}

func (n *Normalizer) secondPass(text string) string {
	for _, re := range n.phrases {
		text = re.ReplaceAllString(text, "${1}${2}")
	}
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = isolatedPattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	for _, p := range n.prefixes {
		text = strings.TrimPrefix(text, p)
	}
	if n.suffix != nil {
		text = n.suffix.ReplaceAllString(text, "")
	}
	return text
}

// lower applies NFC and Spanish lowercasing. A Caser keeps state, so one is
// built per call.
func lower(s string) string {
	return cases.Lower(language.Spanish).String(norm.NFC.String(s))
}

// Apply cleans every record of the table into a new CleanTable, preserving
// order. Mentions and hashtags are taken from the raw text.
func (n *Normalizer) Apply(table *record.Table) (*record.CleanTable, error) {
	if !table.HasColumn(n.textField) {
		return nil, fmt.Errorf("%w: %q in table %s", internalerr.ErrMissingColumn, n.textField, table.Bucket)
	}

	out := &record.CleanTable{Bucket: table.Bucket, Records: make([]record.CleanRecord, 0, len(table.Records))}
	empty := 0
	for _, rec := range table.Records {
		raw := rec.Text
		if n.textField != record.ColumnText {
			raw, _ = rec.Extra[n.textField].(string)
		}
		clean := n.Normalize(raw)
		if clean == "" {
			empty++
		}
		out.Records = append(out.Records, record.CleanRecord{
			Record:    rec,
			TextClean: clean,
			Mentions:  Mentions(raw),
			Hashtags:  Hashtags(raw),
		})
	}

	n.logger.Info().
		Str("bucket", table.Bucket.String()).
		Int("records", len(out.Records)).
		Int("empty", empty).
		Msg("text normalized")
	return out, nil
}
