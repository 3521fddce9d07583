// Package lexmodel is a rule-based lemma.Model: a rune tokenizer, a stopword
// list and a form→lemma lexicon. It needs no external service.
package lexmodel

import (
	"context"
	"strings"
	"unicode"

	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lexicon"
	"github.com/cognicore/newsdtm/pkg/newsdtm/stoplist"
)

// Model tokenizes and lemmatizes text. It holds no mutable state after New.
type Model struct {
	stops *stoplist.Manager
	lex   *lexicon.Lexicon
}

// New creates a model. A nil stoplist or lexicon disables that step.
func New(stops *stoplist.Manager, lex *lexicon.Lexicon) *Model {
	if stops == nil {
		stops = stoplist.NewManager(nil)
	}
	if lex == nil {
		lex = lexicon.New()
	}
	return &Model{stops: stops, lex: lex}
}

// Default returns a model with the built-in Spanish stopwords and no
// lexicon.
func Default() *Model {
	return New(stoplist.NewManager(SpanishStopwords), nil)
}

var _ lemma.Model = (*Model)(nil)

// Analyze splits text into word, whitespace and punctuation tokens in order.
// Words are runs of letters, marks, digits, hyphens and underscores; each
// other rune is a token of its own, and whitespace runs collapse into one
// space token.
func (m *Model) Analyze(ctx context.Context, text string) ([]lemma.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tokens []lemma.Token
	var word, space strings.Builder

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, m.wordToken(word.String()))
			word.Reset()
		}
	}
	flushSpace := func() {
		if space.Len() > 0 {
			tokens = append(tokens, lemma.Token{Text: space.String(), IsSpace: true})
			space.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isWordRune(r):
			flushSpace()
			word.WriteRune(r)
		case unicode.IsSpace(r):
			flushWord()
			space.WriteRune(r)
		default:
			flushWord()
			flushSpace()
			tokens = append(tokens, lemma.Token{Text: string(r), Lemma: string(r), IsPunct: true})
		}
	}
	flushWord()
	flushSpace()
	return tokens, nil
}

func (m *Model) wordToken(surface string) lemma.Token {
	clean := strings.Trim(surface, "-_")
	if clean == "" {
		return lemma.Token{Text: surface, Lemma: surface, IsPunct: true}
	}
	lower := strings.ToLower(clean)
	return lemma.Token{
		Text:   clean,
		Lemma:  m.lex.Lemma(lower),
		IsStop: m.stops.IsStop(lower),
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) || r == '-' || r == '_'
}
