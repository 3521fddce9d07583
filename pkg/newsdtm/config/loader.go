package config

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/ingest"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lemma/lexmodel"
	"github.com/cognicore/newsdtm/pkg/newsdtm/lexicon"
	"github.com/cognicore/newsdtm/pkg/newsdtm/normalize"
	"github.com/cognicore/newsdtm/pkg/newsdtm/relevance"
	"github.com/cognicore/newsdtm/pkg/newsdtm/stoplist"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	RulesPath    string
	StoplistPath string
	LexiconPath  string
	Logger       *zerolog.Logger
}

// Components holds all loaded configuration components
type Components struct {
	Rules      Rules
	Ingest     ingest.Options
	Filter     *relevance.Filter
	Normalizer *normalize.Normalizer
	Stoplist   *stoplist.Manager
	Lexicon    *lexicon.Lexicon
	Model      *lexmodel.Model
	FillPolicy dtm.FillPolicy
}

// Load reads all configuration files and returns initialized components.
// Empty paths fall back to the built-in defaults.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Rules: DefaultRules()}

	if l.RulesPath != "" {
		rules, err := LoadRules(l.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		comp.Rules = *rules
	}
	rules := comp.Rules

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		comp.Stoplist = stoplist.NewManager(sl.Terms)
	} else {
		comp.Stoplist = stoplist.NewManager(lexmodel.SpanishStopwords)
	}

	if l.LexiconPath != "" {
		lex, err := lexicon.LoadFromYAML(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}
	comp.Model = lexmodel.New(comp.Stoplist, comp.Lexicon)

	filter, err := relevance.New(rules.Relevance.Patterns, relevance.Options{
		TextField: rules.Relevance.TextField,
		Logger:    l.Logger,
	})
	if err != nil {
		return nil, err
	}
	comp.Filter = filter

	normalizer, err := normalize.New(normalize.Options{
		TextField: rules.Relevance.TextField,
		Phrases:   nonNil(rules.Normalize.Phrases),
		Prefixes:  nonNil(rules.Normalize.Prefixes),
		Suffixes:  nonNil(rules.Normalize.Suffixes),
		Logger:    l.Logger,
	})
	if err != nil {
		return nil, err
	}
	comp.Normalizer = normalizer

	comp.FillPolicy, err = dtm.ParseFillPolicy(rules.DTM.FillPolicy)
	if err != nil {
		return nil, err
	}

	comp.Ingest = ingest.Options{
		Delimiter: rules.SourceDelimiter,
		Outlets:   append([]string(nil), rules.Outlets...),
		Logger:    l.Logger,
	}
	return comp, nil
}

// nonNil keeps "disabled" distinct from "default" once rules are resolved:
// a nil list here can only come from an explicit null in the file.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
