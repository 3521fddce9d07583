package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/eda"
	"github.com/cognicore/newsdtm/pkg/newsdtm/ingest"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/normalize"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/relevance"
)

// RulesVersion is the newest rules file format this build understands.
const RulesVersion = 1

// Rules is the pipeline rules file. Lists left out of the file keep their
// defaults; an explicit empty list disables the step.
type Rules struct {
	Version         int            `yaml:"version"`
	Outlets         []string       `yaml:"outlets"`
	SourceDelimiter string         `yaml:"source_delimiter"`
	Relevance       RelevanceRules `yaml:"relevance"`
	Normalize       NormalizeRules `yaml:"normalize"`
	DTM             DTMRules       `yaml:"dtm"`
	EDA             EDARules       `yaml:"eda"`
}

// RelevanceRules configures the noise filter.
type RelevanceRules struct {
	TextField string   `yaml:"text_field"`
	Patterns  []string `yaml:"patterns"`
}

// NormalizeRules configures text cleaning.
type NormalizeRules struct {
	Phrases  []string `yaml:"phrases"`
	Prefixes []string `yaml:"prefixes"`
	Suffixes []string `yaml:"suffixes"`
}

// DTMRules configures matrix aggregation.
type DTMRules struct {
	FillPolicy string `yaml:"fill_policy"`
}

// EDARules configures the exploratory reports.
type EDARules struct {
	TopN int `yaml:"top_n"`
}

// DefaultRules returns the built-in Spanish rules.
func DefaultRules() Rules {
	return Rules{
		Version:         RulesVersion,
		SourceDelimiter: ingest.DefaultDelimiter,
		Relevance: RelevanceRules{
			TextField: record.ColumnText,
			Patterns:  append([]string(nil), relevance.DefaultPatterns...),
		},
		Normalize: NormalizeRules{
			Phrases:  append([]string(nil), normalize.DefaultPhrases...),
			Prefixes: append([]string(nil), normalize.DefaultPrefixes...),
			Suffixes: append([]string(nil), normalize.DefaultSuffixes...),
		},
		DTM: DTMRules{FillPolicy: string(dtm.FillOmit)},
		EDA: EDARules{TopN: eda.DefaultTopN},
	}
}

// LoadRules reads a rules file on top of DefaultRules.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRules(data)
}

// ParseRules decodes rules YAML. Unknown keys are rejected.
func ParseRules(data []byte) (*Rules, error) {
	rules := DefaultRules()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: rules: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &rules, nil
}

// Validate checks values that cannot be caught by decoding.
func (r Rules) Validate() error {
	if r.Version < 1 || r.Version > RulesVersion {
		return fmt.Errorf("%w: unsupported rules version %d", internalerr.ErrInvalidConfig, r.Version)
	}
	if _, err := dtm.ParseFillPolicy(r.DTM.FillPolicy); err != nil {
		return err
	}
	if r.EDA.TopN < 0 {
		return fmt.Errorf("%w: eda.top_n must not be negative", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, fmt.Errorf("%w: stoplist: %v", internalerr.ErrInvalidConfig, err)
	}

	return &sl, nil
}
