package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon maps inflected word forms to their lemma:
// - Forms: surface variants (gatos, gata, gatas → gato)
// - Irregulars: verb forms that share no stem (fue, era → ser)
//
// It is read-only after loading and safe for concurrent lookups.
type Lexicon struct {
	// lemma -> all forms (including the lemma itself)
	// Example: "gato" -> ["gato", "gatos", "gata", "gatas"]
	forms map[string][]string

	// form -> lemma
	// Example: "gatas" -> "gato"
	reverseIndex map[string]string
}

// New creates an empty lexicon.
func New() *Lexicon {
	return &Lexicon{
		forms:        make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// LoadFromYAML loads lemma groups from a YAML file.
//
// Expected format:
//
//	lemmas:
//	  - lemma: gato
//	    forms: [gatos, gata, gatas]
//	  - lemma: ser
//	    forms: [es, son, fue, era]
//
// All entries are lowercased; the lemma is included in its own form list.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes lexicon YAML.
func Parse(data []byte) (*Lexicon, error) {
	var config struct {
		Lemmas []struct {
			Lemma string   `yaml:"lemma"`
			Forms []string `yaml:"forms"`
		} `yaml:"lemmas"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := New()
	for _, entry := range config.Lemmas {
		if strings.TrimSpace(entry.Lemma) == "" {
			return nil, fmt.Errorf("parse lexicon: entry with empty lemma")
		}
		lex.AddLemmaGroup(entry.Lemma, entry.Forms)
	}
	return lex, nil
}

// AddLemmaGroup registers forms under lemma. Re-adding a lemma replaces its
// previous forms. A form already claimed by another lemma is moved.
func (l *Lexicon) AddLemmaGroup(lemma string, forms []string) {
	lemma = strings.ToLower(strings.TrimSpace(lemma))

	if old, exists := l.forms[lemma]; exists {
		for _, f := range old {
			if l.reverseIndex[f] == lemma {
				delete(l.reverseIndex, f)
			}
		}
	}

	normalized := make([]string, 0, len(forms)+1)
	seen := map[string]bool{lemma: true}
	normalized = append(normalized, lemma)
	for _, f := range forms {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		normalized = append(normalized, f)
	}

	l.forms[lemma] = normalized
	for _, f := range normalized {
		l.reverseIndex[f] = lemma
	}
}

// Lemma returns the lemma of a form, or the lowercased form itself when it
// is unknown.
//
// Examples:
//   - Lemma("Gatas") -> "gato"
//   - Lemma("congreso") -> "congreso"
func (l *Lexicon) Lemma(form string) string {
	form = strings.ToLower(form)
	if lemma, ok := l.reverseIndex[form]; ok {
		return lemma
	}
	return form
}

// Known reports whether the form is registered.
func (l *Lexicon) Known(form string) bool {
	_, ok := l.reverseIndex[strings.ToLower(form)]
	return ok
}

// Forms returns every registered form of a lemma or of one of its forms.
func (l *Lexicon) Forms(token string) []string {
	token = strings.ToLower(token)
	if forms, ok := l.forms[token]; ok {
		return forms
	}
	if lemma, ok := l.reverseIndex[token]; ok {
		return l.forms[lemma]
	}
	return []string{token}
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() LexiconStats {
	total := 0
	for _, forms := range l.forms {
		total += len(forms)
	}
	return LexiconStats{Lemmas: len(l.forms), Forms: total}
}

// LexiconStats holds statistics about lexicon contents.
type LexiconStats struct {
	Lemmas int // Number of lemma groups
	Forms  int // Total number of forms across all groups
}
