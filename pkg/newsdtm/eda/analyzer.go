package eda

import (
	"math"
	"sort"

	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
	"github.com/cognicore/newsdtm/pkg/newsdtm/stoplist"
)

// Analyzer aggregates document frequencies of lemmas per outlet.
type Analyzer struct {
	totalDocs int64
	lemmaDF   map[string]int64
	outletDF  map[string]map[string]int64
	outlets   map[string]struct{}
}

// NewAnalyzer creates an empty analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		lemmaDF:  make(map[string]int64),
		outletDF: make(map[string]map[string]int64),
		outlets:  make(map[string]struct{}),
	}
}

// Process consumes one document's lemmas.
func (a *Analyzer) Process(lemmas []string, outlet string) {
	a.totalDocs++
	a.outlets[outlet] = struct{}{}

	seen := make(map[string]struct{}, len(lemmas))
	for _, l := range lemmas {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		a.lemmaDF[l]++
		if a.outletDF[l] == nil {
			a.outletDF[l] = make(map[string]int64)
		}
		a.outletDF[l][outlet]++
	}
}

// ProcessDocs consumes tokenized documents.
func (a *Analyzer) ProcessDocs(docs []record.TokenizedDoc) {
	for _, d := range docs {
		a.Process(d.Lemmas, d.Outlet)
	}
}

// Stats exposes the aggregated counts.
type Stats struct {
	TotalDocs int64
	Outlets   int
	LemmaDF   map[string]int64
	OutletDF  map[string]map[string]int64
}

// Snapshot returns a copy of the accumulated statistics.
func (a *Analyzer) Snapshot() Stats {
	copyDF := make(map[string]int64, len(a.lemmaDF))
	for l, c := range a.lemmaDF {
		copyDF[l] = c
	}
	copyOutlets := make(map[string]map[string]int64, len(a.outletDF))
	for l, per := range a.outletDF {
		copyOutlets[l] = make(map[string]int64, len(per))
		for o, c := range per {
			copyOutlets[l][o] = c
		}
	}
	return Stats{TotalDocs: a.totalDocs, Outlets: len(a.outlets), LemmaDF: copyDF, OutletDF: copyOutlets}
}

// StopwordStats converts the snapshot into stoplist statistics, sorted by
// lemma.
func (s Stats) StopwordStats() []stoplist.Stats {
	if s.TotalDocs == 0 {
		return nil
	}
	out := make([]stoplist.Stats, 0, len(s.LemmaDF))
	for l, df := range s.LemmaDF {
		out = append(out, stoplist.Stats{
			Token:         l,
			DF:            df,
			DFPercent:     100 * float64(df) / float64(s.TotalDocs),
			IDF:           math.Log(float64(s.TotalDocs) / (1 + float64(df))),
			OutletEntropy: entropy(s.OutletDF[l], s.Outlets),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// entropy returns the Shannon entropy of counts normalized by the maximum
// over n outlets. With a single outlet there is no spread to measure and
// the result is 1.
func entropy(counts map[string]int64, n int) float64 {
	if n <= 1 {
		return 1
	}
	var total float64
	for _, c := range counts {
		total += float64(c)
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		p := float64(c) / total
		if p > 0 {
			h -= p * math.Log2(p)
		}
	}
	return h / math.Log2(float64(n))
}

// SuggestStopwords runs the stoplist heuristics over the analyzed corpus.
func (a *Analyzer) SuggestStopwords(mgr *stoplist.Manager, thresholds stoplist.Thresholds) []stoplist.Candidate {
	snap := a.Snapshot()
	return mgr.SuggestCandidates(snap.StopwordStats(), snap.TotalDocs, thresholds)
}
