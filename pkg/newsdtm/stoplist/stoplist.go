package stoplist

import (
	"sort"
	"strings"
)

// Manager holds the active stopword list and proposes additions from
// corpus statistics.
type Manager struct {
	stops map[string]Reason
}

// Reason explains why a token is a stopword
type Reason struct {
	Seeded        bool    // shipped with the initial list
	HighDF        bool    // high document frequency
	HighEntropy   bool    // spread evenly across outlets
	IDF           float64 // inverse document frequency
	OutletEntropy float64 // normalized entropy over outlets
}

// NewManager creates a manager seeded with initialStops. Tokens are
// lowercased.
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			stops[s] = Reason{Seeded: true}
		}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[strings.ToLower(token)] = reason
}

// Remove removes a token from the stoplist
func (m *Manager) Remove(token string) {
	delete(m.stops, strings.ToLower(token))
}

// Len returns the number of stopwords.
func (m *Manager) Len() int {
	return len(m.stops)
}

// All returns all stopwords, sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Stats holds per-lemma corpus statistics for candidate evaluation.
type Stats struct {
	Token         string
	DF            int64
	DFPercent     float64
	IDF           float64
	OutletEntropy float64
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64 // confidence score
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent     float64 // e.g. 40: appears in 40% of documents
	OutletEntropy float64 // e.g. 0.8: used about equally by every outlet
	// MinDocs skips the suggestion entirely for tiny corpora.
	MinDocs int64
}

// DefaultThresholds returns the thresholds used for weekly tweet corpora.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:     40.0,
		OutletEntropy: 0.8,
		MinDocs:       20,
	}
}

// SuggestCandidates returns lemmas that are frequent in most documents and
// spread evenly across outlets, best first. Existing stopwords are skipped.
// totalDocs is the corpus size the stats were computed on.
func (m *Manager) SuggestCandidates(stats []Stats, totalDocs int64, thresholds Thresholds) []Candidate {
	if totalDocs < thresholds.MinDocs {
		return nil
	}

	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) {
			continue // already a stopword
		}

		reason := Reason{
			HighDF:        s.DFPercent > thresholds.DFPercent,
			HighEntropy:   s.OutletEntropy > thresholds.OutletEntropy,
			IDF:           s.IDF,
			OutletEntropy: s.OutletEntropy,
		}
		if !reason.HighDF || !reason.HighEntropy {
			continue
		}
		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: reason,
			Score:  (s.DFPercent/100.0 + s.OutletEntropy) / 2.0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Token < candidates[j].Token
		}
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}
