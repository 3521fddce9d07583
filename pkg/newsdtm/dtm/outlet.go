package dtm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/newsdtm/pkg/newsdtm/corpus"
	"github.com/cognicore/newsdtm/pkg/newsdtm/internalerr"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// StageOutlet is the artifact stage of the per-outlet-period matrix.
const StageOutlet = "dtm_outlet"

// FillPolicy decides which (outlet, period) columns an OutletMatrix carries.
type FillPolicy string

const (
	// FillOmit emits only groups that contain at least one document.
	FillOmit FillPolicy = "omit"
	// FillCrossProduct emits every observed outlet × observed period,
	// all-zero columns included.
	FillCrossProduct FillPolicy = "cross_product"
)

// ParseFillPolicy accepts "omit", "cross_product" or "" (omit).
func ParseFillPolicy(s string) (FillPolicy, error) {
	switch FillPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FillOmit:
		return FillOmit, nil
	case FillCrossProduct:
		return FillCrossProduct, nil
	default:
		return "", fmt.Errorf("%w: unknown fill policy %q", internalerr.ErrInvalidConfig, s)
	}
}

// Group identifies one (outlet, period) column.
type Group struct {
	Outlet string
	Bucket record.Bucket
}

// Label renders the column label, e.g. "elcomercio-2023_1".
func (g Group) Label() string {
	return g.Outlet + "-" + g.Bucket.Period()
}

// OutletMatrix has one row per lemma of the base matrix and one column per
// (outlet, period) group. Columns are ordered by period, then outlet.
type OutletMatrix struct {
	terms     []string
	termIndex map[string]int
	groups    []Group
	counts    []map[int]int64 // per column: term index -> count
}

// AggregateByOutlet sums the rows of m per (outlet, period) of their corpus
// entry. Every row of m must have an entry in entries.
func AggregateByOutlet(m *Matrix, entries []record.CorpusEntry, policy FillPolicy) (*OutletMatrix, error) {
	if policy == "" {
		policy = FillOmit
	}
	if policy != FillOmit && policy != FillCrossProduct {
		return nil, fmt.Errorf("%w: unknown fill policy %q", internalerr.ErrInvalidConfig, policy)
	}
	idx, err := corpus.Index(entries)
	if err != nil {
		return nil, err
	}

	sums := make(map[Group]map[int]int64)
	for r, id := range m.rows {
		entry, ok := idx[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", internalerr.ErrUnmappedDocument, id)
		}
		g := Group{Outlet: entry.Outlet, Bucket: entry.Bucket()}
		col := sums[g]
		if col == nil {
			col = make(map[int]int64)
			sums[g] = col
		}
		for term, c := range m.counts[r] {
			col[term] += c
		}
	}

	var groups []Group
	switch policy {
	case FillCrossProduct:
		outlets := corpus.Outlets(entries)
		sort.Strings(outlets)
		for _, b := range corpus.Buckets(entries) {
			for _, o := range outlets {
				groups = append(groups, Group{Outlet: o, Bucket: b})
			}
		}
	default:
		for g := range sums {
			groups = append(groups, g)
		}
		sortGroups(groups)
	}

	out := &OutletMatrix{terms: m.terms, termIndex: m.termIndex, groups: groups, counts: make([]map[int]int64, len(groups))}
	for i, g := range groups {
		col := sums[g]
		if col == nil {
			col = map[int]int64{}
		}
		out.counts[i] = col
	}
	return out, nil
}

func sortGroups(groups []Group) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Bucket != groups[j].Bucket {
			return groups[i].Bucket.Before(groups[j].Bucket)
		}
		return groups[i].Outlet < groups[j].Outlet
	})
}

// Terms returns the row labels.
func (o *OutletMatrix) Terms() []string {
	return append([]string(nil), o.terms...)
}

// Groups returns the column groups in order.
func (o *OutletMatrix) Groups() []Group {
	return append([]Group(nil), o.groups...)
}

// Labels returns the column labels in order.
func (o *OutletMatrix) Labels() []string {
	out := make([]string, len(o.groups))
	for i, g := range o.groups {
		out[i] = g.Label()
	}
	return out
}

// Get returns the count of term in the column with the given label.
func (o *OutletMatrix) Get(term, label string) int64 {
	col := o.column(label)
	t, ok := o.termIndex[term]
	if col < 0 || !ok {
		return 0
	}
	return o.counts[col][t]
}

// Column returns the non-zero counts of one column keyed by lemma.
func (o *OutletMatrix) Column(label string) map[string]int64 {
	col := o.column(label)
	if col < 0 {
		return nil
	}
	out := make(map[string]int64, len(o.counts[col]))
	for t, c := range o.counts[col] {
		out[o.terms[t]] = c
	}
	return out
}

// RowSums returns the total of every lemma across all columns.
func (o *OutletMatrix) RowSums() map[string]int64 {
	out := make(map[string]int64, len(o.terms))
	for _, col := range o.counts {
		for t, c := range col {
			out[o.terms[t]] += c
		}
	}
	return out
}

// Dense returns the matrix as rows of counts aligned with Terms and Labels.
func (o *OutletMatrix) Dense() [][]int64 {
	out := make([][]int64, len(o.terms))
	for t := range out {
		out[t] = make([]int64, len(o.groups))
	}
	for g, col := range o.counts {
		for t, c := range col {
			out[t][g] = c
		}
	}
	return out
}

func (o *OutletMatrix) column(label string) int {
	for i, g := range o.groups {
		if g.Label() == label {
			return i
		}
	}
	return -1
}

// SliceByOutlet splits m into one matrix per outlet, rows kept in m's order.
// These are the per-outlet inputs of topic models.
func SliceByOutlet(m *Matrix, entries []record.CorpusEntry) (map[string]*Matrix, error) {
	idx, err := corpus.Index(entries)
	if err != nil {
		return nil, err
	}
	ids := make(map[string][]string)
	for _, id := range m.rows {
		entry, ok := idx[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", internalerr.ErrUnmappedDocument, id)
		}
		ids[entry.Outlet] = append(ids[entry.Outlet], id)
	}

	out := make(map[string]*Matrix, len(ids))
	for outlet, rows := range ids {
		s, err := m.Slice(rows)
		if err != nil {
			return nil, err
		}
		out[outlet] = s
	}
	return out, nil
}
