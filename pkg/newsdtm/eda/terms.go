package eda

import (
	"sort"

	"github.com/cognicore/newsdtm/pkg/newsdtm/dtm"
	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// DefaultTopN is the number of terms kept per outlet-period.
const DefaultTopN = 30

// TopTerm is one ranked lemma of an outlet-period column.
type TopTerm struct {
	Outlet string `json:"outlet"`
	Year   int    `json:"year"`
	Week   int    `json:"week"`
	Rank   int    `json:"rank"`
	Word   string `json:"word"`
	Count  int64  `json:"count"`
}

// TopTerms ranks the lemmas of every column of om by count, ties broken
// alphabetically, and keeps the first n non-zero ones per column.
func TopTerms(om *dtm.OutletMatrix, n int) []TopTerm {
	if n <= 0 {
		n = DefaultTopN
	}
	var out []TopTerm
	for _, g := range om.Groups() {
		type wc struct {
			word  string
			count int64
		}
		col := om.Column(g.Label())
		ranked := make([]wc, 0, len(col))
		for w, c := range col {
			if c > 0 {
				ranked = append(ranked, wc{w, c})
			}
		}
		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].count != ranked[j].count {
				return ranked[i].count > ranked[j].count
			}
			return ranked[i].word < ranked[j].word
		})
		if len(ranked) > n {
			ranked = ranked[:n]
		}
		for i, r := range ranked {
			out = append(out, TopTerm{
				Outlet: g.Outlet, Year: g.Bucket.Year, Week: g.Bucket.Week,
				Rank: i + 1, Word: r.word, Count: r.count,
			})
		}
	}
	return out
}

// UniqueWords reports vocabulary size against post volume for one
// outlet-period.
type UniqueWords struct {
	Outlet         string  `json:"outlet"`
	Year           int     `json:"year"`
	Week           int     `json:"week"`
	UniqueWords    int     `json:"unique_words"`
	TweetNumber    int     `json:"tweet_number"`
	WordTweetRatio float64 `json:"word_tweet_ratio"`
}

// CountUniqueWords counts the distinct lemmas of every column of om and
// divides by the number of corpus entries of that outlet-period. Columns
// without entries are skipped. Rows are ordered by ratio, highest first.
func CountUniqueWords(om *dtm.OutletMatrix, entries []record.CorpusEntry) []UniqueWords {
	posts := make(map[dtm.Group]int)
	for _, e := range entries {
		posts[dtm.Group{Outlet: e.Outlet, Bucket: e.Bucket()}]++
	}

	var out []UniqueWords
	for _, g := range om.Groups() {
		n := posts[g]
		if n == 0 {
			continue
		}
		unique := len(om.Column(g.Label()))
		out = append(out, UniqueWords{
			Outlet: g.Outlet, Year: g.Bucket.Year, Week: g.Bucket.Week,
			UniqueWords:    unique,
			TweetNumber:    n,
			WordTweetRatio: float64(unique) / float64(n),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WordTweetRatio > out[j].WordTweetRatio
	})
	return out
}
