// Package eda derives the exploratory tables published next to the
// matrices: per-outlet engagement summaries, top terms and vocabulary size
// per outlet-period, and stopword candidates.
package eda

import (
	"sort"

	"github.com/cognicore/newsdtm/pkg/newsdtm/record"
)

// Artifact stages produced by this package.
const (
	StageStatsSummary = "stats_summary"
	StageTopTerms     = "top_terms"
	StageUniqueWords  = "unique_words"
)

// OutletStats summarizes one outlet's posts in a bucket. Counter sums skip
// records where the counter was absent.
type OutletStats struct {
	Outlet                 string  `json:"outlet"`
	TweetCount             int64   `json:"tweet_count"`
	ReferencedTweetCount   int64   `json:"referenced_tweet_count"`
	PossiblySensitiveCount int64   `json:"possibly_sensitive_count"`
	ReplyCount             int64   `json:"reply_count"`
	RetweetCount           int64   `json:"retweet_count"`
	LikeCount              int64   `json:"like_count"`
	QuoteCount             int64   `json:"quote_count"`
	ImpressionCount        int64   `json:"impression_count"`
	ReferenceRatio         float64 `json:"reference_to_tweets_ratio"`
	SensitiveRatio         float64 `json:"sensitive_to_tweets_ratio"`
	RetweetRatio           float64 `json:"retweet_to_tweets_ratio"`
	ReplyRatio             float64 `json:"reply_to_tweets_ratio"`
	LikeRatio              float64 `json:"like_to_tweets_ratio"`
	QuoteRatio             float64 `json:"quote_to_tweets_ratio"`
}

// Summarize computes OutletStats per outlet, most active outlet first.
func Summarize(table *record.CleanTable) []OutletStats {
	byOutlet := make(map[string]*OutletStats)
	for _, rec := range table.Records {
		s, ok := byOutlet[rec.Outlet]
		if !ok {
			s = &OutletStats{Outlet: rec.Outlet}
			byOutlet[rec.Outlet] = s
		}
		s.TweetCount++
		if len(rec.ReferencedTweets) > 0 {
			s.ReferencedTweetCount++
		}
		if rec.PossiblySensitive {
			s.PossiblySensitiveCount++
		}
		s.ReplyCount += value(rec.ReplyCount)
		s.RetweetCount += value(rec.RetweetCount)
		s.LikeCount += value(rec.LikeCount)
		s.QuoteCount += value(rec.QuoteCount)
		s.ImpressionCount += value(rec.ImpressionCount)
	}

	out := make([]OutletStats, 0, len(byOutlet))
	for _, s := range byOutlet {
		n := float64(s.TweetCount)
		s.ReferenceRatio = float64(s.ReferencedTweetCount) / n
		s.SensitiveRatio = float64(s.PossiblySensitiveCount) / n
		s.RetweetRatio = float64(s.RetweetCount) / n
		s.ReplyRatio = float64(s.ReplyCount) / n
		s.LikeRatio = float64(s.LikeCount) / n
		s.QuoteRatio = float64(s.QuoteCount) / n
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TweetCount != out[j].TweetCount {
			return out[i].TweetCount > out[j].TweetCount
		}
		return out[i].Outlet < out[j].Outlet
	})
	return out
}

func value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
