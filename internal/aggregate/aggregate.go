// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package aggregate reduces raw matcher candidates to the reported match set:
// overlapping findings collapse to their best-scoring representative, the
// survivors are ranked and capped, and summary statistics are computed over
// exactly the retained set.
package aggregate

import (
	"sort"

	"twinscan/internal/matcher"
)

// Statistics summarises the retained matches of one comparison.
type Statistics struct {
	TotalPairsAnalyzed int64   `json:"totalSequencesAnalyzed"`
	MatchesFound       int     `json:"similarSequencesFound"`
	HighSimilarity     int     `json:"highSimilarityCount"`
	MediumSimilarity   int     `json:"mediumSimilarityCount"`
	LowSimilarity      int     `json:"lowSimilarityCount"`
	AverageSimilarity  float64 `json:"averageSimilarity"`
	MaxSimilarity      float64 `json:"maxSimilarity"`
	MinSimilarity      float64 `json:"minSimilarity"`
}

// Similarity bucket bounds: high is at least 0.9, medium is [0.8, 0.9), low
// runs from the request threshold up to 0.8.
const (
	highBucketMin   = 0.9
	mediumBucketMin = 0.8
)

// Reduce deduplicates, ranks and caps the candidate set. Two candidates are
// the same finding when their unit ranges intersect in both documents; the
// higher similarity wins, ties going to the lower document-1 offset. Ranking
// for the cap is by descending similarity, stable on ties by ascending
// document-1 offset.
func Reduce(candidates []matcher.Candidate, maxMatches, seqLen int, pairsAnalyzed int64) ([]matcher.Candidate, Statistics) {
	ranked := make([]matcher.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Similarity != ranked[j].Similarity {
			return ranked[i].Similarity > ranked[j].Similarity
		}
		if ranked[i].Seq1.Offset != ranked[j].Seq1.Offset {
			return ranked[i].Seq1.Offset < ranked[j].Seq1.Offset
		}
		return ranked[i].Seq2.Offset < ranked[j].Seq2.Offset
	})

	var kept []matcher.Candidate
	for _, c := range ranked {
		if overlapsAny(kept, c, seqLen) {
			continue
		}
		kept = append(kept, c)
		if maxMatches > 0 && len(kept) == maxMatches {
			break
		}
	}

	return kept, computeStatistics(kept, pairsAnalyzed)
}

// overlapsAny reports whether c overlaps an already-kept candidate in both
// documents at once. The kept set is scanned in rank order; everything already
// there scored at least as high as c.
func overlapsAny(kept []matcher.Candidate, c matcher.Candidate, seqLen int) bool {
	for _, k := range kept {
		if rangesIntersect(k.Seq1.Offset, c.Seq1.Offset, seqLen) &&
			rangesIntersect(k.Seq2.Offset, c.Seq2.Offset, seqLen) {
			return true
		}
	}
	return false
}

func rangesIntersect(a, b, length int) bool {
	return a < b+length && b < a+length
}

func computeStatistics(kept []matcher.Candidate, pairsAnalyzed int64) Statistics {
	stats := Statistics{
		TotalPairsAnalyzed: pairsAnalyzed,
		MatchesFound:       len(kept),
	}
	if len(kept) == 0 {
		return stats
	}
	var sum float64
	stats.MinSimilarity = kept[0].Similarity
	for _, c := range kept {
		sum += c.Similarity
		if c.Similarity > stats.MaxSimilarity {
			stats.MaxSimilarity = c.Similarity
		}
		if c.Similarity < stats.MinSimilarity {
			stats.MinSimilarity = c.Similarity
		}
		switch {
		case c.Similarity >= highBucketMin:
			stats.HighSimilarity++
		case c.Similarity >= mediumBucketMin:
			stats.MediumSimilarity++
		default:
			stats.LowSimilarity++
		}
	}
	stats.AverageSimilarity = sum / float64(len(kept))
	return stats
}
