// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package aggregate

import (
	"testing"

	"twinscan/internal/matcher"
	"twinscan/internal/sequence"
)

func cand(o1, o2 int, sim float64) matcher.Candidate {
	return matcher.Candidate{
		Seq1:       sequence.Sequence{Offset: o1},
		Seq2:       sequence.Sequence{Offset: o2},
		Similarity: sim,
	}
}

func TestReduceKeepsBestOfOverlapping(t *testing.T) {
	// Three candidates covering the same region in both documents; only the
	// highest score survives.
	candidates := []matcher.Candidate{
		cand(10, 20, 0.85),
		cand(11, 21, 0.95),
		cand(12, 22, 0.80),
	}
	kept, stats := Reduce(candidates, 100, 8, 1000)
	if len(kept) != 1 {
		t.Fatalf("kept %d candidates, want 1", len(kept))
	}
	if kept[0].Similarity != 0.95 {
		t.Errorf("kept similarity %v, want the best 0.95", kept[0].Similarity)
	}
	if stats.MatchesFound != 1 {
		t.Errorf("MatchesFound = %d, want 1", stats.MatchesFound)
	}
}

func TestReduceOverlapRequiresBothDocuments(t *testing.T) {
	// Same region in document 1 but far apart in document 2: both stay.
	candidates := []matcher.Candidate{
		cand(10, 20, 0.95),
		cand(12, 500, 0.90),
	}
	kept, _ := Reduce(candidates, 100, 8, 100)
	if len(kept) != 2 {
		t.Fatalf("kept %d candidates, want 2", len(kept))
	}
}

func TestReduceNoOverlapsInOutput(t *testing.T) {
	candidates := []matcher.Candidate{
		cand(0, 0, 0.91),
		cand(4, 4, 0.92),
		cand(8, 8, 0.93),
		cand(16, 16, 0.94),
		cand(17, 17, 0.95),
		cand(40, 3, 0.96),
	}
	seqLen := 8
	kept, _ := Reduce(candidates, 100, seqLen, 100)
	for i := range kept {
		for j := i + 1; j < len(kept); j++ {
			a, b := kept[i], kept[j]
			over1 := a.Seq1.Offset < b.Seq1.Offset+seqLen && b.Seq1.Offset < a.Seq1.Offset+seqLen
			over2 := a.Seq2.Offset < b.Seq2.Offset+seqLen && b.Seq2.Offset < a.Seq2.Offset+seqLen
			if over1 && over2 {
				t.Errorf("kept candidates %d and %d overlap in both documents", i, j)
			}
		}
	}
}

func TestReduceRankingAndCap(t *testing.T) {
	candidates := []matcher.Candidate{
		cand(100, 0, 0.80),
		cand(0, 0, 0.99),
		cand(50, 50, 0.90),
		cand(200, 200, 0.90),
	}
	kept, _ := Reduce(candidates, 3, 8, 100)
	if len(kept) != 3 {
		t.Fatalf("kept %d candidates, want cap of 3", len(kept))
	}
	if kept[0].Similarity != 0.99 {
		t.Errorf("first ranked similarity %v, want 0.99", kept[0].Similarity)
	}
	// Equal scores rank by ascending document-1 offset.
	if kept[1].Seq1.Offset != 50 || kept[2].Seq1.Offset != 200 {
		t.Errorf("tie order = offsets %d, %d; want 50, 200",
			kept[1].Seq1.Offset, kept[2].Seq1.Offset)
	}
}

func TestReduceStatisticsBuckets(t *testing.T) {
	candidates := []matcher.Candidate{
		cand(0, 0, 0.95),
		cand(20, 20, 0.90),
		cand(40, 40, 0.85),
		cand(60, 60, 0.80),
		cand(80, 80, 0.76),
	}
	kept, stats := Reduce(candidates, 100, 8, 5000)
	if len(kept) != 5 {
		t.Fatalf("kept %d candidates, want 5", len(kept))
	}
	if stats.HighSimilarity != 2 {
		t.Errorf("high bucket = %d, want 2 (0.90 is high)", stats.HighSimilarity)
	}
	if stats.MediumSimilarity != 2 {
		t.Errorf("medium bucket = %d, want 2 (0.80 is medium)", stats.MediumSimilarity)
	}
	if stats.LowSimilarity != 1 {
		t.Errorf("low bucket = %d, want 1", stats.LowSimilarity)
	}
	if stats.TotalPairsAnalyzed != 5000 {
		t.Errorf("TotalPairsAnalyzed = %d, want 5000", stats.TotalPairsAnalyzed)
	}
	if stats.MaxSimilarity != 0.95 || stats.MinSimilarity != 0.76 {
		t.Errorf("min/max = %v/%v, want 0.76/0.95", stats.MinSimilarity, stats.MaxSimilarity)
	}
	wantAvg := (0.95 + 0.90 + 0.85 + 0.80 + 0.76) / 5
	if diff := stats.AverageSimilarity - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("average = %v, want %v", stats.AverageSimilarity, wantAvg)
	}
}

func TestReduceEmpty(t *testing.T) {
	kept, stats := Reduce(nil, 100, 8, 42)
	if len(kept) != 0 {
		t.Fatalf("kept %d candidates from empty input", len(kept))
	}
	if stats.MatchesFound != 0 || stats.AverageSimilarity != 0 {
		t.Errorf("empty statistics = %+v", stats)
	}
	if stats.TotalPairsAnalyzed != 42 {
		t.Errorf("TotalPairsAnalyzed = %d, want 42", stats.TotalPairsAnalyzed)
	}
}
