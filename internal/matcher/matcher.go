// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package matcher finds window pairs from two documents whose similarity
// reaches the threshold. Standard mode scores every pair; the pruned modes
// bucket windows by fingerprint and only score pairs sharing a bucket, so
// anything a faster mode finds, standard mode finds too.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"twinscan/internal/document"
	"twinscan/internal/sequence"
)

// Mode is the speed/completeness tradeoff setting.
type Mode string

const (
	Standard  Mode = "standard"
	Fast      Mode = "fast"
	UltraFast Mode = "ultra_fast"
)

// ParseMode maps a user-supplied mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Standard:
		return Standard, nil
	case Fast, "":
		return Fast, nil
	case UltraFast, "ultra-fast", "ultrafast":
		return UltraFast, nil
	}
	return "", document.NewUsageError(fmt.Sprintf("unknown processing mode %q", s))
}

// Stride is the indexing subsample interval for the mode.
func (m Mode) Stride() int {
	if m == UltraFast {
		return ultraFastStride
	}
	return 1
}

const (
	// checkInterval is how many pair evaluations pass between cancellation
	// checks and progress reports. It bounds cancellation latency to one
	// interval of scoring work.
	checkInterval = 2048

	// ultraFastStride subsamples every other window.
	ultraFastStride = 2

	// earlyExitFactor stops ultra-fast search once maxMatches times this
	// many raw candidates exist; the aggregator keeps the best of them.
	earlyExitFactor = 10
)

// Params configures one search.
type Params struct {
	Threshold  float64
	Mode       Mode
	MaxMatches int
}

// Candidate is a scored window pair, not yet deduplicated or capped.
type Candidate struct {
	Seq1       sequence.Sequence
	Seq2       sequence.Sequence
	Similarity float64
}

// ProgressFunc receives (pairs evaluated, pairs to evaluate under the active
// mode). It is called at checkInterval granularity, never per comparison.
type ProgressFunc func(evaluated, total int64)

// Find streams candidates whose similarity is at or above the threshold
// (inclusive bound). A window may take part in any number of candidates;
// deduplication happens later. On cancellation Find returns the candidates
// produced so far together with the context error.
func Find(ctx context.Context, seqs1, seqs2 []sequence.Sequence, p Params, onProgress ProgressFunc) ([]Candidate, int64, error) {
	if onProgress == nil {
		onProgress = func(int64, int64) {}
	}
	if p.Mode == Standard {
		return findExhaustive(ctx, seqs1, seqs2, p, onProgress)
	}
	return findPruned(ctx, seqs1, seqs2, p, onProgress)
}

func findExhaustive(ctx context.Context, seqs1, seqs2 []sequence.Sequence, p Params, onProgress ProgressFunc) ([]Candidate, int64, error) {
	total := int64(len(seqs1)) * int64(len(seqs2))
	var evaluated int64
	var out []Candidate

	for i := range seqs1 {
		for j := range seqs2 {
			if sim := Similarity(seqs1[i].Units, seqs2[j].Units); sim >= p.Threshold {
				out = append(out, Candidate{Seq1: seqs1[i], Seq2: seqs2[j], Similarity: sim})
			}
			evaluated++
			if evaluated%checkInterval == 0 {
				if err := ctx.Err(); err != nil {
					return out, evaluated, err
				}
				onProgress(evaluated, total)
			}
		}
	}
	onProgress(total, total)
	return out, evaluated, nil
}

func findPruned(ctx context.Context, seqs1, seqs2 []sequence.Sequence, p Params, onProgress ProgressFunc) ([]Candidate, int64, error) {
	index := buildBucketIndex(seqs2)

	// The denominator counts bucket entries exactly the way the scan below
	// visits them, so the reported fraction is exact even when a pair shares
	// several fingerprints.
	var total int64
	for i := range seqs1 {
		for _, key := range fingerprints(seqs1[i].Units) {
			total += int64(len(index[key]))
		}
	}

	rawLimit := 0
	if p.Mode == UltraFast && p.MaxMatches > 0 {
		rawLimit = p.MaxMatches * earlyExitFactor
	}

	var evaluated int64
	var out []Candidate
	seen := make(map[int]struct{})

	for i := range seqs1 {
		clear(seen)
		for _, key := range fingerprints(seqs1[i].Units) {
			for _, j := range index[key] {
				evaluated++
				if _, dup := seen[j]; !dup {
					seen[j] = struct{}{}
					if sim := Similarity(seqs1[i].Units, seqs2[j].Units); sim >= p.Threshold {
						out = append(out, Candidate{Seq1: seqs1[i], Seq2: seqs2[j], Similarity: sim})
					}
				}
				if evaluated%checkInterval == 0 {
					if err := ctx.Err(); err != nil {
						return out, evaluated, err
					}
					onProgress(evaluated, total)
				}
			}
		}
		if rawLimit > 0 && len(out) >= rawLimit {
			break
		}
	}
	onProgress(total, total)
	return out, evaluated, nil
}
