// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package matcher

import (
	"fmt"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Similarity scores two equal-length unit windows as 1 − editDistance/length,
// so the score and the reported differences always agree. 1.0 means the
// windows are identical, 0.0 means every unit would have to change.
func Similarity(a, b []string) float64 {
	n := len(a)
	if n == 0 || len(b) != n {
		return 0
	}
	d := levenshtein(a, b)
	return 1 - float64(d)/float64(n)
}

// levenshtein is a two-row edit distance over unit slices.
func levenshtein(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// Differences renders a human-readable edit script between the two window
// texts, one descriptor per change, anchored at the rune position in text1.
// Identical texts yield a single "identical" marker.
func Differences(text1, text2 string) []string {
	if text1 == text2 {
		return []string{"identical"}
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(text1, text2, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var out []string
	pos := 0
	for i := 0; i < len(diffs); i++ {
		d := diffs[i]
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			pos += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			// A delete immediately followed by an insert is one replacement.
			if i+1 < len(diffs) && diffs[i+1].Type == diffmatchpatch.DiffInsert {
				out = append(out, fmt.Sprintf("position %d: %q -> %q", pos, d.Text, diffs[i+1].Text))
				i++
			} else {
				out = append(out, fmt.Sprintf("position %d: removed %q", pos, d.Text))
			}
			pos += len([]rune(d.Text))
		case diffmatchpatch.DiffInsert:
			out = append(out, fmt.Sprintf("position %d: added %q", pos, d.Text))
		}
	}
	return out
}
