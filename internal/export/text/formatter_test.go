// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"strings"
	"testing"

	"twinscan/internal/aggregate"
	"twinscan/internal/document"
	"twinscan/internal/export"
	"twinscan/internal/task"
)

func sampleResult(matches ...task.Match) *task.Result {
	return &task.Result{
		TaskID:     "task-2",
		Params:     task.DefaultParams(),
		File1Stats: document.Stats{Path: "/tmp/a.pdf", TotalPages: 3, TotalLines: 100},
		File2Stats: document.Stats{Path: "/tmp/b.pdf", TotalPages: 2, TotalLines: 80},
		Statistics: aggregate.Statistics{
			TotalPairsAnalyzed: 1234,
			MatchesFound:       len(matches),
		},
		Matches: matches,
	}
}

func TestFormatNoMatches(t *testing.T) {
	out, err := NewFormatter().Format(sampleResult(), export.Options{NoColor: true})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	report := string(out)
	if !strings.Contains(report, "No similar passages found") {
		t.Errorf("empty report missing the no-matches notice:\n%s", report)
	}
	if !strings.Contains(report, "a.pdf") || !strings.Contains(report, "b.pdf") {
		t.Error("report should name both input files")
	}
	if strings.Contains(report, "/tmp/") {
		t.Error("report should show base names, not full paths")
	}
}

func TestFormatWithMatches(t *testing.T) {
	m := task.Match{
		Sequence1:   "copied sentence from the source",
		Sequence2:   "copied sentence from the source",
		Similarity:  0.9375,
		Position1:   document.Position{Page: 2, Line: 14, Offset: 220},
		Position2:   document.Position{Page: 1, Line: 3, Offset: 18},
		Context1:    task.Context{Before: "text before", After: "text after"},
		Differences: []string{"identical"},
	}
	out, err := NewFormatter().Format(sampleResult(m), export.Options{NoColor: true, Verbose: true})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	report := string(out)
	for _, want := range []string{
		"0.9375",
		"page 2 line 14",
		"page 1 line 3",
		"copied sentence from the source",
		"text before",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestFormatNoColorHasNoEscapes(t *testing.T) {
	out, err := NewFormatter().Format(sampleResult(), export.Options{NoColor: true})
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if strings.Contains(string(out), "\x1b[") {
		t.Error("NoColor output contains ANSI escapes")
	}
}
