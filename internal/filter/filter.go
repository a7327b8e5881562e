// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package filter selects the document lines eligible for comparison. Filtering
// is a pure function over the extracted line set: the output is a subset in
// original order, with page/line numbering untouched so position reporting
// stays stable regardless of policy.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"twinscan/internal/document"
)

// Policy names a content selection rule.
type Policy string

const (
	// AllContent keeps every extracted line untouched.
	AllContent Policy = "all"
	// MainContentOnly drops reference lists, citation-heavy lines,
	// headers/footers and short fragments.
	MainContentOnly Policy = "main_content_only"
	// IncludeReferences is MainContentOnly with reference lines kept.
	IncludeReferences Policy = "include_references"
	// IncludeCitations is MainContentOnly with citation lines kept.
	IncludeCitations Policy = "include_citations"
)

// ParsePolicy maps a user-supplied policy name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case AllContent:
		return AllContent, nil
	case MainContentOnly, "":
		return MainContentOnly, nil
	case IncludeReferences:
		return IncludeReferences, nil
	case IncludeCitations:
		return IncludeCitations, nil
	}
	return "", document.NewUsageError(fmt.Sprintf("unknown filter policy %q", s))
}

// Options tunes the structural heuristics.
type Options struct {
	Policy Policy

	// MinLineLength drops lines shorter than this many characters
	// (ignored under AllContent). Zero means the default.
	MinLineLength int

	// RemoveDuplicateLines drops repeated line texts, keeping the first
	// occurrence. Running headers repeated on every page collapse this way.
	RemoveDuplicateLines bool
}

// DefaultOptions mirrors the defaults of the interactive front ends.
func DefaultOptions() Options {
	return Options{
		Policy:               MainContentOnly,
		MinLineLength:        10,
		RemoveDuplicateLines: true,
	}
}

var (
	referenceLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\[\d+\]`),
		regexp.MustCompile(`^\(\d+\)`),
		regexp.MustCompile(`(?i)^references$`),
		regexp.MustCompile(`(?i)^bibliography$`),
		regexp.MustCompile(`^参考文献$`),
	}

	citationMarkerPattern = regexp.MustCompile(`\[[^\[\]]*\]|\([^()]*\d{4}[^()]*\)|et al\.|Fig\.\d+|Table \d+`)

	headerFooterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d+$`),
		regexp.MustCompile(`(?i)^page \d+`),
		regexp.MustCompile(`^第\d+页$`),
		regexp.MustCompile(`^-{5,}$`),
		regexp.MustCompile(`^\d+\s*/\s*\d+$`),
	}

	headerFooterKeywords = []string{
		"proceedings", "journal", "doi:", "isbn", "issn", "copyright", "©",
	}
)

// Apply returns the lines considered content under the policy. It is
// deterministic and total: any well-formed document yields a result.
func Apply(doc *document.Document, opts Options) *document.Document {
	if opts.MinLineLength <= 0 {
		opts.MinLineLength = DefaultOptions().MinLineLength
	}

	if opts.Policy == AllContent {
		return doc
	}

	out := &document.Document{Path: doc.Path, Pages: doc.Pages}
	seen := make(map[string]bool)
	for _, ln := range doc.Lines {
		text := strings.TrimSpace(ln.Text)
		if skipLine(text, opts) {
			continue
		}
		if opts.RemoveDuplicateLines {
			if seen[text] {
				continue
			}
			seen[text] = true
		}
		out.Lines = append(out.Lines, document.Line{Page: ln.Page, Line: ln.Line, Text: text})
	}
	return out
}

func skipLine(text string, opts Options) bool {
	if len([]rune(text)) < opts.MinLineLength {
		return true
	}
	if opts.Policy != IncludeReferences && isReferenceLine(text) {
		return true
	}
	if opts.Policy != IncludeCitations && isCitationLine(text) {
		return true
	}
	return isHeaderFooterLine(text)
}

func isReferenceLine(text string) bool {
	for _, p := range referenceLinePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// isCitationLine flags lines dominated by citation markers: when markers
// outnumber 30% of the whitespace-separated words the line is treated as a
// citation block, not prose.
func isCitationLine(text string) bool {
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	markers := citationMarkerPattern.FindAllString(text, -1)
	return float64(len(markers))/float64(len(words)) > 0.3
}

func isHeaderFooterLine(text string) bool {
	for _, p := range headerFooterPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	if len([]rune(text)) <= 15 {
		for _, kw := range headerFooterKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}
