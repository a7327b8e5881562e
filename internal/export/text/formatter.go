// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"twinscan/internal/export"
	"twinscan/internal/task"
)

// Formatter implements human-readable text output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"bold":   color.New(color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable report for terminal display"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

func (f *Formatter) MimeType() string {
	return "text/plain"
}

func (f *Formatter) colorize(name, text string, noColor bool) string {
	if noColor {
		return text
	}
	c, ok := f.colors[name]
	if !ok {
		return text
	}
	return c.Sprint(text)
}

// similarityColor grades a score the way the statistics buckets do.
func similarityColor(sim float64) string {
	switch {
	case sim >= 0.9:
		return "red"
	case sim >= 0.8:
		return "yellow"
	default:
		return "green"
	}
}

func (f *Formatter) Format(result *task.Result, options export.Options) ([]byte, error) {
	var b strings.Builder

	b.WriteString(f.colorize("bold", "Document Comparison Report", options.NoColor))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "File 1: %s (%d pages, %d lines)\n",
		filepath.Base(result.File1Stats.Path), result.File1Stats.TotalPages, result.File1Stats.TotalLines)
	fmt.Fprintf(&b, "File 2: %s (%d pages, %d lines)\n",
		filepath.Base(result.File2Stats.Path), result.File2Stats.TotalPages, result.File2Stats.TotalLines)
	fmt.Fprintf(&b, "Threshold: %.2f  Sequence length: %d  Mode: %s\n\n",
		result.Params.SimilarityThreshold, result.Params.SequenceLength, result.Params.ProcessingMode)

	s := result.Statistics
	b.WriteString(f.colorize("bold", "Summary", options.NoColor))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  Sequence pairs analyzed: %d\n", s.TotalPairsAnalyzed)
	fmt.Fprintf(&b, "  Similar passages:        %d\n", s.MatchesFound)
	fmt.Fprintf(&b, "  High (>= 0.90):          %s\n", f.colorize("red", fmt.Sprintf("%d", s.HighSimilarity), options.NoColor))
	fmt.Fprintf(&b, "  Medium [0.80, 0.90):     %s\n", f.colorize("yellow", fmt.Sprintf("%d", s.MediumSimilarity), options.NoColor))
	fmt.Fprintf(&b, "  Low (below 0.80):        %s\n", f.colorize("green", fmt.Sprintf("%d", s.LowSimilarity), options.NoColor))
	if s.MatchesFound > 0 {
		fmt.Fprintf(&b, "  Average similarity:      %.4f\n", s.AverageSimilarity)
		fmt.Fprintf(&b, "  Max similarity:          %.4f\n", s.MaxSimilarity)
	}
	fmt.Fprintf(&b, "  Processing time:         %.2fs\n\n", result.ProcessingSeconds)

	if len(result.Matches) == 0 {
		b.WriteString(f.colorize("green", "No similar passages found.", options.NoColor))
		b.WriteString("\n")
		return []byte(b.String()), nil
	}

	b.WriteString(f.colorize("bold", "Matches", options.NoColor))
	b.WriteString("\n")
	for i, m := range result.Matches {
		score := f.colorize(similarityColor(m.Similarity),
			fmt.Sprintf("%.4f", m.Similarity), options.NoColor)
		fmt.Fprintf(&b, "\n%d. similarity %s\n", i+1, score)
		fmt.Fprintf(&b, "   doc1 page %d line %d: %s\n", m.Position1.Page, m.Position1.Line,
			f.colorize("cyan", m.Sequence1, options.NoColor))
		fmt.Fprintf(&b, "   doc2 page %d line %d: %s\n", m.Position2.Page, m.Position2.Line,
			f.colorize("cyan", m.Sequence2, options.NoColor))
		if options.Verbose {
			if m.Context1.Before != "" || m.Context1.After != "" {
				fmt.Fprintf(&b, "   context 1: ...%s [%s] %s...\n", m.Context1.Before, m.Sequence1, m.Context1.After)
			}
			if m.Context2.Before != "" || m.Context2.After != "" {
				fmt.Fprintf(&b, "   context 2: ...%s [%s] %s...\n", m.Context2.Before, m.Sequence2, m.Context2.After)
			}
			for _, d := range m.Differences {
				fmt.Fprintf(&b, "   diff: %s\n", d)
			}
		}
	}
	b.WriteString("\n")

	return []byte(b.String()), nil
}

func init() {
	export.Register(NewFormatter())
}
