// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package pdfreport renders a comparison result as a printable PDF document.
package pdfreport

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"twinscan/internal/export"
	"twinscan/internal/task"
)

// Formatter implements PDF report output
type Formatter struct{}

// NewFormatter creates a new PDF formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "pdf"
}

func (f *Formatter) Description() string {
	return "Printable PDF comparison report"
}

func (f *Formatter) FileExtension() string {
	return ".pdf"
}

func (f *Formatter) MimeType() string {
	return "application/pdf"
}

func (f *Formatter) Format(result *task.Result, options export.Options) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Document Comparison Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	writeKV := func(key, value string) {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, key, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 6, value, "", "L", false)
	}
	writeKV("File 1:", fmt.Sprintf("%s (%d pages, %d lines)",
		filepath.Base(result.File1Stats.Path), result.File1Stats.TotalPages, result.File1Stats.TotalLines))
	writeKV("File 2:", fmt.Sprintf("%s (%d pages, %d lines)",
		filepath.Base(result.File2Stats.Path), result.File2Stats.TotalPages, result.File2Stats.TotalLines))
	writeKV("Threshold:", fmt.Sprintf("%.2f", result.Params.SimilarityThreshold))
	writeKV("Sequence length:", fmt.Sprintf("%d", result.Params.SequenceLength))
	writeKV("Processing mode:", string(result.Params.ProcessingMode))
	pdf.Ln(4)

	s := result.Statistics
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	writeKV("Pairs analyzed:", fmt.Sprintf("%d", s.TotalPairsAnalyzed))
	writeKV("Similar passages:", fmt.Sprintf("%d", s.MatchesFound))
	writeKV("High / medium / low:", fmt.Sprintf("%d / %d / %d",
		s.HighSimilarity, s.MediumSimilarity, s.LowSimilarity))
	if s.MatchesFound > 0 {
		writeKV("Average similarity:", fmt.Sprintf("%.4f", s.AverageSimilarity))
		writeKV("Max similarity:", fmt.Sprintf("%.4f", s.MaxSimilarity))
	}
	writeKV("Processing time:", fmt.Sprintf("%.2fs", result.ProcessingSeconds))
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Matches", "", 1, "L", false, 0, "")

	if len(result.Matches) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, "No similar passages found.", "", 1, "L", false, 0, "")
	}

	for i, m := range result.Matches {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d. similarity %.4f", i+1, m.Similarity), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, fmt.Sprintf("doc1 page %d line %d: %s",
			m.Position1.Page, m.Position1.Line, m.Sequence1), "", "L", false)
		pdf.MultiCell(0, 5, fmt.Sprintf("doc2 page %d line %d: %s",
			m.Position2.Page, m.Position2.Line, m.Sequence2), "", "L", false)
		if options.Verbose {
			for _, d := range m.Differences {
				pdf.SetFont("Helvetica", "I", 8)
				pdf.MultiCell(0, 4, "diff: "+d, "", "L", false)
			}
		}
		pdf.Ln(2)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	export.Register(NewFormatter())
}
