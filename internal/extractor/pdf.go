// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfcpu "github.com/pdfcpu/pdfcpu/pkg/api"

	"twinscan/internal/document"
)

// PDF extracts paginated text lines from PDF files. The document structure is
// checked with pdfcpu before text extraction so corrupt files fail with a
// clear extraction error instead of a reader panic deep inside a page.
type PDF struct{}

func NewPDF() *PDF {
	return &PDF{}
}

// Extract reads every page, grouping text runs into lines by their row
// position. Line numbers restart at 1 on each page.
func (e *PDF) Extract(path string) (*document.Document, error) {
	if err := pdfcpu.ValidateFile(path, nil); err != nil {
		return nil, &document.ExtractionError{Path: path, Err: fmt.Errorf("invalid PDF: %w", err)}
	}
	pageCount, err := pdfcpu.PageCountFile(path)
	if err != nil {
		return nil, &document.ExtractionError{Path: path, Err: err}
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &document.ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	doc := &document.Document{Path: path, Pages: pageCount}
	readerPages := r.NumPage()
	if readerPages < pageCount {
		pageCount = readerPages
	}

	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		p := r.Page(pageNum)
		if p.V.IsNull() {
			continue
		}
		lines := extractPageLines(p)
		for i, text := range lines {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			doc.Lines = append(doc.Lines, document.Line{Page: pageNum, Line: i + 1, Text: text})
		}
	}
	return doc, nil
}

// extractPageLines returns the page's text grouped into visual rows, top to
// bottom. Falls back to plain text split on newlines when row extraction is
// unavailable for the page.
func extractPageLines(p pdf.Page) []string {
	rows, err := p.GetTextByRow()
	if err != nil {
		plain, err := p.GetPlainText(nil)
		if err != nil {
			return nil
		}
		return strings.Split(plain, "\n")
	}

	// PDF Y coordinates grow upwards; higher position means earlier row.
	sorted := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			sorted = append(sorted, row)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})

	lines := make([]string, 0, len(sorted))
	for _, row := range sorted {
		var b strings.Builder
		for k, txt := range row.Content {
			if k > 0 && needsSpace(row.Content[k-1].S, txt.S) {
				b.WriteByte(' ')
			}
			b.WriteString(txt.S)
		}
		lines = append(lines, b.String())
	}
	return lines
}

// needsSpace keeps word boundaries between separately positioned text runs
// without doubling existing whitespace.
func needsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	return !strings.HasSuffix(prev, " ") && !strings.HasPrefix(next, " ")
}
