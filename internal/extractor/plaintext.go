// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"os"
	"strings"

	"twinscan/internal/document"
)

// PlainText extracts line-oriented text files. Form feeds mark page breaks;
// a file without them is a single page.
type PlainText struct{}

func NewPlainText() *PlainText {
	return &PlainText{}
}

func (e *PlainText) Extract(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &document.ExtractionError{Path: path, Err: err}
	}

	doc := &document.Document{Path: path}
	pages := strings.Split(string(data), "\f")
	for p, pageText := range pages {
		lineNum := 0
		for _, raw := range strings.Split(pageText, "\n") {
			text := strings.TrimRight(raw, "\r")
			lineNum++
			if strings.TrimSpace(text) == "" {
				continue
			}
			doc.Lines = append(doc.Lines, document.Line{
				Page: p + 1,
				Line: lineNum,
				Text: text,
			})
		}
	}
	doc.Pages = len(pages)
	return doc, nil
}
