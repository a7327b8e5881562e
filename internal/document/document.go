// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Line is a single extracted text line with its original position.
// Page and line numbers are 1-based and survive filtering unchanged so that
// every downstream position report refers to the source document.
type Line struct {
	Page int
	Line int
	Text string
}

// Document is the read-only extracted view of one input file. It is built once
// by an Extractor and never mutated afterwards; all later stages only borrow it.
type Document struct {
	Path  string
	Pages int
	Lines []Line
}

// Stats describes what extraction and filtering did to a document.
type Stats struct {
	Path           string  `json:"filePath"`
	FileSizeMB     float64 `json:"fileSizeMb"`
	TotalPages     int     `json:"totalPages"`
	TotalLines     int     `json:"totalLines"`
	KeptLines      int     `json:"mainContentLines"`
	FilteredLines  int     `json:"filteredLines"`
	TotalUnits     int     `json:"totalChars"`
	ProcessSeconds float64 `json:"processingTimeSeconds"`
}

// Position locates a sequence window inside its source document. Offset is the
// index into the filtered unit stream, not a byte offset into the file.
type Position struct {
	Page   int `json:"page"`
	Line   int `json:"line"`
	Offset int `json:"offset"`
}

// PageRange is an inclusive page interval restriction.
type PageRange struct {
	Start int
	End   int
}

// ParsePageRange parses a "start-end" restriction such as "1-146".
// An empty string means no restriction and returns nil.
func ParsePageRange(s string) (*PageRange, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return nil, NewUsageError(fmt.Sprintf("invalid page range %q: expected start-end", s))
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	end, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil, NewUsageError(fmt.Sprintf("invalid page range %q: pages must be integers", s))
	}
	pr := &PageRange{Start: start, End: end}
	if err := pr.Validate(); err != nil {
		return nil, err
	}
	return pr, nil
}

// Validate rejects empty or inverted intervals. A bad range is a usage error,
// never silently ignored.
func (pr *PageRange) Validate() error {
	if pr == nil {
		return nil
	}
	if pr.Start < 1 || pr.End < pr.Start {
		return NewUsageError(fmt.Sprintf("invalid page range %d-%d", pr.Start, pr.End))
	}
	return nil
}

// Contains reports whether the page falls inside the restriction.
// A nil range contains every page.
func (pr *PageRange) Contains(page int) bool {
	if pr == nil {
		return true
	}
	return page >= pr.Start && page <= pr.End
}

// Extractor turns a stored file handle into a Document. Implementations fail
// with an *ExtractionError on corrupt or unsupported input.
type Extractor interface {
	Extract(path string) (*Document, error)
}
