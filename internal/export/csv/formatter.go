// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"twinscan/internal/export"
	"twinscan/internal/task"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) MimeType() string {
	return "text/csv"
}

func (f *Formatter) Format(result *task.Result, options export.Options) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	headers := []string{
		"Rank", "Similarity",
		"Page 1", "Line 1", "Offset 1", "Sequence 1",
		"Page 2", "Line 2", "Offset 2", "Sequence 2",
	}
	if options.Verbose {
		headers = append(headers, "Differences")
	}
	if err := w.Write(headers); err != nil {
		return nil, err
	}

	for i, m := range result.Matches {
		row := []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(m.Similarity, 'f', 4, 64),
			strconv.Itoa(m.Position1.Page),
			strconv.Itoa(m.Position1.Line),
			strconv.Itoa(m.Position1.Offset),
			m.Sequence1,
			strconv.Itoa(m.Position2.Page),
			strconv.Itoa(m.Position2.Line),
			strconv.Itoa(m.Position2.Offset),
			m.Sequence2,
		}
		if options.Verbose {
			row = append(row, strings.Join(m.Differences, "; "))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func init() {
	export.Register(NewFormatter())
}
