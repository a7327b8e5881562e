// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"

	"twinscan/internal/export"
	"twinscan/internal/task"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON output for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

func (f *Formatter) MimeType() string {
	return "application/json"
}

// Format emits the complete result document. JSON is the canonical
// machine-readable form, so options do not reduce it.
func (f *Formatter) Format(result *task.Result, _ export.Options) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}

func init() {
	export.Register(NewFormatter())
}
