// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"twinscan/internal/aggregate"
	"twinscan/internal/document"
)

// Context is the stream text surrounding one side of a match.
type Context struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Match is one reported near-duplicate passage pair.
type Match struct {
	Sequence1   string            `json:"sequence1"`
	Sequence2   string            `json:"sequence2"`
	Similarity  float64           `json:"similarity"`
	Position1   document.Position `json:"position1"`
	Position2   document.Position `json:"position2"`
	Context1    Context           `json:"context1"`
	Context2    Context           `json:"context2"`
	Differences []string          `json:"differences"`
}

// Result is the immutable outcome of a completed comparison, capped at the
// requested maximum number of matches.
type Result struct {
	TaskID            string               `json:"taskId"`
	Params            Params               `json:"comparisonInfo"`
	File1Stats        document.Stats       `json:"file1Stats"`
	File2Stats        document.Stats       `json:"file2Stats"`
	Statistics        aggregate.Statistics `json:"similarityStats"`
	Matches           []Match              `json:"similarSequences"`
	ProcessingSeconds float64              `json:"processingTimeSeconds"`
}
