// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"twinscan/internal/aggregate"
	"twinscan/internal/document"
	"twinscan/internal/export"
	"twinscan/internal/task"
)

func TestFormatRoundTrip(t *testing.T) {
	result := &task.Result{
		TaskID:     "task-9",
		Params:     task.DefaultParams(),
		File1Stats: document.Stats{Path: "a.pdf", TotalPages: 2},
		File2Stats: document.Stats{Path: "b.pdf", TotalPages: 2},
		Statistics: aggregate.Statistics{MatchesFound: 1, MaxSimilarity: 0.91, MinSimilarity: 0.91},
		Matches: []task.Match{{
			Sequence1:  "shared passage text here",
			Sequence2:  "shared passage text here",
			Similarity: 0.91,
			Position1:  document.Position{Page: 1, Line: 2, Offset: 7},
			Position2:  document.Position{Page: 2, Line: 5, Offset: 31},
		}},
		ProcessingSeconds: 0.4,
	}

	out, err := NewFormatter().Format(result, export.Options{})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Equal(t, "task-9", decoded["taskId"])

	stats, ok := decoded["similarityStats"].(map[string]interface{})
	require.True(t, ok, "similarityStats object present")
	require.EqualValues(t, 1, stats["similarSequencesFound"])

	matches, ok := decoded["similarSequences"].([]interface{})
	require.True(t, ok, "similarSequences array present")
	require.Len(t, matches, 1)

	match := matches[0].(map[string]interface{})
	pos := match["position1"].(map[string]interface{})
	require.EqualValues(t, 1, pos["page"])
	require.EqualValues(t, 7, pos["offset"])
}

func TestFormatterMetadata(t *testing.T) {
	f := NewFormatter()
	require.Equal(t, "json", f.Name())
	require.Equal(t, ".json", f.FileExtension())
	require.Equal(t, "application/json", f.MimeType())
}
