// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package observability records per-operation timing and outcome for the
// pipeline stages and the web handlers. Records are JSON lines on a writer;
// at level Off nothing is emitted.
package observability

import (
	"encoding/json"
	"io"
	"sync"
	"time"
)

type Level int

const (
	LevelOff Level = iota
	LevelMetrics
	LevelDebug
)

// Observer emits operation records. Safe for concurrent use.
type Observer struct {
	level  Level
	mu     sync.Mutex
	writer io.Writer
}

func NewObserver(level Level, writer io.Writer) *Observer {
	return &Observer{level: level, writer: writer}
}

// Record is one completed operation.
type Record struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	TaskID     string                 `json:"task_id,omitempty"`
	DurationMs int64                  `json:"duration_ms"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// StartTiming returns a completion function capturing the elapsed time.
func (o *Observer) StartTiming(component, operation, taskID string) func(success bool, metadata map[string]interface{}) {
	if o == nil || o.level == LevelOff {
		return func(bool, map[string]interface{}) {}
	}
	start := time.Now()
	return func(success bool, metadata map[string]interface{}) {
		o.Log(Record{
			Component:  component,
			Operation:  operation,
			TaskID:     taskID,
			DurationMs: time.Since(start).Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		})
	}
}

// Log writes one record. Only debug level emits JSON lines; metrics level
// keeps the timing plumbing alive without output, matching the quiet CLI
// default.
func (o *Observer) Log(rec Record) {
	if o == nil || o.level != LevelDebug || o.writer == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	json.NewEncoder(o.writer).Encode(rec)
}
