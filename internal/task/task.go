// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package task owns the comparison task state machine and the worker pool
// that drives the detection pipeline.
package task

import (
	"context"
	"sync"
	"time"

	"twinscan/internal/document"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Task is one comparison request and its lifecycle. All mutation goes through
// the controller; readers get consistent copies via Snapshot.
type Task struct {
	ID     string
	Params Params
	Path1  string
	Path2  string

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	status      Status
	progress    int
	message     string
	step        string
	createdAt   time.Time
	completedAt *time.Time
	errorDetail string
	result      *Result
}

// Snapshot is a consistent public view of a task.
type Snapshot struct {
	TaskID      string     `json:"taskId"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message,omitempty"`
	CurrentStep string     `json:"currentStep,omitempty"`
	CreatedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

func newTask(id string, params Params, path1, path2 string) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		ID:        id,
		Params:    params,
		Path1:     path1,
		Path2:     path2,
		ctx:       ctx,
		cancel:    cancel,
		status:    StatusPending,
		createdAt: time.Now(),
	}
}

// Snapshot returns the current public view.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		TaskID:      t.ID,
		Status:      t.status,
		Progress:    t.progress,
		Message:     t.message,
		CurrentStep: t.step,
		CreatedAt:   t.createdAt,
		CompletedAt: t.completedAt,
		Error:       t.errorDetail,
	}
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Result returns the comparison result once the task completed.
func (t *Task) Result() (*Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusCompleted || t.result == nil {
		return nil, document.ErrNotReady
	}
	return t.result, nil
}

// Cancel requests cooperative cancellation. Idempotent; a no-op once the task
// is terminal.
func (t *Task) Cancel() {
	t.mu.Lock()
	terminal := t.status.Terminal()
	t.mu.Unlock()
	if !terminal {
		t.cancel()
	}
}

// claim moves Pending → Processing. Any other starting state is a conflict:
// only one worker may ever process a task.
func (t *Task) claim() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return document.ErrConflict
	}
	t.status = StatusProcessing
	return nil
}

// setProgress advances progress and the step message. Progress never
// decreases until the task is terminal.
func (t *Task) setProgress(p int, message, step string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return t.progress, false
	}
	if p > 100 {
		p = 100
	}
	if p < t.progress {
		p = t.progress
	}
	t.progress = p
	t.message = message
	t.step = step
	return t.progress, true
}

func (t *Task) finish(status Status, detail string, result *Result) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return
	}
	t.status = status
	t.completedAt = &now
	switch status {
	case StatusCompleted:
		t.progress = 100
		t.result = result
		t.message = "comparison completed"
	case StatusError:
		// No partial result is ever exposed on failure.
		t.errorDetail = detail
		t.result = nil
		t.message = detail
	case StatusCancelled:
		// A cancelled task exposes neither error nor result.
		t.result = nil
		t.message = "comparison cancelled"
	}
}
