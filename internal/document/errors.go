// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"errors"
	"fmt"
)

// Lookup-time sentinels. Failures local to one task never affect another.
var (
	// ErrNotFound means the requested task id is unknown.
	ErrNotFound = errors.New("task not found")

	// ErrNotReady means the task exists but has not completed yet.
	ErrNotReady = errors.New("task not completed")

	// ErrConflict means a second start was attempted on an active task.
	ErrConflict = errors.New("task already processing")
)

// UsageError reports invalid parameters. It is raised synchronously at submit
// time and never produces a task.
type UsageError struct {
	Detail string
}

func NewUsageError(detail string) *UsageError {
	return &UsageError{Detail: detail}
}

func (e *UsageError) Error() string {
	return "invalid parameters: " + e.Detail
}

// IsUsageError reports whether err is (or wraps) a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// ExtractionError reports a collaborator failure while turning a file into a
// Document. It surfaces as a task Error with a stable detail string.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed: %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

// ComputationError reports an internal invariant violation during matching or
// aggregation. It surfaces as a task Error, never as a crash.
type ComputationError struct {
	Stage string
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed in %s: %v", e.Stage, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
