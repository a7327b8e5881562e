// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"

	"twinscan/internal/document"
	"twinscan/internal/filter"
	"twinscan/internal/matcher"
)

// Params is the full configuration of one comparison request. Validation
// happens synchronously at submit; an invalid request never becomes a task.
type Params struct {
	SimilarityThreshold float64             `json:"similarityThreshold"`
	SequenceLength      int                 `json:"sequenceLength"`
	FilterPolicy        filter.Policy       `json:"contentFilter"`
	ProcessingMode      matcher.Mode        `json:"processingMode"`
	MaxMatches          int                 `json:"maxMatches"`
	ContextChars        int                 `json:"contextChars"`
	MinLineLength       int                 `json:"minLineLength,omitempty"`
	PageRange1          *document.PageRange `json:"pageRange1,omitempty"`
	PageRange2          *document.PageRange `json:"pageRange2,omitempty"`
}

// DefaultParams mirrors the API defaults.
func DefaultParams() Params {
	return Params{
		SimilarityThreshold: 0.90,
		SequenceLength:      8,
		FilterPolicy:        filter.MainContentOnly,
		ProcessingMode:      matcher.Fast,
		MaxMatches:          1000,
		ContextChars:        100,
		MinLineLength:       10,
	}
}

// Validate rejects out-of-range parameters with usage errors.
func (p *Params) Validate() error {
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return document.NewUsageError(fmt.Sprintf(
			"similarity threshold %v: must be in (0, 1]", p.SimilarityThreshold))
	}
	if p.SequenceLength < 1 {
		return document.NewUsageError(fmt.Sprintf(
			"sequence length %d: must be at least 1", p.SequenceLength))
	}
	if p.MaxMatches < 1 {
		return document.NewUsageError(fmt.Sprintf(
			"max matches %d: must be at least 1", p.MaxMatches))
	}
	if p.ContextChars < 0 || p.ContextChars > 500 {
		return document.NewUsageError(fmt.Sprintf(
			"context chars %d: must be in [0, 500]", p.ContextChars))
	}
	if _, err := filter.ParsePolicy(string(p.FilterPolicy)); err != nil {
		return err
	}
	if _, err := matcher.ParseMode(string(p.ProcessingMode)); err != nil {
		return err
	}
	if err := p.PageRange1.Validate(); err != nil {
		return err
	}
	if err := p.PageRange2.Validate(); err != nil {
		return err
	}
	return nil
}
