// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package extractor implements the extraction capability: turning a stored
// file handle into a paginated line/character view. Extractors are selected
// by file extension through a Router.
package extractor

import (
	"fmt"
	"path/filepath"
	"strings"

	"twinscan/internal/document"
)

// Router dispatches extraction by file extension.
type Router struct {
	byExt map[string]document.Extractor
}

// NewRouter returns a router with the built-in PDF and plain-text extractors
// registered.
func NewRouter() *Router {
	r := &Router{byExt: make(map[string]document.Extractor)}
	r.Register(NewPDF(), ".pdf")
	r.Register(NewPlainText(), ".txt", ".text", ".md")
	return r
}

// Register associates an extractor with one or more extensions.
func (r *Router) Register(e document.Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// Supported reports whether files with this name can be extracted.
func (r *Router) Supported(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extract dispatches to the extractor for the file's extension.
func (r *Router) Extract(path string) (*document.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	e, ok := r.byExt[ext]
	if !ok {
		return nil, &document.ExtractionError{
			Path: path,
			Err:  fmt.Errorf("unsupported file type %q", ext),
		}
	}
	return e.Extract(path)
}
