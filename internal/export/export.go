// Copyright Twinscan Authors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package export

import (
	"fmt"
	"sort"
	"strings"

	"twinscan/internal/task"
)

// Options tunes formatter output.
type Options struct {
	NoColor bool // disable colored output where the format supports it
	Verbose bool // include per-match context and differences
}

// Formatter renders a comparison result into one output format.
type Formatter interface {
	Format(result *task.Result, options Options) ([]byte, error)

	// Name is the format selector ("json", "csv", "text", "pdf").
	Name() string

	// Description is a one-line summary for help output.
	Description() string

	// FileExtension is the recommended extension, dot included.
	FileExtension() string

	// MimeType is the Content-Type for HTTP downloads.
	MimeType() string
}

// Registry holds all registered formatters.
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates an empty formatter registry.
func NewRegistry() *Registry {
	return &Registry{formatters: make(map[string]Formatter)}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Name()] = f
}

// Get retrieves a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	f, exists := r.formatters[name]
	return f, exists
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry. Formatter packages
// register themselves in init.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) {
	DefaultRegistry.Register(f)
}

// Get retrieves a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List returns all formatter names in the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// Export renders a result via the named formatter in the default registry.
func Export(format string, result *task.Result, options Options) ([]byte, error) {
	f, exists := Get(format)
	if !exists {
		return nil, fmt.Errorf("unsupported format %q. Available formats: %s",
			format, strings.Join(List(), ", "))
	}
	return f.Format(result, options)
}

// ExportForWeb renders a result and returns the MIME type and suggested
// download filename alongside the content.
func ExportForWeb(format string, result *task.Result, options Options) (content []byte, mimeType, filename string, err error) {
	f, exists := Get(format)
	if !exists {
		return nil, "", "", fmt.Errorf("unsupported format %q. Available formats: %s",
			format, strings.Join(List(), ", "))
	}
	content, err = f.Format(result, options)
	if err != nil {
		return nil, "", "", err
	}
	return content, f.MimeType(), "comparison-" + result.TaskID + f.FileExtension(), nil
}
