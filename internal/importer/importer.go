package importer

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
)

// Entry is one source listed in a bulk import file.
type Entry struct {
	Title string
	URL   string
}

// Format captures a single import file layout (tab, pipe, html, etc.).
type Format interface {
	Name() string
	Parse(ctx context.Context, r io.Reader) ([]Entry, error)
}

// Registry keeps a mapping from format names to their implementations.
type Registry struct {
	formats map[string]Format
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{formats: map[string]Format{}}
}

// Register adds or replaces a format implementation.
func (r *Registry) Register(format Format) {
	if r.formats == nil {
		r.formats = map[string]Format{}
	}
	r.formats[format.Name()] = format
}

// Resolve returns a format by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Format, error) {
	if format, ok := r.formats[name]; ok {
		return format, nil
	}
	return nil, fmt.Errorf("import format %s is not registered", name)
}

// Names lists registered formats in alphabetical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.formats))
	for name := range r.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var videoIDPattern = regexp.MustCompile(`(?:v=|youtu\.be/)([0-9A-Za-z_-]{11})`)

// VideoID extracts the 11 character YouTube video id from url, or "".
func VideoID(url string) string {
	m := videoIDPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}
