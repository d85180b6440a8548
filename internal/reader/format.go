package reader

import (
	"os"
	"path/filepath"
	"strings"
)

// Format defines a file format reader for extracting document content.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) (*Document, error)
}

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

// Open extracts a document from a file, using a registered format or the
// plain text fallback.
func Open(filename string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f.Extract(filename)
			}
		}
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &Document{
		Title:    docTitle(filename),
		Chapters: []Chapter{{Title: docTitle(filename), Text: string(data)}},
	}, nil
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	return out
}

// docTitle derives a document title from the filename.
func docTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
