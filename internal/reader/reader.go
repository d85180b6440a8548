// Package reader loads documents and paginates their text for display.
package reader

import "strings"

// Chapter is a titled span of document text.
type Chapter struct {
	Title string
	Text  string
}

// Document is the extracted content of a file, split into chapters.
type Document struct {
	Title    string
	Chapters []Chapter
}

// Words returns the total whitespace-delimited word count.
func (d *Document) Words() int {
	n := 0
	for _, ch := range d.Chapters {
		n += len(strings.Fields(ch.Text))
	}
	return n
}

// Empty reports whether the document has no readable text.
func (d *Document) Empty() bool {
	for _, ch := range d.Chapters {
		if strings.TrimSpace(ch.Text) != "" {
			return false
		}
	}
	return true
}
