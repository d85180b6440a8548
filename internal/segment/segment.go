// Package segment turns a page's text runs into addressable word units.
package segment

import (
	"unicode"

	"github.com/readaloud/lector/internal/geom"
)

// Run is a contiguous piece of page text that can answer geometry queries
// about itself. The document layer provides implementations; the narration
// core only reads through this interface.
type Run interface {
	// Text returns the run's string content.
	Text() string
	// Bounds returns the on-screen rectangle of the whole run.
	Bounds() (geom.Rect, error)
	// RangeBounds returns the on-screen rectangle of the byte range
	// [start, end) within the run's text.
	RangeBounds(start, end int) (geom.Rect, error)
}

// WordUnit is a maximal whitespace-delimited token with a back-reference to
// its source run. Units are immutable once produced; a page change replaces
// the whole slice.
type WordUnit struct {
	Index int
	Text  string
	Run   Run
	Start int // byte offset of Text within Run.Text()
	End   int
}

// Segment scans the runs in order and extracts word units in reading order.
// Words are separated by Unicode whitespace; offsets are byte positions, so
// they index Run.Text() directly even for multibyte content. Indices are
// contiguous from zero. Runs without any non-whitespace content contribute
// nothing; zero runs yield an empty slice.
func Segment(runs []Run) []WordUnit {
	var words []WordUnit
	for _, run := range runs {
		s := run.Text()
		start := -1
		for i, r := range s {
			if unicode.IsSpace(r) {
				if start >= 0 {
					words = append(words, WordUnit{
						Index: len(words),
						Text:  s[start:i],
						Run:   run,
						Start: start,
						End:   i,
					})
					start = -1
				}
				continue
			}
			if start < 0 {
				start = i
			}
		}
		if start >= 0 {
			words = append(words, WordUnit{
				Index: len(words),
				Text:  s[start:],
				Run:   run,
				Start: start,
				End:   len(s),
			})
		}
	}
	return words
}
