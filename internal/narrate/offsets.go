package narrate

import (
	"sort"
	"strings"

	"github.com/readaloud/lector/internal/segment"
)

// OffsetTable maps each word unit to the offset of its first character in
// the flattened narration text. Entries are strictly increasing. The table
// is rebuilt wholesale whenever the word set changes, never edited in place.
type OffsetTable []int

// Flatten joins the word texts with single spaces. This is the exact string
// handed to the speech engine; boundary events index into it, so Flatten and
// BuildOffsets must use the same joining rule.
func Flatten(words []segment.WordUnit) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = w.Text
	}
	return strings.Join(parts, " ")
}

// BuildOffsets computes the offset table for the flattened form of words.
func BuildOffsets(words []segment.WordUnit) OffsetTable {
	table := make(OffsetTable, len(words))
	off := 0
	for i, w := range words {
		table[i] = off
		off += len(w.Text) + 1
	}
	return table
}

// Lookup returns the index of the word owning charIndex: the greatest i with
// table[i] <= charIndex. Offsets before the first entry map to word 0 and
// offsets past the end map to the last word. An empty table yields -1.
//
// Boundary events arrive once per word at speaking rate, so this is a binary
// search rather than a scan.
func (t OffsetTable) Lookup(charIndex int) int {
	if len(t) == 0 {
		return -1
	}
	// First entry strictly greater than charIndex; the owner is just before it.
	i := sort.Search(len(t), func(i int) bool { return t[i] > charIndex })
	if i == 0 {
		return 0
	}
	return i - 1
}
