package narrate

import (
	"testing"

	"github.com/readaloud/lector/internal/geom"
	"github.com/readaloud/lector/internal/segment"
)

// textRun is a geometry-less run for exercising the narration core.
type textRun string

func (r textRun) Text() string { return string(r) }

func (r textRun) Bounds() (geom.Rect, error) {
	return geom.Rect{Width: 1, Height: 1}, nil
}

func (r textRun) RangeBounds(start, end int) (geom.Rect, error) {
	return geom.Rect{Width: 1, Height: 1}, nil
}

func makeWords(lines ...string) []segment.WordUnit {
	runs := make([]segment.Run, len(lines))
	for i, l := range lines {
		runs[i] = textRun(l)
	}
	return segment.Segment(runs)
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"two runs", []string{"The quick", "fox"}, "The quick fox"},
		{"single word", []string{"Hello"}, "Hello"},
		{"collapses whitespace", []string{"a\t b", "  c  "}, "a b c"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Flatten(makeWords(tt.lines...)); got != tt.want {
				t.Errorf("Flatten() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildOffsets(t *testing.T) {
	table := BuildOffsets(makeWords("The quick", "fox"))
	want := OffsetTable{0, 4, 10}
	if len(table) != len(want) {
		t.Fatalf("got %v, want %v", table, want)
	}
	for i := range want {
		if table[i] != want[i] {
			t.Errorf("table[%d] = %d, want %d", i, table[i], want[i])
		}
	}
}

func TestLookup(t *testing.T) {
	// "The quick fox" -> offsets [0, 4, 10]
	table := BuildOffsets(makeWords("The quick", "fox"))

	tests := []struct {
		charIndex int
		want      int
	}{
		{0, 0},
		{3, 0}, // space after "The" still belongs to word 0
		{4, 1},
		{5, 1},
		{9, 1},
		{10, 2},
		{12, 2},
		{999, 2}, // past the end clamps to the last word
		{-5, 0},  // before the first entry clamps to word 0
	}
	for _, tt := range tests {
		if got := table.Lookup(tt.charIndex); got != tt.want {
			t.Errorf("Lookup(%d) = %d, want %d", tt.charIndex, got, tt.want)
		}
	}
}

func TestLookupEmpty(t *testing.T) {
	var table OffsetTable
	if got := table.Lookup(0); got != -1 {
		t.Errorf("Lookup on empty table = %d, want -1", got)
	}
}

func TestOffsetsIndexFlattenedText(t *testing.T) {
	words := makeWords("It was a bright cold day", "in April, and the clocks", "were striking thirteen.")
	flat := Flatten(words)
	table := BuildOffsets(words)

	for i, w := range words {
		off := table[i]
		if got := flat[off : off+len(w.Text)]; got != w.Text {
			t.Errorf("word %d: flat[%d:] = %q, want %q", i, off, got, w.Text)
		}
		// Every offset inside the word (and its trailing space) maps back.
		for c := off; c < off+len(w.Text)+1 && c < len(flat)+1; c++ {
			if got := table.Lookup(c); got != i {
				t.Errorf("Lookup(%d) = %d, want %d", c, got, i)
			}
		}
	}
}
