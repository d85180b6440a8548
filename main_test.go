//go:build !gui

package main

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/readaloud/lector/internal/geom"
	"github.com/readaloud/lector/internal/narrate"
	"github.com/readaloud/lector/internal/overlay"
	"github.com/readaloud/lector/internal/reader"
	"github.com/readaloud/lector/internal/speech"
)

func TestHighlightCells(t *testing.T) {
	// A word occupying columns 3-6 of row 2, behind the pointer gutter.
	word := geom.Rect{
		Left:   (gutterCols + 3) * cellW,
		Top:    2 * cellH,
		Width:  4 * cellW,
		Height: cellH,
	}

	// The overlay pads the rect; the cell conversion must shed the padding
	// by intersecting with whole cells.
	padded := geom.Rect{
		Left:   word.Left - 2,
		Top:    word.Top - 2,
		Width:  word.Width + 4,
		Height: word.Height + 4,
	}

	row, start, end := highlightCells(padded, 0)
	if row != 2 {
		t.Errorf("row = %d, want 2", row)
	}
	if start != 3 || end != 7 {
		t.Errorf("cols = [%d, %d), want [3, 7)", start, end)
	}

	row, _, _ = highlightCells(padded, 5)
	if row != 7 {
		t.Errorf("row with offset = %d, want 7", row)
	}
}

func TestHighlightCellsUnpadded(t *testing.T) {
	word := geom.Rect{
		Left:   gutterCols * cellW,
		Top:    0,
		Width:  2 * cellW,
		Height: cellH,
	}
	row, start, end := highlightCells(word, 0)
	if row != 0 || start != 0 || end != 2 {
		t.Errorf("got row %d cols [%d, %d), want row 0 cols [0, 2)", row, start, end)
	}
}

func TestStyleLine(t *testing.T) {
	if got := styleLine("hello world", false, 0, 5); got != "hello world" {
		t.Errorf("unhighlighted line changed: %q", got)
	}

	// Clamped ranges never panic and keep the full text.
	for _, r := range [][2]int{{0, 5}, {-3, 5}, {6, 99}, {4, 4}, {8, 2}} {
		got := styleLine("hello world", true, r[0], r[1])
		if !strings.Contains(stripANSI(got), "hello world") {
			t.Errorf("styleLine(%d, %d) lost text: %q", r[0], r[1], got)
		}
	}
}

// stripANSI removes CSI escape sequences from styled output.
func stripANSI(s string) string {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			i += 2
			for i < len(s) && (s[i] < 0x40 || s[i] > 0x7e) {
				i++
			}
			continue
		}
		out.WriteByte(s[i])
	}
	return out.String()
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "short", 10, "short"},
		{"exact", "exact", 5, "exact"},
		{"truncated", "a longer string", 8, "a longe…"},
		{"width one", "abc", 1, "a"},
		{"zero width", "abc", 0, "abc"},
		{"empty", "", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncate(tt.in, tt.width); got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func newResizeModel() model {
	doc := &reader.Document{
		Title:    "doc",
		Chapters: []reader.Chapter{{Title: "One", Text: "alpha beta gamma delta epsilon zeta"}},
	}
	ovl := &termOverlay{}
	a := &app{
		logger: slog.New(slog.DiscardHandler),
		doc:    doc,
		ctrl:   narrate.NewController(narrate.Options{}, nil),
		pos:    overlay.NewPositioner(ovl, nil),
		ovl:    ovl,
		engine: speech.NullEngine{},
	}
	return model{app: a, keys: defaultKeyMap(), width: 40, height: 10}
}

func TestRelayoutCancelsNarration(t *testing.T) {
	m := newResizeModel()
	m.relayout()

	m.playPause()
	if m.ctrl.Status() != narrate.StatusSpeaking {
		t.Fatalf("status = %v, want speaking", m.ctrl.Status())
	}
	if !m.ovl.active {
		t.Fatal("overlay not active while speaking")
	}

	// A resize repaginates; the teardown must reach the overlay and engine.
	m.width, m.height = 60, 14
	m.relayout()

	if m.ctrl.Status() != narrate.StatusIdle {
		t.Errorf("status after resize = %v, want idle", m.ctrl.Status())
	}
	if m.ovl.active {
		t.Error("overlay still active after resize")
	}
	if m.ovl.highlight != nil || m.ovl.pointer != nil {
		t.Error("overlay geometry survived resize")
	}
}
