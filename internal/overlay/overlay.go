// Package overlay keeps the pointer and highlight aligned with the word
// currently being narrated, resolving screen-space geometry through the word
// unit's source run.
package overlay

import (
	"log/slog"

	"github.com/readaloud/lector/internal/geom"
	"github.com/readaloud/lector/internal/segment"
)

// Highlight padding and size clamps. The ceilings guard against a
// pathological rect (a run spanning the whole page) producing an oversized
// highlight.
const (
	highlightPad       = 2
	highlightMinWidth  = 6
	highlightMaxWidth  = 2000
	highlightMinHeight = 10
	highlightMaxHeight = 2000
)

// Renderer draws the pointer and highlight. A nil pointer/rect clears the
// corresponding visual. Implemented by the hosts.
type Renderer interface {
	SetPointerTarget(p *geom.Point)
	SetHighlightRect(r *geom.Rect)
	SetActive(active bool)
	SetPaused(paused bool)
}

// Positioner tracks the current word and recomputes its screen-space overlay
// on demand. Trigger events (word change, scroll, resize) only mark state
// dirty; the host calls Flush once per frame so that a burst of triggers
// costs a single layout query.
type Positioner struct {
	renderer Renderer
	logger   *slog.Logger

	words   []segment.WordUnit
	current int
	dirty   bool
}

// NewPositioner creates a positioner with no current word.
func NewPositioner(renderer Renderer, logger *slog.Logger) *Positioner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Positioner{renderer: renderer, logger: logger, current: -1}
}

// SetWords replaces the word set after a page change and clears the overlay.
func (p *Positioner) SetWords(words []segment.WordUnit) {
	p.words = words
	p.Clear()
}

// MarkWord makes index the current word and schedules a recompute.
func (p *Positioner) MarkWord(index int) {
	if index < 0 || index >= len(p.words) {
		return
	}
	p.current = index
	p.dirty = true
}

// Refresh schedules a recompute after a scroll or resize. The word does not
// change, only its screen position; with no current word there is nothing to
// reposition.
func (p *Positioner) Refresh() {
	if p.current < 0 {
		return
	}
	p.dirty = true
}

// Clear drops the current word and blanks the overlay immediately.
func (p *Positioner) Clear() {
	p.current = -1
	p.dirty = false
	p.renderer.SetPointerTarget(nil)
	p.renderer.SetHighlightRect(nil)
}

// Dirty reports whether a Flush is due.
func (p *Positioner) Dirty() bool { return p.dirty }

// Flush performs the coalesced recompute. When geometry is transiently
// unavailable the previous overlay is left untouched rather than blanked;
// the next trigger retries.
func (p *Positioner) Flush() {
	if !p.dirty {
		return
	}
	p.dirty = false
	if p.current < 0 || p.current >= len(p.words) {
		return
	}
	rect, ok := resolveRect(p.words[p.current])
	if !ok {
		p.logger.Debug("word rect unavailable", "word", p.current)
		return
	}
	pt := rect.Center()
	hl := highlightRect(rect)
	p.renderer.SetPointerTarget(&pt)
	p.renderer.SetHighlightRect(&hl)
}

// resolveRect queries the precise sub-range rectangle of the word within its
// run, falling back to the whole run's bounds when the precise query fails or
// reports a degenerate rect mid-layout.
func resolveRect(w segment.WordUnit) (geom.Rect, bool) {
	rect, err := w.Run.RangeBounds(w.Start, w.End)
	if err != nil || rect.Degenerate() {
		rect, err = w.Run.Bounds()
		if err != nil || rect.Degenerate() {
			return geom.Rect{}, false
		}
	}
	return rect, true
}

// highlightRect pads the word rect and clamps the result.
func highlightRect(r geom.Rect) geom.Rect {
	return geom.Rect{
		Left:   r.Left - highlightPad,
		Top:    r.Top - highlightPad,
		Width:  clamp(r.Width+2*highlightPad, highlightMinWidth, highlightMaxWidth),
		Height: clamp(r.Height+2*highlightPad, highlightMinHeight, highlightMaxHeight),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
