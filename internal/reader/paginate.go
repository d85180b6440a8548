package reader

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/readaloud/lector/internal/geom"
	"github.com/readaloud/lector/internal/segment"
)

// ErrNotVisible is returned by geometry queries for lines scrolled out of
// the viewport.
var ErrNotVisible = errors.New("line not visible")

// Grid places paginated lines on the viewport: Left/Top is the origin of the
// page body in viewport coordinates, Scroll the number of rows scrolled off
// the top, Rows the visible row count. CellWidth/CellHeight scale text cells
// to viewport units (pixels for a GUI host; a terminal host picks a nominal
// cell size). The host updates the grid on every scroll and resize; geometry
// queries read through it.
type Grid struct {
	Left       float64
	Top        float64
	Scroll     int
	Rows       int
	CellWidth  float64
	CellHeight float64
}

func (g Grid) cellSize() (w, h float64) {
	w, h = g.CellWidth, g.CellHeight
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}

// Page is one screenful of wrapped lines.
type Page struct {
	Index   int
	Chapter string
	Lines   []*Line
}

// Line is a single wrapped text row. It implements segment.Run against the
// pagination's grid, so word geometry follows scrolling for free.
type Line struct {
	grid *Grid
	Row  int // row within the page, 0-based
	text string
}

// Text returns the line content.
func (l *Line) Text() string { return l.text }

// Bounds returns the on-screen rectangle of the whole line.
func (l *Line) Bounds() (geom.Rect, error) {
	return l.rangeRect(0, utf8.RuneCountInString(l.text))
}

// RangeBounds returns the on-screen rectangle of the byte range [start, end).
func (l *Line) RangeBounds(start, end int) (geom.Rect, error) {
	if start < 0 || end > len(l.text) || start >= end {
		return geom.Rect{}, errors.New("range out of bounds")
	}
	col := utf8.RuneCountInString(l.text[:start])
	width := utf8.RuneCountInString(l.text[start:end])
	return l.rangeRect(col, width)
}

func (l *Line) rangeRect(col, width int) (geom.Rect, error) {
	if l.Row < l.grid.Scroll || l.Row >= l.grid.Scroll+l.grid.Rows {
		return geom.Rect{}, ErrNotVisible
	}
	cw, chh := l.grid.cellSize()
	return geom.Rect{
		Left:   l.grid.Left + float64(col)*cw,
		Top:    l.grid.Top + float64(l.Row-l.grid.Scroll)*chh,
		Width:  float64(width) * cw,
		Height: chh,
	}, nil
}

// Pagination is a document laid out into fixed-size pages.
type Pagination struct {
	Pages  []*Page
	TOC    []TOCEntry
	Width  int
	Height int

	grid Grid
}

// Paginate wraps each chapter's text to width and cuts it into pages of
// height lines. Every chapter starts a new page.
func Paginate(doc *Document, width, height int) *Pagination {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	p := &Pagination{
		Width:  width,
		Height: height,
		grid:   Grid{Rows: height},
	}

	for _, ch := range doc.Chapters {
		rows := wrap(ch.Text, width)
		if len(rows) == 0 {
			continue
		}
		p.TOC = append(p.TOC, TOCEntry{Title: ch.Title, Page: len(p.Pages)})

		for start := 0; start < len(rows); start += height {
			end := start + height
			if end > len(rows) {
				end = len(rows)
			}
			page := &Page{Index: len(p.Pages), Chapter: ch.Title}
			for i, row := range rows[start:end] {
				page.Lines = append(page.Lines, &Line{grid: &p.grid, Row: i, text: row})
			}
			p.Pages = append(p.Pages, page)
		}
	}
	return p
}

// PageCount returns the number of pages.
func (p *Pagination) PageCount() int { return len(p.Pages) }

// Runs returns the page's lines as segmentation input. Out-of-range pages
// yield nil, which segments to zero words.
func (p *Pagination) Runs(page int) []segment.Run {
	if page < 0 || page >= len(p.Pages) {
		return nil
	}
	runs := make([]segment.Run, len(p.Pages[page].Lines))
	for i, l := range p.Pages[page].Lines {
		runs[i] = l
	}
	return runs
}

// SetGrid updates the viewport placement of the page body. Geometry queries
// issued afterwards reflect the new origin and scroll.
func (p *Pagination) SetGrid(g Grid) {
	if g.Rows <= 0 {
		g.Rows = p.Height
	}
	p.grid = g
}

// GridState returns the current grid placement.
func (p *Pagination) GridState() Grid { return p.grid }

// wrap greedily word-wraps text to width columns. Paragraph breaks become
// blank rows; words longer than width are hard-split.
func wrap(text string, width int) []string {
	var rows []string
	paras := strings.Split(text, "\n\n")
	for pi, para := range paras {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if pi > 0 && len(rows) > 0 {
			rows = append(rows, "")
		}
		line := ""
		lineLen := 0
		for _, w := range words {
			for utf8.RuneCountInString(w) > width {
				// Hard split an overlong word.
				if lineLen > 0 {
					rows = append(rows, line)
					line, lineLen = "", 0
				}
				head := truncRunes(w, width)
				rows = append(rows, head)
				w = w[len(head):]
			}
			wl := utf8.RuneCountInString(w)
			if wl == 0 {
				continue
			}
			switch {
			case lineLen == 0:
				line, lineLen = w, wl
			case lineLen+1+wl <= width:
				line += " " + w
				lineLen += 1 + wl
			default:
				rows = append(rows, line)
				line, lineLen = w, wl
			}
		}
		if lineLen > 0 {
			rows = append(rows, line)
		}
	}
	return rows
}

// truncRunes returns the prefix of s holding at most n runes.
func truncRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
