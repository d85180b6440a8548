//go:build gui

package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/readaloud/lector/internal/config"
	"github.com/readaloud/lector/internal/geom"
	"github.com/readaloud/lector/internal/logging"
	"github.com/readaloud/lector/internal/narrate"
	"github.com/readaloud/lector/internal/overlay"
	"github.com/readaloud/lector/internal/reader"
	"github.com/readaloud/lector/internal/segment"
	"github.com/readaloud/lector/internal/speech"
	"github.com/readaloud/lector/internal/state"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// fyneOverlay implements overlay.Renderer on a TextGrid page view: the
// highlight is a style range on the grid, the pointer a glyph moved over it.
// Geometry arrives in pixels because the grid is published with the measured
// cell size.
type fyneOverlay struct {
	grid    *widget.TextGrid
	pointer *canvas.Text
	cellW   float32
	cellH   float32

	hlRow, hlStart, hlEnd int
	hasHighlight          bool
}

var highlightGridStyle = &widget.CustomTextGridStyle{
	FGColor: color.Black,
	BGColor: color.RGBA{R: 255, G: 215, B: 95, A: 255},
}

func (o *fyneOverlay) SetHighlightRect(r *geom.Rect) {
	o.clearHighlight()
	if r == nil {
		o.grid.Refresh()
		return
	}
	row := int((r.Top + r.Height/2) / float64(o.cellH))
	start := int(float64(r.Left)/float64(o.cellW) + 0.5)
	end := int(float64(r.Left+r.Width)/float64(o.cellW) + 0.5)
	if row < 0 || row >= len(o.grid.Rows) {
		return
	}
	for col := start; col < end && col < len(o.grid.Rows[row].Cells); col++ {
		if col >= 0 {
			o.grid.Rows[row].Cells[col].Style = highlightGridStyle
		}
	}
	o.hlRow, o.hlStart, o.hlEnd = row, start, end
	o.hasHighlight = true
	o.grid.Refresh()
}

func (o *fyneOverlay) clearHighlight() {
	if !o.hasHighlight {
		return
	}
	if o.hlRow >= 0 && o.hlRow < len(o.grid.Rows) {
		for col := o.hlStart; col < o.hlEnd && col < len(o.grid.Rows[o.hlRow].Cells); col++ {
			if col >= 0 {
				o.grid.Rows[o.hlRow].Cells[col].Style = nil
			}
		}
	}
	o.hasHighlight = false
}

func (o *fyneOverlay) SetPointerTarget(p *geom.Point) {
	if p == nil {
		o.pointer.Hide()
		return
	}
	o.pointer.Move(fyne.NewPos(float32(p.X)-o.cellW, float32(p.Y)-o.cellH/2))
	o.pointer.Show()
	canvas.Refresh(o.pointer)
}

func (o *fyneOverlay) SetActive(active bool) {
	if !active {
		o.pointer.Hide()
	}
}

func (o *fyneOverlay) SetPaused(paused bool) {
	if paused {
		o.pointer.Color = color.RGBA{R: 255, G: 170, B: 0, A: 255}
	} else {
		o.pointer.Color = color.RGBA{R: 255, G: 95, B: 95, A: 255}
	}
	o.pointer.Refresh()
}

// guiApp wires the narration core to the fyne window. All mutations run on
// the fyne UI goroutine; engine callbacks hop onto it with fyne.Do.
type guiApp struct {
	logger *slog.Logger
	doc    *reader.Document
	pag    *reader.Pagination
	ctrl   *narrate.Controller
	pos    *overlay.Positioner
	ovl    *fyneOverlay
	engine speech.Engine
	store  *state.Store
	hash   string

	page  int
	words []segment.WordUnit

	cols, rows int

	status  *widget.Label
	lastErr string
}

// guiNotifier delivers engine events on the UI goroutine with their epoch.
type guiNotifier struct {
	g     *guiApp
	epoch int
}

func (n guiNotifier) SpeechBoundary(charIndex int) {
	fyne.Do(func() { n.g.apply(n.g.ctrl.Boundary(n.epoch, charIndex)) })
}

func (n guiNotifier) SpeechEnd() {
	fyne.Do(func() { n.g.apply(n.g.ctrl.Ended(n.epoch)) })
}

func (n guiNotifier) SpeechError(err error) {
	fyne.Do(func() {
		n.g.lastErr = err.Error()
		n.g.apply(n.g.ctrl.Failed(n.epoch, err))
	})
}

// apply performs the controller's side-effect intents, then flushes the
// overlay. The fyne host flushes immediately: fyne already coalesces canvas
// refreshes per frame.
func (g *guiApp) apply(effects []narrate.Effect) {
	for _, ef := range effects {
		switch ef := ef.(type) {
		case narrate.CancelEffect:
			g.engine.Cancel()
		case narrate.SpeakEffect:
			g.speak(ef)
		case narrate.PauseEffect:
			if err := g.engine.Pause(); err != nil {
				g.logger.Warn("pause failed", "error", err)
			}
		case narrate.ResumeEffect:
			if err := g.engine.Resume(); err != nil {
				g.logger.Warn("resume failed", "error", err)
			}
		case narrate.WordEffect:
			g.pos.MarkWord(ef.Index)
		case narrate.ClearOverlayEffect:
			g.pos.Clear()
		case narrate.ActiveEffect:
			g.ovl.SetActive(ef.Active)
		case narrate.PausedEffect:
			g.ovl.SetPaused(ef.Paused)
		case narrate.TurnPageEffect:
			g.installPage(ef.Page)
		}
	}
	g.pos.Flush()
	g.updateStatus()
}

func (g *guiApp) speak(ef narrate.SpeakEffect) {
	opts := g.ctrl.Options()
	n := guiNotifier{g: g, epoch: ef.Epoch}
	go func() {
		err := g.engine.Speak(context.Background(), ef.Text, speech.Params{
			Rate:  opts.Rate,
			Pitch: opts.Pitch,
			Voice: opts.Voice,
		}, n)
		if err != nil {
			n.SpeechError(err)
		}
	}()
}

// installPage shows page on the grid and hands its words to the controller.
func (g *guiApp) installPage(page int) {
	if page < 0 || page >= g.pag.PageCount() {
		return
	}
	g.page = page
	g.words = segment.Segment(g.pag.Runs(page))
	g.pos.SetWords(g.words)

	g.ovl.clearHighlight()
	g.ovl.hasHighlight = false
	text := ""
	for i, line := range g.pag.Pages[page].Lines {
		if i > 0 {
			text += "\n"
		}
		text += line.Text()
	}
	g.ovl.grid.SetText(text)

	g.saveState()
	g.apply(g.ctrl.SetPage(page, g.words))
}

func (g *guiApp) playPause() {
	switch g.ctrl.Status() {
	case narrate.StatusIdle:
		effects, err := g.ctrl.Start()
		if err != nil {
			g.lastErr = err.Error()
			g.updateStatus()
			return
		}
		g.lastErr = ""
		g.apply(effects)
	case narrate.StatusSpeaking:
		g.apply(g.ctrl.Pause())
	default:
		g.apply(g.ctrl.Resume())
	}
}

func (g *guiApp) adjustRate(delta float64) {
	opts := g.ctrl.Options()
	opts.Rate += delta
	if opts.Rate < 0.5 {
		opts.Rate = 0.5
	}
	if opts.Rate > 3.0 {
		opts.Rate = 3.0
	}
	g.ctrl.SetOptions(opts)
	g.saveState()
	g.updateStatus()
}

func (g *guiApp) updateStatus() {
	word := "-"
	if g.ctrl.CurrentWord() >= 0 {
		word = fmt.Sprintf("%d", g.ctrl.CurrentWord()+1)
	}
	text := fmt.Sprintf("Page %d/%d | Word %s/%d | Rate %.2fx | %s",
		g.page+1, g.pag.PageCount(), word, g.ctrl.WordCount(),
		g.ctrl.Options().Rate, g.ctrl.Status())
	if g.lastErr != "" {
		text += " | " + g.lastErr
	}
	g.status.SetText(text)
}

func (g *guiApp) saveState() {
	if g.store == nil || g.hash == "" {
		return
	}
	opts := g.ctrl.Options()
	_ = g.store.Set(g.hash, state.ReadingState{
		Page:  g.page,
		Rate:  opts.Rate,
		Voice: opts.Voice,
	})
}

func main() {
	rate := flag.Float64("rate", 0, "Speech rate multiplier (0.5-3.0)")
	voice := flag.String("voice", "", "Voice ID")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lector GUI - Read documents aloud, with a pointer on the spoken word\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  lector [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("lector %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input file. Try: lector -h")
		os.Exit(1)
	}
	filename := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *rate != 0 {
		cfg.Rate = *rate
	}
	if *voice != "" {
		cfg.Voice = *voice
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var logW io.Writer = os.Stderr
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			defer f.Close()
			logW = f
		}
	}
	logger := logging.New(logW, cfg.LogLevel, cfg.LogFormat)

	doc, err := reader.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read '%s': %v\n", filename, err)
		os.Exit(1)
	}
	if doc.Empty() {
		fmt.Fprintln(os.Stderr, "Error: No text to read.")
		os.Exit(1)
	}

	engines := speech.Detect(speech.PiperConfig{
		BinaryPath:   cfg.PiperPath,
		ModelPath:    cfg.PiperModel,
		PlayerPath:   cfg.AudioPlayer,
		DefaultVoice: cfg.Voice,
	}, logger)
	engine, _ := engines.Default()
	logger.Info("speech engine", "selected", engine.Name(), "available", engines.List())

	a := app.New()
	w := a.NewWindow("lector")

	cell := fyne.MeasureText("M", theme.TextSize(), fyne.TextStyle{Monospace: true})

	const cols, rows = 80, 28
	pag := reader.Paginate(doc, cols, rows)
	pag.SetGrid(reader.Grid{
		CellWidth:  float64(cell.Width),
		CellHeight: float64(cell.Height),
		Rows:       rows,
	})

	grid := widget.NewTextGrid()
	pointer := canvas.NewText("▶", color.RGBA{R: 255, G: 95, B: 95, A: 255})
	pointer.TextStyle.Bold = true
	pointer.Hide()

	ovl := &fyneOverlay{grid: grid, pointer: pointer, cellW: cell.Width, cellH: cell.Height}

	g := &guiApp{
		logger: logger,
		doc:    doc,
		pag:    pag,
		engine: engine,
		ovl:    ovl,
		cols:   cols,
		rows:   rows,
		status: widget.NewLabel(""),
	}
	g.ctrl = narrate.NewController(narrate.Options{
		Rate:         cfg.Rate,
		Pitch:        cfg.Pitch,
		Voice:        cfg.Voice,
		AutoPageTurn: cfg.AutoPageTurn,
		AutoContinue: cfg.AutoContinue,
	}, logger)
	g.pos = overlay.NewPositioner(ovl, logger)
	g.apply(g.ctrl.SetDocument(pag.PageCount()))

	if store, err := state.NewStore(); err == nil {
		g.store = store
		if hash, err := state.ComputeHash(filename); err == nil {
			g.hash = hash
			if saved := store.Get(hash); !*freshStart {
				if saved.Page > 0 && saved.Page < pag.PageCount() {
					g.page = saved.Page
				}
				if saved.Rate > 0 {
					opts := g.ctrl.Options()
					opts.Rate = saved.Rate
					if saved.Voice != "" {
						opts.Voice = saved.Voice
					}
					g.ctrl.SetOptions(opts)
				}
			}
		}
	}

	g.status.Alignment = fyne.TextAlignCenter
	controls := widget.NewLabel("SPACE: play/pause  S: stop  ←/→: page  +/-: rate  Q: quit")
	controls.Alignment = fyne.TextAlignCenter

	body := container.NewStack(grid, container.NewWithoutLayout(pointer))
	content := container.NewBorder(g.status, controls, nil, nil, body)

	w.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeySpace:
			g.playPause()
		case fyne.KeyLeft:
			g.installPage(g.page - 1)
		case fyne.KeyRight:
			g.installPage(g.page + 1)
		case fyne.KeyQ, fyne.KeyEscape:
			g.engine.Cancel()
			g.saveState()
			a.Quit()
		}
	})
	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 's', 'S':
			g.apply(g.ctrl.Stop())
		case '+', '=':
			g.adjustRate(+0.25)
		case '-':
			g.adjustRate(-0.25)
		}
	})

	w.SetOnClosed(func() {
		g.engine.Cancel()
		g.saveState()
	})

	w.Resize(fyne.NewSize(float32(cols+2)*cell.Width, float32(rows+6)*cell.Height))
	w.SetContent(content)

	// Show the first page once the window is up.
	go func() {
		time.Sleep(100 * time.Millisecond)
		fyne.Do(func() { g.installPage(g.page) })
	}()

	w.ShowAndRun()
}
