//go:build !gui

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

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

// Nominal cell size in viewport units. Geometry flows through the overlay in
// these units and View converts back to rows and columns.
const (
	cellW = 8.0
	cellH = 16.0
)

// gutterCols is the pointer gutter to the left of the page body.
const gutterCols = 2

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	speakingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD75F"))

	pointerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

// keyMap defines the reading controls.
type keyMap struct {
	PlayPause key.Binding
	Stop      key.Binding
	NextPage  key.Binding
	PrevPage  key.Binding
	RateUp    key.Binding
	RateDown  key.Binding
	Chapter   key.Binding
	Voice     key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PlayPause: key.NewBinding(key.WithKeys(" ")),
		Stop:      key.NewBinding(key.WithKeys("s", "esc")),
		NextPage:  key.NewBinding(key.WithKeys("right", "n")),
		PrevPage:  key.NewBinding(key.WithKeys("left", "p")),
		RateUp:    key.NewBinding(key.WithKeys("+", "=")),
		RateDown:  key.NewBinding(key.WithKeys("-")),
		Chapter:   key.NewBinding(key.WithKeys("t")),
		Voice:     key.NewBinding(key.WithKeys("v")),
		Quit:      key.NewBinding(key.WithKeys("q", "Q", "ctrl+c")),
	}
}

// Engine event messages, tagged with the session epoch they belong to.
type boundaryMsg struct {
	epoch int
	char  int
}

type speechEndMsg struct{ epoch int }

type speechErrMsg struct {
	epoch int
	err   error
}

// frameMsg drives the coalesced overlay recompute.
type frameMsg struct{}

// termOverlay implements overlay.Renderer for the terminal: it only records
// the targets, View converts them back to cells.
type termOverlay struct {
	pointer   *geom.Point
	highlight *geom.Rect
	active    bool
	paused    bool
}

func (o *termOverlay) SetPointerTarget(p *geom.Point) { o.pointer = p }
func (o *termOverlay) SetHighlightRect(r *geom.Rect)  { o.highlight = r }
func (o *termOverlay) SetActive(active bool)          { o.active = active }
func (o *termOverlay) SetPaused(paused bool)          { o.paused = paused }

// notifier forwards engine callbacks onto the bubbletea loop.
type notifier struct {
	app   *app
	epoch int
}

func (n notifier) SpeechBoundary(charIndex int) { n.app.send(boundaryMsg{n.epoch, charIndex}) }
func (n notifier) SpeechEnd()                   { n.app.send(speechEndMsg{n.epoch}) }
func (n notifier) SpeechError(err error)        { n.app.send(speechErrMsg{n.epoch, err}) }

// app holds the mutable program state shared by model copies.
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	doc    *reader.Document
	pag    *reader.Pagination
	ctrl   *narrate.Controller
	pos    *overlay.Positioner
	ovl    *termOverlay
	engine speech.Engine
	store  *state.Store
	hash   string

	page   int
	words  []segment.WordUnit
	voices []speech.Voice

	send func(tea.Msg)

	lastErr string
}

type model struct {
	*app
	keys keyMap
	vp   viewport.Model

	width          int
	height         int
	frameScheduled bool
	quitting       bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			m.engine.Cancel()
			m.saveState()
			return m, tea.Quit

		case key.Matches(msg, m.keys.PlayPause):
			return m, m.playPause()

		case key.Matches(msg, m.keys.Stop):
			return m, m.finish(m.applyEffects(m.ctrl.Stop()))

		case key.Matches(msg, m.keys.NextPage):
			return m, m.gotoPage(m.page + 1)

		case key.Matches(msg, m.keys.PrevPage):
			return m, m.gotoPage(m.page - 1)

		case key.Matches(msg, m.keys.RateUp):
			m.adjustRate(+0.25)
			return m, nil

		case key.Matches(msg, m.keys.RateDown):
			m.adjustRate(-0.25)
			return m, nil

		case key.Matches(msg, m.keys.Chapter):
			return m, m.gotoPage(m.nextChapterPage())

		case key.Matches(msg, m.keys.Voice):
			m.cycleVoice()
			return m, nil
		}

		// Remaining keys scroll the page body.
		var cmd tea.Cmd
		before := m.vp.YOffset
		m.vp, cmd = m.vp.Update(msg)
		if m.vp.YOffset != before {
			m.syncGrid()
			m.pos.Refresh()
		}
		return m, m.finish(cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.relayout()

	case boundaryMsg:
		return m, m.finish(m.applyEffects(m.ctrl.Boundary(msg.epoch, msg.char)))

	case speechEndMsg:
		return m, m.finish(m.applyEffects(m.ctrl.Ended(msg.epoch)))

	case speechErrMsg:
		m.lastErr = msg.err.Error()
		return m, m.finish(m.applyEffects(m.ctrl.Failed(msg.epoch, msg.err)))

	case frameMsg:
		m.frameScheduled = false
		m.pos.Flush()
		m.refreshContent()
		return m, nil
	}

	return m, nil
}

// playPause toggles start/pause/resume depending on state.
func (m *model) playPause() tea.Cmd {
	switch m.ctrl.Status() {
	case narrate.StatusIdle:
		effects, err := m.ctrl.Start()
		if err != nil {
			m.lastErr = err.Error()
			return nil
		}
		m.lastErr = ""
		return m.finish(m.applyEffects(effects))
	case narrate.StatusSpeaking:
		return m.finish(m.applyEffects(m.ctrl.Pause()))
	default:
		return m.finish(m.applyEffects(m.ctrl.Resume()))
	}
}

// applyEffects performs the controller's side-effect intents and returns any
// command that must run asynchronously (engine start).
func (m *model) applyEffects(effects []narrate.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, ef := range effects {
		switch ef := ef.(type) {
		case narrate.CancelEffect:
			m.engine.Cancel()

		case narrate.SpeakEffect:
			cmds = append(cmds, m.speakCmd(ef))

		case narrate.PauseEffect:
			if err := m.engine.Pause(); err != nil {
				m.logger.Warn("pause failed", "error", err)
			}

		case narrate.ResumeEffect:
			if err := m.engine.Resume(); err != nil {
				m.logger.Warn("resume failed", "error", err)
			}

		case narrate.WordEffect:
			m.pos.MarkWord(ef.Index)

		case narrate.ClearOverlayEffect:
			m.pos.Clear()

		case narrate.ActiveEffect:
			m.ovl.SetActive(ef.Active)

		case narrate.PausedEffect:
			m.ovl.SetPaused(ef.Paused)

		case narrate.TurnPageEffect:
			cmds = append(cmds, m.installPage(ef.Page))
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// speakCmd starts the engine session off the event loop; synthesis can take
// a moment and must not block input handling.
func (m *model) speakCmd(ef narrate.SpeakEffect) tea.Cmd {
	appRef := m.app
	opts := m.ctrl.Options()
	return func() tea.Msg {
		err := appRef.engine.Speak(context.Background(), ef.Text, speech.Params{
			Rate:  opts.Rate,
			Pitch: opts.Pitch,
			Voice: opts.Voice,
		}, notifier{app: appRef, epoch: ef.Epoch})
		if err != nil {
			return speechErrMsg{epoch: ef.Epoch, err: err}
		}
		return nil
	}
}

// gotoPage navigates to page if it exists.
func (m *model) gotoPage(page int) tea.Cmd {
	if m.pag == nil || page < 0 || page >= m.pag.PageCount() || page == m.page {
		return nil
	}
	return m.finish(m.installPage(page))
}

// installPage makes page current: re-segments its runs, resets the overlay
// and viewport, and hands the new word set to the controller. The returned
// command carries any auto-continue engine start.
func (m *model) installPage(page int) tea.Cmd {
	m.app.page = page
	m.app.words = segment.Segment(m.pag.Runs(page))
	m.pos.SetWords(m.app.words)
	m.vp.SetYOffset(0)
	m.syncGrid()
	m.refreshContent()
	m.saveState()
	return m.applyEffects(m.ctrl.SetPage(page, m.app.words))
}

// relayout repaginates for the current terminal size. A mid-session resize
// changes the word set, so it cancels narration like any page change.
func (m *model) relayout() tea.Cmd {
	headerRows, footerRows := 2, 1
	bodyRows := m.height - headerRows - footerRows
	if bodyRows < 1 {
		bodyRows = 1
	}
	bodyCols := m.width - gutterCols
	if bodyCols < 10 {
		bodyCols = 10
	}

	m.app.pag = reader.Paginate(m.doc, bodyCols, bodyRows)
	m.vp = viewport.New(m.width, bodyRows)
	cmd := m.applyEffects(m.ctrl.SetDocument(m.pag.PageCount()))

	page := m.page
	if page >= m.pag.PageCount() {
		page = m.pag.PageCount() - 1
	}
	if page < 0 {
		page = 0
	}
	return m.finish(tea.Batch(cmd, m.installPage(page)))
}

// syncGrid publishes the viewport placement to the pagination's grid.
func (m *model) syncGrid() {
	if m.pag == nil {
		return
	}
	m.pag.SetGrid(reader.Grid{
		Left:       gutterCols * cellW,
		Top:        0,
		Scroll:     m.vp.YOffset,
		Rows:       m.vp.Height,
		CellWidth:  cellW,
		CellHeight: cellH,
	})
}

// finish schedules a single overlay flush frame when one is due and batches
// it with cmd.
func (m *model) finish(cmd tea.Cmd) tea.Cmd {
	if m.pos.Dirty() && !m.frameScheduled {
		m.frameScheduled = true
		frame := tea.Tick(16*time.Millisecond, func(time.Time) tea.Msg { return frameMsg{} })
		if cmd == nil {
			return frame
		}
		return tea.Batch(cmd, frame)
	}
	return cmd
}

// refreshContent re-renders the page body into the viewport.
func (m *model) refreshContent() {
	if m.pag == nil || m.page >= m.pag.PageCount() {
		m.vp.SetContent("")
		return
	}
	page := m.pag.Pages[m.page]

	hlRow, hlStart, hlEnd := -1, 0, 0
	if m.ovl.highlight != nil {
		hlRow, hlStart, hlEnd = highlightCells(*m.ovl.highlight, m.vp.YOffset)
	}
	ptrRow := -1
	if m.ovl.pointer != nil {
		ptrRow = int(m.ovl.pointer.Y/cellH) + m.vp.YOffset
	}

	var sb strings.Builder
	for i, line := range page.Lines {
		gutter := strings.Repeat(" ", gutterCols)
		if i == ptrRow && m.ovl.active {
			gutter = pointerStyle.Render("▶ ")
		}
		sb.WriteString(gutter)
		sb.WriteString(styleLine(line.Text(), i == hlRow, hlStart, hlEnd))
		if i < len(page.Lines)-1 {
			sb.WriteString("\n")
		}
	}
	m.vp.SetContent(sb.String())
}

// highlightCells converts a highlight rect back to a row and column span,
// undoing the overlay padding by intersecting with whole cells.
func highlightCells(r geom.Rect, yOffset int) (row, start, end int) {
	row = int(math.Floor((r.Top+r.Height/2)/cellH)) + yOffset
	start = int(math.Ceil(r.Left/cellW)) - gutterCols
	end = int(math.Floor((r.Left+r.Width)/cellW)) - gutterCols
	return row, start, end
}

// styleLine applies the highlight style to columns [start, end) of text.
func styleLine(text string, highlighted bool, start, end int) string {
	if !highlighted {
		return text
	}
	runes := []rune(text)
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return text
	}
	return string(runes[:start]) +
		highlightStyle.Render(string(runes[start:end])) +
		string(runes[end:])
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.pag == nil || m.pag.PageCount() == 0 {
		return "No text to read."
	}

	page := m.pag.Pages[m.page]

	status := statusStyle.Render(fmt.Sprintf(
		"Page %d/%d | Word %s | Rate %.2fx | %s",
		m.page+1,
		m.pag.PageCount(),
		m.wordProgress(),
		m.ctrl.Options().Rate,
		m.statusTag(),
	))

	header := titleStyle.Render(truncate(m.doc.Title+" — "+page.Chapter, m.width)) + "\n" + status
	controls := controlsStyle.Render("SPACE: play/pause  S: stop  ←/→: page  T: chapter  +/-: rate  V: voice  Q: quit")
	if m.lastErr != "" {
		controls = errorStyle.Render(truncate(m.lastErr, m.width))
	}

	return header + "\n" + m.vp.View() + "\n" + controls
}

func (m model) wordProgress() string {
	if m.ctrl.CurrentWord() < 0 {
		return fmt.Sprintf("-/%d", m.ctrl.WordCount())
	}
	return fmt.Sprintf("%d/%d", m.ctrl.CurrentWord()+1, m.ctrl.WordCount())
}

func (m model) statusTag() string {
	switch m.ctrl.Status() {
	case narrate.StatusSpeaking:
		return speakingStyle.Render("SPEAKING")
	case narrate.StatusPaused:
		return pausedStyle.Render("PAUSED")
	default:
		if !m.engine.Available() {
			return "NO SPEECH"
		}
		return "IDLE"
	}
}

// adjustRate changes the speech rate within [0.5, 3.0]. Takes effect on the
// next session.
func (m model) adjustRate(delta float64) {
	opts := m.ctrl.Options()
	opts.Rate += delta
	if opts.Rate < 0.5 {
		opts.Rate = 0.5
	}
	if opts.Rate > 3.0 {
		opts.Rate = 3.0
	}
	m.ctrl.SetOptions(opts)
	m.saveState()
}

// cycleVoice advances through the engine's voice list.
func (m model) cycleVoice() {
	if len(m.voices) == 0 {
		return
	}
	opts := m.ctrl.Options()
	next := 0
	for i, v := range m.voices {
		if v.ID == opts.Voice {
			next = (i + 1) % len(m.voices)
			break
		}
	}
	opts.Voice = m.voices[next].ID
	m.ctrl.SetOptions(opts)
	m.saveState()
}

// nextChapterPage returns the first page of the chapter after the current
// one, wrapping to the first chapter.
func (m model) nextChapterPage() int {
	if len(m.pag.TOC) == 0 {
		return m.page
	}
	for _, e := range m.pag.TOC {
		if e.Page > m.page {
			return e.Page
		}
	}
	return m.pag.TOC[0].Page
}

func (m model) saveState() {
	if m.store == nil || m.hash == "" {
		return
	}
	opts := m.ctrl.Options()
	_ = m.store.Set(m.hash, state.ReadingState{
		Page:  m.page,
		Rate:  opts.Rate,
		Voice: opts.Voice,
	})
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if width <= 0 || len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

func main() {
	rate := flag.Float64("rate", 0, "Speech rate multiplier (0.5-3.0)")
	voice := flag.String("voice", "", "Voice ID")
	autoTurn := flag.Bool("auto-turn", true, "Turn the page when narration finishes it")
	autoContinue := flag.Bool("auto-continue", true, "Keep narrating on the next page")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lector - Read documents aloud, with a pointer on the spoken word\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  lector [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nFormats:\n")
		for _, f := range reader.SupportedFormats() {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
		fmt.Fprintf(os.Stderr, "  plain text (anything else)\n")
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  SPACE    Play/pause\n")
		fmt.Fprintf(os.Stderr, "  S        Stop\n")
		fmt.Fprintf(os.Stderr, "  ←/→      Previous/next page\n")
		fmt.Fprintf(os.Stderr, "  T        Next chapter\n")
		fmt.Fprintf(os.Stderr, "  +/-      Speech rate\n")
		fmt.Fprintf(os.Stderr, "  V        Cycle voice\n")
		fmt.Fprintf(os.Stderr, "  Q        Quit\n")
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
	cfg.AutoPageTurn = *autoTurn
	cfg.AutoContinue = *autoContinue && *autoTurn
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var logW io.Writer = io.Discard
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

	store, _ := state.NewStore()
	hash := ""
	if store != nil {
		hash, _ = state.ComputeHash(filename)
	}

	opts := narrate.Options{
		Rate:         cfg.Rate,
		Pitch:        cfg.Pitch,
		Voice:        cfg.Voice,
		AutoPageTurn: cfg.AutoPageTurn,
		AutoContinue: cfg.AutoContinue,
	}
	if store != nil && hash != "" {
		if saved := store.Get(hash); saved.Rate > 0 {
			opts.Rate = saved.Rate
			if saved.Voice != "" {
				opts.Voice = saved.Voice
			}
		}
	}

	ovl := &termOverlay{}
	a := &app{
		cfg:    cfg,
		logger: logger,
		doc:    doc,
		ctrl:   narrate.NewController(opts, logger),
		ovl:    ovl,
		pos:    overlay.NewPositioner(ovl, logger),
		engine: engine,
		store:  store,
		hash:   hash,
		voices: engine.Voices(),
	}
	if store != nil && hash != "" {
		a.page = store.Get(hash).Page
	}

	m := model{app: a, keys: defaultKeyMap(), width: 80, height: 24}
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.send = p.Send

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
