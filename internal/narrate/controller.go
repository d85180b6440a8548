// Package narrate drives narration of a paginated document: it owns the
// play/pause/stop state machine, maps speech-engine boundary events back to
// word units, and implements the auto page-turn handshake across pages.
//
// The controller never performs side effects itself. Every externally
// triggered method returns a list of effects (engine calls, overlay updates,
// page turns) that the host event loop applies. All methods must be called
// from a single execution context; engine callbacks arriving on other
// goroutines are forwarded onto that context by the host.
package narrate

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/readaloud/lector/internal/segment"
)

// Status is the narration state.
type Status int

const (
	StatusIdle Status = iota
	StatusSpeaking
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusSpeaking:
		return "speaking"
	case StatusPaused:
		return "paused"
	default:
		return "idle"
	}
}

// Options configure narration behavior.
type Options struct {
	Rate         float64 // speech speed multiplier
	Pitch        float64 // speech pitch multiplier
	Voice        string  // engine voice ID, empty selects the default
	AutoPageTurn bool    // advance to the next page when a page finishes
	AutoContinue bool    // restart narration on the next page (needs AutoPageTurn)
}

var (
	// ErrNoWords is returned by Start when the current page has no words.
	ErrNoWords = errors.New("no words to narrate")
	// ErrAlreadySpeaking is returned by Start while a session is active.
	ErrAlreadySpeaking = errors.New("narration already in progress")
)

// Effect is a side-effect intent produced by a state transition. The host
// applies effects in order.
type Effect interface{ isEffect() }

// SpeakEffect asks the host to begin an engine session with the flattened
// narration text. Epoch tags the session; callbacks must carry it back.
type SpeakEffect struct {
	Text  string
	Epoch int
}

// PauseEffect and ResumeEffect map to engine.Pause/engine.Resume.
type PauseEffect struct{}
type ResumeEffect struct{}

// CancelEffect asks the host to cancel any engine session.
type CancelEffect struct{}

// WordEffect reports the current word changed; the overlay should move to it.
type WordEffect struct{ Index int }

// ClearOverlayEffect removes the pointer and highlight.
type ClearOverlayEffect struct{}

// ActiveEffect and PausedEffect update the overlay renderer's mode flags.
type ActiveEffect struct{ Active bool }
type PausedEffect struct{ Paused bool }

// TurnPageEffect asks the host to navigate to the given page. The host
// responds later with SetPage once the page's text has been segmented.
type TurnPageEffect struct{ Page int }

func (SpeakEffect) isEffect()        {}
func (PauseEffect) isEffect()        {}
func (ResumeEffect) isEffect()       {}
func (CancelEffect) isEffect()       {}
func (WordEffect) isEffect()         {}
func (ClearOverlayEffect) isEffect() {}
func (ActiveEffect) isEffect()       {}
func (PausedEffect) isEffect()       {}
func (TurnPageEffect) isEffect()     {}

// Controller is the narration state machine.
type Controller struct {
	opts   Options
	logger *slog.Logger

	status  Status
	words   []segment.WordUnit
	table   OffsetTable
	flat    string
	current int // current word index, -1 when none

	page      int
	pageCount int

	// Auto-continue handshake. pendingAdvance survives exactly the page
	// change the controller itself requested (advanceTo); any other page or
	// document change supersedes it.
	pendingAdvance bool
	advanceTo      int

	// epoch invalidates callbacks from cancelled sessions. Bumped on every
	// session start and teardown.
	epoch int
}

// NewController creates an idle controller.
func NewController(opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		opts:    opts,
		logger:  logger,
		current: -1,
	}
}

// Status returns the current narration state.
func (c *Controller) Status() Status { return c.status }

// CurrentWord returns the index of the word being spoken, or -1.
func (c *Controller) CurrentWord() int { return c.current }

// WordCount returns the number of words on the current page.
func (c *Controller) WordCount() int { return len(c.words) }

// Page returns the current page index.
func (c *Controller) Page() int { return c.page }

// PendingAdvance reports whether an auto-continue restart is armed.
func (c *Controller) PendingAdvance() bool { return c.pendingAdvance }

// Options returns the active options.
func (c *Controller) Options() Options { return c.opts }

// SetOptions replaces the options. A running session keeps the parameters it
// started with; changes apply from the next Start.
func (c *Controller) SetOptions(opts Options) { c.opts = opts }

// SetDocument resets the controller for a new document with pageCount pages.
func (c *Controller) SetDocument(pageCount int) []Effect {
	c.pageCount = pageCount
	c.page = 0
	c.pendingAdvance = false
	return c.teardown()
}

// SetPage installs the segmentation of page. It cancels any running session,
// rebuilds the offset table, and — when an auto-continue restart is armed for
// exactly this page and words materialized — consumes the armed flag and
// starts narration. The restart fires at most once per page turn.
func (c *Controller) SetPage(page int, words []segment.WordUnit) []Effect {
	effects := c.teardown()

	c.page = page
	c.words = words
	c.table = BuildOffsets(words)
	c.flat = Flatten(words)

	if c.pendingAdvance && page != c.advanceTo {
		// Navigation went somewhere else; the handshake is superseded.
		c.pendingAdvance = false
	}

	if c.pendingAdvance && len(words) > 0 {
		c.pendingAdvance = false
		auto, err := c.Start()
		if err != nil {
			c.logger.Warn("auto-continue start failed", "page", page, "error", err)
			return effects
		}
		c.logger.Debug("auto-continue", "page", page, "words", len(words))
		effects = append(effects, auto...)
	}
	return effects
}

// Start begins narrating the current page. Rejected when the page has no
// words, the flattened text is blank, or a session is already speaking.
func (c *Controller) Start() ([]Effect, error) {
	if c.status == StatusSpeaking {
		return nil, ErrAlreadySpeaking
	}
	if len(c.words) == 0 || strings.TrimSpace(c.flat) == "" {
		return nil, ErrNoWords
	}

	c.epoch++
	c.status = StatusSpeaking
	c.current = -1
	c.logger.Debug("narration start", "page", c.page, "words", len(c.words), "epoch", c.epoch)

	// Cancel first: at most one engine session may exist.
	return []Effect{
		CancelEffect{},
		ClearOverlayEffect{},
		ActiveEffect{Active: true},
		PausedEffect{Paused: false},
		SpeakEffect{Text: c.flat, Epoch: c.epoch},
	}, nil
}

// Pause suspends a speaking session. No-op otherwise.
func (c *Controller) Pause() []Effect {
	if c.status != StatusSpeaking {
		return nil
	}
	c.status = StatusPaused
	return []Effect{PauseEffect{}, PausedEffect{Paused: true}}
}

// Resume continues a paused session. No-op otherwise.
func (c *Controller) Resume() []Effect {
	if c.status != StatusPaused {
		return nil
	}
	c.status = StatusSpeaking
	return []Effect{ResumeEffect{}, PausedEffect{Paused: false}}
}

// Stop cancels narration from any state. Idempotent: the result is always
// Idle with no overlay and no armed restart.
func (c *Controller) Stop() []Effect {
	c.pendingAdvance = false
	return c.teardown()
}

// Boundary handles an engine progress event: charIndex is an offset into the
// flattened narration text. Stale epochs and non-speaking states are ignored,
// as is a boundary that resolves to the word already current.
func (c *Controller) Boundary(epoch, charIndex int) []Effect {
	if epoch != c.epoch || c.status != StatusSpeaking {
		return nil
	}
	idx := c.table.Lookup(charIndex)
	if idx < 0 || idx == c.current {
		return nil
	}
	c.current = idx
	return []Effect{WordEffect{Index: idx}}
}

// Ended handles engine completion of the current session. It transitions to
// Idle and, per options, turns the page and arms the auto-continue restart.
func (c *Controller) Ended(epoch int) []Effect {
	if epoch != c.epoch || c.status != StatusSpeaking {
		return nil
	}
	c.epoch++
	c.status = StatusIdle
	c.current = -1
	effects := []Effect{
		ClearOverlayEffect{},
		ActiveEffect{Active: false},
		PausedEffect{Paused: false},
	}

	if c.opts.AutoPageTurn && c.page+1 < c.pageCount {
		c.advanceTo = c.page + 1
		c.pendingAdvance = c.opts.AutoContinue
		c.logger.Debug("page finished, turning", "to", c.advanceTo, "auto_continue", c.pendingAdvance)
		effects = append(effects, TurnPageEffect{Page: c.advanceTo})
	} else {
		c.pendingAdvance = false
	}
	return effects
}

// Failed handles an engine runtime error: the session ends, state returns to
// Idle, and nothing is retried. The caller must invoke Start again.
func (c *Controller) Failed(epoch int, err error) []Effect {
	if epoch != c.epoch || c.status == StatusIdle {
		return nil
	}
	c.logger.Warn("speech engine error", "page", c.page, "error", err)
	c.pendingAdvance = false
	return c.teardown()
}

// teardown moves to Idle, invalidates the session epoch, and emits the
// cancel/clear effects shared by Stop, Failed, and page changes.
func (c *Controller) teardown() []Effect {
	c.epoch++
	c.status = StatusIdle
	c.current = -1
	return []Effect{
		CancelEffect{},
		ClearOverlayEffect{},
		ActiveEffect{Active: false},
		PausedEffect{Paused: false},
	}
}
