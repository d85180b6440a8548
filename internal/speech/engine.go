// Package speech abstracts the text-to-speech capability behind an injected
// Engine interface so hosts can substitute a test double and headless
// environments degrade to no-ops.
package speech

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable is returned when the host has no speech capability.
	ErrEngineUnavailable = errors.New("speech engine unavailable")
	// ErrSynthesisFailed is returned when TTS synthesis fails.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrNoModelSpecified is returned when no voice model is configured.
	ErrNoModelSpecified = errors.New("no speech model specified")
)

// Params are per-session speech parameters.
type Params struct {
	// Rate is a speed multiplier; 1.0 is the voice's natural rate.
	Rate float64
	// Pitch is a pitch multiplier; engines that cannot shift pitch ignore it.
	Pitch float64
	// Voice selects a voice by ID; empty selects the engine default.
	Voice string
}

// Voice describes an available voice.
type Voice struct {
	ID       string
	Name     string
	Language string
}

// Notifier receives session events. Engines deliver these from their own
// goroutines; hosts forward them onto their single event loop.
type Notifier interface {
	// SpeechBoundary reports progress as a character offset into the text
	// passed to Speak. Offsets are non-decreasing within a session.
	SpeechBoundary(charIndex int)
	// SpeechEnd reports normal completion. Not delivered after Cancel.
	SpeechEnd()
	// SpeechError reports a runtime failure that ended the session.
	SpeechError(err error)
}

// Engine is a text-to-speech session driver. At most one session is active;
// Speak cancels any prior session before starting a new one.
type Engine interface {
	// Speak begins speaking text. It returns once the session is started;
	// progress and completion arrive through the notifier.
	Speak(ctx context.Context, text string, p Params, n Notifier) error
	// Pause suspends the active session's audio and progress events.
	Pause() error
	// Resume continues a paused session.
	Resume() error
	// Cancel stops the active session, if any. No events are delivered for
	// a cancelled session.
	Cancel()
	// Available reports whether the engine can actually speak on this host.
	Available() bool
	// Voices lists the voices the engine can use.
	Voices() []Voice
	// Name returns the engine identifier.
	Name() string
}
