package speech

import "context"

// NullEngine stands in when the host has no speech capability. Speak reports
// ErrEngineUnavailable; every other call is a no-op, so narration controls
// degrade gracefully instead of failing deep in the host.
type NullEngine struct{}

func (NullEngine) Name() string    { return "null" }
func (NullEngine) Available() bool { return false }
func (NullEngine) Voices() []Voice { return nil }
func (NullEngine) Pause() error    { return nil }
func (NullEngine) Resume() error   { return nil }
func (NullEngine) Cancel()         {}

func (NullEngine) Speak(ctx context.Context, text string, p Params, n Notifier) error {
	return ErrEngineUnavailable
}

var _ Engine = NullEngine{}
