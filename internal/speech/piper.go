package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

// Piper emits raw 16-bit PCM at 22050 Hz mono.
const (
	piperSampleRate    = 22050
	piperBytesPerFrame = 2
)

// PiperConfig holds configuration for the Piper TTS engine.
type PiperConfig struct {
	// BinaryPath is the path to the piper executable.
	BinaryPath string
	// ModelPath is the path to the ONNX voice model.
	ModelPath string
	// PlayerPath is the audio player used for playback.
	PlayerPath string
	// DefaultVoice is the default speaker ID for multi-speaker models.
	DefaultVoice string
}

// PiperEngine implements Engine with a local piper subprocess for synthesis
// and a player subprocess for output. Boundary events are paced across the
// audio duration proportionally to each word's character span, so reported
// offsets are non-decreasing.
type PiperEngine struct {
	config PiperConfig
	logger *slog.Logger

	mu      sync.Mutex
	session *piperSession
}

// NewPiperEngine creates a Piper engine, verifying the binaries exist.
func NewPiperEngine(cfg PiperConfig, logger *slog.Logger) (*PiperEngine, error) {
	if cfg.BinaryPath == "" {
		cfg.BinaryPath = "piper"
	}
	if cfg.PlayerPath == "" {
		cfg.PlayerPath = "aplay"
	}
	if _, err := exec.LookPath(cfg.BinaryPath); err != nil {
		return nil, fmt.Errorf("%w: piper not found at %s", ErrEngineUnavailable, cfg.BinaryPath)
	}
	if _, err := exec.LookPath(cfg.PlayerPath); err != nil {
		return nil, fmt.Errorf("%w: audio player not found at %s", ErrEngineUnavailable, cfg.PlayerPath)
	}
	if cfg.ModelPath == "" {
		return nil, ErrNoModelSpecified
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PiperEngine{config: cfg, logger: logger}, nil
}

// Name returns the engine identifier.
func (e *PiperEngine) Name() string { return "piper" }

// Available reports true; construction already verified the binaries.
func (e *PiperEngine) Available() bool { return true }

// Voices returns the configured model as a single voice. Piper models carry
// one voice each (multi-speaker models select speakers by ID).
func (e *PiperEngine) Voices() []Voice {
	id := e.config.DefaultVoice
	if id == "" {
		id = "default"
	}
	name := strings.TrimSuffix(filepath.Base(e.config.ModelPath), ".onnx")
	return []Voice{{ID: id, Name: name}}
}

// Speak synthesizes text with piper and plays it, emitting paced boundary
// events through n. Any prior session is cancelled first. The new session is
// registered before synthesis starts, so a Cancel arriving while piper is
// still running reaches it; a session cancelled that early never plays and
// never reports.
func (e *PiperEngine) Speak(ctx context.Context, text string, p Params, n Notifier) error {
	if text == "" {
		return fmt.Errorf("%w: empty text", ErrSynthesisFailed)
	}
	e.Cancel()

	sctx, cancel := context.WithCancel(ctx)
	s := &piperSession{
		cancel: cancel,
		clock:  newPauseClock(),
		done:   make(chan struct{}),
	}
	e.mu.Lock()
	e.session = s
	e.mu.Unlock()

	pcm, err := e.synthesize(sctx, text, p)
	if err != nil {
		e.retire(s)
		return err
	}
	if sctx.Err() != nil {
		e.retire(s)
		return sctx.Err()
	}

	duration := time.Duration(float64(len(pcm)) / float64(piperSampleRate*piperBytesPerFrame) * float64(time.Second))

	player := exec.CommandContext(sctx, e.config.PlayerPath,
		"-q", "-f", "S16_LE", "-r", fmt.Sprint(piperSampleRate), "-c", "1", "-")
	player.Stdin = bytes.NewReader(pcm)
	player.Cancel = func() error { return player.Process.Kill() }
	if err := player.Start(); err != nil {
		e.retire(s)
		if sctx.Err() != nil {
			return sctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	e.mu.Lock()
	s.player = player
	e.mu.Unlock()

	e.logger.Debug("speech session started",
		"text_length", len(text),
		"audio_bytes", len(pcm),
		"duration", duration,
	)

	go s.run(sctx, text, duration, n, e.logger)
	return nil
}

// retire closes out a session that never reached playback, unblocking any
// Cancel waiting on it.
func (e *PiperEngine) retire(s *piperSession) {
	s.cancel()
	close(s.done)
	e.mu.Lock()
	if e.session == s {
		e.session = nil
	}
	e.mu.Unlock()
}

// synthesize runs piper and returns raw PCM. Rate is applied through piper's
// length scale (the inverse of the speed multiplier). Piper cannot shift
// pitch; the parameter is accepted and ignored.
func (e *PiperEngine) synthesize(ctx context.Context, text string, p Params) ([]byte, error) {
	args := []string{"--model", e.config.ModelPath, "--output-raw"}
	if p.Rate > 0 && p.Rate != 1.0 {
		args = append(args, "--length-scale", fmt.Sprintf("%.3f", 1.0/p.Rate))
	}
	voice := p.Voice
	if voice == "" || voice == "default" {
		voice = e.config.DefaultVoice
	}
	if voice != "" && voice != "default" {
		args = append(args, "--speaker", voice)
	}

	cmd := exec.CommandContext(ctx, e.config.BinaryPath, args...)
	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.logger.Error("piper failed", "error", err, "stderr", stderr.String())
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("%w: no audio output", ErrSynthesisFailed)
	}
	return pcm, nil
}

// Pause suspends playback (SIGSTOP to the player) and the boundary clock.
// During the synthesis phase there is no player yet; only the clock pauses.
func (e *PiperEngine) Pause() error {
	s, player := e.current()
	if s == nil {
		return nil
	}
	s.clock.pause()
	return signalPlayer(player, syscall.SIGSTOP)
}

// Resume continues playback and the boundary clock.
func (e *PiperEngine) Resume() error {
	s, player := e.current()
	if s == nil {
		return nil
	}
	s.clock.resume()
	return signalPlayer(player, syscall.SIGCONT)
}

func (e *PiperEngine) current() (*piperSession, *exec.Cmd) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, nil
	}
	return e.session, e.session.player
}

// Cancel stops the active session and waits for its goroutine to drain, so
// no events for the cancelled session are delivered afterwards.
func (e *PiperEngine) Cancel() {
	e.mu.Lock()
	s := e.session
	e.session = nil
	e.mu.Unlock()
	if s == nil {
		return
	}
	s.clock.resume()
	s.cancel()
	<-s.done
}

// piperSession covers one Speak call from synthesis through playback. The
// player is nil until synthesis completes; done closes when the session is
// fully retired, whichever phase it died in.
type piperSession struct {
	cancel context.CancelFunc
	player *exec.Cmd
	clock  *pauseClock
	done   chan struct{}
}

func signalPlayer(player *exec.Cmd, sig syscall.Signal) error {
	if player == nil || player.Process == nil {
		return nil
	}
	return player.Process.Signal(sig)
}

// run paces boundary events across the words of text and reports completion.
// Each word's share of the audio is proportional to its share of the text's
// characters, which holds well enough for pointer tracking.
func (s *piperSession) run(ctx context.Context, text string, duration time.Duration, n Notifier, logger *slog.Logger) {
	defer close(s.done)

	for _, off := range wordOffsets(text) {
		at := time.Duration(float64(duration) * float64(off) / float64(len(text)))
		if !s.clock.waitUntil(ctx, at) {
			s.player.Wait()
			return
		}
		n.SpeechBoundary(off)
	}

	err := s.player.Wait()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Error("audio playback failed", "error", err)
		n.SpeechError(fmt.Errorf("%w: %v", ErrSynthesisFailed, err))
		return
	}
	n.SpeechEnd()
}

// wordOffsets returns the byte offset of each word start in text.
func wordOffsets(text string) []int {
	var offs []int
	inWord := false
	for i := 0; i < len(text); i++ {
		space := text[i] == ' ' || text[i] == '\t' || text[i] == '\n' || text[i] == '\r'
		if !space && !inWord {
			offs = append(offs, i)
		}
		inWord = !space
	}
	return offs
}

// pauseClock measures elapsed session time, excluding paused intervals.
type pauseClock struct {
	mu       sync.Mutex
	start    time.Time
	pausedAt time.Time
	paused   bool
	stopped  time.Duration
}

func newPauseClock() *pauseClock {
	return &pauseClock{start: time.Now()}
}

func (c *pauseClock) pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.paused = true
		c.pausedAt = time.Now()
	}
}

func (c *pauseClock) resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		c.paused = false
		c.stopped += time.Since(c.pausedAt)
	}
}

func (c *pauseClock) elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.pausedAt.Sub(c.start) - c.stopped
	}
	return time.Since(c.start) - c.stopped
}

// waitUntil blocks until the clock reaches at, holding while paused. It
// returns false when ctx is cancelled first.
func (c *pauseClock) waitUntil(ctx context.Context, at time.Duration) bool {
	for {
		remaining := at - c.elapsed()
		if remaining <= 0 {
			return true
		}
		if remaining > 20*time.Millisecond {
			remaining = 20 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(remaining):
		}
	}
}

var _ Engine = (*PiperEngine)(nil)
