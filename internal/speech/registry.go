package speech

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	// ErrEngineNotFound is returned when an engine is not registered.
	ErrEngineNotFound = errors.New("speech engine not found")
	// ErrEngineExists is returned when registering a duplicate engine.
	ErrEngineExists = errors.New("speech engine already registered")
)

// Registry manages available speech engines.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	def     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]Engine)}
}

// Register adds an engine. The first registered engine becomes the default.
func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, exists := r.engines[name]; exists {
		return ErrEngineExists
	}
	r.engines[name] = engine
	if r.def == "" {
		r.def = name
	}
	return nil
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, exists := r.engines[name]
	if !exists {
		return nil, ErrEngineNotFound
	}
	return engine, nil
}

// Default returns the default engine.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrEngineNotFound
	}
	return r.engines[r.def], nil
}

// SetDefault selects the default engine by name.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.engines[name]; !exists {
		return ErrEngineNotFound
	}
	r.def = name
	return nil
}

// List returns all registered engine names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}

// Detect builds the engine registry for this host. Piper registers first, and
// therefore as the default, when its binaries and model are present; the null
// engine is always registered so narration controls degrade instead of
// failing.
func Detect(cfg PiperConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if engine, err := NewPiperEngine(cfg, logger); err == nil {
		r.Register(engine)
	} else if logger != nil {
		logger.Warn("speech unavailable, narration disabled", "error", err)
	}
	r.Register(NullEngine{})
	return r
}
