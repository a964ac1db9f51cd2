package tts

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrEngineNotFound is returned when no engine is registered.
	ErrEngineNotFound = errors.New("TTS engine not found")
	// ErrEngineExists is returned when trying to register a duplicate engine.
	ErrEngineExists = errors.New("TTS engine already registered")
	// ErrInvalidEngine is returned for a nil engine or one without a name.
	ErrInvalidEngine = errors.New("invalid TTS engine")
)

// Registry holds the speech engines the service can route to. It is filled
// at startup and read concurrently by request handlers afterwards.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]Engine
	def     string
}

// NewRegistry creates an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{
		engines: make(map[string]Engine),
	}
}

// Register adds an engine. The first engine registered becomes the default.
func (r *Registry) Register(engine Engine) error {
	if engine == nil || engine.Name() == "" {
		return ErrInvalidEngine
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, exists := r.engines[name]; exists {
		return fmt.Errorf("%w: %s", ErrEngineExists, name)
	}

	r.engines[name] = engine
	if r.def == "" {
		r.def = name
	}

	return nil
}

// Default returns the engine requests are routed to.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.def == "" {
		return nil, ErrEngineNotFound
	}

	return r.engines[r.def], nil
}

// List returns the registered engine names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered engines.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.engines)
}
