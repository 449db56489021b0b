package tts

import (
	"errors"
	"sync"
)

var (
	// ErrNoEngine is returned when no synthesis engine is available.
	ErrNoEngine = errors.New("no TTS engine available")
	// ErrEngineExists is returned when registering a duplicate engine name.
	ErrEngineExists = errors.New("TTS engine already registered")
)

// Registry holds the available synthesis engines in registration
// order. The service typically runs a single engine; requests that do
// not name one are served by the first registered.
type Registry struct {
	mu      sync.RWMutex
	engines []Engine
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an engine. Engine names are unique.
func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.engines {
		if e.Name() == engine.Name() {
			return ErrEngineExists
		}
	}

	r.engines = append(r.engines, engine)
	return nil
}

// Default returns the engine serving unqualified requests: the first
// one registered. ErrNoEngine means synthesis is unavailable.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.engines) == 0 {
		return nil, ErrNoEngine
	}
	return r.engines[0], nil
}
