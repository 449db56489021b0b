package session

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is a playable-audio reference: the framed WAV buffer for one
// generation. Its lifetime ends when a newer generation replaces it or
// the owning session is torn down.
type Handle struct {
	ID         string
	SampleRate int
	Duration   float64

	mu  sync.Mutex
	wav []byte
}

func newHandle(wavData []byte, sampleRate int, duration float64) *Handle {
	return &Handle{
		ID:         uuid.NewString(),
		SampleRate: sampleRate,
		Duration:   duration,
		wav:        wavData,
	}
}

// Bytes returns the WAV buffer, or nil after release.
func (h *Handle) Bytes() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.wav
}

// Release drops the audio buffer. Idempotent.
func (h *Handle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.wav = nil
}

// Released reports whether the buffer has been dropped.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.wav == nil
}
