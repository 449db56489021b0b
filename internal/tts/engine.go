// Package tts defines the speech synthesis collaborator interface.
package tts

import "context"

// SynthesizeRequest contains parameters for TTS synthesis.
type SynthesizeRequest struct {
	Text  string
	Voice string
}

// PCMResult is raw synthesized audio: 16-bit signed little-endian PCM,
// mono, at SampleRate. Container framing is the caller's concern.
type PCMResult struct {
	Data          []byte
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Engine is the interface for text-to-speech synthesis.
type Engine interface {
	// Synthesize converts text to raw PCM audio.
	Synthesize(ctx context.Context, req SynthesizeRequest) (*PCMResult, error)
	// Name returns the engine identifier.
	Name() string
}
