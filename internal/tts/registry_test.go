package tts

import (
	"context"
	"testing"
)

// fakeEngine is a minimal Engine for registry tests.
type fakeEngine struct {
	name string
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Synthesize(ctx context.Context, req SynthesizeRequest) (*PCMResult, error) {
	return &PCMResult{Data: []byte{0, 0}, SampleRate: 22050, Channels: 1, BitsPerSample: 16}, nil
}

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Default(); err != ErrNoEngine {
		t.Errorf("Default on empty registry = %v, want ErrNoEngine", err)
	}
}

func TestRegistryFirstRegisteredIsDefault(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeEngine{name: "first"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeEngine{name: "second"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	def, err := r.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if def.Name() != "first" {
		t.Errorf("default = %q, want first", def.Name())
	}
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&fakeEngine{name: "alpha"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&fakeEngine{name: "alpha"}); err != ErrEngineExists {
		t.Errorf("duplicate Register = %v, want ErrEngineExists", err)
	}

	// The duplicate must not displace the original.
	def, err := r.Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if def.Name() != "alpha" {
		t.Errorf("default = %q, want alpha", def.Name())
	}
}
