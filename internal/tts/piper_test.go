package tts

import (
	"context"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestNewPiperEngine_MissingBinary(t *testing.T) {
	_, err := NewPiperEngine(PiperConfig{
		BinaryPath: "/nonexistent/piper-binary",
		ModelPath:  "model.onnx",
	}, testLogger())

	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestNewPiperEngine_MissingModel(t *testing.T) {
	// "true" exists on any POSIX system, so the binary check passes
	// and the model check is exercised.
	_, err := NewPiperEngine(PiperConfig{
		BinaryPath: "true",
	}, testLogger())

	if err != ErrNoModelSpecified {
		t.Errorf("expected ErrNoModelSpecified, got %v", err)
	}
}

func TestPiperEngine_EmptyText(t *testing.T) {
	engine := &PiperEngine{
		config: PiperConfig{BinaryPath: "true", ModelPath: "model.onnx", SampleRate: 22050},
		logger: testLogger(),
	}

	_, err := engine.Synthesize(context.Background(), SynthesizeRequest{Text: ""})
	if err != ErrEmptyText {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestPiperEngine_NoOutput(t *testing.T) {
	// "true" exits 0 without writing audio; synthesis must fail rather
	// than hand back an empty payload.
	engine := &PiperEngine{
		config: PiperConfig{BinaryPath: "true", ModelPath: "model.onnx", SampleRate: 22050},
		logger: testLogger(),
	}

	_, err := engine.Synthesize(context.Background(), SynthesizeRequest{Text: "hello"})
	if err == nil {
		t.Fatal("expected error for empty synthesis output")
	}
}

func TestPiperEngine_Name(t *testing.T) {
	engine := &PiperEngine{logger: testLogger()}
	if engine.Name() != "piper" {
		t.Errorf("Name() = %q, want piper", engine.Name())
	}
}
