package api

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/kikitori-app/kikitori-go/internal/config"
	"github.com/kikitori-app/kikitori-go/internal/history"
	"github.com/kikitori-app/kikitori-go/internal/session"
	"github.com/kikitori-app/kikitori-go/internal/tts"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPPort:       8080,
		Voice:          "default",
		SampleRate:     22050,
		Analyzer:       "none",
		MaxTextLength:  2000,
		StorageBackend: "file",
		StoragePath:    "unused.json",
		LogLevel:       "error",
		LogFormat:      "text",
	}
}

// okEngine returns one second of silence for any text.
type okEngine struct{}

func (okEngine) Name() string { return "ok" }

func (okEngine) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (*tts.PCMResult, error) {
	return &tts.PCMResult{
		Data:          make([]byte, 44100),
		SampleRate:    22050,
		Channels:      1,
		BitsPerSample: 16,
	}, nil
}

// failEngine fails every synthesis.
type failEngine struct{}

func (failEngine) Name() string { return "fail" }

func (failEngine) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (*tts.PCMResult, error) {
	return nil, errors.New("provider down")
}

func testServerWithEngine(t *testing.T, cfg *config.Config, engine tts.Engine) *Server {
	t.Helper()

	registry := tts.NewRegistry()
	if err := registry.Register(engine); err != nil {
		t.Fatalf("register engine: %v", err)
	}
	store := history.NewStore(history.NewMemoryStorage(), testLogger())
	sessions := session.NewManager(registry, nil, store, nil, testLogger())
	return New(cfg, testLogger(), sessions)
}

func testServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	return testServerWithEngine(t, cfg, okEngine{})
}
