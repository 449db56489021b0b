package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/kikitori-app/kikitori-go/internal/analyze"
	"github.com/kikitori-app/kikitori-go/internal/history"
	"github.com/kikitori-app/kikitori-go/internal/tts"
	"github.com/kikitori-app/kikitori-go/internal/wav"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

// scriptedEngine runs one scripted behavior per Synthesize call.
type scriptedEngine struct {
	mu     sync.Mutex
	script []func() (*tts.PCMResult, error)
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) Synthesize(ctx context.Context, req tts.SynthesizeRequest) (*tts.PCMResult, error) {
	e.mu.Lock()
	if len(e.script) == 0 {
		e.mu.Unlock()
		return okPCM(), nil
	}
	next := e.script[0]
	e.script = e.script[1:]
	e.mu.Unlock()
	return next()
}

func okPCM() *tts.PCMResult {
	// One second of silence at 22050 Hz mono 16-bit.
	return &tts.PCMResult{
		Data:          make([]byte, 44100),
		SampleRate:    22050,
		Channels:      1,
		BitsPerSample: 16,
	}
}

type fakeAnalyzer struct {
	tokens []analyze.Token
	err    error
}

func (f *fakeAnalyzer) Name() string { return "fake" }

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) ([]analyze.Token, error) {
	return f.tokens, f.err
}

func newTestManager(t *testing.T, engine tts.Engine, analyzer analyze.Analyzer) (*Manager, *history.Store) {
	t.Helper()

	registry := tts.NewRegistry()
	if err := registry.Register(engine); err != nil {
		t.Fatalf("register engine: %v", err)
	}
	store := history.NewStore(history.NewMemoryStorage(), testLogger())
	return NewManager(registry, analyzer, store, nil, testLogger()), store
}

func TestGenerate(t *testing.T) {
	analyzer := &fakeAnalyzer{tokens: []analyze.Token{
		{Surface: "漢字", Reading: "かんじ"},
		{Surface: "です"},
	}}
	m, store := newTestManager(t, &scriptedEngine{}, analyzer)

	sess, err := m.Generate(context.Background(), "漢字です", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if sess.Handle.Duration != 1.0 {
		t.Errorf("duration = %v, want 1.0", sess.Handle.Duration)
	}

	// The handle carries a well-formed WAV container.
	h, err := wav.ParseHeader(sess.Handle.Bytes())
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.SampleRate != 22050 || h.Channels != 1 || h.BitsPerSample != 16 {
		t.Errorf("header = %+v", h)
	}
	if h.DataSize != 44100 {
		t.Errorf("DataSize = %d, want 44100", h.DataSize)
	}

	if len(sess.Segments) != 2 {
		t.Errorf("got %d segments, want 2", len(sess.Segments))
	}
	if sess.Segments[0].Reading != "かんじ" {
		t.Errorf("segment reading = %q, want かんじ", sess.Segments[0].Reading)
	}

	if store.Len() != 1 {
		t.Errorf("history has %d items, want 1", store.Len())
	}
	if m.Active() != sess {
		t.Error("session not installed as active")
	}
}

func TestGenerateSynthesisFailureFatal(t *testing.T) {
	engine := &scriptedEngine{script: []func() (*tts.PCMResult, error){
		func() (*tts.PCMResult, error) { return nil, errors.New("provider down") },
	}}
	m, store := newTestManager(t, engine, nil)

	_, err := m.Generate(context.Background(), "text", "")
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}

	// Failed generations never touch history or the active session.
	if store.Len() != 0 {
		t.Errorf("history has %d items, want 0", store.Len())
	}
	if m.Active() != nil {
		t.Error("failed generation installed a session")
	}
}

func TestGenerateAnalysisFailureDegrades(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("analyzer crashed")}
	m, _ := newTestManager(t, &scriptedEngine{}, analyzer)

	sess, err := m.Generate(context.Background(), "hello world", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(sess.Item.Tokens) != 0 {
		t.Errorf("tokens = %v, want none", sess.Item.Tokens)
	}
	// Word-boundary fallback still segments the text.
	if len(sess.Segments) < 2 {
		t.Errorf("got %d segments, want fallback word segmentation", len(sess.Segments))
	}
}

func TestGenerateNoAnalyzer(t *testing.T) {
	m, _ := newTestManager(t, &scriptedEngine{}, nil)

	sess, err := m.Generate(context.Background(), "plain", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(sess.Item.Tokens) != 0 {
		t.Errorf("tokens = %v, want none", sess.Item.Tokens)
	}
}

func TestGenerateLastRequestWins(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	engine := &scriptedEngine{script: []func() (*tts.PCMResult, error){
		func() (*tts.PCMResult, error) {
			close(started)
			<-release
			return okPCM(), nil
		},
	}}
	m, store := newTestManager(t, engine, nil)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Generate(context.Background(), "slow request", "")
		errCh <- err
	}()
	<-started

	fast, err := m.Generate(context.Background(), "fast request", "")
	if err != nil {
		t.Fatalf("fast Generate: %v", err)
	}

	close(release)
	if err := <-errCh; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("slow Generate error = %v, want ErrSuperseded", err)
	}

	active := m.Active()
	if active != fast {
		t.Error("stale generation overwrote the newer session")
	}
	// The stale result was discarded before touching history.
	if store.Len() != 1 {
		t.Errorf("history has %d items, want 1", store.Len())
	}
	if items := store.Items(); items[0].Text != "fast request" {
		t.Errorf("history front = %q, want fast request", items[0].Text)
	}
}

func TestGenerateReleasesSupersededHandle(t *testing.T) {
	m, _ := newTestManager(t, &scriptedEngine{}, nil)

	first, err := m.Generate(context.Background(), "first", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := m.Generate(context.Background(), "second", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !first.Handle.Released() {
		t.Error("superseded handle not released")
	}
	if second.Handle.Released() {
		t.Error("active handle released")
	}
}

func TestRemoveActiveClearsSession(t *testing.T) {
	m, _ := newTestManager(t, &scriptedEngine{}, nil)

	sess, err := m.Generate(context.Background(), "text", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !m.Remove(sess.Item.ID) {
		t.Fatal("Remove returned false")
	}
	if m.Active() != nil {
		t.Error("active session not cleared after removing its item")
	}
	if !sess.Handle.Released() {
		t.Error("removed session's handle not released")
	}
}

func TestRemoveInactiveKeepsSession(t *testing.T) {
	m, _ := newTestManager(t, &scriptedEngine{}, nil)

	old, err := m.Generate(context.Background(), "old", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	current, err := m.Generate(context.Background(), "current", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !m.Remove(old.Item.ID) {
		t.Fatal("Remove returned false")
	}
	if m.Active() != current {
		t.Error("removing an inactive item cleared the active session")
	}
}

func TestResumeRestoresProgress(t *testing.T) {
	m, store := newTestManager(t, &scriptedEngine{}, nil)

	sess, err := m.Generate(context.Background(), "resumable", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	store.UpdateProgress(sess.Item.ID, 0.5, 5, 1.5)

	resumed, err := m.Resume(context.Background(), sess.Item.ID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if resumed.Player.Position() != 0.5 {
		t.Errorf("position = %v, want 0.5", resumed.Player.Position())
	}
	if resumed.Player.Rate() != 1.5 {
		t.Errorf("rate = %v, want 1.5", resumed.Player.Rate())
	}
	if resumed.Player.RepeatCount() != 5 {
		t.Errorf("repeat count = %d, want 5", resumed.Player.RepeatCount())
	}
	if store.Len() != 1 {
		t.Errorf("resume duplicated the item: %d items", store.Len())
	}
}

func TestResumeUnknownID(t *testing.T) {
	m, _ := newTestManager(t, &scriptedEngine{}, nil)

	if _, err := m.Resume(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayerPersistsToStore(t *testing.T) {
	m, store := newTestManager(t, &scriptedEngine{}, nil)

	sess, err := m.Generate(context.Background(), "progress", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	sess.Player.TogglePlay()
	sess.Player.OnTimeAdvance(0.25) // first tick persists

	item, ok := store.Get(sess.Item.ID)
	if !ok {
		t.Fatal("item missing from store")
	}
	if item.LastPosition != 0.25 {
		t.Errorf("persisted position = %v, want 0.25", item.LastPosition)
	}
}

func TestClose(t *testing.T) {
	m, _ := newTestManager(t, &scriptedEngine{}, nil)

	sess, err := m.Generate(context.Background(), "text", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	m.Close()
	if !sess.Handle.Released() {
		t.Error("Close did not release the active handle")
	}
	if m.Active() != nil {
		t.Error("Close did not clear the active session")
	}
}
