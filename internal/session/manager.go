// Package session runs the generation pipeline (synthesis plus
// analysis) and owns the active playback session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kikitori-app/kikitori-go/internal/analyze"
	"github.com/kikitori-app/kikitori-go/internal/history"
	"github.com/kikitori-app/kikitori-go/internal/observability"
	"github.com/kikitori-app/kikitori-go/internal/player"
	"github.com/kikitori-app/kikitori-go/internal/segment"
	"github.com/kikitori-app/kikitori-go/internal/tts"
	"github.com/kikitori-app/kikitori-go/internal/wav"
)

var (
	// ErrSynthesis wraps fatal speech synthesis failures; the caller
	// surfaces these with a retry affordance.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrSuperseded is returned when a newer generation request took
	// over before this one resolved.
	ErrSuperseded = errors.New("generation superseded by a newer request")
	// ErrNotFound is returned when a history item does not exist.
	ErrNotFound = errors.New("history item not found")
)

// Session is the active learning session: one history item, its framed
// audio, its segments, and the playback controller driving them.
type Session struct {
	Item     history.Item
	Handle   *Handle
	Segments []segment.Segment
	Player   *player.Controller
}

// Manager serializes session turnover. Generation requests overlap
// freely; the newest request wins by generation sequence number, and a
// stale result that resolves late is discarded rather than cancelled.
type Manager struct {
	mu       sync.Mutex
	engines  *tts.Registry
	analyzer analyze.Analyzer
	store    *history.Store
	metrics  *observability.Metrics
	logger   *slog.Logger

	gen    uint64
	active *Session
}

// NewManager creates a session manager. analyzer and metrics may be nil.
func NewManager(
	engines *tts.Registry,
	analyzer analyze.Analyzer,
	store *history.Store,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		engines:  engines,
		analyzer: analyzer,
		store:    store,
		metrics:  metrics,
		logger:   logger,
	}
}

type synthResult struct {
	pcm *tts.PCMResult
	err error
}

// Generate synthesizes and analyzes text concurrently, frames the
// audio, records the history item, and installs the new active session.
// Analysis failure degrades to no tokens; synthesis failure is fatal to
// the request and leaves history untouched.
func (m *Manager) Generate(ctx context.Context, text, voice string) (*Session, error) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	engine, err := m.engines.Default()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}

	// Two independent outbound operations; they complete and fail
	// independently.
	synthCh := make(chan synthResult, 1)
	go func() {
		start := time.Now()
		pcm, err := engine.Synthesize(ctx, tts.SynthesizeRequest{Text: text, Voice: voice})
		if m.metrics != nil {
			m.metrics.ObserveSynthesis(time.Since(start), err)
		}
		synthCh <- synthResult{pcm: pcm, err: err}
	}()

	tokenCh := make(chan []analyze.Token, 1)
	go func() {
		tokenCh <- m.analyzeText(ctx, text)
	}()

	synth := <-synthCh
	tokens := <-tokenCh

	if synth.err != nil {
		m.logger.Error("synthesis failed", "generation", gen, "error", synth.err)
		return nil, fmt.Errorf("%w: %v", ErrSynthesis, synth.err)
	}

	pcm := synth.pcm
	wavData := wav.WrapRawPCM(pcm.Data, pcm.SampleRate, pcm.Channels, pcm.BitsPerSample)
	duration := wav.Duration(len(pcm.Data), pcm.SampleRate, pcm.Channels, pcm.BitsPerSample)

	m.mu.Lock()
	defer m.mu.Unlock()

	// Last-request-wins: a stale slow response must not overwrite the
	// session a newer request already installed.
	if gen != m.gen {
		m.logger.Info("discarding superseded generation", "generation", gen, "latest", m.gen)
		return nil, ErrSuperseded
	}

	item := m.store.CreateOrUpdate(text, tokens)

	// item.Tokens rather than the fresh analysis: a failed re-analysis
	// keeps the previously stored tokens.
	segments := segment.Build(text, item.Tokens)

	handle := newHandle(wavData, pcm.SampleRate, duration)

	ctrl := player.New(m.logger)
	itemID := item.ID
	ctrl.SetPersistFunc(func(p player.Progress) {
		m.store.UpdateProgress(itemID, p.Position, p.RepeatCount, p.Rate)
		if m.metrics != nil {
			m.metrics.ProgressPersists.Inc()
		}
	})
	ctrl.Load(duration, segments, item.LastPosition, item.PlaybackRate, item.RepeatCount)

	if m.active != nil {
		m.active.Handle.Release()
	}

	sess := &Session{Item: item, Handle: handle, Segments: segments, Player: ctrl}
	m.active = sess

	if m.metrics != nil {
		m.metrics.HistoryItems.Set(float64(m.store.Len()))
	}

	m.logger.Info("session ready",
		"item_id", item.ID,
		"duration_seconds", duration,
		"segments", len(segments),
		"tokens", len(item.Tokens),
	)

	return sess, nil
}

// analyzeText runs the analyzer and degrades every failure to nil
// tokens; analysis failures are logged, never surfaced.
func (m *Manager) analyzeText(ctx context.Context, text string) []analyze.Token {
	if m.analyzer == nil {
		return nil
	}
	tokens, err := m.analyzer.Analyze(ctx, text)
	if err != nil {
		m.logger.Warn("text analysis failed, continuing without tokens",
			"analyzer", m.analyzer.Name(),
			"error", err,
		)
		if m.metrics != nil {
			m.metrics.AnalysisFailures.Inc()
		}
		return nil
	}
	return tokens
}

// Resume re-synthesizes a history item and restores its saved position,
// repeat count, and rate.
func (m *Manager) Resume(ctx context.Context, id string) (*Session, error) {
	item, ok := m.store.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return m.Generate(ctx, item.Text, "")
}

// Remove deletes a history item. When it backs the active session, the
// session is cleared and its audio handle released.
func (m *Manager) Remove(id string) bool {
	removed := m.store.Remove(id)

	m.mu.Lock()
	if m.active != nil && m.active.Item.ID == id {
		m.active.Handle.Release()
		m.active = nil
	}
	m.mu.Unlock()

	if removed && m.metrics != nil {
		m.metrics.HistoryItems.Set(float64(m.store.Len()))
	}
	return removed
}

// Active returns the current session, or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// History returns the ordered history collection.
func (m *Manager) History() []history.Item {
	return m.store.Items()
}

// Close tears down the active session, releasing its audio handle.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		m.active.Handle.Release()
		m.active = nil
	}
}
