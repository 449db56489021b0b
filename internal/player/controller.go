// Package player owns playback state: play/pause, seeking, variable
// rate, bounded loop repetition, and active-segment highlighting.
package player

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kikitori-app/kikitori-go/internal/segment"
)

// State is the playback state machine position.
type State int

const (
	// StateIdle means no audio is loaded.
	StateIdle State = iota
	// StateReady means audio is loaded and paused at some position.
	StateReady
	// StatePlaying means audio is playing.
	StatePlaying
	// StatePaused means playback was started and then paused.
	StatePaused
	// StateCompleted marks the end of a repeat cycle. It is transient:
	// OnPlaybackEnded immediately resolves it to Playing or Ready.
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

var (
	// ErrNoAudio is returned when an operation needs loaded audio.
	ErrNoAudio = errors.New("no audio loaded")
	// ErrInvalidRate is returned for rates outside PlaybackRates.
	ErrInvalidRate = errors.New("unsupported playback rate")
	// ErrInvalidRepeat is returned for counts outside RepeatCounts.
	ErrInvalidRepeat = errors.New("unsupported repeat count")
	// ErrNoSuchSegment is returned for an unknown segment ordinal.
	ErrNoSuchSegment = errors.New("no such segment")
)

// PlaybackRates is the accepted set of rate multipliers.
var PlaybackRates = []float64{0.8, 1.0, 1.5, 2.0, 3.0}

// RepeatCounts is the accepted set of loop repetition counts.
var RepeatCounts = []int{1, 5, 10, 30}

// persistInterval bounds progress-persist volume to roughly one write
// per two seconds of wall time while playing.
const persistInterval = 2 * time.Second

// Progress is the mutable per-session playback state reported back to
// the history store.
type Progress struct {
	Position    float64
	RepeatCount int
	Rate        float64
}

// Controller serializes all playback mutations behind one mutex.
// Callbacks fire outside the lock and must not be assumed ordered
// across concurrent operations.
type Controller struct {
	mu     sync.Mutex
	logger *slog.Logger

	state      State
	segments   []segment.Segment
	totalChars int
	duration   float64

	current         float64
	rate            float64
	repeatCount     int
	repeatIteration int
	activeOrdinal   int

	lastPersist time.Time
	now         func() time.Time

	onPersist   func(Progress)
	onHighlight func(ordinal int)
	onState     func(State)
}

// New creates an idle controller.
func New(logger *slog.Logger) *Controller {
	return &Controller{
		logger:          logger,
		state:           StateIdle,
		rate:            1.0,
		repeatCount:     1,
		repeatIteration: 1,
		activeOrdinal:   -1,
		now:             time.Now,
	}
}

// SetPersistFunc registers the throttled progress-persist callback.
func (c *Controller) SetPersistFunc(fn func(Progress)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPersist = fn
}

// SetHighlightFunc registers the active-segment change callback.
func (c *Controller) SetHighlightFunc(fn func(ordinal int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onHighlight = fn
}

// SetStateFunc registers the state transition callback.
func (c *Controller) SetStateFunc(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// Load transitions to Ready with the given audio timeline and segments,
// seeking to resumePosition and applying the saved rate and repeat
// count. Out-of-set saved values fall back to the defaults.
func (c *Controller) Load(duration float64, segments []segment.Segment, resumePosition, rate float64, repeatCount int) {
	c.mu.Lock()

	c.duration = duration
	c.segments = segments
	c.totalChars = 0
	if len(segments) > 0 {
		c.totalChars = segments[len(segments)-1].End
	}

	c.current = clamp(resumePosition, 0, duration)
	c.rate = 1.0
	if validRate(rate) {
		c.rate = rate
	}
	c.repeatCount = 1
	if validRepeat(repeatCount) {
		c.repeatCount = repeatCount
	}
	c.repeatIteration = 1
	c.activeOrdinal = -1
	c.state = StateReady
	c.lastPersist = time.Time{}

	emit := c.stateCallback()
	c.mu.Unlock()
	emit()
}

// TogglePlay starts or resumes playback from Ready/Paused and pauses
// from Playing. With no audio loaded it is a silent no-op.
func (c *Controller) TogglePlay() {
	c.mu.Lock()

	switch c.state {
	case StateIdle:
		c.logger.Debug("toggle ignored, no audio loaded")
		c.mu.Unlock()
		return
	case StatePlaying:
		c.state = StatePaused
	default:
		c.state = StatePlaying
	}

	emit := c.stateCallback()
	c.mu.Unlock()
	emit()
}

// SeekTo moves the playback position, clamped to [0, duration],
// regardless of play state. No-op when idle.
func (c *Controller) SeekTo(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return
	}
	c.current = clamp(seconds, 0, c.duration)
}

// SetRate applies a playback rate from the fixed discrete set. Values
// outside the set are rejected without altering state.
func (c *Controller) SetRate(rate float64) error {
	if !validRate(rate) {
		return ErrInvalidRate
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = rate
	return nil
}

// SetRepeatCount applies a loop count from the fixed discrete set and
// resets the in-progress iteration counter.
func (c *Controller) SetRepeatCount(n int) error {
	if !validRepeat(n) {
		return ErrInvalidRepeat
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeatCount = n
	c.repeatIteration = 1
	return nil
}

// OnPlaybackEnded handles natural end of audio: replay from zero while
// repeat budget remains, otherwise reset and return to Ready.
func (c *Controller) OnPlaybackEnded() {
	c.mu.Lock()

	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}

	c.state = StateCompleted
	c.current = 0

	if c.repeatIteration < c.repeatCount {
		c.repeatIteration++
		c.state = StatePlaying
		c.logger.Debug("repeat loop continues",
			"iteration", c.repeatIteration,
			"repeat_count", c.repeatCount,
		)
	} else {
		c.repeatIteration = 1
		c.state = StateReady
	}

	// Persist immediately so a stop at the loop boundary lands position 0.
	persist := c.persistCallback()
	emit := c.stateCallback()
	c.mu.Unlock()
	persist()
	emit()
}

// OnTimeAdvance is invoked continuously during playback. It recomputes
// the active segment from the current time and persists progress at a
// throttled cadence.
func (c *Controller) OnTimeAdvance(seconds float64) {
	c.mu.Lock()

	if c.state != StatePlaying {
		c.mu.Unlock()
		return
	}

	c.current = clamp(seconds, 0, c.duration)

	highlight := func() {}
	if c.duration > 0 && c.totalChars > 0 {
		idx := segment.CharIndex(c.current, c.duration, c.totalChars)
		ordinal := segment.At(c.segments, idx)
		if ordinal != c.activeOrdinal {
			c.activeOrdinal = ordinal
			if fn := c.onHighlight; fn != nil {
				highlight = func() { fn(ordinal) }
			}
		}
	}

	persist := func() {}
	if now := c.now(); now.Sub(c.lastPersist) >= persistInterval {
		c.lastPersist = now
		persist = c.persistCallback()
	}

	c.mu.Unlock()
	highlight()
	persist()
}

// SelectSegment seeks to a segment's estimated start time and starts
// playback if not already playing. Returns the seek target. Disabled
// when the duration is unknown.
func (c *Controller) SelectSegment(ordinal int) (float64, error) {
	c.mu.Lock()

	if c.state == StateIdle || c.duration <= 0 || c.totalChars <= 0 {
		c.mu.Unlock()
		return 0, ErrNoAudio
	}
	if ordinal < 0 || ordinal >= len(c.segments) {
		c.mu.Unlock()
		return 0, ErrNoSuchSegment
	}

	target := segment.EstimateStart(c.segments[ordinal], c.totalChars, c.duration)
	c.current = target
	c.activeOrdinal = ordinal

	emit := func() {}
	if c.state != StatePlaying {
		c.state = StatePlaying
		emit = c.stateCallback()
	}

	c.mu.Unlock()
	emit()
	return target, nil
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the current playback time in seconds.
func (c *Controller) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Duration returns the loaded audio duration in seconds.
func (c *Controller) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Rate returns the active playback rate.
func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// RepeatCount returns the configured loop count.
func (c *Controller) RepeatCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repeatCount
}

// RepeatIteration returns the in-progress loop iteration (1-based).
func (c *Controller) RepeatIteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.repeatIteration
}

// ActiveOrdinal returns the highlighted segment ordinal, or -1.
func (c *Controller) ActiveOrdinal() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeOrdinal
}

// Snapshot returns the progress fields persisted to history.
func (c *Controller) Snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Progress{Position: c.current, RepeatCount: c.repeatCount, Rate: c.rate}
}

// stateCallback captures the state notification under the lock so it
// can fire after unlocking.
func (c *Controller) stateCallback() func() {
	if c.onState == nil {
		return func() {}
	}
	fn, st := c.onState, c.state
	return func() { fn(st) }
}

// persistCallback captures the progress notification under the lock.
func (c *Controller) persistCallback() func() {
	if c.onPersist == nil {
		return func() {}
	}
	fn := c.onPersist
	p := Progress{Position: c.current, RepeatCount: c.repeatCount, Rate: c.rate}
	return func() { fn(p) }
}

func validRate(v float64) bool {
	for _, r := range PlaybackRates {
		if r == v {
			return true
		}
	}
	return false
}

func validRepeat(n int) bool {
	for _, r := range RepeatCounts {
		if r == n {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
