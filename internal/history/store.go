// Package history keeps the deduplicated, most-recent-first collection
// of learning sessions with their resume state.
package history

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kikitori-app/kikitori-go/internal/analyze"
)

// snapshotVersion is written into every snapshot so future readers can
// branch on layout changes. Unknown fields in newer snapshots are
// ignored by the JSON decoder, keeping old readers working.
const snapshotVersion = 1

// Item is one learning session: the text, its analysis, and the
// mutable playback resume state. Items are owned by the Store; callers
// report mutations through UpdateProgress rather than mutating copies.
type Item struct {
	ID           string          `json:"id"`
	Text         string          `json:"text"`
	Tokens       []analyze.Token `json:"tokens,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	LastPosition float64         `json:"last_position"`
	RepeatCount  int             `json:"repeat_count"`
	PlaybackRate float64         `json:"playback_rate"`
}

type snapshot struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

// Store is the ordered history collection, most recent first. Every
// mutation is a single atomic transition followed by a snapshot write;
// write failures are logged, never surfaced.
type Store struct {
	mu      sync.Mutex
	items   []Item
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewStore creates a store backed by the given storage, loading the
// existing snapshot. Absent or corrupt snapshots degrade to an empty
// collection.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	s := &Store{
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := s.storage.Read()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to read history snapshot, starting empty", "error", err)
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("corrupt history snapshot, starting empty", "error", err)
		return
	}

	for i := range snap.Items {
		normalize(&snap.Items[i])
	}
	s.items = snap.Items
	s.logger.Info("history loaded", "items", len(s.items))
}

// normalize applies defaults so snapshots written before a field
// existed stay readable.
func normalize(it *Item) {
	if it.RepeatCount < 1 {
		it.RepeatCount = 1
	}
	if it.PlaybackRate <= 0 {
		it.PlaybackRate = 1.0
	}
	if it.LastPosition < 0 {
		it.LastPosition = 0
	}
}

// CreateOrUpdate adds a new item for text or, when an item with
// identical text exists, refreshes it and moves it to the front.
// Content identity is exact text match. A non-empty token analysis
// replaces the stored one; an empty analysis keeps prior tokens.
func (s *Store) CreateOrUpdate(text string, tokens []analyze.Token) Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].Text != text {
			continue
		}
		item := s.items[i]
		if len(tokens) > 0 {
			item.Tokens = tokens
		}
		item.CreatedAt = s.now()

		s.items = append(s.items[:i], s.items[i+1:]...)
		s.items = append([]Item{item}, s.items...)
		s.persistLocked()
		return item
	}

	item := Item{
		ID:           s.newID(),
		Text:         text,
		Tokens:       tokens,
		CreatedAt:    s.now(),
		LastPosition: 0,
		RepeatCount:  1,
		PlaybackRate: 1.0,
	}
	s.items = append([]Item{item}, s.items...)
	s.persistLocked()
	return item
}

// UpdateProgress updates an item's resume state in place. Progress
// updates never perturb recency ordering. Returns false for unknown ids.
func (s *Store) UpdateProgress(id string, position float64, repeatCount int, rate float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items[i].LastPosition = position
		s.items[i].RepeatCount = repeatCount
		s.items[i].PlaybackRate = rate
		normalize(&s.items[i])
		s.persistLocked()
		return true
	}
	return false
}

// Remove deletes an item by id. Clearing the active session when it
// was removed is the caller's contract, not the store's.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.persistLocked()
		return true
	}
	return false
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			return s.items[i], true
		}
	}
	return Item{}, false
}

// Items returns a copy of the ordered collection, most recent first.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// persistLocked rewrites the snapshot. Callers hold s.mu.
func (s *Store) persistLocked() {
	data, err := json.Marshal(snapshot{Version: snapshotVersion, Items: s.items})
	if err != nil {
		s.logger.Warn("failed to encode history snapshot", "error", err)
		return
	}
	if err := s.storage.Write(data); err != nil {
		s.logger.Warn("failed to write history snapshot", "error", err)
	}
}
