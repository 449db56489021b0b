package history

import "errors"

// ErrNotFound is returned by Storage.Read when no snapshot exists yet.
var ErrNotFound = errors.New("no stored snapshot")

// Storage is the durable key-value collaborator: the whole history
// round-trips as a single serialized snapshot.
type Storage interface {
	Read() ([]byte, error)
	Write(data []byte) error
}

// MemoryStorage keeps the snapshot in memory. Used in tests and as a
// degraded mode when no durable backend is configured.
type MemoryStorage struct {
	data []byte
	set  bool
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Read returns the stored snapshot or ErrNotFound.
func (m *MemoryStorage) Read() ([]byte, error) {
	if !m.set {
		return nil, ErrNotFound
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Write replaces the stored snapshot.
func (m *MemoryStorage) Write(data []byte) error {
	m.data = make([]byte, len(data))
	copy(m.data, data)
	m.set = true
	return nil
}
