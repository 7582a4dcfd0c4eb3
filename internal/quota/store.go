package quota

import "sync"

// Store is the durable key-value entry the quota record is kept in. It is an
// injectable seam so tests can swap the SQLite store for an in-memory fake.
// Reads and writes are individually atomic but a read-modify-write cycle is
// not; concurrent sessions may both observe the same count before either
// writes. Last write wins.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
}

// MemoryStore is a Store kept in process memory. Used in tests and as a
// fallback when no durable path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = value
	return nil
}
