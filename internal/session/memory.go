package session

import (
	"context"
	"sync"
	"time"
)

// memoryStore keeps sessions in a map with one lock per session, so
// concurrent updates to different sessions never contend on more than the
// brief map lookup.
type memoryStore struct {
	defaultModel string

	mu      sync.Mutex
	entries map[ID]*memoryEntry
}

type memoryEntry struct {
	mu   sync.Mutex
	data Session
}

func newMemoryStore(defaultModel string) *memoryStore {
	return &memoryStore{
		defaultModel: defaultModel,
		entries:      make(map[ID]*memoryEntry),
	}
}

func (s *memoryStore) entry(id ID) *memoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close drops the map; a late caller gets a fresh session instead of
	// a nil-map panic.
	if s.entries == nil {
		s.entries = make(map[ID]*memoryEntry)
	}

	entry, ok := s.entries[id]
	if !ok {
		entry = &memoryEntry{data: New(s.defaultModel)}
		s.entries[id] = entry
	}
	return entry
}

func (s *memoryStore) Get(ctx context.Context, id ID) (Session, error) {
	entry := s.entry(id)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.data.Clone(), nil
}

func (s *memoryStore) Update(ctx context.Context, id ID, mutate Mutator) (Session, error) {
	entry := s.entry(id)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.data.Clone()
	if err := mutate(&working); err != nil {
		return Session{}, err
	}

	working.UpdatedAt = time.Now()
	entry.data = working
	return working.Clone(), nil
}

func (s *memoryStore) Reset(ctx context.Context, id ID) error {
	_, err := s.Update(ctx, id, func(sess *Session) error {
		sess.Reset()
		return nil
	})
	return err
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	return nil
}
