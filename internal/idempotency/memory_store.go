package idempotency

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryStore() Store {
	return NewMemoryStoreWithClock(time.Now)
}

func NewMemoryStoreWithClock(now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{entries: map[string]memoryEntry{}, now: now}
}

// lookup returns the live entry for key, evicting it if expired. Caller holds mu.
func (s *memoryStore) lookup(key string) (memoryEntry, bool) {
	me, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(me.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return me, true
}

func (s *memoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	me, ok := s.lookup(key)
	if !ok {
		return nil, ErrNotFound
	}
	e := me.entry
	return &e, nil
}

func (s *memoryStore) Reserve(ctx context.Context, key, bodyHash string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	now := s.now().UTC()
	s.entries[key] = memoryEntry{
		entry: Entry{
			State:           StateProcessing,
			RequestBodyHash: bodyHash,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
		expiresAt: now.Add(ttlOrDefault(ttl)),
	}
	return true, nil
}

func (s *memoryStore) Put(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}
	s.entries[key] = memoryEntry{entry: entry, expiresAt: now.Add(ttlOrDefault(ttl))}
	return nil
}

func (s *memoryStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *memoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]memoryEntry{}
	return nil
}
