package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-voice/internal/weather"
)

type entry struct {
	payload []byte
	expires time.Time
}

// MemoryStore is a concurrency-safe in-memory payload cache with per-entry expiry.
type MemoryStore struct {
	mu sync.RWMutex

	// key: cache key, value: payload and its expiry
	data map[string]entry

	// maxEntries bounds the number of cached payloads (0 = unlimited).
	maxEntries int

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore.
// If maxEntries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]entry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the payload for key while it is fresh.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok || !s.now().Before(e.expires) {
		return nil, false, nil
	}
	return e.payload, true, nil
}

// Set stores payload under key for ttl. When the store is full, expired
// entries are dropped first, then the entry closest to expiry.
func (s *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if _, exists := s.data[key]; !exists && s.maxEntries > 0 && len(s.data) >= s.maxEntries {
		s.sweepLocked(now)
		if len(s.data) >= s.maxEntries {
			s.evictOldestLocked()
		}
	}

	s.data[key] = entry{payload: payload, expires: now.Add(ttl)}
	return nil
}

// Sweep removes expired entries and returns how many were dropped.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Len returns the number of entries, fresh or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range s.data {
		if !now.Before(e.expires) {
			delete(s.data, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
	)
	for k, e := range s.data {
		if oldestKey == "" || e.expires.Before(oldest) {
			oldestKey = k
			oldest = e.expires
		}
	}
	delete(s.data, oldestKey)
}

var _ weather.PayloadCache = (*MemoryStore)(nil)
