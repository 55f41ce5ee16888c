package repo

import (
	"context"
	"sync"
	"time"

	"github.com/miradorstack/anomaly-timeline/internal/cache"
)

// stubCache is an in-memory cache.Provider that records TTLs and write counts.
type stubCache struct {
	mu    sync.Mutex
	store map[string][]byte
	ttls  map[string]time.Duration
	sets  int
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), value...), nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = append([]byte(nil), value...)
	s.ttls[key] = ttl
	s.sets++
	return nil
}

func (s *stubCache) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	_, exists := s.store[key]
	s.mu.Unlock()
	if exists {
		return false, nil
	}
	return true, s.Set(ctx, key, value, ttl)
}

func (s *stubCache) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	delete(s.ttls, key)
	return nil
}

func (s *stubCache) Close() error { return nil }
