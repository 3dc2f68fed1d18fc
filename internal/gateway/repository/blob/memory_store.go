package blob

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const memoryScheme = "mem://"

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
	// FailFetch makes Fetch fail for every key; tests use it to exercise
	// degraded reads.
	FailFetch bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, path string, data []byte, _ string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	key, err := cleanKey(path)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), data...)
	return memoryScheme + key, nil
}

func (s *MemoryStore) Fetch(_ context.Context, url string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if !strings.HasPrefix(url, memoryScheme) {
		return nil, fmt.Errorf("unsupported url: %s", url)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailFetch {
		return nil, fmt.Errorf("fetch %s: simulated failure", url)
	}
	raw, ok := s.data[strings.TrimPrefix(url, memoryScheme)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	key, err := cleanKey(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys returns the number of stored objects.
func (s *MemoryStore) Keys() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
