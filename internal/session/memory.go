package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

type memoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore returns a process-local store. It backs tests and
// single-node development runs where Redis is not available.
func NewMemoryStore() Store {
	return &memoryStore{data: map[string]map[string][]byte{}}
}

func (s *memoryStore) Get(_ context.Context, sessionID, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket, ok := s.data[sessionID]
	if !ok {
		return false, nil
	}
	payload, ok := bucket[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("session decode %s: %w", key, err)
	}
	return true, nil
}

func (s *memoryStore) Set(_ context.Context, sessionID, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[sessionID]
	if !ok {
		bucket = map[string][]byte{}
		s.data[sessionID] = bucket
	}
	bucket[key] = payload
	return nil
}

func (s *memoryStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.data[sessionID]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(bucket, key)
	}
	return nil
}

func (s *memoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, sessionID)
	return nil
}
