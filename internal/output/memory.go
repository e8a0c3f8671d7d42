package output

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, runID, name string, content []byte) error {
	runID, name, err := key(runID, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[runID+"/"+name] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID, name string) ([]byte, error) {
	runID, name, err := key(runID, name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[runID+"/"+name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	runID, err := checkRunID(runID)
	if err != nil {
		return nil, err
	}
	prefix := runID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 8)
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) Location(context.Context, string, string) (string, error) {
	return "", nil
}
