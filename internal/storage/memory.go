package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"banditlab/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	records     map[string]model.CacheRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.records = make(map[string]model.CacheRecord)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (model.CacheRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.CacheRecord{}, false, errors.New("store is not initialized")
	}
	record, ok := s.records[key]
	if !ok {
		return model.CacheRecord{}, false, nil
	}
	return cloneRecord(record), true, nil
}

func (s *MemoryStore) Put(_ context.Context, record model.CacheRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.records[record.Key] = cloneRecord(record)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func cloneRecord(r model.CacheRecord) model.CacheRecord {
	r.Payload = append([]byte(nil), r.Payload...)
	return r
}
