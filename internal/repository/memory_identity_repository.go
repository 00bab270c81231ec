package repository

import (
	"context"
	"sync"
)

type memoryIdentityRepository struct {
	mu      sync.RWMutex
	records map[string][]byte
}

// NewMemoryIdentityRepository keeps records for the life of the process.
func NewMemoryIdentityRepository() IdentityRepository {
	return &memoryIdentityRepository{records: make(map[string][]byte)}
}

func (r *memoryIdentityRepository) Load(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (r *memoryIdentityRepository) Save(_ context.Context, key string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[key] = append([]byte(nil), payload...)
	return nil
}

func (r *memoryIdentityRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}
