package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
)

// MemoryStore is an in-process ObjectStore for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	gets    int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: invalid object key %q", common.ErrInvalidInput, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	b, ok := m.objects[key]
	if !ok {
		return nil, common.KindError(constants.ErrKindNotFound, "get "+key, common.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) PresignedGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", common.KindError(constants.ErrKindNotFound, "presign "+key, common.ErrNotFound)
	}
	return "memory://" + key, nil
}

// Gets reports how many Get calls were served.
func (m *MemoryStore) Gets() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gets
}
