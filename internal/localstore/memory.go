package localstore

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store for tests.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

func (m *Memory) Get(ctx context.Context, ownerID, key string, dest any) (bool, error) {
	m.mu.Lock()
	raw, ok := m.data[ownerID+"/"+key]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *Memory) Put(ctx context.Context, ownerID, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[ownerID+"/"+key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, ownerID, key string) error {
	m.mu.Lock()
	delete(m.data, ownerID+"/"+key)
	m.mu.Unlock()
	return nil
}
