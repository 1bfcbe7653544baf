package users

import (
	"context"
	"sync"
)

// MemoryDirectory keeps names in process. It is the default backend.
type MemoryDirectory struct {
	mu    sync.RWMutex
	names map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{names: make(map[string]string)}
}

func (m *MemoryDirectory) SetName(_ context.Context, id, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	m.mu.Lock()
	m.names[id] = name
	m.mu.Unlock()
	return nil
}

func (m *MemoryDirectory) Name(_ context.Context, id string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.names[id]
	if !ok {
		return "", ErrUnknownUser
	}
	return name, nil
}

func (m *MemoryDirectory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.names, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryDirectory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}
