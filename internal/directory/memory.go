package directory

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process resolver for tests and development.
type Memory struct {
	mu     sync.RWMutex
	byName map[string]string
}

func NewMemory() *Memory {
	return &Memory{byName: make(map[string]string)}
}

// Register binds a handle to a user id, overwriting any previous binding.
func (m *Memory) Register(handle, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byName[strings.TrimSpace(handle)] = userID
}

func (m *Memory) Resolve(_ context.Context, handle string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[strings.TrimSpace(handle)]
	if !ok || id == "" {
		return "", ErrUnknownHandle
	}
	return id, nil
}

var _ Resolver = (*Memory)(nil)
