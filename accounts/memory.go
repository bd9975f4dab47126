package accounts

import (
	"context"
	"sync"

	"github.com/MrEthical07/soundwave"
)

// MemoryStore is an in-process account table for tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]soundwave.User
}

func NewMemoryStore(users ...soundwave.User) *MemoryStore {
	m := &MemoryStore{users: make(map[string]soundwave.User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MemoryStore) FindUser(ctx context.Context, userID string) (soundwave.User, error) {
	if err := ctx.Err(); err != nil {
		return soundwave.User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return soundwave.User{}, soundwave.ErrUserNotFound
	}
	return u, nil
}

// Upsert inserts or replaces u.
func (m *MemoryStore) Upsert(u soundwave.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// SetActive flips the account flag. It reports false for unknown users.
func (m *MemoryStore) SetActive(userID string, active bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false
	}
	u.IsActive = active
	m.users[userID] = u
	return true
}
