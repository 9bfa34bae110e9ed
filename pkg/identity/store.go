package identity

import (
	"context"
	"sync"
	"time"
)

// Store persists identities and action tokens.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByProvider(ctx context.Context, kind Kind, subject string) (User, error)
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, id string) error

	CreateActionToken(ctx context.Context, t ActionToken) error
	GetActionTokenByHash(ctx context.Context, hash string) (ActionToken, error)
	MarkActionTokenUsed(ctx context.Context, id string, at time.Time) error
	DeleteExpiredActionTokens(ctx context.Context, before time.Time) (int64, error)
}

// MemoryStore is a Store kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]User
	tokens map[string]ActionToken
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]User),
		tokens: make(map[string]ActionToken),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; ok {
		return ErrAlreadyExists
	}
	if u.Email != "" {
		for _, other := range m.users {
			if other.Email == u.Email {
				return ErrAlreadyExists
			}
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email != "" && u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) GetUserByProvider(_ context.Context, kind Kind, subject string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Provider == kind && u.ProviderSubject == subject {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *MemoryStore) UpdateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	for id, other := range m.users {
		if id != u.ID && u.Email != "" && other.Email == u.Email {
			return ErrAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for tid, t := range m.tokens {
		if t.UserID == id {
			delete(m.tokens, tid)
		}
	}
	return nil
}

func (m *MemoryStore) CreateActionToken(_ context.Context, t ActionToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[t.ID]; ok {
		return ErrAlreadyExists
	}
	m.tokens[t.ID] = t
	return nil
}

func (m *MemoryStore) GetActionTokenByHash(_ context.Context, hash string) (ActionToken, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.tokens {
		if t.TokenHash == hash {
			return t, nil
		}
	}
	return ActionToken{}, ErrNotFound
}

func (m *MemoryStore) MarkActionTokenUsed(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[id]
	if !ok || t.UsedAt != nil {
		return ErrNotFound
	}
	t.UsedAt = &at
	m.tokens[id] = t
	return nil
}

func (m *MemoryStore) DeleteExpiredActionTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, id)
			n++
		}
	}
	return n, nil
}
