package account

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a DocumentStore kept in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	settings map[string]Settings
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
		settings: make(map[string]Settings),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) GetProfile(_ context.Context, uid string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[uid]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) PutProfile(_ context.Context, uid string, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if prev, ok := m.profiles[uid]; ok {
		p.CreatedAt = prev.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.profiles[uid] = p
	return nil
}

// MergeProfile applies patch to the stored profile, creating an empty one
// first if none exists.
func (m *MemoryStore) MergeProfile(_ context.Context, uid string, patch ProfilePatch) (Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	p, ok := m.profiles[uid]
	if !ok {
		p.CreatedAt = now
	}
	p = patch.Apply(p)
	p.UpdatedAt = now
	m.profiles[uid] = p
	return p, nil
}

func (m *MemoryStore) DeleteProfile(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.profiles, uid)
	return nil
}

func (m *MemoryStore) GetSettings(_ context.Context, uid string) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[uid]
	if !ok {
		return Settings{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) PutSettings(_ context.Context, uid string, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	m.settings[uid] = s
	return nil
}

// MergeSettings applies patch over the stored settings, or over
// DefaultSettings when none exist.
func (m *MemoryStore) MergeSettings(_ context.Context, uid string, patch SettingsPatch) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[uid]
	if !ok {
		s = DefaultSettings()
	}
	s = patch.Apply(s)
	s.UpdatedAt = m.now()
	m.settings[uid] = s
	return s, nil
}

func (m *MemoryStore) DeleteSettings(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.settings, uid)
	return nil
}
