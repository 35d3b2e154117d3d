package profile

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Store defines the persistence operations the Manager needs.
// Implemented by storage.Store.
type Store interface {
	SaveDefaultProfile(data string) error
	DefaultProfile() (string, bool, error)
}

// Manager provides cached access to the saved default profile. Safe for
// concurrent use by the HTTP and MCP surfaces.
type Manager struct {
	store Store

	mu     sync.RWMutex
	cached *Profile
}

// NewManager creates a Manager over the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Get returns the saved default profile. The second return is false when
// no profile has been saved yet.
func (m *Manager) Get() (Profile, bool, error) {
	m.mu.RLock()
	if m.cached != nil {
		p := *m.cached
		m.mu.RUnlock()
		return p, true, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil {
		return *m.cached, true, nil
	}

	data, ok, err := m.store.DefaultProfile()
	if err != nil {
		return Profile{}, false, fmt.Errorf("loading default profile: %w", err)
	}
	if !ok {
		return Profile{}, false, nil
	}

	var p Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return Profile{}, false, fmt.Errorf("decoding default profile: %w", err)
	}
	m.cached = &p
	return p, true, nil
}

// Set persists the profile as the new default and refreshes the cache.
func (m *Manager) Set(p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SaveDefaultProfile(string(data)); err != nil {
		return fmt.Errorf("saving default profile: %w", err)
	}
	m.cached = &p
	return nil
}
