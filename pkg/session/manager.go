package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// Manager maps session ids to stores.
// Generations survive Delete so a reopened id never reuses one.
type Manager struct {
	mu          sync.RWMutex
	stores      map[string]*Store
	generations map[string]uint64

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates an empty session manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		stores:      make(map[string]*Store),
		generations: make(map[string]uint64),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reset installs a fresh store for id under the next generation. start builds
// the initial snapshot for that generation.
func (m *Manager) Reset(id string, start func(generation uint64) *domain.Session) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen := m.generations[id] + 1
	initial := start(gen)
	if initial == nil || initial.ID != id || initial.Generation != gen {
		return nil, fmt.Errorf("reset %s: %w", id, domain.ErrGenerationChange)
	}

	store := NewStore(initial)
	m.generations[id] = gen
	if _, existed := m.stores[id]; existed {
		m.logger.Debug("Session restarted", "session_id", id, "generation", gen)
	}
	m.stores[id] = store
	return store, nil
}

// Get returns the store of the current generation.
func (m *Manager) Get(id string) (*Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	store, ok := m.stores[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	return store, nil
}

// Generation returns the current generation of id (0 if never opened).
func (m *Manager) Generation(id string) uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generations[id]
}

// Delete drops the store of id. Its generation counter is kept.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[id]; !ok {
		return fmt.Errorf("%s: %w", id, domain.ErrSessionNotFound)
	}
	delete(m.stores, id)
	return nil
}

// List returns the ids of every live session, sorted.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.stores))
	for id := range m.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
