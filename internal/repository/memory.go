package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/turfsplit/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sessions in process memory. Updates hold a per-session
// mutex, so two sessions never block each other.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	order    []string
	locks    map[string]*sync.Mutex
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*model.Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Create stores a copy of s.
func (m *MemoryStore) Create(ctx context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("insert session: duplicate id %s", s.ID)
	}
	if s.Version == 0 {
		s.Version = 1
	}
	m.sessions[s.ID] = s.Clone()
	m.order = append(m.order, s.ID)
	m.locks[s.ID] = &sync.Mutex{}
	return nil
}

// GetByID returns a copy of the stored session.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

// GetCurrent returns a copy of the newest session that is not closed.
func (m *MemoryStore) GetCurrent(ctx context.Context) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var current *model.Session
	for _, id := range m.order {
		s := m.sessions[id]
		if s.Status == model.StatusClosed {
			continue
		}
		if current == nil || !s.CreatedAt.Before(current.CreatedAt) {
			current = s
		}
	}
	if current == nil {
		return nil, ErrNotFound
	}
	return current.Clone(), nil
}

// ListByStatus returns copies of every session in status, oldest first.
func (m *MemoryStore) ListByStatus(ctx context.Context, status model.SessionStatus) ([]*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sessions []*model.Session
	for _, id := range m.order {
		if s := m.sessions[id]; s.Status == status {
			sessions = append(sessions, s.Clone())
		}
	}
	slices.SortStableFunc(sessions, func(a, b *model.Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return sessions, nil
}

// Update applies fn to a copy of the session under its mutex and swaps the
// copy in only when fn succeeds.
func (m *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (*model.Session, error) {
	m.mu.RLock()
	lock, ok := m.locks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	working := m.sessions[id].Clone()
	m.mu.RUnlock()

	if err := fn(working); err != nil {
		return nil, err
	}
	working.Version++

	m.mu.Lock()
	m.sessions[id] = working
	m.mu.Unlock()

	return working.Clone(), nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
