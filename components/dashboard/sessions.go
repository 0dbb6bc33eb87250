package dashboard

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// SessionStore holds per-session controllers.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Controller, bool)
	Put(ctx context.Context, controller *Controller) error
	Delete(ctx context.Context, id string) error
	IDs(ctx context.Context) []string
}

// InMemorySessionStore is a concurrency-safe SessionStore.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewInMemorySessionStore creates an empty store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*Controller),
	}
}

// Get returns the controller for id.
func (s *InMemorySessionStore) Get(_ context.Context, id string) (*Controller, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	controller, ok := s.sessions[id]
	return controller, ok
}

// Put stores a controller under its id.
func (s *InMemorySessionStore) Put(_ context.Context, controller *Controller) error {
	if controller == nil || controller.ID() == "" {
		return errors.New("dashboard: session store requires a controller with an id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[controller.ID()] = controller
	return nil
}

// Delete removes a session. Unknown ids are ignored.
func (s *InMemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// IDs lists stored session ids in sorted order.
func (s *InMemorySessionStore) IDs(_ context.Context) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
