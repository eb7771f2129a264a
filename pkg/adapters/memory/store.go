package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/railyard/pkg/domain"
)

// Store implements ports.LayoutStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Layout
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Layout),
	}
}

// Save persists a deep copy of the layout.
func (s *Store) Save(ctx context.Context, layoutID string, layout *domain.Layout) error {
	if layout == nil {
		return fmt.Errorf("layout %s is nil", layoutID)
	}
	copied := layout.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[layoutID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate the stored layout.
func (s *Store) Load(ctx context.Context, layoutID string) (*domain.Layout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.data[layoutID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLayoutNotFound, layoutID)
	}
	ret := l.Clone()
	return &ret, nil
}

// Delete removes the layout.
func (s *Store) Delete(ctx context.Context, layoutID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, layoutID)
	return nil
}

// List returns the stored layout IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
