package store

import (
	"context"
	"fmt"
	"sync"

	"bonds/internal/bond/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

// InMemory stores bonds in insertion order for tests and single-node runs.
type InMemory struct {
	mu    sync.RWMutex
	bonds []*models.Bond
	ids   map[id.BondID]struct{}
}

// NewInMemory constructs an empty in-memory bond store.
func NewInMemory() *InMemory {
	return &InMemory{ids: make(map[id.BondID]struct{})}
}

func (s *InMemory) Create(_ context.Context, bond *models.Bond) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.ids[bond.ID]; exists {
		return fmt.Errorf("bond %s: %w", bond.ID, sentinel.ErrConflict)
	}
	stored := *bond
	s.bonds = append(s.bonds, &stored)
	s.ids[bond.ID] = struct{}{}
	return nil
}

func (s *InMemory) List(_ context.Context, owner id.AccountID, filter models.Filter, page models.PageRequest) ([]*models.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offset := page.Offset()
	results := make([]*models.Bond, 0)
	matched := 0
	for _, b := range s.bonds {
		if b.Owner != owner || !filter.Matches(b) {
			continue
		}
		matched++
		if matched <= offset {
			continue
		}
		if page.Size > 0 && len(results) >= page.Size {
			break
		}
		cp := *b
		results = append(results, &cp)
	}
	return results, nil
}

func (s *InMemory) Count(_ context.Context, owner id.AccountID, filter models.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, b := range s.bonds {
		if b.Owner == owner && filter.Matches(b) {
			n++
		}
	}
	return n, nil
}
