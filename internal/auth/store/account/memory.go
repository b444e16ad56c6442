package account

import (
	"context"
	"fmt"
	"sync"

	"bonds/internal/auth/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

// InMemory stores accounts in memory for tests/dev.
type InMemory struct {
	mu         sync.RWMutex
	byID       map[id.AccountID]*models.Account
	byUsername map[string]id.AccountID
}

// NewInMemory constructs an empty in-memory account store.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:       make(map[id.AccountID]*models.Account),
		byUsername: make(map[string]id.AccountID),
	}
}

// Create stores account unless its username is already taken.
func (s *InMemory) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[account.Username]; taken {
		return fmt.Errorf("username %q: %w", account.Username, sentinel.ErrConflict)
	}
	if _, exists := s.byID[account.ID]; exists {
		return fmt.Errorf("account %s: %w", account.ID, sentinel.ErrConflict)
	}
	stored := *account
	s.byID[account.ID] = &stored
	s.byUsername[account.Username] = account.ID
	return nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accountID, ok := s.byUsername[username]
	if !ok {
		return nil, fmt.Errorf("account not found: %w", sentinel.ErrNotFound)
	}
	found := *s.byID[accountID]
	return &found, nil
}
