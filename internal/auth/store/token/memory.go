package token

import (
	"context"
	"fmt"
	"sync"

	"bonds/internal/auth/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

// InMemory stores tokens in memory for tests/dev.
type InMemory struct {
	mu        sync.RWMutex
	byKey     map[string]*models.Token
	byAccount map[id.AccountID]string
}

// NewInMemory constructs an empty in-memory token store.
func NewInMemory() *InMemory {
	return &InMemory{
		byKey:     make(map[string]*models.Token),
		byAccount: make(map[id.AccountID]string),
	}
}

// Create stores token unless its account already has one or its key is in use.
func (s *InMemory) Create(_ context.Context, token *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byAccount[token.AccountID]; exists {
		return fmt.Errorf("token for account %s: %w", token.AccountID, sentinel.ErrConflict)
	}
	if _, exists := s.byKey[token.Key]; exists {
		return fmt.Errorf("token key: %w", sentinel.ErrConflict)
	}
	stored := *token
	s.byKey[token.Key] = &stored
	s.byAccount[token.AccountID] = token.Key
	return nil
}

func (s *InMemory) FindByKey(_ context.Context, key string) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byKey[key]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	found := *t
	return &found, nil
}

func (s *InMemory) FindByAccount(_ context.Context, accountID id.AccountID) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byAccount[accountID]
	if !ok {
		return nil, fmt.Errorf("token not found: %w", sentinel.ErrNotFound)
	}
	found := *s.byKey[key]
	return &found, nil
}
