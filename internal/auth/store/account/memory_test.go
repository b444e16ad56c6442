package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bonds/internal/auth/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

type AccountStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestAccountStoreSuite(t *testing.T) {
	suite.Run(t, new(AccountStoreSuite))
}

func (s *AccountStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func newAccount(username string) *models.Account {
	return &models.Account{
		ID:           id.NewAccountID(),
		Username:     username,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
}

func (s *AccountStoreSuite) TestCreateAndFind() {
	s.Run("finds by username", func() {
		a := newAccount("mat")
		s.Require().NoError(s.store.Create(s.ctx, a))

		found, err := s.store.FindByUsername(s.ctx, "mat")
		s.Require().NoError(err)
		s.Equal(a.ID, found.ID)
	})

	s.Run("unknown username is not found", func() {
		_, err := s.store.FindByUsername(s.ctx, "nobody")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("duplicate username conflicts", func() {
		s.Require().NoError(s.store.Create(s.ctx, newAccount("dup")))
		s.ErrorIs(s.store.Create(s.ctx, newAccount("dup")), sentinel.ErrConflict)
	})

	s.Run("usernames are case sensitive", func() {
		s.Require().NoError(s.store.Create(s.ctx, newAccount("Case")))
		s.NoError(s.store.Create(s.ctx, newAccount("case")))
	})
}
