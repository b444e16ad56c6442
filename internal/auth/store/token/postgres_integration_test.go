//go:build integration

package token_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bonds/internal/auth/models"
	"bonds/internal/auth/store/account"
	"bonds/internal/auth/store/token"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
	"bonds/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	accounts *account.PostgresStore
	store    *token.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.accounts = account.NewPostgres(s.postgres.Pool)
	s.store = token.NewPostgres(s.postgres.Pool)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "bonds", "auth_tokens", "accounts"))
}

func (s *PostgresStoreSuite) TestAccountAndTokenRoundTrip() {
	ctx := context.Background()
	acct := &models.Account{ID: id.NewAccountID(), Username: "mat", PasswordHash: "hash", CreatedAt: time.Now()}
	s.Require().NoError(s.accounts.Create(ctx, acct))
	s.ErrorIs(s.accounts.Create(ctx, &models.Account{ID: id.NewAccountID(), Username: "mat", PasswordHash: "h", CreatedAt: time.Now()}), sentinel.ErrConflict)

	found, err := s.accounts.FindByUsername(ctx, "mat")
	s.Require().NoError(err)
	s.Equal(acct.ID, found.ID)

	_, err = s.accounts.FindByUsername(ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)

	key := "0123456789abcdef0123456789abcdef01234567"
	s.Require().NoError(s.store.Create(ctx, &models.Token{Key: key, AccountID: acct.ID, CreatedAt: time.Now()}))
	s.ErrorIs(s.store.Create(ctx, &models.Token{Key: "f123456789abcdef0123456789abcdef01234567", AccountID: acct.ID, CreatedAt: time.Now()}), sentinel.ErrConflict)

	byKey, err := s.store.FindByKey(ctx, key)
	s.Require().NoError(err)
	s.Equal(acct.ID, byKey.AccountID)

	byAccount, err := s.store.FindByAccount(ctx, acct.ID)
	s.Require().NoError(err)
	s.Equal(key, byAccount.Key)
}
