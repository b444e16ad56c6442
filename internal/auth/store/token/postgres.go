package token

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bonds/internal/auth/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists tokens in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed token store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, token *models.Token) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO auth_tokens (key, account_id, created_at)
		VALUES ($1, $2, $3)
	`, token.Key, uuid.UUID(token.AccountID), token.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("create token: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByKey(ctx context.Context, key string) (*models.Token, error) {
	return s.findOne(ctx, `SELECT key, account_id, created_at FROM auth_tokens WHERE key = $1`, key)
}

func (s *PostgresStore) FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Token, error) {
	return s.findOne(ctx, `SELECT key, account_id, created_at FROM auth_tokens WHERE account_id = $1`, uuid.UUID(accountID))
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Token, error) {
	var (
		accountID uuid.UUID
		token     models.Token
	)
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&token.Key, &accountID, &token.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	token.AccountID = id.AccountID(accountID)
	return &token, nil
}
