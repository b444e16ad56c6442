package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bonds/internal/auth/models"
	id "bonds/pkg/domain"
	"bonds/pkg/platform/sentinel"
)

const (
	tokenKeyPrefix   = "auth:token:key:"
	accountKeyPrefix = "auth:token:account:"
)

type redisToken struct {
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RedisStore keeps tokens in Redis so several instances share them. Tokens
// do not expire.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed token store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Create writes the account slot and the key record together with MSETNX.
// Neither is written when either already exists, so an account never ends
// up with two tokens or with a slot naming a missing key.
func (s *RedisStore) Create(ctx context.Context, token *models.Token) error {
	payload, err := json.Marshal(redisToken{AccountID: token.AccountID.String(), CreatedAt: token.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	written, err := s.client.MSetNX(ctx,
		accountKeyPrefix+token.AccountID.String(), token.Key,
		tokenKeyPrefix+token.Key, payload,
	).Result()
	if err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if !written {
		return fmt.Errorf("token for account %s: %w", token.AccountID, sentinel.ErrConflict)
	}
	return nil
}

func (s *RedisStore) FindByKey(ctx context.Context, key string) (*models.Token, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	var stored redisToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	accountID, err := id.ParseAccountID(stored.AccountID)
	if err != nil {
		return nil, fmt.Errorf("stored token account: %w", err)
	}
	return &models.Token{Key: key, AccountID: accountID, CreatedAt: stored.CreatedAt}, nil
}

func (s *RedisStore) FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Token, error) {
	key, err := s.client.Get(ctx, accountKeyPrefix+accountID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token by account: %w", err)
	}
	return s.FindByKey(ctx, key)
}
