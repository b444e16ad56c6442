package models

import (
	"time"

	id "bonds/pkg/domain"
)

// MaxUsernameLength is the character limit for usernames.
const MaxUsernameLength = 150

// Account is a caller identity that owns bonds.
type Account struct {
	ID           id.AccountID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Token is the opaque credential for an account. Each account has at most
// one token.
type Token struct {
	Key       string
	AccountID id.AccountID
	CreatedAt time.Time
}

// TokenResponse is returned by the token exchange.
type TokenResponse struct {
	Token string `json:"token"`
}

// AccountResponse is returned when an account is provisioned.
type AccountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}
