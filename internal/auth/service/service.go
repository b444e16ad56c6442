package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"

	"bonds/internal/auth/models"
	"bonds/internal/auth/secrets"
	id "bonds/pkg/domain"
	dErrors "bonds/pkg/domain-errors"
	"bonds/pkg/platform/sentinel"
	"bonds/pkg/requestcontext"
	"bonds/pkg/validation"
)

// Client-facing messages.
const (
	MsgBadCredentials  = "Unable to log in with provided credentials."
	MsgUsernameTaken   = "A user with that username already exists."
	MsgUsernameInvalid = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgPasswordTooLong = "Ensure this field has no more than 72 bytes."
	MsgInvalidToken    = "Invalid token."
)

const (
	usernameFieldName  = "username"
	passwordFieldName  = "password"
	maxPasswordBytes   = 72
	tokenIssueAttempts = 2
)

var usernamePattern = regexp.MustCompile(`^[\pL\pN_.@+-]+$`)

type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByUsername(ctx context.Context, username string) (*models.Account, error)
}

type TokenStore interface {
	Create(ctx context.Context, token *models.Token) error
	FindByKey(ctx context.Context, key string) (*models.Token, error)
	FindByAccount(ctx context.Context, accountID id.AccountID) (*models.Token, error)
}

// Service provisions accounts, exchanges credentials for tokens and resolves
// tokens back to accounts.
type Service struct {
	accounts AccountStore
	tokens   TokenStore
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service.
func New(accounts AccountStore, tokens TokenStore, opts ...Option) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("account store is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}
	s := &Service{accounts: accounts, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Provision creates an account and issues its token. If the token cannot be
// issued the account is kept and the token is created on first
// authentication instead.
func (s *Service) Provision(ctx context.Context, input map[string]any) (*models.Account, *models.Token, error) {
	errs := validation.Errors{}
	username, _ := validation.Text(input, usernameFieldName, validation.TextOptions{MaxLength: models.MaxUsernameLength}, errs)
	if username != "" && !usernamePattern.MatchString(username) {
		errs.Add(usernameFieldName, MsgUsernameInvalid)
	}
	password, ok := validation.Text(input, passwordFieldName, validation.TextOptions{KeepWhitespace: true}, errs)
	if ok && len(password) > maxPasswordBytes {
		errs.Add(passwordFieldName, MsgPasswordTooLong)
	}
	if err := errs.Err(); err != nil {
		return nil, nil, err
	}

	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	account := &models.Account{
		ID:           id.NewAccountID(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			taken := validation.Errors{}
			taken.Add(usernameFieldName, MsgUsernameTaken)
			return nil, nil, taken
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}

	s.logger.InfoContext(ctx, "account provisioned",
		"request_id", requestcontext.RequestID(ctx),
		"account_id", account.ID.String(),
	)

	token, err := s.issueToken(ctx, account.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "token issuance failed after provisioning",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", account.ID.String(),
			"error", err,
		)
		return account, nil, nil
	}
	return account, token, nil
}

// Authenticate checks a username and password and returns the account's
// token, creating it when the account has none.
func (s *Service) Authenticate(ctx context.Context, input map[string]any) (*models.Token, error) {
	errs := validation.Errors{}
	username, _ := validation.Text(input, usernameFieldName, validation.TextOptions{}, errs)
	password, _ := validation.Text(input, passwordFieldName, validation.TextOptions{KeepWhitespace: true}, errs)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.badCredentials(ctx, username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if err := secrets.Verify(password, account.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, s.badCredentials(ctx, username)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	token, err := s.tokens.FindByAccount(ctx, account.ID)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load token")
	}
	token, err = s.issueToken(ctx, account.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return token, nil
}

func (s *Service) badCredentials(ctx context.Context, username string) error {
	s.logger.WarnContext(ctx, "authentication failed",
		"request_id", requestcontext.RequestID(ctx),
		"username", username,
	)
	errs := validation.Errors{}
	errs.Add(validation.NonFieldErrors, MsgBadCredentials)
	return errs
}

// issueToken creates the account's token. When another request created it
// first, that token is returned.
func (s *Service) issueToken(ctx context.Context, accountID id.AccountID) (*models.Token, error) {
	var lastErr error
	for range tokenIssueAttempts {
		key, err := secrets.GenerateKey()
		if err != nil {
			return nil, err
		}
		token := &models.Token{Key: key, AccountID: accountID, CreatedAt: requestcontext.Now(ctx)}
		err = s.tokens.Create(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, err
		}
		existing, findErr := s.tokens.FindByAccount(ctx, accountID)
		if findErr == nil {
			return existing, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ResolveToken maps a token key to its account.
func (s *Service) ResolveToken(ctx context.Context, key string) (id.AccountID, error) {
	token, err := s.tokens.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.AccountID{}, dErrors.New(dErrors.CodeUnauthorized, MsgInvalidToken)
		}
		return id.AccountID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve token")
	}
	return token.AccountID, nil
}
