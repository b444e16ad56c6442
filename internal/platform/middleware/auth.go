package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "bonds/pkg/domain"
	dErrors "bonds/pkg/domain-errors"
	"bonds/pkg/platform/httputil"
	"bonds/pkg/requestcontext"
)

const (
	MsgCredentialsMissing = "Authentication credentials were not provided."
	MsgInvalidTokenHeader = "Invalid token header."
)

// TokenResolver maps a token key to the account that owns it.
type TokenResolver interface {
	ResolveToken(ctx context.Context, key string) (id.AccountID, error)
}

// RequireAuth authenticates the request from its Authorization header and
// stores the account id in the request context. Both "Bearer <key>" and
// "Token <key>" are accepted.
func RequireAuth(resolver TokenResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			key, err := tokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - bad authorization header",
					"request_id", requestID,
					"error", err,
				)
				unauthorized(w, err)
				return
			}

			accountID, err := resolver.ResolveToken(ctx, key)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - invalid token",
						"request_id", requestID,
					)
					unauthorized(w, err)
					return
				}
				logger.ErrorContext(ctx, "failed to resolve token",
					"request_id", requestID,
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			ctx = requestcontext.WithAccountID(ctx, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// tokenFromHeader extracts the key from an Authorization header. A header
// with another scheme is treated as absent.
func tokenFromHeader(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 || !isTokenScheme(parts[0]) {
		return "", dErrors.New(dErrors.CodeUnauthorized, MsgCredentialsMissing)
	}
	if len(parts) != 2 {
		return "", dErrors.New(dErrors.CodeUnauthorized, MsgInvalidTokenHeader)
	}
	return parts[1], nil
}

func isTokenScheme(scheme string) bool {
	return strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "Token")
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httputil.WriteError(w, err)
}
