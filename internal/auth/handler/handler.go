package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bonds/internal/auth/models"
	"bonds/pkg/platform/httputil"
	"bonds/pkg/requestcontext"
	"bonds/pkg/validation"
)

// Service defines the account and token operations the handler needs.
type Service interface {
	Provision(ctx context.Context, input map[string]any) (*models.Account, *models.Token, error)
	Authenticate(ctx context.Context, input map[string]any) (*models.Token, error)
}

// Handler serves the token exchange and account provisioning endpoints.
type Handler struct {
	logger *slog.Logger
	auth   Service
}

// New creates a new auth Handler.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		auth:   auth,
	}
}

// Register mounts the public token exchange route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/authenticate", h.handleAuthenticate)
}

// RegisterAdmin mounts account provisioning. The caller guards r.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/accounts", h.handleProvision)
}

func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, err := httputil.DecodeFields(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid authenticate request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.auth.Authenticate(ctx, input)
	if err != nil {
		h.logFailure(ctx, "authenticate failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.TokenResponse{Token: token.Key})
}

func (h *Handler) handleProvision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, err := httputil.DecodeFields(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid provision request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	account, token, err := h.auth.Provision(ctx, input)
	if err != nil {
		h.logFailure(ctx, "provision failed", err)
		httputil.WriteError(w, err)
		return
	}

	resp := models.AccountResponse{ID: account.ID.String(), Username: account.Username}
	if token != nil {
		resp.Token = token.Key
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// logFailure logs validation failures as warnings and everything else as
// errors.
func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
