package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bonds/internal/bond/models"
	id "bonds/pkg/domain"
	dErrors "bonds/pkg/domain-errors"
	"bonds/pkg/platform/httputil"
	"bonds/pkg/requestcontext"
	"bonds/pkg/validation"
)

const pageParam = "page"

// Service defines the bond operations the handler needs.
type Service interface {
	Create(ctx context.Context, owner id.AccountID, input models.RawInput) (*models.Bond, error)
	List(ctx context.Context, owner id.AccountID, params map[string]string, page models.PageRequest) (*models.Page, error)
}

// Handler serves the owner-scoped bond collection. It expects RequireAuth to
// have stored the caller's account id in the request context.
type Handler struct {
	logger *slog.Logger
	bonds  Service
}

// New creates a new bond Handler.
func New(bonds Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		bonds:  bonds,
	}
}

// Register registers the bond routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/bonds", h.handleCreate)
	r.Get("/bonds", h.handleList)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner := requestcontext.AccountID(ctx)
	if owner.IsNil() {
		h.logger.ErrorContext(ctx, "account id missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	input, err := httputil.DecodeFields(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid create bond request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	bond, err := h.bonds.Create(ctx, owner, models.RawInput(input))
	if err != nil {
		var fieldErrs validation.Errors
		switch {
		case errors.As(err, &fieldErrs):
			h.logger.WarnContext(ctx, "bond rejected",
				"request_id", requestID,
				"error", err,
			)
		case dErrors.HasCode(err, dErrors.CodeUpstreamTimeout):
			h.logger.WarnContext(ctx, "bond creation timed out",
				"request_id", requestID,
				"error", err,
			)
		default:
			h.logger.ErrorContext(ctx, "failed to create bond",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, bond.ToResponse())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner := requestcontext.AccountID(ctx)
	if owner.IsNil() {
		h.logger.ErrorContext(ctx, "account id missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	query := r.URL.Query()
	number, ok := models.ParsePageNumber(query.Get(pageParam))
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, models.MsgInvalidPage))
		return
	}

	page, err := h.bonds.List(ctx, owner, lastValues(query), models.PageRequest{Number: number})
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to list bonds",
				"request_id", requestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	resp := models.PageResponse{
		Count:   page.Count,
		Results: make([]models.BondResponse, 0, len(page.Results)),
	}
	for _, bond := range page.Results {
		resp.Results = append(resp.Results, bond.ToResponse())
	}
	if page.HasNext() {
		next := pageURL(r, page.Number+1)
		resp.Next = &next
	}
	if page.HasPrevious() {
		previous := pageURL(r, page.Number-1)
		resp.Previous = &previous
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// lastValues flattens query parameters; a repeated key keeps its last value.
func lastValues(query url.Values) map[string]string {
	params := make(map[string]string, len(query))
	for key, values := range query {
		if len(values) > 0 {
			params[key] = values[len(values)-1]
		}
	}
	return params
}

// pageURL is the absolute URL of the request with its page parameter set to
// number. The first page is linked without a page parameter.
func pageURL(r *http.Request, number int) string {
	u := url.URL{
		Scheme: "http",
		Host:   r.Host,
		Path:   r.URL.Path,
	}
	if r.TLS != nil {
		u.Scheme = "https"
	}
	query := r.URL.Query()
	if number == 1 {
		query.Del(pageParam)
	} else {
		query.Set(pageParam, strconv.Itoa(number))
	}
	u.RawQuery = query.Encode()
	return u.String()
}
