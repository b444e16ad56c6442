package httptransport

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"bonds/internal/platform/metrics"
	"bonds/internal/platform/middleware"
	"bonds/pkg/platform/httputil"
)

// RouteRegistrar mounts a handler's routes on a router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// AuthRegistrar mounts the public auth routes and the operator routes. The
// operator routes go on a router already guarded by the admin token.
type AuthRegistrar interface {
	RouteRegistrar
	RegisterAdmin(r chi.Router)
}

// Dependencies are the collaborators the router wires together.
type Dependencies struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Tokens     middleware.TokenResolver
	Auth       AuthRegistrar
	Bonds      RouteRegistrar
	AdminToken string
}

// NewRouter wires all public endpoints. The admin routes are mounted only
// when an admin token is configured.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.StripSlashes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(deps.Logger, deps.Metrics))
	r.Use(middleware.Recovery(deps.Logger))

	r.Get("/", handleRoot)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	deps.Auth.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.Tokens, deps.Logger))
		deps.Bonds.Register(r)
	})

	if deps.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdminToken(deps.AdminToken, deps.Logger))
			deps.Auth.RegisterAdmin(r)
		})
	}

	return r
}

// handleRoot lists the top-level resources as absolute URLs.
func handleRoot(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	link := func(path string) string {
		return (&url.URL{Scheme: scheme, Host: r.Host, Path: path}).String()
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"authenticate": link("/authenticate"),
		"bonds":        link("/bonds"),
	})
}
