// Package httpapi is the HTTP boundary: routing, request decoding and
// validation, identity resolution from bearer tokens, and the mapping of
// domain error kinds to transport status codes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"trove.dev/internal/auth"
	"trove.dev/internal/items"
	"trove.dev/internal/obs"
)

// ReadyProbe reports readiness, pinging the database when one is attached.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        chi.Router
	auth       *auth.Service
	items      *items.Service
	validate   *validator.Validate
	readyProbe ReadyProbe
	version    string
}

// Options carries the collaborators and settings New needs.
type Options struct {
	Auth               *auth.Service
	Items              *items.Service
	ReadyProbe         ReadyProbe
	Version            string
	CORSAllowedOrigins []string
}

// New wires routes and middleware.
func New(opts Options) *API {
	a := &API{
		mux:        chi.NewRouter(),
		auth:       opts.Auth,
		items:      opts.Items,
		validate:   validator.New(),
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
	}

	r := a.mux
	r.Use(RequestID)
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(CORS(opts.CORSAllowedOrigins))
	r.Use(MaxBodyBytes(1 << 20))

	r.Get("/health", a.Health)
	r.Get("/readyz", a.Ready)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", a.handleRegister)
			r.Post("/login", a.handleLogin)
			r.Post("/refresh", a.handleRefresh)
			r.With(a.requireUser).Post("/test-token", a.handleTestToken)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", a.handleListItems)
			r.With(a.requireUser).Post("/", a.handleCreateItem)
			r.With(a.requireUser).Get("/my-items", a.handleListMyItems)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetItem)
				r.With(a.requireUser).Put("/", a.handleUpdateItem)
				r.With(a.requireUser).Delete("/", a.handleDeleteItem)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(a.requireUser)
			r.Get("/", a.handleListUsers)
			r.Get("/me", a.handleGetMe)
			r.Put("/me", a.handleUpdateMe)
			r.Get("/{id}", a.handleGetUser)
			r.Delete("/{id}", a.handleDeleteUser)
		})
	})

	return a
}

// Handler returns the root handler wrapped with metrics instrumentation.
func (a *API) Handler() http.Handler {
	return obs.Instrument(a.mux)
}

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "trove-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
