package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/itsbohara/anchor/internal/refservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *refservice.Service, actions Actions, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, actions)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/references", h.ListReferences)
	r.Post("/references", h.AddReference)
	r.Put("/references/{id}", h.UpdateReference)
	r.Delete("/references/{id}", h.DeleteReference)

	r.Get("/path-exists", h.PathExists)

	r.Post("/actions/{command}", h.RunAction)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
