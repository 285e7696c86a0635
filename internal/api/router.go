package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arnstad/hugin/internal/factservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *factservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Fact table.
	r.Get("/facts", h.GetFacts)
	r.Get("/facts/{name}", h.GetFact)

	// On-demand crawl.
	r.Post("/refresh", h.Refresh)

	// Refresh history.
	r.Get("/snapshots", h.Snapshots)

	// SSE endpoint (protected by the same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
