package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starkad/ordna/internal/engine"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(eng *engine.Engine, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(eng)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Conversations.
	r.Post("/conversations", h.CreateConversation)
	r.Get("/conversations", h.ListConversations)
	r.Get("/conversations/{id}", h.GetConversation)
	r.Post("/conversations/{id}/messages", h.AppendMessage)
	r.Post("/conversations/{id}/analyze", h.Analyze)
	r.Post("/conversations/{id}/suggestion", h.RespondSuggestion)
	r.Post("/conversations/{id}/move", h.MoveConversation)

	// Knowledge items.
	r.Post("/items", h.IngestFile)
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}", h.GetItem)
	r.Post("/items/{id}/reference", h.ReferenceItem)
	r.Post("/items/{id}/graduate", h.GraduateItem)
	r.Delete("/items/{id}/graduate", h.DismissGraduation)

	// Search.
	r.Get("/search", h.Search)

	// Projects.
	r.Get("/projects", h.ListProjects)
	r.Post("/projects", h.CreateProject)
	r.Get("/projects/{id}", h.GetProject)

	// Learned preferences.
	r.Get("/patterns", h.Patterns)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
