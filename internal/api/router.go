// Package api implements the tracker REST API using chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tracker/internal/models"
	"github.com/starford/tracker/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events.
func NewRouter(svc *workspace.Service, cfg models.WorkspaceConfig, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, cfg)

	r := chi.NewRouter()

	// Workspace.
	r.Get("/workspace/tree", h.WorkspaceTree)
	r.Get("/workspace/config", h.WorkspaceConfig)
	r.Post("/workspace/init", h.InitializeWorkspace)

	// Initiatives.
	r.Get("/initiatives", h.ListInitiatives)
	r.Post("/initiatives", h.CreateInitiative)
	r.Route("/initiatives/{state}/{name}", func(r chi.Router) {
		r.Get("/", h.GetInitiative)
		r.Patch("/", h.UpdateInitiative)
		r.Delete("/", h.DeleteInitiative)
		r.Post("/move", h.MoveInitiative)
		r.Get("/files", h.InitiativeFiles)
		r.Get("/file", h.InitiativeFile)
		r.Put("/tracker", h.WriteTracker)
		r.Post("/decisions", h.CreateDecision)
		r.Post("/plans", h.CreatePlan)
	})

	// Sessions.
	r.Post("/sessions", h.CreateSession)

	// Todos.
	r.Get("/todos", h.ListTodos)
	r.Post("/todos", h.CreateTodo)
	r.Get("/todos/{name}", h.GetTodo)
	r.Delete("/todos/{name}", h.DeleteTodo)

	// Ideas.
	r.Get("/ideas", h.ListIdeas)
	r.Post("/ideas", h.CreateIdea)
	r.Get("/ideas/{name}", h.GetIdea)
	r.Delete("/ideas/{name}", h.DeleteIdea)
	r.Post("/ideas/{name}/promote", h.PromoteIdea)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
