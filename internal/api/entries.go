package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tracker/internal/models"
)

// ListTodos handles GET /api/todos.
//
//	@Summary	List todos by priority, newest first within a priority
//	@Tags		todos
//	@Produce	json
//	@Success	200	{array}	models.TodoSummary
//	@Router		/todos [get]
func (h *Handler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.svc.ListTodos(r.Context())
	if err != nil {
		writeError(w, r, "list todos", err)
		return
	}
	writeData(w, http.StatusOK, todos)
}

// GetTodo handles GET /api/todos/{name}.
func (h *Handler) GetTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.svc.GetTodo(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, "get todo", err)
		return
	}
	writeData(w, http.StatusOK, todo)
}

// CreateTodo handles POST /api/todos.
func (h *Handler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTodoPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	todo, err := h.svc.CreateTodo(r.Context(), req)
	if err != nil {
		writeError(w, r, "create todo", err)
		return
	}
	writeData(w, http.StatusCreated, todo)
}

// DeleteTodo handles DELETE /api/todos/{name}.
func (h *Handler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTodo(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, "delete todo", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// ListIdeas handles GET /api/ideas.
func (h *Handler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	ideas, err := h.svc.ListIdeas(r.Context())
	if err != nil {
		writeError(w, r, "list ideas", err)
		return
	}
	writeData(w, http.StatusOK, ideas)
}

// GetIdea handles GET /api/ideas/{name}.
func (h *Handler) GetIdea(w http.ResponseWriter, r *http.Request) {
	idea, err := h.svc.GetIdea(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, "get idea", err)
		return
	}
	writeData(w, http.StatusOK, idea)
}

// CreateIdea handles POST /api/ideas.
func (h *Handler) CreateIdea(w http.ResponseWriter, r *http.Request) {
	var req models.CreateIdeaPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	idea, err := h.svc.CreateIdea(r.Context(), req)
	if err != nil {
		writeError(w, r, "create idea", err)
		return
	}
	writeData(w, http.StatusCreated, idea)
}

// DeleteIdea handles DELETE /api/ideas/{name}.
func (h *Handler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteIdea(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, "delete idea", err)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// PromoteIdea handles POST /api/ideas/{name}/promote.
//
//	@Summary	Turn an idea into an initiative and delete the idea
//	@Tags		ideas
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string							true	"Idea name"
//	@Param		body	body		models.CreateInitiativePayload	true	"Initiative to create"
//	@Success	201		{object}	InitiativeDetail
//	@Failure	400		{object}	envelope
//	@Router		/ideas/{name}/promote [post]
func (h *Handler) PromoteIdea(w http.ResponseWriter, r *http.Request) {
	var req models.CreateInitiativePayload
	if !decodeJSON(w, r, &req) {
		return
	}
	initiative, err := h.svc.PromoteIdeaToInitiative(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		writeError(w, r, "promote idea", err)
		return
	}
	writeData(w, http.StatusCreated, initiative)
}
